package service

import (
	"context"
	"strings"
	"time"

	"locarto/internal/model"
	"locarto/prometheus"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

// SignupInput is what a new account supplies
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Credentials stores actors and their password hashes
type Credentials struct {
	db      *gorm.DB
	catalog *Catalog
	log     *zap.Logger
	cost    int
}

func NewCredentials(db *gorm.DB, catalog *Catalog, log *zap.Logger) *Credentials {
	return &Credentials{db: db, catalog: catalog, log: log, cost: bcrypt.DefaultCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new actor for role. The (email, role) pair must be unused.
func (s *Credentials) Signup(ctx context.Context, role model.Role, in SignupInput) (*model.Actor, error) {
	if _, ok := model.ParseRole(string(role)); !ok {
		return nil, validationf("unknown role %q", role)
	}
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, validationf("email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, validationf("password too short")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}

	actor := model.Actor{
		Role:     role,
		Email:    email,
		Name:     strings.TrimSpace(in.Name),
		Password: string(hashed),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Create(&actor).Error; err != nil {
		return nil, translate(err, "email already registered")
	}

	prometheus.RecordSignup(string(role))
	s.log.Info("Actor registered",
		zap.Uint("actor_id", actor.ID),
		zap.String("role", string(role)))
	return &actor, nil
}

// Lookup finds the actor holding email under role
func (s *Credentials) Lookup(ctx context.Context, email string, role model.Role) (*model.Actor, error) {
	var actor model.Actor
	err := s.db.WithContext(ctx).
		Where("email = ? AND role = ?", normalizeEmail(email), role).
		First(&actor).Error
	if err != nil {
		return nil, translate(err, "actor")
	}
	return &actor, nil
}

func (s *Credentials) Get(ctx context.Context, id uint) (*model.Actor, error) {
	var actor model.Actor
	if err := s.db.WithContext(ctx).First(&actor, id).Error; err != nil {
		return nil, translate(err, "actor")
	}
	return &actor, nil
}

// Delete removes the account. A vendor's products go with it; orders and
// transactions are kept as history.
func (s *Credentials) Delete(ctx context.Context, actor *model.Actor) error {
	var removed []model.Product

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if actor.Is(model.RoleVendor) {
			if err := tx.Where("vendor_id = ?", actor.ID).Find(&removed).Error; err != nil {
				return err
			}
			if err := tx.Where("vendor_id = ?", actor.ID).Delete(&model.Product{}).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&model.Actor{}, actor.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return translate(err, "actor")
	}

	if s.catalog != nil {
		s.catalog.invalidate(ctx, removed...)
	}
	s.log.Info("Actor deleted",
		zap.Uint("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.Int("products_removed", len(removed)))
	return nil
}
