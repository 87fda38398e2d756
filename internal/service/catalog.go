package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"locarto/internal/model"
	"locarto/pkg/cache"
	"locarto/prometheus"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

const catalogTTL = 5 * time.Minute

// ProductInput carries the editable fields of a product
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
	Images      []string
}

// ProductFilter narrows a listing; zero values mean no constraint
type ProductFilter struct {
	VendorID *uint
	Category string
}

// Catalog owns products. Public reads are served cache-aside.
type Catalog struct {
	db    *gorm.DB
	cache cache.Cache
	log   *zap.Logger
}

func NewCatalog(db *gorm.DB, c cache.Cache, log *zap.Logger) *Catalog {
	return &Catalog{db: db, cache: c, log: log}
}

// normalizeCategory title-cases a category so "home decor" and "HOME DECOR" group together
func normalizeCategory(category string) string {
	category = strings.Join(strings.Fields(category), " ")
	if category == "" {
		return ""
	}
	return cases.Title(language.English).String(category)
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return validationf("name is required")
	}
	if !in.Price.IsPositive() {
		return validationf("price must be greater than zero")
	}
	if in.Quantity < 0 {
		return validationf("quantity must not be negative")
	}
	in.Category = normalizeCategory(in.Category)
	in.Price = in.Price.Round(2)
	return nil
}

// canManageProduct is the ownership predicate for product writes.
// Admins may delete any product but never edit one.
func canManageProduct(actor *model.Actor, product *model.Product, deleting bool) bool {
	if actor.Is(model.RoleVendor) && product.OwnedBy(actor.ID) {
		return true
	}
	return deleting && actor.Is(model.RoleAdmin)
}

func (s *Catalog) CreateProduct(ctx context.Context, vendor *model.Actor, in ProductInput) (*model.Product, error) {
	if !vendor.Is(model.RoleVendor) {
		return nil, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	product := model.Product{
		VendorID:    vendor.ID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Category:    in.Category,
		Images:      in.Images,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		if errors.Is(translate(err, ""), ErrConflict) {
			return nil, ErrDuplicateProduct
		}
		return nil, err
	}

	s.invalidate(ctx, product)
	prometheus.RecordCatalogOperation("create")
	s.log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.Uint("vendor_id", vendor.ID),
		zap.String("name", product.Name))
	return &product, nil
}

// ListProducts reads straight from the database, oldest first
func (s *Catalog) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	query := s.db.WithContext(ctx).Model(&model.Product{})
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if category := normalizeCategory(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}

	products := []model.Product{}
	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// PublicProducts is ListProducts behind the listing cache
func (s *Catalog) PublicProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	key := listingKey(filter)
	if key == "" {
		// combined filters are not cached; invalidation only tracks single dimensions
		return s.ListProducts(ctx, filter)
	}

	var products []model.Product
	if hit, err := cache.GetJSON(ctx, s.cache, key, &products); err != nil {
		s.log.Warn("Catalog cache read failed, continuing with database", zap.String("key", key), zap.Error(err))
	} else if hit {
		return products, nil
	}

	products, err := s.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, products, catalogTTL); err != nil {
		s.log.Warn("Failed to cache product listing", zap.String("key", key), zap.Error(err))
	}
	return products, nil
}

func (s *Catalog) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	key := productKey(id)

	var product model.Product
	if hit, err := cache.GetJSON(ctx, s.cache, key, &product); err != nil {
		s.log.Warn("Catalog cache read failed, continuing with database", zap.String("key", key), zap.Error(err))
	} else if hit {
		return &product, nil
	}

	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, translate(err, "product")
	}
	if err := cache.SetJSON(ctx, s.cache, key, product, catalogTTL); err != nil {
		s.log.Warn("Failed to cache product", zap.String("key", key), zap.Error(err))
	}
	return &product, nil
}

func (s *Catalog) UpdateProduct(ctx context.Context, vendor *model.Actor, id uint, in ProductInput) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var product model.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, translate(err, "product")
	}
	if !canManageProduct(vendor, &product, false) {
		return nil, fmt.Errorf("%w: product belongs to another vendor", ErrForbidden)
	}
	previous := product

	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.Quantity = in.Quantity
	product.Category = in.Category
	product.Images = in.Images

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := s.db.WithContext(ctx).Save(&product).Error; err != nil {
		if errors.Is(translate(err, ""), ErrConflict) {
			return nil, ErrDuplicateProduct
		}
		return nil, err
	}

	s.invalidate(ctx, previous, product)
	prometheus.RecordCatalogOperation("update")
	s.log.Info("Product updated",
		zap.Uint("product_id", product.ID),
		zap.Uint("vendor_id", vendor.ID))
	return &product, nil
}

func (s *Catalog) DeleteProduct(ctx context.Context, actor *model.Actor, id uint) error {
	var product model.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return translate(err, "product")
	}
	if !canManageProduct(actor, &product, true) {
		return fmt.Errorf("%w: product belongs to another vendor", ErrForbidden)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := s.db.WithContext(ctx).Delete(&product).Error; err != nil {
		return err
	}

	s.invalidate(ctx, product)
	prometheus.RecordCatalogOperation("delete")
	s.log.Info("Product deleted",
		zap.Uint("product_id", product.ID),
		zap.Uint("actor_id", actor.ID),
		zap.String("role", string(actor.Role)))
	return nil
}

// invalidate drops every cached view the given products appear in
func (s *Catalog) invalidate(ctx context.Context, products ...model.Product) {
	if len(products) == 0 {
		return
	}
	keys := []string{"products:all"}
	for _, p := range products {
		keys = append(keys,
			productKey(p.ID),
			fmt.Sprintf("products:vendor:%d", p.VendorID),
		)
		if p.Category != "" {
			keys = append(keys, "products:category:"+p.Category)
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("Failed to invalidate catalog cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

func productKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

// listingKey keys on the normalized category so a blank category shares
// products:all with the unfiltered listing.
func listingKey(filter ProductFilter) string {
	category := normalizeCategory(filter.Category)
	switch {
	case filter.VendorID != nil && category != "":
		return ""
	case filter.VendorID != nil:
		return fmt.Sprintf("products:vendor:%d", *filter.VendorID)
	case category != "":
		return "products:category:" + category
	}
	return "products:all"
}
