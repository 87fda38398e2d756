package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"locarto/internal/model"
	"locarto/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReviewInput is a consumer's rating of a product
type ReviewInput struct {
	Stars   int
	Title   string
	Content string
	Images  []string
}

type Reviews struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewReviews(db *gorm.DB, log *zap.Logger) *Reviews {
	return &Reviews{db: db, log: log, now: time.Now}
}

// AddReview requires a non-cancelled order for the product and allows one review per consumer
func (s *Reviews) AddReview(ctx context.Context, consumer *model.Actor, productID uint, in ReviewInput) (*model.Review, error) {
	if !consumer.Is(model.RoleConsumer) {
		return nil, ErrForbidden
	}
	if in.Stars < 1 || in.Stars > 5 {
		return nil, validationf("stars must be between 1 and 5")
	}

	if _, err := s.product(ctx, productID); err != nil {
		return nil, err
	}

	var purchases int64
	err := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("consumer_id = ? AND product_id = ? AND order_status <> ?", consumer.ID, productID, model.OrderCancelled).
		Count(&purchases).Error
	if err != nil {
		return nil, err
	}
	if purchases == 0 {
		return nil, fmt.Errorf("%w: only customers who ordered this product can review it", ErrForbidden)
	}

	review := model.Review{
		ProductID:  productID,
		ConsumerID: consumer.ID,
		Stars:      in.Stars,
		Title:      strings.TrimSpace(in.Title),
		Content:    strings.TrimSpace(in.Content),
		Images:     in.Images,
	}
	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		return nil, translate(err, "product already reviewed")
	}

	prometheus.RecordReviewOperation("add")
	s.log.Info("Review added",
		zap.Uint("review_id", review.ID),
		zap.Uint("product_id", productID),
		zap.Int("stars", review.Stars))
	return &review, nil
}

// GetReviews lists a product's reviews oldest first, with their summary
func (s *Reviews) GetReviews(ctx context.Context, productID uint) ([]model.Review, model.ReviewSummary, error) {
	var summary model.ReviewSummary
	if _, err := s.product(ctx, productID); err != nil {
		return nil, summary, err
	}

	reviews := []model.Review{}
	if err := s.db.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&reviews).Error; err != nil {
		return nil, summary, err
	}

	summary.Count = int64(len(reviews))
	if summary.Count > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Stars
		}
		summary.AverageRating = math.Round(float64(total)/float64(summary.Count)*100) / 100
	}
	return reviews, summary, nil
}

// ReplyToReview sets the vendor's single reply, replacing any earlier one
func (s *Reviews) ReplyToReview(ctx context.Context, vendor *model.Actor, reviewID uint, text string) (*model.Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationf("reply text is required")
	}

	review, err := s.ownedReview(ctx, vendor, reviewID)
	if err != nil {
		return nil, err
	}

	repliedAt := s.now()
	err = s.db.WithContext(ctx).Model(review).Updates(map[string]interface{}{
		"vendor_reply": text,
		"replied_at":   repliedAt,
	}).Error
	if err != nil {
		return nil, err
	}
	review.VendorReply = &text
	review.RepliedAt = &repliedAt

	prometheus.RecordReviewOperation("reply")
	s.log.Info("Review replied", zap.Uint("review_id", review.ID), zap.Uint("vendor_id", vendor.ID))
	return review, nil
}

func (s *Reviews) DeleteReply(ctx context.Context, vendor *model.Actor, reviewID uint) (*model.Review, error) {
	review, err := s.ownedReview(ctx, vendor, reviewID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(review).Updates(map[string]interface{}{
		"vendor_reply": nil,
		"replied_at":   nil,
	}).Error
	if err != nil {
		return nil, err
	}
	review.VendorReply = nil
	review.RepliedAt = nil

	prometheus.RecordReviewOperation("delete_reply")
	s.log.Info("Review reply deleted", zap.Uint("review_id", review.ID), zap.Uint("vendor_id", vendor.ID))
	return review, nil
}

// DeleteReview is open to the review's author and to admins
func (s *Reviews) DeleteReview(ctx context.Context, actor *model.Actor, reviewID uint) error {
	var review model.Review
	if err := s.db.WithContext(ctx).First(&review, reviewID).Error; err != nil {
		return translate(err, "review")
	}

	isAuthor := actor.Is(model.RoleConsumer) && review.ConsumerID == actor.ID
	if !isAuthor && !actor.Is(model.RoleAdmin) {
		return fmt.Errorf("%w: only the author or an admin may delete a review", ErrForbidden)
	}

	if err := s.db.WithContext(ctx).Delete(&review).Error; err != nil {
		return err
	}

	prometheus.RecordReviewOperation("delete")
	s.log.Info("Review deleted",
		zap.Uint("review_id", review.ID),
		zap.Uint("actor_id", actor.ID),
		zap.String("role", string(actor.Role)))
	return nil
}

func (s *Reviews) product(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, translate(err, "product")
	}
	return &product, nil
}

func (s *Reviews) ownedReview(ctx context.Context, vendor *model.Actor, reviewID uint) (*model.Review, error) {
	var review model.Review
	if err := s.db.WithContext(ctx).First(&review, reviewID).Error; err != nil {
		return nil, translate(err, "review")
	}
	product, err := s.product(ctx, review.ProductID)
	if err != nil {
		return nil, err
	}
	if !vendor.Is(model.RoleVendor) || !product.OwnedBy(vendor.ID) {
		return nil, fmt.Errorf("%w: review is on another vendor's product", ErrForbidden)
	}
	return &review, nil
}
