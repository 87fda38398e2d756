package model

import (
	"time"
)

// Review is a consumer's review of a product they ordered, with at most
// one vendor reply attached.
type Review struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	ProductID   uint       `json:"product_id" gorm:"not null;index;uniqueIndex:idx_reviews_consumer_product"`
	ConsumerID  uint       `json:"consumer_id" gorm:"not null;uniqueIndex:idx_reviews_consumer_product"`
	Stars       int        `json:"stars" gorm:"not null"`
	Title       string     `json:"title" gorm:"type:varchar(200)"`
	Content     string     `json:"content" gorm:"type:text"`
	Images      []string   `json:"review_images" gorm:"serializer:json;type:text"`
	VendorReply *string    `json:"vendor_reply,omitempty" gorm:"type:text"`
	RepliedAt   *time.Time `json:"replied_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ReviewSummary aggregates the reviews of one product
type ReviewSummary struct {
	Count         int64   `json:"count"`
	AverageRating float64 `json:"average_rating"`
}
