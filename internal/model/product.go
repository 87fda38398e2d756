package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry owned by exactly one vendor
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	VendorID    uint            `json:"vendor_id" gorm:"not null;index;uniqueIndex:idx_products_vendor_name"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_products_vendor_name"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Quantity    int             `json:"quantity" gorm:"not null;default:0"`
	Category    string          `json:"category" gorm:"type:varchar(100);index"`
	Images      []string        `json:"images" gorm:"serializer:json;type:text"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) OwnedBy(vendorID uint) bool {
	return p.VendorID == vendorID
}
