package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentComplete PaymentStatus = "complete"
)

// Transaction is the payment record backing exactly one order.
// Once complete it is never modified again.
type Transaction struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	OrderID          uint            `json:"order_id" gorm:"not null;uniqueIndex"`
	ConsumerID       uint            `json:"consumer_id" gorm:"not null;index"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency         string          `json:"currency" gorm:"type:varchar(3);not null"`
	PaymentStatus    PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);not null;index"`
	PaymentDate      *time.Time      `json:"payment_date,omitempty"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty" gorm:"type:varchar(64);index"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (t *Transaction) Complete() bool {
	return t.PaymentStatus == PaymentComplete
}
