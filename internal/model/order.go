package model

import (
	"time"
)

// OrderStatus is the delivery axis of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// delivered and cancelled have no outgoing edges
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderShipped, OrderCancelled},
	OrderShipped: {OrderDelivered, OrderCancelled},
}

// ParseOrderStatus validates a status supplied by a client
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderPending, OrderShipped, OrderDelivered, OrderCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// CanTransition reports whether to is reachable from s in one step
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal is true for statuses with no outgoing transition
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// Cancellable is true while the order has not been delivered or cancelled
func (s OrderStatus) Cancellable() bool {
	return s.CanTransition(OrderCancelled)
}

// SupportStatus is the support-ticket axis, independent of delivery
type SupportStatus string

const (
	SupportOpen       SupportStatus = "open"
	SupportInProgress SupportStatus = "in_progress"
	SupportClosed     SupportStatus = "closed"
)

var supportRank = map[SupportStatus]int{
	SupportOpen:       0,
	SupportInProgress: 1,
	SupportClosed:     2,
}

func ParseSupportStatus(s string) (SupportStatus, bool) {
	if _, ok := supportRank[SupportStatus(s)]; ok {
		return SupportStatus(s), true
	}
	return "", false
}

// CanAdvance allows only the next step forward: open -> in_progress -> closed
func (s SupportStatus) CanAdvance(to SupportStatus) bool {
	from, ok := supportRank[s]
	if !ok {
		return false
	}
	next, ok := supportRank[to]
	return ok && next == from+1
}

// Order is a consumer's purchase of one unit of one product
type Order struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	ProductID       uint          `json:"product_id" gorm:"not null;index"`
	ConsumerID      uint          `json:"consumer_id" gorm:"not null;index"`
	VendorID        uint          `json:"vendor_id" gorm:"not null;index"`
	OrderStatus     OrderStatus   `json:"order_status" gorm:"type:varchar(20);not null;index"`
	SupportStatus   SupportStatus `json:"support_status" gorm:"type:varchar(20);not null"`
	DeliveryDate    time.Time     `json:"delivery_date"`
	ShippingAddress string        `json:"shipping_address" gorm:"type:text"`
	Pincode         string        `json:"pincode" gorm:"type:varchar(12)"`
	Waybill         string        `json:"waybill,omitempty" gorm:"type:varchar(64);index"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// OrderDetail is an order joined with the names shown in listings
type OrderDetail struct {
	Order
	ProductName  string `json:"product_name"`
	VendorName   string `json:"vendor_name"`
	ConsumerName string `json:"consumer_name"`
}
