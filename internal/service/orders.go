package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"locarto/internal/model"
	"locarto/pkg/shipping"
	"locarto/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Carrier is the shipping provider as the order manager sees it
type Carrier interface {
	CheckServiceability(ctx context.Context, pincode string) (bool, error)
	AllocateWaybill(ctx context.Context) (string, error)
	CreateShipment(ctx context.Context, s shipping.Shipment) error
	CancelShipment(ctx context.Context, waybill string) error
	Track(ctx context.Context, waybill string) (*shipping.TrackingInfo, error)
	Label(ctx context.Context, waybill string) (*shipping.Label, error)
}

// PlaceOrderInput is one unit of one product bound for a delivery date
type PlaceOrderInput struct {
	ProductID       uint
	DeliveryDate    time.Time
	ShippingAddress string
	Pincode         string
}

// OrderFilter narrows listings. Name filters are case-insensitive substrings.
type OrderFilter struct {
	ProductName  string
	VendorName   string
	ConsumerName string
	Range        string // today, week, month, all
}

// PlacedOrder is an order together with the payment record created with it
type PlacedOrder struct {
	Order       *model.Order       `json:"order"`
	Transaction *model.Transaction `json:"transaction"`
}

// Orders runs the order lifecycle
type Orders struct {
	db      *gorm.DB
	catalog *Catalog
	ledger  *Ledger
	carrier Carrier
	log     *zap.Logger
	now     func() time.Time
}

func NewOrders(db *gorm.DB, catalog *Catalog, ledger *Ledger, carrier Carrier, log *zap.Logger) *Orders {
	return &Orders{db: db, catalog: catalog, ledger: ledger, carrier: carrier, log: log, now: time.Now}
}

func (s *Orders) startOfToday() time.Time {
	now := s.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// PlaceOrder reserves one unit of stock and creates the order and its
// pending transaction in a single database transaction.
func (s *Orders) PlaceOrder(ctx context.Context, consumer *model.Actor, in PlaceOrderInput) (*PlacedOrder, error) {
	if !consumer.Is(model.RoleConsumer) {
		return nil, ErrForbidden
	}
	if in.DeliveryDate.IsZero() {
		return nil, validationf("delivery date is required")
	}
	if in.DeliveryDate.Before(s.startOfToday()) {
		return nil, validationf("delivery date is in the past")
	}

	var (
		product model.Product
		order   model.Order
		txn     *model.Transaction
	)

	defer prometheus.TrackDBOperation("place_order")(time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, in.ProductID).Error; err != nil {
			return translate(err, "product")
		}
		if product.Quantity <= 0 {
			return ErrOutOfStock
		}

		res := tx.Model(&model.Product{}).
			Where("id = ? AND quantity > 0", product.ID).
			UpdateColumn("quantity", gorm.Expr("quantity - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOutOfStock
		}
		product.Quantity--

		order = model.Order{
			ProductID:       product.ID,
			ConsumerID:      consumer.ID,
			VendorID:        product.VendorID,
			OrderStatus:     model.OrderPending,
			SupportStatus:   model.SupportOpen,
			DeliveryDate:    in.DeliveryDate,
			ShippingAddress: strings.TrimSpace(in.ShippingAddress),
			Pincode:         strings.TrimSpace(in.Pincode),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var err error
		txn, err = s.ledger.Record(tx, &order, product.Price)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.catalog.invalidate(ctx, product)
	prometheus.OrdersPlacedCounter.Inc()
	s.log.Info("Order placed",
		zap.Uint("order_id", order.ID),
		zap.Uint("product_id", product.ID),
		zap.Uint("consumer_id", consumer.ID),
		zap.Int("remaining_stock", product.Quantity))
	return &PlacedOrder{Order: &order, Transaction: txn}, nil
}

// UpdateOrderStatus moves a vendor's order along the delivery axis
func (s *Orders) UpdateOrderStatus(ctx context.Context, vendor *model.Actor, orderID uint, to model.OrderStatus) (*model.Order, error) {
	if _, ok := model.ParseOrderStatus(string(to)); !ok {
		return nil, validationf("unknown order status %q", to)
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !vendor.Is(model.RoleVendor) {
		return nil, ErrForbidden
	}
	if !visibleTo(vendor, order) {
		return nil, errOrderNotFound
	}

	if to == model.OrderCancelled {
		return s.cancel(ctx, vendor, order)
	}
	if err := s.transition(s.db.WithContext(ctx), order, to, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// transition applies from -> to only if the row still holds from
func (s *Orders) transition(tx *gorm.DB, order *model.Order, to model.OrderStatus, extra map[string]interface{}) error {
	from := order.OrderStatus
	if from.Terminal() {
		return fmt.Errorf("%w: order %d is already %s", ErrInvalidTransition, order.ID, from)
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	updates := map[string]interface{}{"order_status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&model.Order{}).
		Where("id = ? AND order_status = ?", order.ID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", ErrInvalidTransition, order.ID, from)
	}

	order.OrderStatus = to
	prometheus.RecordOrderTransition(string(from), string(to))
	s.log.Info("Order status changed",
		zap.Uint("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

// CancelOrder is open to the ordering consumer, the product's vendor and admins
func (s *Orders) CancelOrder(ctx context.Context, actor *model.Actor, orderID uint) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(actor, order) {
		return nil, errOrderNotFound
	}
	return s.cancel(ctx, actor, order)
}

// visibleTo is the order ownership predicate. Orders failing it are
// reported as missing so their ids do not leak.
func visibleTo(actor *model.Actor, order *model.Order) bool {
	switch actor.Role {
	case model.RoleConsumer:
		return order.ConsumerID == actor.ID
	case model.RoleVendor:
		return order.VendorID == actor.ID
	case model.RoleAdmin:
		return true
	}
	return false
}

func (s *Orders) cancel(ctx context.Context, actor *model.Actor, order *model.Order) (*model.Order, error) {
	if !order.OrderStatus.Cancellable() {
		return nil, fmt.Errorf("%w: %s order cannot be cancelled", ErrInvalidTransition, order.OrderStatus)
	}

	var products []model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.transition(tx, order, model.OrderCancelled, nil); err != nil {
			return err
		}
		if err := tx.Model(&model.Product{}).
			Where("id = ?", order.ProductID).
			UpdateColumn("quantity", gorm.Expr("quantity + 1")).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", order.ProductID).Find(&products).Error
	})
	if err != nil {
		return nil, err
	}

	s.catalog.invalidate(ctx, products...)
	s.log.Info("Order cancelled",
		zap.Uint("order_id", order.ID),
		zap.Uint("actor_id", actor.ID),
		zap.String("role", string(actor.Role)))

	if order.Waybill != "" && s.carrier != nil {
		if err := s.carrier.CancelShipment(ctx, order.Waybill); err != nil {
			s.log.Warn("Failed to cancel shipment for cancelled order",
				zap.Uint("order_id", order.ID),
				zap.String("waybill", order.Waybill),
				zap.Error(err))
		}
	}
	return order, nil
}

// UpdateSupportStatus advances the support ticket one step. The ordering
// consumer may only (re)open it, which is a no-op while it is open.
func (s *Orders) UpdateSupportStatus(ctx context.Context, actor *model.Actor, orderID uint, to model.SupportStatus) (*model.Order, error) {
	if _, ok := model.ParseSupportStatus(string(to)); !ok {
		return nil, validationf("unknown support status %q", to)
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !visibleTo(actor, order) {
		return nil, errOrderNotFound
	}
	if actor.Is(model.RoleConsumer) {
		if to != model.SupportOpen {
			return nil, fmt.Errorf("%w: consumers may only open a ticket", ErrForbidden)
		}
		if order.SupportStatus == model.SupportOpen {
			return order, nil
		}
		return nil, fmt.Errorf("%w: support ticket is %s", ErrInvalidTransition, order.SupportStatus)
	}

	from := order.SupportStatus
	if !from.CanAdvance(to) {
		return nil, fmt.Errorf("%w: support %s -> %s", ErrInvalidTransition, from, to)
	}
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND support_status = ?", order.ID, from).
		Update("support_status", to)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: support ticket changed concurrently", ErrInvalidTransition)
	}

	order.SupportStatus = to
	s.log.Info("Support status changed",
		zap.Uint("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return order, nil
}

// ListOrders returns the orders visible to actor, newest first
func (s *Orders) ListOrders(ctx context.Context, actor *model.Actor, filter OrderFilter) ([]model.OrderDetail, error) {
	query, err := s.scoped(ctx, actor)
	if err != nil {
		return nil, err
	}

	for column, value := range map[string]string{
		"products.name":  filter.ProductName,
		"vendors.name":   filter.VendorName,
		"consumers.name": filter.ConsumerName,
	} {
		if value = strings.TrimSpace(value); value != "" {
			query = query.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(value)+"%")
		}
	}

	switch filter.Range {
	case "", "all":
	case "today":
		query = query.Where("orders.created_at >= ?", s.startOfToday())
	case "week":
		query = query.Where("orders.created_at >= ?", s.now().AddDate(0, 0, -7))
	case "month":
		query = query.Where("orders.created_at >= ?", s.now().AddDate(0, 0, -30))
	default:
		return nil, validationf("unknown range %q", filter.Range)
	}

	orders := []model.OrderDetail{}
	if err := query.Order("orders.created_at DESC, orders.id DESC").Scan(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder hides orders the actor may not see behind ErrNotFound
func (s *Orders) GetOrder(ctx context.Context, actor *model.Actor, orderID uint) (*model.OrderDetail, error) {
	query, err := s.scoped(ctx, actor)
	if err != nil {
		return nil, err
	}

	var orders []model.OrderDetail
	if err := query.Where("orders.id = ?", orderID).Limit(1).Scan(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, errOrderNotFound
	}
	return &orders[0], nil
}

func (s *Orders) scoped(ctx context.Context, actor *model.Actor) (*gorm.DB, error) {
	query := s.db.WithContext(ctx).Table("orders").
		Select("orders.*, " +
			"COALESCE(products.name, '') AS product_name, " +
			"COALESCE(vendors.name, '') AS vendor_name, " +
			"COALESCE(consumers.name, '') AS consumer_name").
		Joins("LEFT JOIN products ON products.id = orders.product_id").
		Joins("LEFT JOIN actors AS vendors ON vendors.id = orders.vendor_id").
		Joins("LEFT JOIN actors AS consumers ON consumers.id = orders.consumer_id")

	switch actor.Role {
	case model.RoleConsumer:
		return query.Where("orders.consumer_id = ?", actor.ID), nil
	case model.RoleVendor:
		return query.Where("orders.vendor_id = ?", actor.ID), nil
	case model.RoleAdmin:
		return query, nil
	}
	return nil, ErrForbidden
}

func (s *Orders) load(ctx context.Context, orderID uint) (*model.Order, error) {
	var order model.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return nil, translate(err, "order")
	}
	return &order, nil
}

// CheckServiceability asks the carrier whether it delivers to pincode
func (s *Orders) CheckServiceability(ctx context.Context, pincode string) (bool, error) {
	pincode = strings.TrimSpace(pincode)
	if pincode == "" {
		return false, validationf("pincode is required")
	}
	return s.carrier.CheckServiceability(ctx, pincode)
}

// ShipOrder books the carrier for a pending order and marks it shipped.
// If the order cannot be updated afterwards the shipment is cancelled again.
func (s *Orders) ShipOrder(ctx context.Context, vendor *model.Actor, orderID uint) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !vendor.Is(model.RoleVendor) {
		return nil, ErrForbidden
	}
	if !visibleTo(vendor, order) {
		return nil, errOrderNotFound
	}
	if order.OrderStatus != model.OrderPending {
		return nil, fmt.Errorf("%w: only pending orders can be shipped", ErrInvalidTransition)
	}
	if order.Pincode == "" || order.ShippingAddress == "" {
		return nil, validationf("order has no shipping address")
	}

	ok, err := s.carrier.CheckServiceability(ctx, order.Pincode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, validationf("pincode %s is not serviceable", order.Pincode)
	}

	shipment, err := s.shipmentFor(ctx, order)
	if err != nil {
		return nil, err
	}
	if shipment.Waybill, err = s.carrier.AllocateWaybill(ctx); err != nil {
		return nil, err
	}
	if err := s.carrier.CreateShipment(ctx, *shipment); err != nil {
		return nil, err
	}

	err = s.transition(s.db.WithContext(ctx), order, model.OrderShipped,
		map[string]interface{}{"waybill": shipment.Waybill})
	if err != nil {
		if cancelErr := s.carrier.CancelShipment(ctx, shipment.Waybill); cancelErr != nil {
			s.log.Error("Failed to cancel orphaned shipment",
				zap.Uint("order_id", order.ID),
				zap.String("waybill", shipment.Waybill),
				zap.Error(cancelErr))
		}
		return nil, err
	}

	order.Waybill = shipment.Waybill
	s.log.Info("Order shipped",
		zap.Uint("order_id", order.ID),
		zap.String("waybill", order.Waybill))
	return order, nil
}

func (s *Orders) shipmentFor(ctx context.Context, order *model.Order) (*shipping.Shipment, error) {
	var txn model.Transaction
	if err := s.db.WithContext(ctx).Where("order_id = ?", order.ID).First(&txn).Error; err != nil {
		return nil, translate(err, "transaction")
	}

	var names struct {
		ProductName  string
		ConsumerName string
	}
	err := s.db.WithContext(ctx).Table("orders").
		Select("COALESCE(products.name, '') AS product_name, COALESCE(consumers.name, '') AS consumer_name").
		Joins("LEFT JOIN products ON products.id = orders.product_id").
		Joins("LEFT JOIN actors AS consumers ON consumers.id = orders.consumer_id").
		Where("orders.id = ?", order.ID).
		Scan(&names).Error
	if err != nil {
		return nil, err
	}

	return &shipping.Shipment{
		OrderRef:    fmt.Sprintf("LOC-%d", order.ID),
		Consignee:   names.ConsumerName,
		Address:     order.ShippingAddress,
		Pincode:     order.Pincode,
		ProductDesc: names.ProductName,
		Quantity:    1,
		Amount:      txn.Amount,
	}, nil
}

// Track returns the carrier status of a shipped order visible to actor
func (s *Orders) Track(ctx context.Context, actor *model.Actor, orderID uint) (*shipping.TrackingInfo, error) {
	order, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.Waybill == "" {
		return nil, fmt.Errorf("%w: order has not been shipped", ErrNotFound)
	}
	return s.carrier.Track(ctx, order.Waybill)
}

// Label returns the packing slip of a vendor's shipped order
func (s *Orders) Label(ctx context.Context, vendor *model.Actor, orderID uint) (*shipping.Label, error) {
	if !vendor.Is(model.RoleVendor) {
		return nil, ErrForbidden
	}
	order, err := s.GetOrder(ctx, vendor, orderID)
	if err != nil {
		return nil, err
	}
	if order.Waybill == "" {
		return nil, fmt.Errorf("%w: order has not been shipped", ErrNotFound)
	}
	return s.carrier.Label(ctx, order.Waybill)
}
