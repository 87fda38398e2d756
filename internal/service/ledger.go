package service

import (
	"context"
	"fmt"
	"time"

	"locarto/internal/model"
	"locarto/pkg/payment"
	"locarto/prometheus"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway is the payment provider as the ledger sees it
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*payment.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// Checkout is what the client needs to open the gateway's payment form
type Checkout struct {
	TransactionID  uint            `json:"transaction_id"`
	OrderID        uint            `json:"order_id"`
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	AmountMinor    int64           `json:"amount_minor"`
	Currency       string          `json:"currency"`
	KeyID          string          `json:"key_id"`
}

// PaymentConfirmation is the gateway's signed callback payload
type PaymentConfirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// Ledger keeps the one payment record behind every order
type Ledger struct {
	db       *gorm.DB
	gateway  Gateway
	currency string
	keyID    string
	log      *zap.Logger
	now      func() time.Time
}

func NewLedger(db *gorm.DB, gateway Gateway, currency, keyID string, log *zap.Logger) *Ledger {
	if currency == "" {
		currency = "INR"
	}
	return &Ledger{db: db, gateway: gateway, currency: currency, keyID: keyID, log: log, now: time.Now}
}

// Record creates the pending transaction for order. tx must be the caller's
// open database transaction so the order and its record commit together.
func (l *Ledger) Record(tx *gorm.DB, order *model.Order, amount decimal.Decimal) (*model.Transaction, error) {
	txn := model.Transaction{
		OrderID:       order.ID,
		ConsumerID:    order.ConsumerID,
		Amount:        amount,
		Currency:      l.currency,
		PaymentStatus: model.PaymentPending,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, translate(err, "transaction already recorded for order")
	}
	return &txn, nil
}

// InitiatePayment opens (or reopens) a gateway order for the consumer's order
func (l *Ledger) InitiatePayment(ctx context.Context, consumer *model.Actor, orderID uint) (*Checkout, error) {
	if !consumer.Is(model.RoleConsumer) {
		return nil, ErrForbidden
	}

	var order model.Order
	if err := l.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return nil, translate(err, "order")
	}
	if order.ConsumerID != consumer.ID {
		return nil, fmt.Errorf("%w: order", ErrNotFound)
	}
	if order.OrderStatus == model.OrderCancelled {
		return nil, fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
	}

	var txn model.Transaction
	if err := l.db.WithContext(ctx).Where("order_id = ?", order.ID).First(&txn).Error; err != nil {
		return nil, translate(err, "transaction")
	}
	if txn.Complete() {
		return nil, ErrAlreadyPaid
	}
	if txn.GatewayOrderID != "" {
		return l.checkout(&txn), nil
	}

	gwOrder, err := l.gateway.CreateOrder(ctx, minorUnits(txn.Amount), txn.Currency, uuid.NewString())
	if err != nil {
		return nil, err
	}

	res := l.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND gateway_order_id = ?", txn.ID, "").
		Update("gateway_order_id", gwOrder.ID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// A concurrent request got there first; hand back its gateway order
		if err := l.db.WithContext(ctx).First(&txn, txn.ID).Error; err != nil {
			return nil, err
		}
		return l.checkout(&txn), nil
	}
	txn.GatewayOrderID = gwOrder.ID

	prometheus.RecordPayment("initiated")
	l.log.Info("Payment initiated",
		zap.Uint("transaction_id", txn.ID),
		zap.Uint("order_id", order.ID),
		zap.String("gateway_order_id", gwOrder.ID))
	return l.checkout(&txn), nil
}

func (l *Ledger) checkout(txn *model.Transaction) *Checkout {
	return &Checkout{
		TransactionID:  txn.ID,
		OrderID:        txn.OrderID,
		GatewayOrderID: txn.GatewayOrderID,
		Amount:         txn.Amount,
		AmountMinor:    minorUnits(txn.Amount),
		Currency:       txn.Currency,
		KeyID:          l.keyID,
	}
}

// ConfirmPayment applies a verified gateway callback. Replaying the same
// payment is harmless; a complete transaction never changes again.
func (l *Ledger) ConfirmPayment(ctx context.Context, in PaymentConfirmation) (*model.Transaction, error) {
	if in.GatewayOrderID == "" || in.GatewayPaymentID == "" {
		return nil, validationf("gateway order id and payment id are required")
	}
	if !l.gateway.VerifySignature(in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		prometheus.RecordPayment("rejected")
		l.log.Warn("Payment callback with bad signature", zap.String("gateway_order_id", in.GatewayOrderID))
		return nil, fmt.Errorf("%w: signature mismatch", ErrForbidden)
	}

	var txn model.Transaction
	if err := l.db.WithContext(ctx).Where("gateway_order_id = ?", in.GatewayOrderID).First(&txn).Error; err != nil {
		return nil, translate(err, "transaction")
	}

	if !txn.Complete() {
		paidAt := l.now()
		res := l.db.WithContext(ctx).Model(&model.Transaction{}).
			Where("id = ? AND payment_status = ?", txn.ID, model.PaymentPending).
			Updates(map[string]interface{}{
				"payment_status":     model.PaymentComplete,
				"payment_date":       paidAt,
				"gateway_payment_id": in.GatewayPaymentID,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if err := l.db.WithContext(ctx).First(&txn, txn.ID).Error; err != nil {
			return nil, err
		}
		if res.RowsAffected == 1 {
			prometheus.RecordPayment("complete")
			l.log.Info("Payment confirmed",
				zap.Uint("transaction_id", txn.ID),
				zap.Uint("order_id", txn.OrderID),
				zap.String("gateway_payment_id", in.GatewayPaymentID))
			return &txn, nil
		}
	}

	if txn.GatewayPaymentID != in.GatewayPaymentID {
		return nil, ErrAlreadyPaid
	}
	return &txn, nil
}

// ListTransactions scopes by role. A vendor sees payments for orders on its
// products, including products it has since deleted.
func (l *Ledger) ListTransactions(ctx context.Context, actor *model.Actor) ([]model.Transaction, error) {
	query := l.db.WithContext(ctx).Model(&model.Transaction{})

	switch actor.Role {
	case model.RoleConsumer:
		query = query.Where("transactions.consumer_id = ?", actor.ID)
	case model.RoleVendor:
		query = query.
			Select("transactions.*").
			Joins("JOIN orders ON orders.id = transactions.order_id").
			Where("orders.vendor_id = ?", actor.ID)
	case model.RoleAdmin:
	default:
		return nil, ErrForbidden
	}

	txns := []model.Transaction{}
	if err := query.Order("transactions.created_at DESC, transactions.id DESC").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
