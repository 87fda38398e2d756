package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"locarto/internal/model"
	"locarto/pkg/cache"
	"locarto/pkg/database"
	"locarto/pkg/jwtutil"
	"locarto/pkg/payment"
	"locarto/pkg/shipping"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const gatewaySecret = "gateway-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "locarto.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// fakeCarrier records shipments in memory
type fakeCarrier struct {
	mu            sync.Mutex
	unserviceable map[string]bool
	next          int
	shipments     map[string]shipping.Shipment
	cancelled     []string
	failCreate    error
	afterCreate   func()
}

func newFakeCarrier() *fakeCarrier {
	return &fakeCarrier{unserviceable: map[string]bool{}, shipments: map[string]shipping.Shipment{}}
}

func (f *fakeCarrier) CheckServiceability(_ context.Context, pincode string) (bool, error) {
	return !f.unserviceable[pincode], nil
}

func (f *fakeCarrier) AllocateWaybill(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("WB%04d", f.next), nil
}

func (f *fakeCarrier) CreateShipment(_ context.Context, s shipping.Shipment) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	f.mu.Lock()
	f.shipments[s.Waybill] = s
	f.mu.Unlock()
	if f.afterCreate != nil {
		f.afterCreate()
	}
	return nil
}

func (f *fakeCarrier) CancelShipment(_ context.Context, waybill string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, waybill)
	return nil
}

func (f *fakeCarrier) Track(_ context.Context, waybill string) (*shipping.TrackingInfo, error) {
	return &shipping.TrackingInfo{Waybill: waybill, Status: "In Transit"}, nil
}

func (f *fakeCarrier) Label(_ context.Context, waybill string) (*shipping.Label, error) {
	return &shipping.Label{Waybill: waybill, PDFURL: "https://labels.example/" + waybill + ".pdf"}, nil
}

// fakeGateway signs like the real gateway and hands out sequential order ids
type fakeGateway struct {
	mu      sync.Mutex
	created []int64
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, amount)
	return &payment.Order{
		ID:       fmt.Sprintf("order_%d", len(g.created)),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.Sign(gatewaySecret, orderID, paymentID) == signature
}

type fixture struct {
	db       *gorm.DB
	cache    *cache.Memory
	creds    *Credentials
	sessions *Sessions
	tokens   *jwtutil.JWTUtil
	catalog  *Catalog
	ledger   *Ledger
	orders   *Orders
	reviews  *Reviews
	carrier  *fakeCarrier
	gateway  *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	f := &fixture{
		db:      newTestDB(t),
		cache:   cache.NewMemory(),
		carrier: newFakeCarrier(),
		gateway: &fakeGateway{},
		tokens:  jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 24}),
	}
	f.catalog = NewCatalog(f.db, f.cache, log)
	f.creds = NewCredentials(f.db, f.catalog, log)
	f.creds.cost = bcrypt.MinCost
	f.sessions = NewSessions(f.creds, f.tokens, f.cache, log)
	f.ledger = NewLedger(f.db, f.gateway, "INR", "rzp_test_key", log)
	f.orders = NewOrders(f.db, f.catalog, f.ledger, f.carrier, log)
	f.reviews = NewReviews(f.db, log)
	return f
}

func (f *fixture) signup(t *testing.T, role model.Role, name string) *model.Actor {
	t.Helper()
	actor, err := f.creds.Signup(context.Background(), role, SignupInput{
		Name:     name,
		Email:    name + "@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	return actor
}

func (f *fixture) product(t *testing.T, vendor *model.Actor, name, price string, quantity int) *model.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), vendor, ProductInput{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
		Category: "electronics",
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) placeOrder(t *testing.T, consumer *model.Actor, product *model.Product) *model.Order {
	t.Helper()
	placed, err := f.orders.PlaceOrder(context.Background(), consumer, PlaceOrderInput{
		ProductID:       product.ID,
		DeliveryDate:    time.Now().AddDate(0, 0, 3),
		ShippingAddress: "12 MG Road, Bengaluru",
		Pincode:         "560001",
	})
	require.NoError(t, err)
	return placed.Order
}

func (f *fixture) stock(t *testing.T, productID uint) int {
	t.Helper()
	var p model.Product
	require.NoError(t, f.db.First(&p, productID).Error)
	return p.Quantity
}
