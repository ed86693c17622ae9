package billing

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mochoudhry5/WeddingServices-sub001/app/models"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/database"
)

const testWebhookSecret = "whsec_test_reconciler"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every pooled connection would get its own empty in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedVenueListing(t *testing.T, db *gorm.DB, id, userID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.VenueListing{
		Listing: models.Listing{ID: id, UserID: userID, BusinessName: "Rosewood Barn", IsDraft: true},
	}).Error)
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	tx := db.Model(model)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	require.NoError(t, tx.Count(&n).Error)
	return n
}

func signPayload(t *testing.T, payload []byte) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})
	return signed.Header
}

func eventPayload(t *testing.T, id, eventType string, object interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":     id,
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return raw
}

func checkoutSessionObject(userID, listingID, serviceType, paymentIntentID string) map[string]interface{} {
	obj := map[string]interface{}{
		"id":           "cs_test_1",
		"object":       "checkout.session",
		"mode":         "subscription",
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata": map[string]string{
			MetadataUserID:      userID,
			MetadataListingID:   listingID,
			MetadataServiceType: serviceType,
			MetadataTierType:    "premium",
			MetadataIsAnnual:    "true",
		},
	}
	if paymentIntentID != "" {
		obj["payment_intent"] = paymentIntentID
	}
	return obj
}

func setupIntentObject(userID, paymentMethodID, customerID string) map[string]interface{} {
	obj := map[string]interface{}{
		"id":       "seti_test_1",
		"object":   "setup_intent",
		"status":   "succeeded",
		"metadata": map[string]string{MetadataUserID: userID},
	}
	if paymentMethodID != "" {
		obj["payment_method"] = paymentMethodID
	}
	if customerID != "" {
		obj["customer"] = customerID
	}
	return obj
}

func testSubscription() *stripe.Subscription {
	return &stripe.Subscription{
		ID:                "sub_1",
		Status:            stripe.SubscriptionStatusActive,
		Customer:          &stripe.Customer{ID: "cus_1"},
		CurrentPeriodEnd:  1767225600,
		CancelAtPeriodEnd: false,
	}
}

func testCard(id, last4 string) *stripe.PaymentMethod {
	return &stripe.PaymentMethod{
		ID: id,
		Card: &stripe.PaymentMethodCard{
			Brand:       stripe.PaymentMethodCardBrandVisa,
			Last4:       last4,
			ExpMonth:    12,
			ExpYear:     2030,
			Fingerprint: "fp_" + id,
		},
	}
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	sub, _ := args.Get(0).(*stripe.Subscription)
	return sub, args.Error(1)
}

func (m *mockProcessor) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, paymentIntentID)
	pi, _ := args.Get(0).(*stripe.PaymentIntent)
	return pi, args.Error(1)
}

func (m *mockProcessor) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*stripe.PaymentMethod, error) {
	args := m.Called(ctx, paymentMethodID)
	pm, _ := args.Get(0).(*stripe.PaymentMethod)
	return pm, args.Error(1)
}

func (m *mockProcessor) DetachPaymentMethod(ctx context.Context, paymentMethodID, idempotencyKey string) error {
	return m.Called(ctx, paymentMethodID, idempotencyKey).Error(0)
}

func (m *mockProcessor) SetCustomerDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.Called(ctx, customerID, paymentMethodID).Error(0)
}

func (m *mockProcessor) SetSubscriptionDefaultPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) error {
	return m.Called(ctx, subscriptionID, paymentMethodID).Error(0)
}

func (m *mockProcessor) CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error) {
	args := m.Called(ctx, userID, email)
	cust, _ := args.Get(0).(*stripe.Customer)
	return cust, args.Error(1)
}

func (m *mockProcessor) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	args := m.Called(ctx, in)
	sess, _ := args.Get(0).(*stripe.CheckoutSession)
	return sess, args.Error(1)
}

func (m *mockProcessor) CreateSetupIntent(ctx context.Context, customerID, userID string) (*stripe.SetupIntent, error) {
	args := m.Called(ctx, customerID, userID)
	si, _ := args.Get(0).(*stripe.SetupIntent)
	return si, args.Error(1)
}

// expectCheckoutCalls wires the processor reads and default updates made by
// a checkout completion carrying pi_1 -> pm_1.
func expectCheckoutCalls(p *mockProcessor) {
	p.On("GetSubscription", mock.Anything, "sub_1").Return(testSubscription(), nil)
	p.On("GetPaymentIntent", mock.Anything, "pi_1").Return(&stripe.PaymentIntent{
		ID:            "pi_1",
		PaymentMethod: &stripe.PaymentMethod{ID: "pm_1"},
	}, nil)
	p.On("GetPaymentMethod", mock.Anything, "pm_1").Return(testCard("pm_1", "4242"), nil)
	p.On("SetCustomerDefaultPaymentMethod", mock.Anything, "cus_1", "pm_1").Return(nil)
	p.On("SetSubscriptionDefaultPaymentMethod", mock.Anything, "sub_1", "pm_1").Return(nil)
}

// failingInsertRepository fails every payment method insert.
type failingInsertRepository struct {
	Repository
	err error
}

func (r *failingInsertRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.Repository.Transaction(ctx, func(tx Repository) error {
		return fn(&failingInsertRepository{Repository: tx, err: r.err})
	})
}

func (r *failingInsertRepository) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	return r.err
}

// failingCommitRepository runs the transaction body and then fails as a
// commit would, rolling every write back.
type failingCommitRepository struct {
	Repository
	err error
}

func (r *failingCommitRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.Repository.Transaction(ctx, func(tx Repository) error {
		if err := fn(tx); err != nil {
			return err
		}
		return r.err
	})
}

func setupIntent(paymentMethodID string) *stripe.SetupIntent {
	return &stripe.SetupIntent{
		ID:            "seti_1",
		Customer:      &stripe.Customer{ID: "cus_1"},
		PaymentMethod: &stripe.PaymentMethod{ID: paymentMethodID},
		Metadata:      map[string]string{MetadataUserID: "u1"},
	}
}

// assertNoRowsForDetachedCards fails when a stored row points at a card the
// processor was asked to detach.
func assertNoRowsForDetachedCards(t *testing.T, db *gorm.DB, p *mockProcessor) {
	t.Helper()
	for _, call := range p.Calls {
		if call.Method != "DetachPaymentMethod" {
			continue
		}
		id := call.Arguments.String(1)
		assert.Equal(t, int64(0), countRows(t, db, &models.PaymentMethod{}, "stripe_payment_method_id = ?", id),
			"row kept for detached card %s", id)
	}
}

type fakeSummaryCache struct {
	mu          sync.Mutex
	entries     map[string]*Summary
	generations map[string]int64
	invalidated []string
	gets        int
}

func newFakeSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{entries: map[string]*Summary{}, generations: map[string]int64{}}
}

func (c *fakeSummaryCache) Get(ctx context.Context, userID string) (*Summary, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	s, ok := c.entries[userID]
	if !ok {
		return nil, c.generations[userID], ErrCacheMiss
	}
	return s, c.generations[userID], nil
}

func (c *fakeSummaryCache) Set(ctx context.Context, summary *Summary, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[summary.UserID] != generation {
		return nil
	}
	c.entries[summary.UserID] = summary
	return nil
}

func (c *fakeSummaryCache) Invalidate(ctx context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.entries, id)
		c.generations[id]++
	}
	c.invalidated = append(c.invalidated, userIDs...)
	return nil
}

func (c *fakeSummaryCache) cached(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[userID]
	return ok
}
