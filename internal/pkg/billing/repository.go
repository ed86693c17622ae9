package billing

import (
	"context"
	"errors"
	"time"

	"github.com/mochoudhry5/WeddingServices-sub001/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	// Transaction runs fn against a repository bound to one database
	// transaction. Returning an error rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	UpdateSubscriptionState(ctx context.Context, stripeSubscriptionID string, state SubscriptionState) ([]string, error)
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	FindCustomerIDByUser(ctx context.Context, userID string) (string, error)

	// ListPaymentMethodsForUpdate returns the user's payment method rows,
	// locking them when the database supports row locks.
	ListPaymentMethodsForUpdate(ctx context.Context, userID string) ([]models.PaymentMethod, error)
	GetPaymentMethodByUser(ctx context.Context, userID string) (*models.PaymentMethod, error)
	DeletePaymentMethodsByUser(ctx context.Context, userID string) error
	CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error

	PublishListing(ctx context.Context, st ServiceType, listingID string) (int64, error)
	// ListingOwner returns the user owning the listing, or gorm.ErrRecordNotFound.
	ListingOwner(ctx context.Context, st ServiceType, listingID string) (string, error)

	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "listing_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_subscription_id",
			"stripe_customer_id",
			"status",
			"service_type",
			"tier_type",
			"is_annual",
			"current_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	var stored models.Subscription
	if err := db.Where("user_id = ? AND listing_id = ?", sub.UserID, sub.ListingID).First(&stored).Error; err != nil {
		return err
	}
	*sub = stored
	return nil
}

// UpdateSubscriptionState overwrites the lifecycle fields of every row linked
// to the processor subscription and returns the affected user ids.
func (r *gormRepository) UpdateSubscriptionState(ctx context.Context, stripeSubscriptionID string, state SubscriptionState) ([]string, error) {
	db := r.db.WithContext(ctx)
	var userIDs []string
	if err := db.Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Distinct().
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	updates := map[string]interface{}{
		"status":               state.Status,
		"current_period_end":   state.CurrentPeriodEnd,
		"cancel_at_period_end": state.CancelAtPeriodEnd,
		"updated_at":           time.Now(),
	}
	if err := db.Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *gormRepository) ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// FindCustomerIDByUser returns the processor customer already linked to the
// user, or gorm.ErrRecordNotFound.
func (r *gormRepository) FindCustomerIDByUser(ctx context.Context, userID string) (string, error) {
	db := r.db.WithContext(ctx)

	var pm models.PaymentMethod
	err := db.Where("user_id = ? AND stripe_customer_id <> ''", userID).First(&pm).Error
	if err == nil {
		return pm.StripeCustomerID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var sub models.Subscription
	err = db.Where("user_id = ? AND stripe_customer_id <> ''", userID).Order("updated_at DESC").First(&sub).Error
	if err != nil {
		return "", err
	}
	return sub.StripeCustomerID, nil
}

func (r *gormRepository) ListPaymentMethodsForUpdate(ctx context.Context, userID string) ([]models.PaymentMethod, error) {
	var pms []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Find(&pms).Error
	return pms, err
}

func (r *gormRepository) GetPaymentMethodByUser(ctx context.Context, userID string) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pm).Error; err != nil {
		return nil, err
	}
	return &pm, nil
}

func (r *gormRepository) DeletePaymentMethodsByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PaymentMethod{}).Error
}

func (r *gormRepository) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Create(pm).Error
}

// PublishListing clears the draft flag on the listing in the category table
// selected by st.
func (r *gormRepository) PublishListing(ctx context.Context, st ServiceType, listingID string) (int64, error) {
	model, err := st.listingModel()
	if err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Model(model).Where("id = ?", listingID).Update("is_draft", false)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) ListingOwner(ctx context.Context, st ServiceType, listingID string) (string, error) {
	model, err := st.listingModel()
	if err != nil {
		return "", err
	}
	var owners []string
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", listingID).Limit(1).Pluck("user_id", &owners).Error; err != nil {
		return "", err
	}
	if len(owners) == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return owners[0], nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
		"attempts":         gorm.Expr("attempts + 1"),
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
