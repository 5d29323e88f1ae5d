package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/PayFox/app/models"
)

// Repository provides the DB operations used by the billing service.
type Repository interface {
	GetUserByEmail(email string) (*models.User, error)
	InsertPurchaseIfNotExists(p *models.Purchase) (bool, error)
	UpsertSubscription(p *models.Purchase) error
	GetPurchaseBySessionAndUser(dodoSessionID string, userID uint) (*models.Purchase, error)
	UpdatePurchase(dodoSessionID string, userID uint, status, paymentData string) (int64, error)
	ListActivePurchasesByUser(userID uint) ([]models.Purchase, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	err := r.db.Where("email = ?", models.NormalizeEmail(email)).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertPurchaseIfNotExists inserts a purchase keyed on the provider
// session id; redelivered events hit the conflict clause and report false.
func (r *gormRepository) InsertPurchaseIfNotExists(p *models.Purchase) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dodo_session_id"}},
		DoNothing: true,
	}).Create(p)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) UpsertSubscription(p *models.Purchase) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "dodo_session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"product_id",
			"amount",
			"currency",
			"status",
			"plan_type",
			"payment_data",
			"updated_at",
		}),
	}).Create(p).Error
}

func (r *gormRepository) GetPurchaseBySessionAndUser(dodoSessionID string, userID uint) (*models.Purchase, error) {
	var p models.Purchase
	err := r.db.Where("dodo_session_id = ? AND user_id = ?", dodoSessionID, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) UpdatePurchase(dodoSessionID string, userID uint, status, paymentData string) (int64, error) {
	tx := r.db.Model(&models.Purchase{}).
		Where("dodo_session_id = ? AND user_id = ?", dodoSessionID, userID).
		Updates(map[string]interface{}{
			"status":       status,
			"payment_data": paymentData,
		})
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) ListActivePurchasesByUser(userID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.
		Where("user_id = ? AND status = ?", userID, models.PurchaseStatusActive).
		Order("created_at DESC").
		Find(&purchases).Error
	return purchases, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider_event_id = ?", event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
