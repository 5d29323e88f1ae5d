package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
)

type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates a purchase repository backed by GORM.
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) GetByID(id uint) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepository) ListByUser(userID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

func (r *purchaseRepository) ListActiveByUser(userID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.
		Where("user_id = ? AND status = ?", userID, models.PurchaseStatusActive).
		Order("created_at DESC").
		Find(&purchases).Error
	return purchases, err
}
