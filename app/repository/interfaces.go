package repository

import (
	"github.com/ManuelReschke/PayFox/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UpsertFromSignIn(user *models.User) (*models.User, error)
}

// PurchaseRepository defines the interface for purchase read operations
// used by the query API. Mutations go through the billing service.
type PurchaseRepository interface {
	GetByID(id uint) (*models.Purchase, error)
	ListByUser(userID uint) ([]models.Purchase, error)
	ListActiveByUser(userID uint) ([]models.Purchase, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User     UserRepository
	Purchase PurchaseRepository
}
