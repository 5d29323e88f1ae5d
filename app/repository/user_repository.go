package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("email = ?", models.NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertFromSignIn creates the user on first sign-in and refreshes the
// profile fields on every subsequent one. Rows are keyed on email so that
// webhook payloads can be joined back to an account.
func (r *userRepository) UpsertFromSignIn(user *models.User) (*models.User, error) {
	user.Email = models.NormalizeEmail(user.Email)
	if err := user.Validate(); err != nil {
		return nil, err
	}

	var existing models.User
	err := r.db.Where("email = ?", user.Email).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.db.Create(user).Error; err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	existing.ProviderSubject = user.ProviderSubject
	existing.Name = user.Name
	existing.AvatarURL = user.AvatarURL
	if err := r.db.Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}
