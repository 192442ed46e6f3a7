package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, user *models.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *GormRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UserTaken reports which of username and email are already registered.
func (r *GormRepo) UserTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	var n int64
	if err = r.DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return false, false, err
	}
	usernameTaken = n > 0

	if err = r.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, false, err
	}
	emailTaken = n > 0
	return usernameTaken, emailTaken, nil
}
