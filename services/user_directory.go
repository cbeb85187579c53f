package services

import (
	"errors"

	"geoguess/models"

	"gorm.io/gorm"
)

// UserDirectory is the read-only user lookup the room engine needs: whether
// a user exists, and the display name to denormalize into the room roster.
type UserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) Exists(userID uint) (bool, error) {
	var count int64
	err := d.db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (d *UserDirectory) DisplayName(userID uint) (string, error) {
	var user models.User
	if err := d.db.Select("username").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return user.Username, nil
}
