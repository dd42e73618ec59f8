package services

import (
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/errors"
	"gorm.io/gorm"
)

// AccountDirectory resolves user identity details owned by the main
// platform service. The messaging subsystem only ever reads through this
// interface.
type AccountDirectory interface {
	ResolveDisplayName(userID string) (string, error)
	ResolveEmail(userID string) (string, error)
	// NotificationPreference reports whether the user accepts emails of
	// the given category (models.PrefCategoryMessage / PrefCategoryDigest).
	NotificationPreference(userID, category string) (bool, error)
}

// GormDirectory reads the shared accounts table directly. The table is
// owned and written by the platform's account service.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) load(userID string) (*models.User, error) {
	var user models.User
	err := d.db.First(&user, "id = ?", userID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *GormDirectory) ResolveDisplayName(userID string) (string, error) {
	user, err := d.load(userID)
	if err != nil {
		return "", err
	}
	return user.DisplayName(), nil
}

func (d *GormDirectory) ResolveEmail(userID string) (string, error) {
	user, err := d.load(userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func (d *GormDirectory) NotificationPreference(userID, category string) (bool, error) {
	user, err := d.load(userID)
	if err != nil {
		return false, err
	}
	switch category {
	case models.PrefCategoryDigest:
		return user.DigestEmails, nil
	default:
		return user.EmailNotifications, nil
	}
}
