package services

import (
	"testing"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGormDirectory(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Create(&models.User{
		ID:                 "u1",
		Username:           "dana_v",
		Name:               "Dana Voice",
		Email:              "dana@example.com",
		UserType:           "talent",
		EmailNotifications: true,
		DigestEmails:       false,
	}).Error)

	d := NewGormDirectory(db)

	name, err := d.ResolveDisplayName("u1")
	assert.NoError(t, err)
	assert.Equal(t, "Dana Voice", name)

	email, err := d.ResolveEmail("u1")
	assert.NoError(t, err)
	assert.Equal(t, "dana@example.com", email)

	messages, err := d.NotificationPreference("u1", models.PrefCategoryMessage)
	assert.NoError(t, err)
	assert.True(t, messages)

	digest, err := d.NotificationPreference("u1", models.PrefCategoryDigest)
	assert.NoError(t, err)
	assert.False(t, digest)

	_, err = d.ResolveEmail("ghost")
	assert.Error(t, err)
}
