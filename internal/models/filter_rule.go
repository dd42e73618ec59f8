package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter rule categories: classes of off-platform contact detail.
const (
	RuleCategoryEmail        = "email"
	RuleCategoryPhone        = "phone"
	RuleCategoryPlatform     = "platform" // external messaging platform reference
	RuleCategoryURL          = "url"
	RuleCategorySolicitation = "solicitation"
)

// Rule severities and actions.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"

	ActionRedact = "redact" // replace matches, flag for review
	ActionFlag   = "flag"   // leave text, flag for review
)

// FilterRule is one moderation rule, stored as data so the rule set can be
// extended without a deploy. Priority is the evaluation order (ascending).
type FilterRule struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	Category    string    `gorm:"type:text;not null" json:"category"`
	Pattern     string    `gorm:"type:text;not null" json:"pattern"` // regexp source
	Severity    string    `gorm:"type:text;not null;default:'medium'" json:"severity"`
	Action      string    `gorm:"type:text;not null;default:'redact'" json:"action"`
	Replacement string    `gorm:"type:text" json:"replacement"` // used when Action is redact
	Priority    int       `gorm:"not null;default:0" json:"priority"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (r *FilterRule) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
