package filter

import (
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"gorm.io/gorm"
)

// DefaultRules is the rule set seeded into an empty filter_rules table.
// Rules are rows, not code: operators add or disable rules in the table
// and the engine is rebuilt on the next reload.
//
// Replacement templates intentionally contain nothing any rule can match
// again, so redaction is idempotent.
func DefaultRules() []models.FilterRule {
	return []models.FilterRule{
		{
			Category:    models.RuleCategoryEmail,
			Pattern:     `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`,
			Severity:    models.SeverityHigh,
			Action:      models.ActionRedact,
			Replacement: "[EMAIL REMOVED - Please use platform messaging]",
			Priority:    10,
			Active:      true,
		},
		{
			// NANP phone numbers, optional +1, common separators
			Category:    models.RuleCategoryPhone,
			Pattern:     `(\+?1[\s.\-]?)?\(?[2-9][0-9]{2}\)?[\s.\-]?[0-9]{3}[\s.\-]?[0-9]{4}\b`,
			Severity:    models.SeverityHigh,
			Action:      models.ActionRedact,
			Replacement: "[PHONE REMOVED - Please use platform messaging]",
			Priority:    20,
			Active:      true,
		},
		{
			// External messaging platform by name plus an adjacent
			// handle-like token (an @handle, a number, or a token with
			// digits/underscores). A bare mention of the platform name
			// does not match.
			Category: models.RuleCategoryPlatform,
			Pattern:  `(?i)\b(whatsapp|telegram|signal|discord|skype|viber|wechat)\b[\s:,\-]{0,3}(@[A-Za-z0-9_.\-]{3,}|\+?[0-9][0-9\s.\-]{6,}|[A-Za-z0-9.\-]*[0-9_][A-Za-z0-9_.\-]{2,})`,
			Severity: models.SeverityHigh,
			Action:   models.ActionFlag,
			Priority: 30,
			Active:   true,
		},
		{
			Category:    models.RuleCategoryURL,
			Pattern:     `(?i)\b(https?://[^\s<>"]+|www\.[^\s<>"]+|[a-zA-Z0-9\-]+\.(com|net|org|io|co|me|info|biz)(/[^\s<>"]*)?)\b`,
			Severity:    models.SeverityMedium,
			Action:      models.ActionRedact,
			Replacement: "[LINK REMOVED]",
			Priority:    40,
			Active:      true,
		},
		{
			Category: models.RuleCategorySolicitation,
			Pattern:  `(?i)\b(contact|reach|find|text|call|email|message|dm|hit)\s+(me|us)\s+(up\s+)?(at|on|via|through|outside)\b`,
			Severity: models.SeverityMedium,
			Action:   models.ActionFlag,
			Priority: 50,
			Active:   true,
		},
	}
}

// SeedRules inserts the default rule set when the table is empty.
func SeedRules(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.FilterRule{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	rules := DefaultRules()
	return db.Create(&rules).Error
}

// LoadEngine builds an Engine from the active rules in the database.
func LoadEngine(db *gorm.DB) (*Engine, error) {
	var rules []models.FilterRule
	if err := db.Where("active = ?", true).Order("priority asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return NewEngine(rules)
}
