package models

// User maps the accounts table owned by the main platform service. This
// subsystem reads it to resolve display names, emails and notification
// preferences (the AccountDirectory collaborator); it never writes it.
type User struct {
	ID       string `gorm:"primaryKey;type:text" json:"id"`
	Username string `gorm:"type:text" json:"username"`
	Name     string `gorm:"type:text" json:"name"`
	Email    string `gorm:"type:text" json:"-"`
	UserType string `gorm:"type:text" json:"userType"` // "client" or "talent"

	// Notification preferences, written by the account service
	EmailNotifications bool `json:"-"` // per-message emails
	DigestEmails       bool `json:"-"` // daily unread digest
}

// DisplayName prefers the profile name over the login handle.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Notification preference categories understood by the directory.
const (
	PrefCategoryMessage = "message"
	PrefCategoryDigest  = "digest"
)
