package utils

import "github.com/google/uuid"

// GenerateID returns a fresh UUID string. All primary keys in the
// messaging tables come from here.
func GenerateID() string {
	return uuid.New().String()
}

// IsUUID checks if the string is a valid UUID
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
