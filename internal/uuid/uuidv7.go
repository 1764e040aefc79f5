package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7 string. UUIDv7 values are time-ordered, so ids
// sort by creation time, which list queries use as a tie-breaker.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fall back to a random UUIDv4 if the clock/random source fails.
		return googleuuid.NewString()
	}
	return id.String()
}

// Parse validates and normalizes a UUID string to its lowercase canonical form.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}
