package uid

import "github.com/google/uuid"

// UUID produces time-ordered UUID strings.
//
// Version 7 keeps database indexes append-friendly. When the random
// source fails we fall back to a v4 so callers never see an empty ID.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID string.
func (*UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
