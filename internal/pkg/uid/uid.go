// Package uid provides the ID generators used across modules.
package uid

// StringID generates string identifiers (UUIDs).
type StringID interface {
	Generate() string
}

// NumberID generates int64 identifiers (snowflakes).
type NumberID interface {
	Generate() int64
}
