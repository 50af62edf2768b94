// Package clock abstracts the time source for testability.
package clock

import "time"

// Clocker provides the current time.
type Clocker interface {
	Now() time.Time
}

// TimeClocker reads the system clock.
type TimeClocker struct{}

// New returns the production clock.
func New() *TimeClocker {
	return &TimeClocker{}
}

// Now returns the current time.
func (*TimeClocker) Now() time.Time {
	return time.Now()
}
