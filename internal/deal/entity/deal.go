// Package entity holds the deal module's persistence types.
package entity

import "time"

// Deal is a financing deal a broker is preparing for submission.
type Deal struct {
	ID           string
	OwnerID      string
	Name         string
	BorrowerName string
	Stage        string
	AmountCents  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DealPatch carries the mutable deal fields for an update. Nil pointers
// leave the column untouched.
type DealPatch struct {
	Name         *string
	BorrowerName *string
	Stage        *string
	AmountCents  *int64
}

// Submission records a deal being sent to a lender.
type Submission struct {
	ID         int64
	DealID     string
	LenderName string
	Status     string
	Notes      string
	CreatedAt  time.Time
}

// Document is a file stored against a deal.
type Document struct {
	ID          int64
	DealID      string
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	CreatedAt   time.Time
}

// ListFilter is a cursorless page request.
type ListFilter struct {
	Limit  int32
	Offset int32
}

// Normalize clamps the page to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
