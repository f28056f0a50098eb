package domain

import (
	"strings"
	"time"
)

// Review is a user-written review of a point of sale. ID is zero until the
// store persists it; CreatedAt and UpdatedAt are owned by the store.
type Review struct {
	ID            int64
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	PosID         int64
	AuthorID      int64
	Text          string
	ApprovalCount int
	Approved      bool
}

// IsNew reports whether the review has not been persisted yet.
func (r Review) IsNew() bool { return r.ID == 0 }

// HasContent reports whether the review text is non-blank.
func (r Review) HasContent() bool { return strings.TrimSpace(r.Text) != "" }

// POS is the point of sale being reviewed. Owned by the POS subsystem.
type POS struct {
	ID   int64
	Name string
}

// User is owned by the user subsystem; only existence matters here.
type User struct {
	ID        int64
	LoginName string
}
