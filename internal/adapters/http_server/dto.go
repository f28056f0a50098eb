package httpserver

import (
	"errors"
	"time"

	"campus_coffee/internal/domain"
)

// reviewDTO is the wire shape of a review. Approval fields are read-only:
// they are ignored on input and filled from the stored review on output.
type reviewDTO struct {
	ID            *int64     `json:"id,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	PosID         *int64     `json:"posId"`
	AuthorID      *int64     `json:"authorId"`
	Review        *string    `json:"review"`
	ApprovalCount *int       `json:"approvalCount,omitempty"`
	Approved      *bool      `json:"approved,omitempty"`
}

var (
	errMissingPos    = errors.New("posId is required")
	errMissingAuthor = errors.New("authorId is required")
)

func (d reviewDTO) toDomain() (domain.Review, error) {
	if d.PosID == nil {
		return domain.Review{}, errMissingPos
	}
	if d.AuthorID == nil {
		return domain.Review{}, errMissingAuthor
	}
	r := domain.Review{PosID: *d.PosID, AuthorID: *d.AuthorID}
	if d.ID != nil {
		r.ID = *d.ID
	}
	if d.Review != nil {
		r.Text = *d.Review
	}
	return r, nil
}

func fromDomain(r domain.Review) reviewDTO {
	id, pos, author, text := r.ID, r.PosID, r.AuthorID, r.Text
	count, approved := r.ApprovalCount, r.Approved
	return reviewDTO{
		ID:            &id,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		PosID:         &pos,
		AuthorID:      &author,
		Review:        &text,
		ApprovalCount: &count,
		Approved:      &approved,
	}
}

func fromDomainList(rs []domain.Review) []reviewDTO {
	out := make([]reviewDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, fromDomain(r))
	}
	return out
}
