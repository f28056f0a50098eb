package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"campus_coffee/internal/adapters/observability"
	"campus_coffee/internal/domain"
)

// Upsert validates and persists a review. A review without an ID is created
// with zero approvals; one with an ID must already exist and only its
// content (POS, author, text) is replaced.
func (s *ReviewService) Upsert(ctx context.Context, r domain.Review) (out domain.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService.Upsert",
		attribute.Int64("review.id", r.ID),
		attribute.Int64("pos.id", r.PosID),
		attribute.Int64("author.id", r.AuthorID),
	)
	defer func() { finish(span, "upsert", err) }()

	log.Info().Int64("review_id", r.ID).Msg("processing upsert request for review")

	if err := s.requirePOS(ctx, r.PosID); err != nil {
		return domain.Review{}, err
	}
	if err := s.requireUser(ctx, r.AuthorID); err != nil {
		return domain.Review{}, err
	}

	if r.IsNew() {
		r.ApprovalCount = 0
		r.Approved = false
		log.Debug().Msg("defaulting new review to approvalCount=0, approved=false")
		if err := validateContent(r); err != nil {
			return domain.Review{}, err
		}
		out, err = s.store.Upsert(ctx, r)
		if err != nil {
			return domain.Review{}, fmt.Errorf("persist review: %w", err)
		}
		s.invalidate(ctx, out.PosID)
		return out, nil
	}

	// Updates run inside the store's per-key atomic section so an edit can
	// never overwrite an approval that lands concurrently.
	var prevPos int64
	out, err = s.store.Update(ctx, r.ID, func(cur *domain.Review) error {
		if err := validateContent(r); err != nil {
			return err
		}
		prevPos = cur.PosID
		cur.PosID = r.PosID
		cur.AuthorID = r.AuthorID
		cur.Text = r.Text
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Review{}, domain.NotFound(domain.EntityReview, r.ID)
		}
		if domain.IsValidation(err) {
			return domain.Review{}, err
		}
		return domain.Review{}, fmt.Errorf("update review %d: %w", r.ID, err)
	}
	s.invalidate(ctx, out.PosID)
	if prevPos != out.PosID {
		s.invalidate(ctx, prevPos)
	}
	return out, nil
}

func validateContent(r domain.Review) error {
	if !r.HasContent() {
		return domain.Invalid(domain.KindEmptyContent)
	}
	if r.ApprovalCount < 0 {
		return domain.Invalid(domain.KindInvalidCount)
	}
	return nil
}

// Approve records one approval of review by userID and recomputes the
// approval status against the quorum. It is not idempotent and does not
// track approver identities; only the author is barred from approving.
func (s *ReviewService) Approve(ctx context.Context, review domain.Review, userID int64) (out domain.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService.Approve",
		attribute.Int64("review.id", review.ID),
		attribute.Int64("user.id", userID),
	)
	defer func() { finish(span, "approve", err) }()

	log.Info().Int64("review_id", review.ID).Int64("user_id", userID).Msg("processing approval request")

	if err := s.requireUser(ctx, userID); err != nil {
		return domain.Review{}, err
	}

	var reached bool
	apply := func(cur *domain.Review) error {
		if cur.AuthorID == userID {
			return domain.Invalid(domain.KindSelfApproval)
		}
		was := cur.Approved
		cur.ApprovalCount++
		*cur = s.updateApprovalStatus(*cur)
		reached = !was && cur.Approved
		log.Debug().Int64("review_id", cur.ID).Int("approval_count", cur.ApprovalCount).
			Bool("approved", cur.Approved).Msg("updated approval status")
		return nil
	}

	if review.IsNew() {
		// an unsaved review is persisted here, so it must pass the same
		// reference and content checks as a create
		if err := s.requirePOS(ctx, review.PosID); err != nil {
			return domain.Review{}, err
		}
		if err := s.requireUser(ctx, review.AuthorID); err != nil {
			return domain.Review{}, err
		}
		if err := validateContent(review); err != nil {
			return domain.Review{}, err
		}
		if err := apply(&review); err != nil {
			return domain.Review{}, err
		}
		out, err = s.store.Upsert(ctx, review)
		if err != nil {
			return domain.Review{}, fmt.Errorf("persist review: %w", err)
		}
	} else {
		out, err = s.store.Update(ctx, review.ID, apply)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Review{}, domain.NotFound(domain.EntityReview, review.ID)
			}
			if domain.IsValidation(err) {
				return domain.Review{}, err
			}
			return domain.Review{}, fmt.Errorf("approve review %d: %w", review.ID, err)
		}
	}

	if reached {
		observability.ObserveApprovalReached()
		log.Info().Int64("review_id", out.ID).Int("approval_count", out.ApprovalCount).Msg("review reached approval quorum")
	}
	s.invalidate(ctx, out.PosID)
	return out, nil
}
