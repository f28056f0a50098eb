package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"campus_coffee/internal/adapters/observability"
	"campus_coffee/internal/domain"
)

// ReviewService is the review workflow engine. Its only mutable state is
// filter cache bookkeeping, so one instance is shared by all callers.
// Mutation atomicity is delegated to domain.ReviewStore.Update.
type ReviewService struct {
	store  domain.ReviewStore
	pos    domain.POSLookup
	users  domain.UserLookup
	quorum int

	cache    domain.Cache
	cacheTTL time.Duration
	sf       singleflight.Group
	gens     generations
}

func NewReviewService(store domain.ReviewStore, pos domain.POSLookup, users domain.UserLookup, quorum int) (*ReviewService, error) {
	if quorum < 0 {
		return nil, fmt.Errorf("approval quorum must be >= 0, got %d", quorum)
	}
	return &ReviewService{store: store, pos: pos, users: users, quorum: quorum}, nil
}

// WithCache enables caching of filter results. A nil cache disables it.
func (s *ReviewService) WithCache(c domain.Cache, ttl time.Duration) *ReviewService {
	s.cache = c
	s.cacheTTL = ttl
	return s
}

func (s *ReviewService) Quorum() int { return s.quorum }

// updateApprovalStatus is the only place the approved flag is derived.
func (s *ReviewService) updateApprovalStatus(r domain.Review) domain.Review {
	r.Approved = r.ApprovalCount >= s.quorum
	return r
}

func (s *ReviewService) requirePOS(ctx context.Context, id int64) error {
	if _, err := s.pos.GetPOS(ctx, id); err != nil {
		return lookupErr(domain.EntityPOS, id, err)
	}
	return nil
}

func (s *ReviewService) requireUser(ctx context.Context, id int64) error {
	if _, err := s.users.GetUser(ctx, id); err != nil {
		return lookupErr(domain.EntityUser, id, err)
	}
	return nil
}

// lookupErr maps a collaborator miss onto ReferenceNotFound; anything else
// is an infrastructure failure and is wrapped as is.
func lookupErr(entity domain.Entity, id int64, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return fmt.Errorf("lookup %s %d: %w", entity, id, err)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish ends the span and records the outcome metric for op.
func finish(span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		observability.ObserveReviewOp(op, "ok")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		observability.ObserveReviewOp(op, string(ve.Kind))
		return
	}
	observability.ObserveReviewOp(op, "error")
}
