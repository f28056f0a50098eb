package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"campus_coffee/internal/domain"
)

func (s *ReviewService) Get(ctx context.Context, id int64) (domain.Review, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Review{}, domain.NotFound(domain.EntityReview, id)
		}
		return domain.Review{}, fmt.Errorf("get review %d: %w", id, err)
	}
	return r, nil
}

func (s *ReviewService) List(ctx context.Context) ([]domain.Review, error) {
	rs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return rs, nil
}

// Filter returns the reviews of a POS whose approved flag equals approved,
// in store order.
func (s *ReviewService) Filter(ctx context.Context, posID int64, approved bool) (out []domain.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService.Filter",
		attribute.Int64("pos.id", posID),
		attribute.Bool("approved", approved),
	)
	defer func() { finish(span, "filter", err) }()

	if err := s.requirePOS(ctx, posID); err != nil {
		return nil, err
	}

	key := filterKey(posID, approved)
	if s.cache != nil {
		var cached []domain.Review
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	// the shared read must outlive any single caller's cancellation
	readCtx := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(key, func() (any, error) {
		gen := s.gens.current(posID)
		rs, err := s.store.Filter(readCtx, posID, approved)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			_ = s.cache.Set(readCtx, key, rs, int(s.cacheTTL.Seconds()))
			// a write that invalidated during the read may have been
			// overtaken by this Set; drop the possibly stale entry
			if s.gens.current(posID) != gen {
				_ = s.cache.Del(readCtx, key)
			}
		}
		return rs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("filter reviews of pos %d: %w", posID, err)
	}
	// singleflight shares the slice between callers
	return copyReviews(v.([]domain.Review)), nil
}

func filterKey(posID int64, approved bool) string {
	return fmt.Sprintf("reviews:pos:%d:approved:%t", posID, approved)
}

// invalidate drops both cached filter variants of a POS.
func (s *ReviewService) invalidate(ctx context.Context, posID int64) {
	if s.cache == nil {
		return
	}
	s.gens.bump(posID)
	_ = s.cache.Del(ctx, filterKey(posID, true))
	_ = s.cache.Del(ctx, filterKey(posID, false))
}

// generations counts filter invalidations per POS. A filter read that sees
// the counter move while it ran must not leave its result in the cache.
type generations struct {
	mu sync.Mutex
	n  map[int64]uint64
}

func (g *generations) current(posID int64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n[posID]
}

func (g *generations) bump(posID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n == nil {
		g.n = map[int64]uint64{}
	}
	g.n[posID]++
}

func copyReviews(in []domain.Review) []domain.Review {
	if len(in) == 0 {
		return []domain.Review{}
	}
	out := make([]domain.Review, len(in))
	copy(out, in)
	return out
}
