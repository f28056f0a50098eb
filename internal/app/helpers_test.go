package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"campus_coffee/internal/app"
	"campus_coffee/internal/domain"
	"campus_coffee/internal/storage/memory"
)

const (
	posMensa   int64 = 1
	posCafe    int64 = 2
	authorJane int64 = 10
)

// approvers are distinct non-author users.
var approvers = []int64{20, 21, 22, 23, 24}

func newStore() *memory.Store {
	st := memory.New()
	st.PutPOS(domain.POS{ID: posMensa, Name: "Mensa"})
	st.PutPOS(domain.POS{ID: posCafe, Name: "Cafe"})
	st.PutUser(domain.User{ID: authorJane, LoginName: "jane"})
	for _, id := range approvers {
		st.PutUser(domain.User{ID: id})
	}
	return st
}

func newService(t *testing.T, quorum int) (*app.ReviewService, *memory.Store) {
	t.Helper()
	st := newStore()
	svc, err := app.NewReviewService(st, st, st, quorum)
	require.NoError(t, err)
	return svc, st
}

func createReview(t *testing.T, svc *app.ReviewService, pos int64, text string) domain.Review {
	t.Helper()
	r, err := svc.Upsert(context.Background(), domain.Review{PosID: pos, AuthorID: authorJane, Text: text})
	require.NoError(t, err)
	return r
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind, entity domain.Entity) {
	t.Helper()
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	require.Equal(t, kind, ve.Kind)
	require.Equal(t, entity, ve.Entity)
}

// ---- fakes ----

type brokenLookup struct{ err error }

func (b brokenLookup) GetPOS(context.Context, int64) (domain.POS, error)   { return domain.POS{}, b.err }
func (b brokenLookup) GetUser(context.Context, int64) (domain.User, error) { return domain.User{}, b.err }

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]domain.Review
	gets  int
	hits  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	c.hits++
	*dst.(*[]domain.Review) = v
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]domain.Review{}
	}
	c.store[key] = v.([]domain.Review)
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

// pausingStore holds the first Filter call after it has read the store
// until release is closed, then honors cancellation like a SQL driver would.
type pausingStore struct {
	domain.ReviewStore
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newPausingStore(inner domain.ReviewStore) *pausingStore {
	return &pausingStore{ReviewStore: inner, read: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingStore) Filter(ctx context.Context, posID int64, approved bool) ([]domain.Review, error) {
	rs, err := p.ReviewStore.Filter(ctx, posID, approved)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	if err == nil {
		err = ctx.Err()
	}
	return rs, err
}
