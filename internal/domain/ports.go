package domain

import "context"

// ReviewStore is the durable keyed storage of reviews.
//
// Update is the single-writer-per-key contract: the stored review with the
// given id is loaded, handed to fn, and the result persisted as one atomic
// unit. Concurrent Update calls for the same id are strictly ordered; calls
// for different ids do not block each other. If fn returns an error nothing
// is persisted and that error is returned unchanged. A missing id yields
// ErrNotFound.
type ReviewStore interface {
	GetByID(ctx context.Context, id int64) (Review, error)
	List(ctx context.Context) ([]Review, error)
	Filter(ctx context.Context, posID int64, approved bool) ([]Review, error)
	Upsert(ctx context.Context, r Review) (Review, error)
	Update(ctx context.Context, id int64, fn func(*Review) error) (Review, error)
}

type POSLookup interface {
	GetPOS(ctx context.Context, id int64) (POS, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, id int64) (User, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
