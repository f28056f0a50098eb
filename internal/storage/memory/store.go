package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"campus_coffee/internal/domain"
)

// Store keeps reviews, POS and users in process memory. Update serializes
// per review id through keyed mutexes; the map itself is only held for the
// short read and write steps, so different ids never wait on each other's
// callbacks.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	reviews map[int64]domain.Review
	pos     map[int64]domain.POS
	users   map[int64]domain.User

	keysMu sync.Mutex
	keys   map[int64]*keyLock
	now    func() time.Time
}

func New() *Store {
	return &Store{
		reviews: map[int64]domain.Review{},
		pos:     map[int64]domain.POS{},
		users:   map[int64]domain.User{},
		keys:    map[int64]*keyLock{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) PutPOS(p domain.POS) {
	s.mu.Lock()
	s.pos[p.ID] = p
	s.mu.Unlock()
}

func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

func (s *Store) GetPOS(_ context.Context, id int64) (domain.POS, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pos[id]
	if !ok {
		return domain.POS{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) List(_ context.Context) ([]domain.Review, error) {
	s.mu.RLock()
	out := make([]domain.Review, 0, len(s.reviews))
	for _, r := range s.reviews {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sortByID(out)
	return out, nil
}

func (s *Store) Filter(_ context.Context, posID int64, approved bool) ([]domain.Review, error) {
	s.mu.RLock()
	out := []domain.Review{}
	for _, r := range s.reviews {
		if r.PosID == posID && r.Approved == approved {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sortByID(out)
	return out, nil
}

// Upsert inserts when r.ID is zero, otherwise replaces the stored row.
func (s *Store) Upsert(_ context.Context, r domain.Review) (domain.Review, error) {
	if r.ID != 0 {
		defer s.lock(r.ID)()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(r)
}

func (s *Store) Update(_ context.Context, id int64, fn func(*domain.Review) error) (domain.Review, error) {
	defer s.lock(id)()

	s.mu.RLock()
	cur, ok := s.reviews[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	if err := fn(&cur); err != nil {
		return domain.Review{}, err
	}
	cur.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(cur)
}

// write must be called with s.mu held for writing.
func (s *Store) write(r domain.Review) (domain.Review, error) {
	now := s.now()
	if r.ID == 0 {
		s.nextID++
		r.ID = s.nextID
		r.CreatedAt = &now
	} else {
		prev, ok := s.reviews[r.ID]
		if !ok {
			return domain.Review{}, domain.ErrNotFound
		}
		r.CreatedAt = prev.CreatedAt
	}
	r.UpdatedAt = &now
	s.reviews[r.ID] = r
	return r, nil
}

// keyLock is dropped from the table once no caller holds or waits for it.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// lock takes the per-id lock and returns its release func.
func (s *Store) lock(id int64) func() {
	s.keysMu.Lock()
	k, ok := s.keys[id]
	if !ok {
		k = &keyLock{}
		s.keys[id] = k
	}
	k.refs++
	s.keysMu.Unlock()

	k.mu.Lock()
	return func() {
		k.mu.Unlock()
		s.keysMu.Lock()
		if k.refs--; k.refs == 0 {
			delete(s.keys, id)
		}
		s.keysMu.Unlock()
	}
}

// heldLocks reports how many per-id locks are currently tracked.
func (s *Store) heldLocks() int {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	return len(s.keys)
}

func sortByID(rs []domain.Review) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}
