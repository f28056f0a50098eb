package storage

import (
	"context"
	"fmt"

	"campus_coffee/internal/domain"
)

// Directory resolves POS and users owned by other subsystems.
type Directory interface {
	domain.POSLookup
	domain.UserLookup
}

// referenceWriter is implemented by stores whose reviews table keeps
// foreign keys to local pos/users tables.
type referenceWriter interface {
	PutPOS(ctx context.Context, p domain.POS) error
	PutUser(ctx context.Context, u domain.User) error
}

// Mirror returns lookups backed by dir. When the store keeps its own
// reference tables, every entity dir resolves is copied into them so
// reviews referencing it can be inserted.
func Mirror(dir Directory, store Backend) Directory {
	w, ok := store.(referenceWriter)
	if !ok {
		return dir
	}
	return &mirror{dir: dir, local: w}
}

type mirror struct {
	dir   Directory
	local referenceWriter
}

func (m *mirror) GetPOS(ctx context.Context, id int64) (domain.POS, error) {
	p, err := m.dir.GetPOS(ctx, id)
	if err != nil {
		return domain.POS{}, err
	}
	p.ID = id
	if err := m.local.PutPOS(ctx, p); err != nil {
		return domain.POS{}, fmt.Errorf("mirror pos %d: %w", id, err)
	}
	return p, nil
}

func (m *mirror) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := m.dir.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = id
	if u.LoginName == "" {
		// login_name is unique locally
		u.LoginName = fmt.Sprintf("user-%d", id)
	}
	if err := m.local.PutUser(ctx, u); err != nil {
		return domain.User{}, fmt.Errorf("mirror user %d: %w", id, err)
	}
	return u, nil
}
