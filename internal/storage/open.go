// Package storage selects the review backend named by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"campus_coffee/internal/domain"
	"campus_coffee/internal/shared"
	"campus_coffee/internal/storage/memory"
	mysqlrepo "campus_coffee/internal/storage/mysql"
	"campus_coffee/internal/storage/sqlite"
)

// Backend is a review store that also resolves the POS and users it
// references. Every driver provides both.
type Backend interface {
	domain.ReviewStore
	domain.POSLookup
	domain.UserLookup
}

// Open connects to the backend selected by cfg.StoreDriver. The returned
// closer releases its connections.
func Open(ctx context.Context, cfg shared.Config) (Backend, func() error, error) {
	switch cfg.StoreDriver {
	case shared.DriverMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db), db.Close, nil

	case shared.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return st, st.Close, nil

	case shared.DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.New(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
