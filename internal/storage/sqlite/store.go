package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"campus_coffee/internal/domain"
)

// Store is a single-file SQLite review store. It keeps exactly one open
// connection, so every transaction (and therefore every Update) runs
// strictly one after another.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pos (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id         INTEGER PRIMARY KEY,
		login_name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		pos_id         INTEGER NOT NULL REFERENCES pos(id),
		author_id      INTEGER NOT NULL REFERENCES users(id),
		review         TEXT    NOT NULL,
		approval_count INTEGER NOT NULL DEFAULT 0 CHECK (approval_count >= 0),
		approved       INTEGER NOT NULL DEFAULT 0,
		created_at     TEXT    NOT NULL,
		updated_at     TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_pos_approved ON reviews(pos_id, approved, id)`,
}

const reviewColumns = "id, pos_id, author_id, review, approval_count, approved, created_at, updated_at"

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" works too since the pool never opens a second connection.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanReview(row interface{ Scan(...any) error }) (domain.Review, error) {
	var (
		r                    domain.Review
		createdAt, updatedAt string
	)
	if err := row.Scan(&r.ID, &r.PosID, &r.AuthorID, &r.Text, &r.ApprovalCount, &r.Approved, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		r.CreatedAt = &t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		r.UpdatedAt = &t
	}
	return r, nil
}

func getReview(ctx context.Context, q queryer, id int64) (domain.Review, error) {
	return scanReview(q.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id))
}

func (s *Store) GetByID(ctx context.Context, id int64) (domain.Review, error) {
	return getReview(ctx, s.db, id)
}

func (s *Store) List(ctx context.Context) ([]domain.Review, error) {
	return s.queryReviews(ctx, "SELECT "+reviewColumns+" FROM reviews ORDER BY id")
}

func (s *Store) Filter(ctx context.Context, posID int64, approved bool) ([]domain.Review, error) {
	return s.queryReviews(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE pos_id = ? AND approved = ? ORDER BY id",
		posID, approved)
}

func (s *Store) queryReviews(ctx context.Context, q string, args ...any) ([]domain.Review, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Upsert(ctx context.Context, r domain.Review) (domain.Review, error) {
	id, err := s.write(ctx, s.db, r)
	if err != nil {
		return domain.Review{}, err
	}
	return s.GetByID(ctx, id)
}

func (s *Store) Update(ctx context.Context, id int64, fn func(*domain.Review) error) (out domain.Review, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := getReview(ctx, tx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if err = fn(&cur); err != nil {
		return domain.Review{}, err
	}
	cur.ID = id
	if _, err = s.write(ctx, tx, cur); err != nil {
		return domain.Review{}, err
	}
	if out, err = getReview(ctx, tx, id); err != nil {
		return domain.Review{}, err
	}
	if err = tx.Commit(); err != nil {
		return domain.Review{}, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *Store) write(ctx context.Context, q queryer, r domain.Review) (int64, error) {
	now := s.now().Format(time.RFC3339Nano)
	if r.ID == 0 {
		res, err := q.ExecContext(ctx,
			`INSERT INTO reviews (pos_id, author_id, review, approval_count, approved, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.PosID, r.AuthorID, r.Text, r.ApprovalCount, r.Approved, now, now)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	res, err := q.ExecContext(ctx,
		`UPDATE reviews SET pos_id = ?, author_id = ?, review = ?, approval_count = ?, approved = ?, updated_at = ?
		 WHERE id = ?`,
		r.PosID, r.AuthorID, r.Text, r.ApprovalCount, r.Approved, now, r.ID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.ErrNotFound
	}
	return r.ID, nil
}

func (s *Store) GetPOS(ctx context.Context, id int64) (domain.POS, error) {
	var p domain.POS
	if err := s.db.QueryRowContext(ctx, "SELECT id, name FROM pos WHERE id = ?", id).Scan(&p.ID, &p.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.POS{}, domain.ErrNotFound
		}
		return domain.POS{}, err
	}
	return p, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	if err := s.db.QueryRowContext(ctx, "SELECT id, login_name FROM users WHERE id = ?", id).Scan(&u.ID, &u.LoginName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *Store) PutPOS(ctx context.Context, p domain.POS) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO pos (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name", p.ID, p.Name)
	return err
}

func (s *Store) PutUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, login_name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET login_name = excluded.login_name", u.ID, u.LoginName)
	return err
}
