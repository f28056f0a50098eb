package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campus_coffee/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanReview(row interface{ Scan(...any) error }) (domain.Review, error) {
	var (
		r                    domain.Review
		createdAt, updatedAt sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.PosID, &r.AuthorID, &r.Text, &r.ApprovalCount, &r.Approved, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	if createdAt.Valid {
		t := createdAt.Time
		r.CreatedAt = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		r.UpdatedAt = &t
	}
	return r, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (domain.Review, error) {
	return scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id))
}

func (r *Repo) List(ctx context.Context) ([]domain.Review, error) {
	return r.queryReviews(ctx, listReviewsSQL)
}

func (r *Repo) Filter(ctx context.Context, posID int64, approved bool) ([]domain.Review, error) {
	return r.queryReviews(ctx, filterReviewsSQL, posID, approved)
}

func (r *Repo) queryReviews(ctx context.Context, q string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts when rv.ID is zero and otherwise overwrites the row.
func (r *Repo) Upsert(ctx context.Context, rv domain.Review) (domain.Review, error) {
	id, err := write(ctx, r.db, rv)
	if err != nil {
		return domain.Review{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) Update(ctx context.Context, id int64, fn func(*domain.Review) error) (out domain.Review, err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.Review{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := scanReview(tx.QueryRowContext(ctx, lockReviewSQL, id))
	if err != nil {
		return domain.Review{}, err
	}
	if err = fn(&cur); err != nil {
		return domain.Review{}, err
	}
	cur.ID = id
	if _, err = write(ctx, tx, cur); err != nil {
		return domain.Review{}, err
	}
	if out, err = scanReview(tx.QueryRowContext(ctx, getReviewSQL, id)); err != nil {
		return domain.Review{}, err
	}
	if err = tx.Commit(); err != nil {
		return domain.Review{}, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func write(ctx context.Context, q queryer, rv domain.Review) (int64, error) {
	if rv.ID == 0 {
		res, err := q.ExecContext(ctx, insertReviewSQL, rv.PosID, rv.AuthorID, rv.Text, rv.ApprovalCount, rv.Approved)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	res, err := q.ExecContext(ctx, updateReviewSQL, rv.PosID, rv.AuthorID, rv.Text, rv.ApprovalCount, rv.Approved, rv.ID)
	if err != nil {
		return 0, err
	}
	// MySQL reports 0 affected rows when nothing changed, so confirm existence
	// only when the update matched nothing.
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := q.QueryRowContext(ctx, "SELECT 1 FROM reviews WHERE id = ?", rv.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, domain.ErrNotFound
			}
			return 0, err
		}
	}
	return rv.ID, nil
}

func (r *Repo) GetPOS(ctx context.Context, id int64) (domain.POS, error) {
	var p domain.POS
	if err := r.db.QueryRowContext(ctx, getPOSSQL, id).Scan(&p.ID, &p.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.POS{}, domain.ErrNotFound
		}
		return domain.POS{}, err
	}
	return p, nil
}

func (r *Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	if err := r.db.QueryRowContext(ctx, getUserSQL, id).Scan(&u.ID, &u.LoginName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// PutPOS and PutUser seed the reference tables owned by other subsystems.
func (r *Repo) PutPOS(ctx context.Context, p domain.POS) error {
	_, err := r.db.ExecContext(ctx, insertPOSSQL, p.ID, p.Name)
	return err
}

func (r *Repo) PutUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, insertUserSQL, u.ID, u.LoginName)
	return err
}
