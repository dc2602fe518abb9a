package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
)

// NOTE: abilities are stored as a JSON array in a TEXT column so the same
// statements work under lib/pq and pgx.

type TokenRepo struct {
	db sqlx.ExtContext
}

func NewTokenRepo(db sqlx.ExtContext) *TokenRepo {
	return &TokenRepo{db: db}
}

// EnsureTable creates the access_tokens table. Requires users.
func (r *TokenRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS access_tokens (
  id TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  abilities TEXT NOT NULL DEFAULT '[]',
  last_used_at TIMESTAMPTZ,
  expires_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_access_tokens_user_id ON access_tokens(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type tokenRow struct {
	entity.Token
	Abilities string `db:"abilities"`
}

func (r *TokenRepo) Save(ctx context.Context, t *entity.Token) error {
	abilities, err := json.Marshal(t.Abilities)
	if err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO access_tokens (id, user_id, name, abilities, last_used_at, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.Name, string(abilities), t.LastUsedAt, t.ExpiresAt, t.CreatedAt)
	return err
}

func (r *TokenRepo) Get(ctx context.Context, id string) (*entity.Token, error) {
	var row tokenRow
	err := sqlx.GetContext(ctx, r.db, &row,
		`SELECT id, user_id, name, abilities, last_used_at, expires_at, created_at FROM access_tokens WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	t := row.Token
	if err := json.Unmarshal([]byte(row.Abilities), &t.Abilities); err != nil {
		return nil, err
	}
	return &t, nil
}

// Touch records at as the last use of token id.
func (r *TokenRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE access_tokens SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

// Delete is idempotent.
func (r *TokenRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE id = $1`, id)
	return err
}

func (r *TokenRepo) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE user_id = $1`, userID)
	return err
}
