package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
	"github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/database"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/utilities"
)

// UserRepo provides data access for the users table using sqlx. db may be a
// *sqlx.DB or a *sqlx.Tx.
type UserRepo struct {
	db sqlx.ExtContext
}

func NewUserRepo(db sqlx.ExtContext) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, address, account_type, role, password_hash, created_at, updated_at`

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id BIGINT PRIMARY KEY,
  name TEXT NOT NULL,
  email CITEXT NOT NULL UNIQUE,
  address TEXT NOT NULL DEFAULT '',
  account_type TEXT NOT NULL DEFAULT 'private',
  role TEXT NOT NULL DEFAULT 'member',
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_role_created ON users(role, created_at DESC);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts u, assigning its ID and timestamps. A taken email returns
// database.ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	if u.ID == 0 {
		u.ID = utilities.NewID()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	const q = `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :name, :email, :address, :account_type, :role, :password_hash, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, r.db, q, u)
	return database.MapWriteError(err)
}

// GetByID fetches a full user row or apperr.ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetByEmail returns a user matched by email (case-insensitive due to citext).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*entity.User, error) {
	var u entity.User
	if err := sqlx.GetContext(ctx, r.db, &u, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// EmailTaken reports whether another user than exceptID owns email.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var taken bool
	err := sqlx.GetContext(ctx, r.db, &taken, `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1 AND id<>$2)`, email, exceptID)
	return taken, err
}

// UpdateProfile writes name, email and address.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name=$2, email=$3, address=$4, updated_at=$5 WHERE id=$1`,
		u.ID, u.Name, u.Email, u.Address, u.UpdatedAt)
	if err != nil {
		return database.MapWriteError(err)
	}
	return requireRow(res)
}

// UpsertAdmin creates or updates the administrator identified by u.Email and
// forces the admin role.
func (r *UserRepo) UpsertAdmin(ctx context.Context, u *entity.User) (*entity.User, error) {
	if u.ID == 0 {
		u.ID = utilities.NewID()
	}
	now := time.Now().UTC()
	const q = `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, 'admin', $6, $7, $7)
		ON CONFLICT (email) DO UPDATE SET
		  name=EXCLUDED.name, address=EXCLUDED.address, account_type=EXCLUDED.account_type,
		  role='admin', password_hash=EXCLUDED.password_hash, updated_at=EXCLUDED.updated_at
		RETURNING ` + userColumns
	var out entity.User
	if err := sqlx.GetContext(ctx, r.db, &out, q, u.ID, u.Name, u.Email, u.Address, u.AccountType, u.PasswordHash, now); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the user row only; callers cascade first.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Search returns one page of users matching f, newest first, with the
// number of companies and posts each one owns.
func (r *UserRepo) Search(ctx context.Context, f entity.Filter, pr page.Request) ([]entity.Summary, int, error) {
	where, args := userWhere(f)
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(`SELECT COUNT(*) FROM users u`+where), args...); err != nil {
		return nil, 0, err
	}
	q := `SELECT u.id, u.name, u.email, u.account_type, u.address, u.created_at,
		(SELECT COUNT(*) FROM companies c WHERE c.user_id = u.id) AS companies_count,
		(SELECT COUNT(*) FROM posts p WHERE p.user_id = u.id) AS posts_count
		FROM users u` + where + ` ORDER BY u.created_at DESC, u.id DESC LIMIT ? OFFSET ?`
	items := []entity.Summary{}
	if err := sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(q), append(args, pr.Limit(), pr.Offset())...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func userWhere(f entity.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.ExcludeAdmins {
		conds = append(conds, `u.role <> ?`)
		args = append(args, entity.RoleAdmin)
	}
	if term := strings.TrimSpace(f.Term); term != "" {
		p := database.LikePattern(term)
		conds = append(conds, `(u.name ILIKE ? OR u.email::text ILIKE ? OR u.address ILIKE ?)`)
		args = append(args, p, p, p)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListByRole returns every user with role, newest first.
func (r *UserRepo) ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error) {
	out := []entity.User{}
	err := sqlx.SelectContext(ctx, r.db, &out,
		`SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY created_at DESC, id DESC`, role)
	return out, err
}

// CountByRole counts users with role.
func (r *UserRepo) CountByRole(ctx context.Context, role entity.Role) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM users WHERE role=$1`, role)
	return n, err
}

// Latest returns the n most recently created users with role.
func (r *UserRepo) Latest(ctx context.Context, role entity.Role, n int) ([]entity.User, error) {
	out := []entity.User{}
	err := sqlx.SelectContext(ctx, r.db, &out,
		`SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY created_at DESC, id DESC LIMIT $2`, role, n)
	return out, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
