package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/database"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/utilities"
)

type CompanyRepo struct {
	db sqlx.ExtContext
}

func NewCompanyRepo(db sqlx.ExtContext) *CompanyRepo { return &CompanyRepo{db: db} }

const companyColumns = `id, user_id, name, cfe_number, address, created_at, updated_at`

// EnsureTable creates the companies table. Requires users.
func (r *CompanyRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS companies (
  id BIGINT PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id),
  name TEXT NOT NULL,
  cfe_number TEXT NOT NULL,
  address TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_companies_user_id ON companies(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	if c.ID == 0 {
		c.ID = utilities.NewID()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	const q = `INSERT INTO companies (` + companyColumns + `)
		VALUES (:id, :user_id, :name, :cfe_number, :address, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, r.db, q, c)
	return err
}

func (r *CompanyRepo) GetByID(ctx context.Context, id int64) (*entity.Company, error) {
	var c entity.Company
	if err := sqlx.GetContext(ctx, r.db, &c, `SELECT `+companyColumns+` FROM companies WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Update writes name, cfe_number and address.
func (r *CompanyRepo) Update(ctx context.Context, c *entity.Company) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE companies SET name=$2, cfe_number=$3, address=$4, updated_at=$5 WHERE id=$1`,
		c.ID, c.Name, c.CFENumber, c.Address, c.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *CompanyRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteByOwner removes every company owned by userID.
func (r *CompanyRepo) DeleteByOwner(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE user_id=$1`, userID)
	return err
}

// ListByOwner returns the companies of userID, newest first.
func (r *CompanyRepo) ListByOwner(ctx context.Context, userID int64) ([]entity.Company, error) {
	out := []entity.Company{}
	err := sqlx.SelectContext(ctx, r.db, &out,
		`SELECT `+companyColumns+` FROM companies WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	return out, err
}

type listingRow struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	CFENumber  string    `db:"cfe_number"`
	Address    string    `db:"address"`
	CreatedAt  time.Time `db:"created_at"`
	OwnerID    int64     `db:"owner_id"`
	OwnerName  string    `db:"owner_name"`
	OwnerEmail string    `db:"owner_email"`
	PostsCount int       `db:"posts_count"`
}

// Search returns one page of companies whose name, cfe_number or address
// contains term, newest first.
func (r *CompanyRepo) Search(ctx context.Context, term string, pr page.Request) ([]entity.Listing, int, error) {
	where, args := "", []any{}
	if term = strings.TrimSpace(term); term != "" {
		p := database.LikePattern(term)
		where = ` WHERE (c.name ILIKE ? OR c.cfe_number ILIKE ? OR c.address ILIKE ?)`
		args = append(args, p, p, p)
	}
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(`SELECT COUNT(*) FROM companies c`+where), args...); err != nil {
		return nil, 0, err
	}
	q := `SELECT c.id, c.name, c.cfe_number, c.address, c.created_at,
		u.id AS owner_id, u.name AS owner_name, u.email::text AS owner_email,
		(SELECT COUNT(*) FROM posts p WHERE p.company_id = c.id) AS posts_count
		FROM companies c JOIN users u ON u.id = c.user_id` + where +
		` ORDER BY c.created_at DESC, c.id DESC LIMIT ? OFFSET ?`
	var rows []listingRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(q), append(args, pr.Limit(), pr.Offset())...); err != nil {
		return nil, 0, err
	}
	items := make([]entity.Listing, 0, len(rows))
	for _, row := range rows {
		items = append(items, entity.Listing{
			ID:         row.ID,
			Name:       row.Name,
			CFENumber:  row.CFENumber,
			Address:    row.Address,
			Owner:      userentity.Ref{ID: row.OwnerID, Name: row.OwnerName, Email: row.OwnerEmail},
			PostsCount: row.PostsCount,
			CreatedAt:  row.CreatedAt,
		})
	}
	return items, total, nil
}

// ListRefs returns id and name of every company sorted by name.
func (r *CompanyRepo) ListRefs(ctx context.Context) ([]entity.Ref, error) {
	out := []entity.Ref{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT id, name FROM companies ORDER BY name, id`)
	return out, err
}

func (r *CompanyRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM companies`)
	return n, err
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
