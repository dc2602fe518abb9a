package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	companyentity "github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
	"github.com/ProConnect-Lab/proconnect-backend/internal/post/entity"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/database"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/utilities"
)

type PostRepo struct {
	db sqlx.ExtContext
}

func NewPostRepo(db sqlx.ExtContext) *PostRepo { return &PostRepo{db: db} }

const postColumns = `id, user_id, company_id, title, content, created_at, updated_at`

// EnsureTable creates the posts table. Requires users and companies.
func (r *PostRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS posts (
  id BIGINT PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id),
  company_id BIGINT REFERENCES companies(id),
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
CREATE INDEX IF NOT EXISTS idx_posts_company_id ON posts(company_id);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *PostRepo) Create(ctx context.Context, p *entity.Post) error {
	if p.ID == 0 {
		p.ID = utilities.NewID()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	const q = `INSERT INTO posts (` + postColumns + `)
		VALUES (:id, :user_id, :company_id, :title, :content, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, r.db, q, p)
	return err
}

func (r *PostRepo) GetByID(ctx context.Context, id int64) (*entity.Post, error) {
	var p entity.Post
	if err := sqlx.GetContext(ctx, r.db, &p, `SELECT `+postColumns+` FROM posts WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update writes title, content and company_id.
func (r *PostRepo) Update(ctx context.Context, p *entity.Post) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title=$2, content=$3, company_id=$4, updated_at=$5 WHERE id=$1`,
		p.ID, p.Title, p.Content, p.CompanyID, p.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteByCompany removes every post attached to companyID.
func (r *PostRepo) DeleteByCompany(ctx context.Context, companyID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE company_id=$1`, companyID)
	return err
}

// DeleteByUser removes the posts authored by userID and the posts attached to
// companies userID owns.
func (r *PostRepo) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE user_id=$1 OR company_id IN (SELECT id FROM companies WHERE user_id=$1)`, userID)
	return err
}

type viewRow struct {
	entity.Post
	AuthorID    int64          `db:"author_id"`
	AuthorName  string         `db:"author_name"`
	AuthorEmail string         `db:"author_email"`
	CompanyRef  sql.NullInt64  `db:"company_ref_id"`
	CompanyName sql.NullString `db:"company_name"`
}

func (v viewRow) toView() entity.View {
	out := entity.View{
		Post:   v.Post,
		Author: userentity.Ref{ID: v.AuthorID, Name: v.AuthorName, Email: v.AuthorEmail},
	}
	if v.CompanyRef.Valid {
		out.Company = &companyentity.Ref{ID: v.CompanyRef.Int64, Name: v.CompanyName.String}
	}
	return out
}

const viewSelect = `SELECT p.id, p.user_id, p.company_id, p.title, p.content, p.created_at, p.updated_at,
	u.id AS author_id, u.name AS author_name, u.email::text AS author_email,
	c.id AS company_ref_id, c.name AS company_name
	FROM posts p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN companies c ON c.id = p.company_id`

func postWhere(f entity.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.AuthorID != 0 {
		conds = append(conds, `p.user_id = ?`)
		args = append(args, f.AuthorID)
	}
	if term := strings.TrimSpace(f.Term); term != "" {
		p := database.LikePattern(term)
		conds = append(conds, `(p.title ILIKE ? OR p.content ILIKE ?)`)
		args = append(args, p, p)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// View returns a single post with author and company summaries.
func (r *PostRepo) View(ctx context.Context, id int64) (*entity.View, error) {
	var row viewRow
	if err := sqlx.GetContext(ctx, r.db, &row, viewSelect+` WHERE p.id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	v := row.toView()
	return &v, nil
}

// List returns every post matching f, newest first.
func (r *PostRepo) List(ctx context.Context, f entity.Filter) ([]entity.View, error) {
	where, args := postWhere(f)
	var rows []viewRow
	q := viewSelect + where + ` ORDER BY p.created_at DESC, p.id DESC`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return toViews(rows), nil
}

// Search returns one page of posts matching f, newest first.
func (r *PostRepo) Search(ctx context.Context, f entity.Filter, pr page.Request) ([]entity.View, int, error) {
	where, args := postWhere(f)
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(`SELECT COUNT(*) FROM posts p`+where), args...); err != nil {
		return nil, 0, err
	}
	var rows []viewRow
	q := viewSelect + where + ` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(q), append(args, pr.Limit(), pr.Offset())...); err != nil {
		return nil, 0, err
	}
	return toViews(rows), total, nil
}

// Latest returns the n most recent posts.
func (r *PostRepo) Latest(ctx context.Context, n int) ([]entity.View, error) {
	var rows []viewRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, viewSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1`, n); err != nil {
		return nil, err
	}
	return toViews(rows), nil
}

func (r *PostRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM posts`)
	return n, err
}

func toViews(rows []viewRow) []entity.View {
	out := make([]entity.View, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toView())
	}
	return out
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
