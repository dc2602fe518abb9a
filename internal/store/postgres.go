package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	companyrepo "github.com/ProConnect-Lab/proconnect-backend/internal/company/repo"
	postrepo "github.com/ProConnect-Lab/proconnect-backend/internal/post/repo"
	sessionrepo "github.com/ProConnect-Lab/proconnect-backend/internal/session/repo"
	userrepo "github.com/ProConnect-Lab/proconnect-backend/internal/user/repo"
)

// Postgres is the sqlx-backed Store.
type Postgres struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	tx  *sqlx.Tx
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, ext: db}
}

func (p *Postgres) Users() UserRepository { return userrepo.NewUserRepo(p.ext) }
func (p *Postgres) Companies() CompanyRepository { return companyrepo.NewCompanyRepo(p.ext) }
func (p *Postgres) Posts() PostRepository { return postrepo.NewPostRepo(p.ext) }
func (p *Postgres) Tokens() TokenRepository { return sessionrepo.NewTokenRepo(p.ext) }

func (p *Postgres) WithinTx(ctx context.Context, fn func(Store) error) (err error) {
	if p.tx != nil {
		return fn(p)
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(&Postgres{db: p.db, ext: tx, tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// EnsureSchema creates every table in dependency order.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", userrepo.NewUserRepo(p.ext).EnsureTable},
		{"companies", companyrepo.NewCompanyRepo(p.ext).EnsureTable},
		{"posts", postrepo.NewPostRepo(p.ext).EnsureTable},
		{"access_tokens", sessionrepo.NewTokenRepo(p.ext).EnsureTable},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("ensure %s: %w", s.name, err)
		}
	}
	return nil
}
