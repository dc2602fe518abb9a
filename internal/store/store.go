// Package store composes the entity repositories behind one interface so
// services can run multi-table writes in a single transaction.
package store

import (
	"context"
	"time"

	companyentity "github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
	postentity "github.com/ProConnect-Lab/proconnect-backend/internal/post/entity"
	sessionentity "github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

// Store is the unit-of-work boundary. Repositories obtained from the Store
// passed to a WithinTx callback share that transaction.
type Store interface {
	Users() UserRepository
	Companies() CompanyRepository
	Posts() PostRepository
	Tokens() TokenRepository

	// WithinTx runs fn in a transaction, committing when fn returns nil.
	// Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type UserRepository interface {
	Create(ctx context.Context, u *userentity.User) error
	GetByID(ctx context.Context, id int64) (*userentity.User, error)
	GetByEmail(ctx context.Context, email string) (*userentity.User, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	UpdateProfile(ctx context.Context, u *userentity.User) error
	UpsertAdmin(ctx context.Context, u *userentity.User) (*userentity.User, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, f userentity.Filter, r page.Request) ([]userentity.Summary, int, error)
	ListByRole(ctx context.Context, role userentity.Role) ([]userentity.User, error)
	CountByRole(ctx context.Context, role userentity.Role) (int, error)
	Latest(ctx context.Context, role userentity.Role, n int) ([]userentity.User, error)
}

type CompanyRepository interface {
	Create(ctx context.Context, c *companyentity.Company) error
	GetByID(ctx context.Context, id int64) (*companyentity.Company, error)
	Update(ctx context.Context, c *companyentity.Company) error
	Delete(ctx context.Context, id int64) error
	DeleteByOwner(ctx context.Context, userID int64) error
	ListByOwner(ctx context.Context, userID int64) ([]companyentity.Company, error)
	Search(ctx context.Context, term string, r page.Request) ([]companyentity.Listing, int, error)
	ListRefs(ctx context.Context) ([]companyentity.Ref, error)
	Count(ctx context.Context) (int, error)
}

type PostRepository interface {
	Create(ctx context.Context, p *postentity.Post) error
	GetByID(ctx context.Context, id int64) (*postentity.Post, error)
	Update(ctx context.Context, p *postentity.Post) error
	Delete(ctx context.Context, id int64) error
	DeleteByCompany(ctx context.Context, companyID int64) error
	DeleteByUser(ctx context.Context, userID int64) error
	View(ctx context.Context, id int64) (*postentity.View, error)
	List(ctx context.Context, f postentity.Filter) ([]postentity.View, error)
	Search(ctx context.Context, f postentity.Filter, r page.Request) ([]postentity.View, int, error)
	Latest(ctx context.Context, n int) ([]postentity.View, error)
	Count(ctx context.Context) (int, error)
}

type TokenRepository interface {
	Save(ctx context.Context, t *sessionentity.Token) error
	Get(ctx context.Context, id string) (*sessionentity.Token, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) error
}
