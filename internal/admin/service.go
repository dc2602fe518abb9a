// Package admin implements the moderation surface: cross-tenant search,
// cascading deletes, admin-authored posts and platform statistics.
package admin

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/authz"
	"github.com/ProConnect-Lab/proconnect-backend/internal/company"
	companyentity "github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
	"github.com/ProConnect-Lab/proconnect-backend/internal/post"
	postentity "github.com/ProConnect-Lab/proconnect-backend/internal/post/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

const latestCount = 5

// PostListing is the admin projection of a post.
type PostListing struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	Content   string             `json:"content"`
	Author    userentity.Ref     `json:"author"`
	Company   *companyentity.Ref `json:"company"`
	CreatedAt time.Time          `json:"created_at"`
}

func listing(v postentity.View) PostListing {
	return PostListing{
		ID:        v.ID,
		Title:     v.Title,
		Content:   v.Content,
		Author:    v.Author,
		Company:   v.Company,
		CreatedAt: v.CreatedAt,
	}
}

// AdminSummary is an entry of the administrators list.
type AdminSummary struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Email       string                 `json:"email"`
	Address     string                 `json:"address"`
	AccountType userentity.AccountType `json:"account_type"`
	CreatedAt   time.Time              `json:"created_at"`
}

type Totals struct {
	Users     int `json:"users"`
	Companies int `json:"companies"`
	Posts     int `json:"posts"`
	Admins    int `json:"admins"`
}

type LatestUser struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Email       string                 `json:"email"`
	AccountType userentity.AccountType `json:"account_type"`
	CreatedAt   time.Time              `json:"created_at"`
}

type LatestPost struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	UserID    int64              `json:"user_id"`
	CompanyID *int64             `json:"company_id"`
	CreatedAt time.Time          `json:"created_at"`
	User      userentity.Ref     `json:"user"`
	Company   *companyentity.Ref `json:"company"`
}

type Stats struct {
	Totals      Totals       `json:"totals"`
	LatestUsers []LatestUser `json:"latest_users"`
	LatestPosts []LatestPost `json:"latest_posts"`
}

type Service struct {
	store  store.Store
	logger *zap.SugaredLogger
}

func NewService(st store.Store, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: st, logger: logger}
}

func allowed(actor authz.Actor, action authz.Action, t authz.Target) error {
	return authz.Authorize(actor, action, t).Err()
}

// SearchUsers pages through non-admin users matching term.
func (s *Service) SearchUsers(ctx context.Context, actor authz.Actor, term string, r page.Request) (page.Page[userentity.Summary], error) {
	if err := allowed(actor, authz.AdminList, authz.Target{Kind: authz.KindUser}); err != nil {
		return page.Page[userentity.Summary]{}, err
	}
	items, total, err := s.store.Users().Search(ctx, userentity.Filter{Term: term, ExcludeAdmins: true}, r)
	if err != nil {
		return page.Page[userentity.Summary]{}, err
	}
	return page.Of(items, r, total), nil
}

func (s *Service) SearchCompanies(ctx context.Context, actor authz.Actor, term string, r page.Request) (page.Page[companyentity.Listing], error) {
	if err := allowed(actor, authz.AdminList, authz.Target{Kind: authz.KindCompany}); err != nil {
		return page.Page[companyentity.Listing]{}, err
	}
	items, total, err := s.store.Companies().Search(ctx, term, r)
	if err != nil {
		return page.Page[companyentity.Listing]{}, err
	}
	return page.Of(items, r, total), nil
}

func (s *Service) SearchPosts(ctx context.Context, actor authz.Actor, term string, r page.Request) (page.Page[PostListing], error) {
	if err := allowed(actor, authz.AdminList, authz.Target{Kind: authz.KindPost}); err != nil {
		return page.Page[PostListing]{}, err
	}
	views, total, err := s.store.Posts().Search(ctx, postentity.Filter{Term: term}, r)
	if err != nil {
		return page.Page[PostListing]{}, err
	}
	items := make([]PostListing, 0, len(views))
	for _, v := range views {
		items = append(items, listing(v))
	}
	return page.Of(items, r, total), nil
}

// AllCompanies lists every company by name, for pickers.
func (s *Service) AllCompanies(ctx context.Context, actor authz.Actor) ([]companyentity.Ref, error) {
	if err := allowed(actor, authz.AdminList, authz.Target{Kind: authz.KindCompany}); err != nil {
		return nil, err
	}
	return s.store.Companies().ListRefs(ctx)
}

// DeleteUser removes a member with everything they own. Administrators can
// never be deleted.
func (s *Service) DeleteUser(ctx context.Context, actor authz.Actor, id int64) error {
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	t := authz.Target{Kind: authz.KindUser, ID: u.ID, OwnerID: u.ID, Role: u.Role}
	if err := allowed(actor, authz.AdminDelete, t); err != nil {
		return err
	}
	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.Posts().DeleteByUser(ctx, u.ID); err != nil {
			return err
		}
		if err := tx.Companies().DeleteByOwner(ctx, u.ID); err != nil {
			return err
		}
		if err := tx.Tokens().DeleteByUser(ctx, u.ID); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, u.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Infow("user deleted", "user_id", u.ID, "by", actor.UserID)
	return nil
}

func (s *Service) DeleteCompany(ctx context.Context, actor authz.Actor, id int64) error {
	c, err := s.store.Companies().GetByID(ctx, id)
	if err != nil {
		return err
	}
	t := authz.Target{Kind: authz.KindCompany, ID: c.ID, OwnerID: c.UserID}
	if err := allowed(actor, authz.AdminDelete, t); err != nil {
		return err
	}
	if err := company.Cascade(ctx, s.store, c.ID); err != nil {
		return err
	}
	s.logger.Infow("company deleted", "company_id", c.ID, "by", actor.UserID)
	return nil
}

// DeletePost removes any post regardless of author.
func (s *Service) DeletePost(ctx context.Context, actor authz.Actor, id int64) error {
	p, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		return err
	}
	t := authz.Target{Kind: authz.KindPost, ID: p.ID, OwnerID: p.UserID}
	if err := allowed(actor, authz.AdminDelete, t); err != nil {
		return err
	}
	return s.store.Posts().Delete(ctx, p.ID)
}

// CreatePost publishes a post as the admin. Any existing company may be
// attached.
func (s *Service) CreatePost(ctx context.Context, actor authz.Actor, in post.Input) (*PostListing, error) {
	if err := allowed(actor, authz.AdminAuthor, authz.Target{Kind: authz.KindPost, OwnerID: actor.UserID}); err != nil {
		return nil, err
	}
	if _, err := in.Check(ctx, s.store.Companies()); err != nil {
		return nil, err
	}
	p := &postentity.Post{UserID: actor.UserID, CompanyID: in.CompanyID, Title: in.Title, Content: in.Content}
	if err := s.store.Posts().Create(ctx, p); err != nil {
		return nil, err
	}
	return s.listing(ctx, p.ID)
}

// UpdatePost edits a post the admin authored.
func (s *Service) UpdatePost(ctx context.Context, actor authz.Actor, id int64, in post.Input) (*PostListing, error) {
	p, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t := authz.Target{Kind: authz.KindPost, ID: p.ID, OwnerID: p.UserID}
	if err := allowed(actor, authz.AdminAuthor, t); err != nil {
		return nil, err
	}
	if _, err := in.Check(ctx, s.store.Companies()); err != nil {
		return nil, err
	}
	p.Title, p.Content, p.CompanyID = in.Title, in.Content, in.CompanyID
	if err := s.store.Posts().Update(ctx, p); err != nil {
		return nil, err
	}
	return s.listing(ctx, p.ID)
}

func (s *Service) listing(ctx context.Context, id int64) (*PostListing, error) {
	v, err := s.store.Posts().View(ctx, id)
	if err != nil {
		return nil, err
	}
	l := listing(*v)
	return &l, nil
}

// ListAdmins returns every administrator, newest first.
func (s *Service) ListAdmins(ctx context.Context, actor authz.Actor) ([]AdminSummary, error) {
	if err := allowed(actor, authz.AdminManage, authz.Target{Kind: authz.KindAdmin}); err != nil {
		return nil, err
	}
	admins, err := s.store.Users().ListByRole(ctx, userentity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	out := make([]AdminSummary, 0, len(admins))
	for _, u := range admins {
		out = append(out, AdminSummary{
			ID: u.ID, Name: u.Name, Email: u.Email, Address: u.Address,
			AccountType: u.AccountType, CreatedAt: u.CreatedAt,
		})
	}
	return out, nil
}

// Stats reports platform totals and the latest activity. Users are counted
// without administrators.
func (s *Service) Stats(ctx context.Context, actor authz.Actor) (*Stats, error) {
	if err := allowed(actor, authz.AdminList, authz.Target{}); err != nil {
		return nil, err
	}
	var out Stats
	var err error
	if out.Totals.Users, err = s.store.Users().CountByRole(ctx, userentity.RoleMember); err != nil {
		return nil, err
	}
	if out.Totals.Admins, err = s.store.Users().CountByRole(ctx, userentity.RoleAdmin); err != nil {
		return nil, err
	}
	if out.Totals.Companies, err = s.store.Companies().Count(ctx); err != nil {
		return nil, err
	}
	if out.Totals.Posts, err = s.store.Posts().Count(ctx); err != nil {
		return nil, err
	}

	users, err := s.store.Users().Latest(ctx, userentity.RoleMember, latestCount)
	if err != nil {
		return nil, err
	}
	out.LatestUsers = make([]LatestUser, 0, len(users))
	for _, u := range users {
		out.LatestUsers = append(out.LatestUsers, LatestUser{
			ID: u.ID, Name: u.Name, Email: u.Email, AccountType: u.AccountType, CreatedAt: u.CreatedAt,
		})
	}

	posts, err := s.store.Posts().Latest(ctx, latestCount)
	if err != nil {
		return nil, err
	}
	out.LatestPosts = make([]LatestPost, 0, len(posts))
	for _, p := range posts {
		out.LatestPosts = append(out.LatestPosts, LatestPost{
			ID: p.ID, Title: p.Title, UserID: p.UserID, CompanyID: p.CompanyID, CreatedAt: p.CreatedAt,
			User:    userentity.Ref{ID: p.Author.ID, Name: p.Author.Name},
			Company: p.Company,
		})
	}
	return &out, nil
}
