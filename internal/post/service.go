package post

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/authz"
	companyentity "github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/post/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	"github.com/ProConnect-Lab/proconnect-backend/internal/validation"
)

// Input is the create/update payload of both surfaces.
type Input struct {
	Title     string `json:"title" validate:"required,max=255"`
	Content   string `json:"content" validate:"required"`
	CompanyID *int64 `json:"company_id" validate:"omitempty,gt=0"`
}

const msgCompanyInvalid = "The selected company id is invalid."

// Check normalizes in, runs the payload rules and resolves the attached
// company. The returned company is nil when none is attached.
func (in *Input) Check(ctx context.Context, companies store.CompanyRepository) (*companyentity.Company, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	verr := validation.Check(in)
	var c *companyentity.Company
	if _, failed := verr.Fields["company_id"]; !failed && in.CompanyID != nil {
		found, err := companies.GetByID(ctx, *in.CompanyID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			verr.Add("company_id", msgCompanyInvalid)
		case err != nil:
			return nil, err
		default:
			c = found
		}
	}
	return c, verr.OrNil()
}

// Service manages posts on the member surface.
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

func target(p *entity.Post, c *companyentity.Company) authz.Target {
	t := authz.Target{Kind: authz.KindPost, ID: p.ID, OwnerID: p.UserID}
	if c != nil {
		owner := c.UserID
		t.CompanyOwnerID = &owner
	}
	return t
}

// List returns every post, newest first, optionally searched and limited
// to the actor's own posts.
func (s *Service) List(ctx context.Context, actor authz.Actor, search string, mine bool) ([]entity.View, error) {
	f := entity.Filter{Term: search}
	if mine {
		f.AuthorID = actor.UserID
	}
	views, err := s.store.Posts().List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i].Author.Email = ""
	}
	return views, nil
}

func (s *Service) Create(ctx context.Context, actor authz.Actor, in Input) (*entity.View, error) {
	c, err := in.Check(ctx, s.store.Companies())
	if err != nil {
		return nil, err
	}
	p := &entity.Post{UserID: actor.UserID, CompanyID: in.CompanyID, Title: in.Title, Content: in.Content}
	if err := authz.Authorize(actor, authz.Create, target(p, c)).Err(); err != nil {
		return nil, err
	}
	if err := s.store.Posts().Create(ctx, p); err != nil {
		return nil, err
	}
	return s.view(ctx, p.ID)
}

// Update is reserved to the author; a newly attached company must belong to
// the author as well.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, in Input) (*entity.View, error) {
	p, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.Update, target(p, nil)).Err(); err != nil {
		return nil, err
	}
	c, err := in.Check(ctx, s.store.Companies())
	if err != nil {
		return nil, err
	}
	p.Title, p.Content, p.CompanyID = in.Title, in.Content, in.CompanyID
	if err := authz.Authorize(actor, authz.Update, target(p, c)).Err(); err != nil {
		return nil, err
	}
	if err := s.store.Posts().Update(ctx, p); err != nil {
		return nil, err
	}
	return s.view(ctx, p.ID)
}

func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	p, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actor, authz.Delete, target(p, nil)).Err(); err != nil {
		return err
	}
	return s.store.Posts().Delete(ctx, p.ID)
}

func (s *Service) view(ctx context.Context, id int64) (*entity.View, error) {
	v, err := s.store.Posts().View(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Author.Email = ""
	return v, nil
}
