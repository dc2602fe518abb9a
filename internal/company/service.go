package company

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/authz"
	"github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	"github.com/ProConnect-Lab/proconnect-backend/internal/validation"
)

// Input is the create/update payload.
type Input struct {
	Name      string `json:"name" validate:"required,max=255"`
	CFENumber string `json:"cfe_number" validate:"required,max=255"`
	Address   string `json:"address" validate:"required,max=255"`
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.CFENumber = strings.TrimSpace(in.CFENumber)
	in.Address = strings.TrimSpace(in.Address)
}

// Service manages the companies of the calling user.
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

func target(c *entity.Company) authz.Target {
	return authz.Target{Kind: authz.KindCompany, ID: c.ID, OwnerID: c.UserID}
}

// List returns the actor's companies, newest first.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]entity.Company, error) {
	return s.store.Companies().ListByOwner(ctx, actor.UserID)
}

func (s *Service) Create(ctx context.Context, actor authz.Actor, in Input) (*entity.Company, error) {
	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	c := &entity.Company{UserID: actor.UserID, Name: in.Name, CFENumber: in.CFENumber, Address: in.Address}
	if err := authz.Authorize(actor, authz.Create, target(c)).Err(); err != nil {
		return nil, err
	}
	if err := s.store.Companies().Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update is reserved to the owner. Ownership is checked before the payload
// so a non-owner learns nothing from validation messages.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, in Input) (*entity.Company, error) {
	c, err := s.store.Companies().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.Update, target(c)).Err(); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	c.Name, c.CFENumber, c.Address = in.Name, in.CFENumber, in.Address
	if err := s.store.Companies().Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the company and its posts.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	c, err := s.store.Companies().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actor, authz.Delete, target(c)).Err(); err != nil {
		return err
	}
	return Cascade(ctx, s.store, c.ID)
}

// Cascade deletes company id and every post attached to it in one
// transaction.
func Cascade(ctx context.Context, st store.Store, id int64) error {
	return st.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.Posts().DeleteByCompany(ctx, id); err != nil {
			return err
		}
		return tx.Companies().Delete(ctx, id)
	})
}
