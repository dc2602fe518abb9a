package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	companyentity "github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	postentity "github.com/ProConnect-Lab/proconnect-backend/internal/post/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	"github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/validation"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/database"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation. Cost 0 means bcrypt.DefaultCost.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	return err != nil || c != b.cost()
}

const (
	msgEmailTaken      = "The email has already been taken."
	msgPasswordTooLong = "The password field must not be greater than 72 bytes."
	dummyPassword      = "proconnect-unknown-account"
)

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,maxbytes=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
	AccountType          string `json:"account_type" validate:"required,oneof=private pro"`
	Address              string `json:"address" validate:"required,max=255"`
	CompanyName          string `json:"company_name" validate:"required_if=AccountType pro,max=255"`
	CFENumber            string `json:"cfe_number" validate:"required_if=AccountType pro,max=255"`
	CompanyAddress       string `json:"company_address" validate:"required_if=AccountType pro,max=255"`
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.AccountType = strings.TrimSpace(in.AccountType)
	in.Address = strings.TrimSpace(in.Address)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.CFENumber = strings.TrimSpace(in.CFENumber)
	in.CompanyAddress = strings.TrimSpace(in.CompanyAddress)
}

// Credentials is the login payload of both surfaces.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is the self-service profile update.
type ProfileInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Address string `json:"address" validate:"required,max=500"`
}

// AdminInput creates an administrator from the admin surface.
type AdminInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,maxbytes=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
	Address              string `json:"address" validate:"required,max=255"`
	AccountType          string `json:"account_type" validate:"omitempty,oneof=private pro"`
}

// AdminSeed drives the bootstrap upsert.
type AdminSeed struct {
	Name        string
	Email       string
	Password    string
	Address     string
	AccountType entity.AccountType
}

// Account is a user serialized with the companies they own.
type Account struct {
	*entity.User
	Companies []companyentity.Company `json:"companies"`
}

// OwnPost is a post of the profile owner with its company summarized.
type OwnPost struct {
	postentity.Post
	Company *companyentity.Ref `json:"company"`
}

// Profile is Account plus the user's posts.
type Profile struct {
	Account
	Posts []OwnPost `json:"posts"`
}

// Service orchestrates registration, authentication and profile flows.
type Service struct {
	store  store.Store
	hasher PasswordHasher
	logger *zap.SugaredLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewService(st store.Store, hasher PasswordHasher, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: st, hasher: hasher, logger: logger}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// hashPassword maps the bcrypt input limit onto the password field.
func (s *Service) hashPassword(pw string) (string, error) {
	hash, err := s.hasher.Hash(pw)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Invalid("password", msgPasswordTooLong)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// dummy is compared against when the email is unknown so that lookups
// of missing accounts cost as much as a wrong password.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	return s.dummyHash
}

// checkEmail adds the uniqueness error unless email already failed a rule.
func (s *Service) checkEmail(ctx context.Context, users store.UserRepository, verr *apperr.ValidationError, email string, exceptID int64) error {
	if _, failed := verr.Fields["email"]; failed {
		return nil
	}
	taken, err := users.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		verr.Add("email", msgEmailTaken)
	}
	return nil
}

// Register creates a member account, plus its company for pro accounts, in
// one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	in.normalize()
	verr := validation.Check(&in)
	if err := s.checkEmail(ctx, s.store.Users(), verr, in.Email, 0); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Name:         in.Name,
		Email:        in.Email,
		Address:      in.Address,
		AccountType:  entity.AccountType(in.AccountType),
		Role:         entity.RoleMember,
		PasswordHash: hash,
	}
	companies := []companyentity.Company{}
	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return apperr.Invalid("email", msgEmailTaken)
			}
			return err
		}
		if u.AccountType != entity.AccountPro {
			return nil
		}
		c := &companyentity.Company{UserID: u.ID, Name: in.CompanyName, CFENumber: in.CFENumber, Address: in.CompanyAddress}
		if err := tx.Companies().Create(ctx, c); err != nil {
			return err
		}
		companies = append(companies, *c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("user registered", "user_id", u.ID, "account_type", u.AccountType)
	return &Account{User: u, Companies: companies}, nil
}

// Authenticate checks member or admin credentials. Unknown email and wrong
// password are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, in Credentials) (*entity.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	u, err := s.store.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.hasher.Verify(s.dummy(), in.Password)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		return nil, apperr.ErrInvalidCredentials
	}
	if s.hasher.NeedsRehash(u.PasswordHash) {
		s.logger.Debugw("password hash uses outdated cost", "user_id", u.ID)
	}
	return u, nil
}

// AuthenticateAdmin is Authenticate restricted to administrators; a valid
// member login is reported as invalid credentials.
func (s *Service) AuthenticateAdmin(ctx context.Context, in Credentials) (*entity.User, error) {
	u, err := s.Authenticate(ctx, in)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin() {
		return nil, apperr.ErrInvalidCredentials
	}
	return u, nil
}

// Account loads the companies owned by u.
func (s *Service) Account(ctx context.Context, u *entity.User) (*Account, error) {
	companies, err := s.store.Companies().ListByOwner(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Account{User: u, Companies: companies}, nil
}

// Profile loads u with companies and posts.
func (s *Service) Profile(ctx context.Context, u *entity.User) (*Profile, error) {
	acc, err := s.Account(ctx, u)
	if err != nil {
		return nil, err
	}
	views, err := s.store.Posts().List(ctx, postentity.Filter{AuthorID: u.ID})
	if err != nil {
		return nil, err
	}
	posts := make([]OwnPost, 0, len(views))
	for _, v := range views {
		posts = append(posts, OwnPost{Post: v.Post, Company: v.Company})
	}
	return &Profile{Account: *acc, Posts: posts}, nil
}

// UpdateProfile changes name, email and address of u.
func (s *Service) UpdateProfile(ctx context.Context, u *entity.User, in ProfileInput) (*Profile, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	verr := validation.Check(&in)
	if err := s.checkEmail(ctx, s.store.Users(), verr, in.Email, u.ID); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	updated := *u
	updated.Name, updated.Email, updated.Address = in.Name, in.Email, in.Address
	if err := s.store.Users().UpdateProfile(ctx, &updated); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperr.Invalid("email", msgEmailTaken)
		}
		return nil, err
	}
	return s.Profile(ctx, &updated)
}

// CreateAdmin adds an administrator. account_type defaults to pro.
func (s *Service) CreateAdmin(ctx context.Context, in AdminInput) (*entity.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	in.AccountType = strings.TrimSpace(in.AccountType)
	verr := validation.Check(&in)
	if err := s.checkEmail(ctx, s.store.Users(), verr, in.Email, 0); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	accountType := entity.AccountPro
	if in.AccountType != "" {
		accountType = entity.AccountType(in.AccountType)
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Name:         in.Name,
		Email:        in.Email,
		Address:      in.Address,
		AccountType:  accountType,
		Role:         entity.RoleAdmin,
		PasswordHash: hash,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperr.Invalid("email", msgEmailTaken)
		}
		return nil, err
	}
	s.logger.Infow("administrator created", "user_id", u.ID)
	return u, nil
}

// EnsureAdmin creates or refreshes the administrator identified by
// seed.Email. Existing accounts are promoted to admin.
func (s *Service) EnsureAdmin(ctx context.Context, seed AdminSeed) (*entity.User, error) {
	seed.Email = normalizeEmail(seed.Email)
	if seed.Email == "" || seed.Password == "" {
		return nil, apperr.Invalid("email", "An email and a password are required.")
	}
	if seed.AccountType == "" {
		seed.AccountType = entity.AccountPro
	}
	if !seed.AccountType.Valid() {
		return nil, apperr.Invalid("account_type", "The selected account type is invalid.")
	}
	hash, err := s.hashPassword(seed.Password)
	if err != nil {
		return nil, err
	}
	return s.store.Users().UpsertAdmin(ctx, &entity.User{
		Name:         strings.TrimSpace(seed.Name),
		Email:        seed.Email,
		Address:      strings.TrimSpace(seed.Address),
		AccountType:  seed.AccountType,
		PasswordHash: hash,
	})
}

// ListAdmins returns every administrator, newest first.
func (s *Service) ListAdmins(ctx context.Context) ([]entity.User, error) {
	return s.store.Users().ListByRole(ctx, entity.RoleAdmin)
}
