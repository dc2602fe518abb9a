package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/authz"
	"github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/utilities"
)

// Claims is the signed payload of a bearer token. The persisted row keyed by
// the JWT ID stays authoritative for abilities and revocation.
type Claims struct {
	Abilities []string `json:"abilities,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the resolved caller of a request.
type Principal struct {
	User  *userentity.User
	Token *entity.Token
}

// Actor builds the authorization subject for p.
func (p *Principal) Actor() authz.Actor {
	return authz.Actor{UserID: p.User.ID, Role: p.User.Role, Capabilities: p.Token.Abilities}
}

// Service issues, resolves and revokes access tokens.
type Service struct {
	store  store.Store
	cfg    Config
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(st store.Store, cfg Config, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: st, cfg: cfg, logger: logger, now: time.Now}
}

// Issue persists a token for u and returns its plaintext. The plaintext is
// not stored anywhere.
func (s *Service) Issue(ctx context.Context, u *userentity.User, label string, abilities ...string) (string, *entity.Token, error) {
	now := s.now().UTC()
	t := &entity.Token{
		ID:        utilities.NewKSUID(),
		UserID:    u.ID,
		Name:      label,
		Abilities: append([]string{}, abilities...),
		CreatedAt: now,
	}
	claims := Claims{
		Abilities: t.Abilities,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       t.ID,
			Subject:  strconv.FormatInt(u.ID, 10),
			Issuer:   s.cfg.Issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.cfg.TTL > 0 {
		exp := now.Add(s.cfg.TTL)
		t.ExpiresAt = &exp
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	if err := s.store.Tokens().Save(ctx, t); err != nil {
		return "", nil, fmt.Errorf("save token: %w", err)
	}
	return signed, t, nil
}

// Resolve maps a bearer plaintext to its principal. Every failure, including
// a revoked row behind a valid signature, yields (nil, false).
func (s *Service) Resolve(ctx context.Context, plaintext string) (*Principal, bool) {
	var claims Claims
	_, err := jwt.ParseWithClaims(plaintext, &claims, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.Debugw("token rejected", "err", err)
		return nil, false
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.ID == "" {
		return nil, false
	}
	t, err := s.store.Tokens().Get(ctx, claims.ID)
	if err != nil {
		s.logDbErr("token lookup", err)
		return nil, false
	}
	now := s.now().UTC()
	if t.UserID != userID || t.Expired(now) {
		return nil, false
	}
	u, err := s.store.Users().GetByID(ctx, t.UserID)
	if err != nil {
		s.logDbErr("token user lookup", err)
		return nil, false
	}
	if err := s.store.Tokens().Touch(ctx, t.ID, now); err != nil {
		s.logger.Warnw("token touch failed", "token", t.ID, "err", err)
	} else {
		t.LastUsedAt = &now
	}
	return &Principal{User: u, Token: t}, true
}

func (s *Service) logDbErr(what string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		return
	}
	s.logger.Warnw(what+" failed", "err", err)
}

// Revoke deletes the token row. Revoking twice is not an error.
func (s *Service) Revoke(ctx context.Context, t *entity.Token) error {
	if t == nil {
		return nil
	}
	return s.store.Tokens().Delete(ctx, t.ID)
}
