package user

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/ProConnect-Lab/proconnect-backend/internal/session"
	sessionentity "github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
)

var errTokenStore = errors.New("token store unavailable")

type brokenTokens struct{ store.TokenRepository }

func (brokenTokens) Save(context.Context, *sessionentity.Token) error { return errTokenStore }

// tokenlessStore is a memory store whose token table rejects writes.
type tokenlessStore struct{ *store.Memory }

func (s tokenlessStore) Tokens() store.TokenRepository {
	return brokenTokens{s.Memory.Tokens()}
}

func TestRegisterLogsAccountWhenTokenIssueFails(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core).Sugar()
	st := tokenlessStore{store.NewMemory()}
	svc := NewService(st, BcryptHasher{Cost: bcrypt.MinCost}, logger)
	sessions := session.NewService(st, session.Config{Secret: []byte("handler-test"), Issuer: "proconnect-test", TTL: time.Hour}, logger)
	h := NewHandler(svc, sessions, logger)

	body := `{"name":"Jean","email":"jean@example.com","password":"secret123","password_confirmation":"secret123","account_type":"private","address":"1 rue de Paris"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	u, err := st.Users().GetByEmail(context.Background(), "jean@example.com")
	require.NoError(t, err, "the account stays committed")

	entries := logs.FilterMessage("token issue failed after registration").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, u.ID, fields["user_id"])
	assert.Equal(t, "jean@example.com", fields["email"])
}
