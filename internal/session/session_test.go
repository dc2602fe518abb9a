package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

func newTestService(t *testing.T, ttl time.Duration) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemory()
	cfg := Config{Secret: []byte("test-secret"), Issuer: "proconnect-test", TTL: ttl}
	return NewService(st, cfg, zap.NewNop().Sugar()), st
}

func seedUser(t *testing.T, st store.Store, email string, role userentity.Role) *userentity.User {
	t.Helper()
	u := &userentity.User{Name: "Test", Email: email, AccountType: userentity.AccountPrivate, Role: role, PasswordHash: "x"}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func TestIssueAndResolve(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, 0)
	u := seedUser(t, st, "jean@example.com", userentity.RoleMember)

	plain, tok, err := svc.Issue(ctx, u, entity.LabelMember)
	require.NoError(t, err)
	assert.NotEmpty(t, plain)
	assert.Nil(t, tok.ExpiresAt)

	p, ok := svc.Resolve(ctx, plain)
	require.True(t, ok)
	assert.Equal(t, u.ID, p.User.ID)
	assert.Equal(t, tok.ID, p.Token.ID)
	assert.NotNil(t, p.Token.LastUsedAt)
	assert.False(t, p.Actor().HasAdminAccess())
}

func TestRevokeKillsValidSignature(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, 0)
	u := seedUser(t, st, "a@example.com", userentity.RoleMember)
	plain, tok, err := svc.Issue(ctx, u, entity.LabelMember)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, tok))
	require.NoError(t, svc.Revoke(ctx, tok))
	_, ok := svc.Resolve(ctx, plain)
	assert.False(t, ok)
}

func TestResolveRejects(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, time.Minute)
	u := seedUser(t, st, "b@example.com", userentity.RoleMember)
	plain, _, err := svc.Issue(ctx, u, entity.LabelMember)
	require.NoError(t, err)

	_, ok := svc.Resolve(ctx, plain+"x")
	assert.False(t, ok, "tampered signature")

	_, ok = svc.Resolve(ctx, "not-a-jwt")
	assert.False(t, ok)

	other := NewService(st, Config{Secret: []byte("other"), Issuer: "proconnect-test"}, nil)
	_, ok = other.Resolve(ctx, plain)
	assert.False(t, ok, "foreign secret")

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, ok = svc.Resolve(ctx, plain)
	assert.False(t, ok, "expired")
}

func TestResolveDeletedUser(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, 0)
	u := seedUser(t, st, "c@example.com", userentity.RoleMember)
	plain, _, err := svc.Issue(ctx, u, entity.LabelMember)
	require.NoError(t, err)

	require.NoError(t, st.Users().Delete(ctx, u.ID))
	_, ok := svc.Resolve(ctx, plain)
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, 0)
	mw := NewMiddleware(svc, zap.NewNop().Sugar())

	member := seedUser(t, st, "member@example.com", userentity.RoleMember)
	admin := seedUser(t, st, "admin@example.com", userentity.RoleAdmin)
	memberTok, _, err := svc.Issue(ctx, member, entity.LabelMember)
	require.NoError(t, err)
	adminTok, _, err := svc.Issue(ctx, admin, entity.LabelAdmin, entity.CapabilityAdmin)
	require.NoError(t, err)
	adminPlainTok, _, err := svc.Issue(ctx, admin, entity.LabelMember)
	require.NoError(t, err)
	memberWithCap, _, err := svc.Issue(ctx, member, entity.LabelAdmin, entity.CapabilityAdmin)
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, found := FromContext(r.Context())
		require.True(t, found)
		_, _ = w.Write([]byte(p.User.Email))
	})

	tests := []struct {
		name    string
		handler http.Handler
		token   string
		want    int
	}{
		{"member route without token", mw.Member(ok), "", http.StatusUnauthorized},
		{"member route garbage token", mw.Member(ok), "garbage", http.StatusUnauthorized},
		{"member route valid token", mw.Member(ok), memberTok, http.StatusOK},
		{"admin route member token", mw.Admin(ok), memberTok, http.StatusUnauthorized},
		{"admin route member with capability", mw.Admin(ok), memberWithCap, http.StatusUnauthorized},
		{"admin route admin without capability", mw.Admin(ok), adminPlainTok, http.StatusForbidden},
		{"admin route admin token", mw.Admin(ok), adminTok, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "bearer abc ")
	assert.Equal(t, "abc", BearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(req))
}
