package post

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/authz"
	companyentity "github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

func member(t *testing.T, st store.Store, email string) authz.Actor {
	t.Helper()
	u := &userentity.User{Name: email, Email: email, Role: userentity.RoleMember, AccountType: userentity.AccountPro, PasswordHash: "h"}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return authz.Actor{UserID: u.ID, Role: u.Role}
}

func TestPostLifecycle(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)
	alice := member(t, st, "alice@example.com")
	bob := member(t, st, "bob@example.com")
	c := &companyentity.Company{UserID: alice.UserID, Name: "Alice Co"}
	require.NoError(t, st.Companies().Create(ctx, c))

	_, err := svc.Create(ctx, bob, Input{Title: "t", Content: "c", CompanyID: &c.ID})
	assert.ErrorIs(t, err, apperr.ErrCompanyNotOwned)

	v, err := svc.Create(ctx, alice, Input{Title: " Hello ", Content: "World", CompanyID: &c.ID})
	require.NoError(t, err)
	assert.Equal(t, "Hello", v.Title)
	assert.Equal(t, "Alice Co", v.Company.Name)
	_, err = svc.Create(ctx, bob, Input{Title: "Bob", Content: "post"})
	require.NoError(t, err)

	all, err := svc.List(ctx, bob, "", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, p := range all {
		assert.Empty(t, p.Author.Email)
	}
	mine, err := svc.List(ctx, bob, "", true)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Bob", mine[0].Title)

	_, err = svc.Update(ctx, bob, v.ID, Input{})
	assert.ErrorIs(t, err, apperr.ErrNotOwner)
	_, err = svc.Update(ctx, alice, v.ID, Input{})
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.Update(ctx, alice, 42, Input{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, bob, v.ID), apperr.ErrNotOwner)
	require.NoError(t, svc.Delete(ctx, alice, v.ID))
}

func TestInputCheck(t *testing.T) {
	st := store.NewMemory()
	zero := int64(0)
	in := Input{CompanyID: &zero}
	_, err := in.Check(context.Background(), st.Companies())
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "content")
	assert.Equal(t, []string{"The selected company id is invalid."}, verr.Fields["company_id"])
}
