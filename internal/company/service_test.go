package company

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/authz"
	postentity "github.com/ProConnect-Lab/proconnect-backend/internal/post/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

func TestCompanyLifecycle(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)
	owner := &userentity.User{Name: "o", Email: "o@example.com", Role: userentity.RoleMember, PasswordHash: "h"}
	require.NoError(t, st.Users().Create(ctx, owner))
	actor := authz.Actor{UserID: owner.ID, Role: owner.Role}
	stranger := authz.Actor{UserID: owner.ID + 1, Role: userentity.RoleMember}

	_, err := svc.Create(ctx, actor, Input{Name: " "})
	assert.True(t, apperr.IsValidation(err))

	c, err := svc.Create(ctx, actor, Input{Name: " Nova Labs ", CFENumber: "CFE-9", Address: "Rue A"})
	require.NoError(t, err)
	assert.Equal(t, "Nova Labs", c.Name)

	_, err = svc.Update(ctx, stranger, c.ID, Input{})
	assert.ErrorIs(t, err, apperr.ErrNotOwner)
	updated, err := svc.Update(ctx, actor, c.ID, Input{Name: "Nova", CFENumber: "CFE-9", Address: "Rue B"})
	require.NoError(t, err)
	assert.Equal(t, "Rue B", updated.Address)

	require.NoError(t, st.Posts().Create(ctx, &postentity.Post{UserID: owner.ID, CompanyID: &c.ID, Title: "t", Content: "c"}))
	assert.ErrorIs(t, svc.Delete(ctx, stranger, c.ID), apperr.ErrNotOwner)
	require.NoError(t, svc.Delete(ctx, actor, c.ID))

	n, err := st.Posts().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	list, err := svc.List(ctx, actor)
	require.NoError(t, err)
	assert.Empty(t, list)
}
