package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	sessionentity "github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

func ptr(v int64) *int64 { return &v }

var (
	member     = Actor{UserID: 1, Role: userentity.RoleMember}
	stranger   = Actor{UserID: 2, Role: userentity.RoleMember}
	admin      = Actor{UserID: 10, Role: userentity.RoleAdmin, Capabilities: []string{sessionentity.CapabilityAdmin}}
	adminNoCap = Actor{UserID: 11, Role: userentity.RoleAdmin}
)

func TestAuthorize(t *testing.T) {
	company := Target{Kind: KindCompany, ID: 5, OwnerID: member.UserID}
	post := Target{Kind: KindPost, ID: 7, OwnerID: member.UserID}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		target Target
		want   error
	}{
		{"owner updates company", member, Update, company, nil},
		{"owner deletes company", member, Delete, company, nil},
		{"stranger updates company", stranger, Update, company, apperr.ErrNotOwner},
		{"stranger deletes company", stranger, Delete, company, apperr.ErrNotOwner},
		{"admin is not owner on member surface", admin, Update, company, apperr.ErrNotOwner},
		{"create company for self", member, Create, Target{Kind: KindCompany, OwnerID: member.UserID}, nil},
		{"owner updates post", member, Update, post, nil},
		{"stranger deletes post", stranger, Delete, post, apperr.ErrNotOwner},
		{"post with own company", member, Create, Target{Kind: KindPost, OwnerID: 1, CompanyOwnerID: ptr(1)}, nil},
		{"post with foreign company", member, Create, Target{Kind: KindPost, OwnerID: 1, CompanyOwnerID: ptr(2)}, apperr.ErrCompanyNotOwned},
		{"update post onto foreign company", member, Update, Target{Kind: KindPost, ID: 7, OwnerID: 1, CompanyOwnerID: ptr(2)}, apperr.ErrCompanyNotOwned},
		{"delete post ignores company", member, Delete, Target{Kind: KindPost, ID: 7, OwnerID: 1, CompanyOwnerID: ptr(2)}, nil},
		{"non-owner checked before company", stranger, Update, Target{Kind: KindPost, ID: 7, OwnerID: 1, CompanyOwnerID: ptr(3)}, apperr.ErrNotOwner},
		{"member action on user target", member, Update, Target{Kind: KindUser, OwnerID: 1}, apperr.ErrForbidden},

		{"admin lists users", admin, AdminList, Target{Kind: KindUser}, nil},
		{"member lists users", member, AdminList, Target{Kind: KindUser}, apperr.ErrForbidden},
		{"admin without capability", adminNoCap, AdminList, Target{Kind: KindUser}, apperr.ErrForbidden},
		{"admin deletes member", admin, AdminDelete, Target{Kind: KindUser, ID: 3, Role: userentity.RoleMember}, nil},
		{"admin deletes admin", admin, AdminDelete, Target{Kind: KindUser, ID: 12, Role: userentity.RoleAdmin}, apperr.ErrCannotDeleteAdmin},
		{"admin deletes self", admin, AdminDelete, Target{Kind: KindUser, ID: admin.UserID, Role: userentity.RoleAdmin}, apperr.ErrCannotDeleteAdmin},
		{"member deletes admin", member, AdminDelete, Target{Kind: KindUser, ID: 12, Role: userentity.RoleAdmin}, apperr.ErrCannotDeleteAdmin},
		{"admin deletes any post", admin, AdminDelete, Target{Kind: KindPost, ID: 7, OwnerID: 1}, nil},
		{"admin creates post", admin, AdminAuthor, Target{Kind: KindPost, OwnerID: admin.UserID}, nil},
		{"admin updates own post", admin, AdminAuthor, Target{Kind: KindPost, ID: 9, OwnerID: admin.UserID}, nil},
		{"admin updates foreign post", admin, AdminAuthor, Target{Kind: KindPost, ID: 7, OwnerID: 1}, apperr.ErrNotPostOwner},
		{"member manages admins", member, AdminManage, Target{Kind: KindAdmin}, apperr.ErrForbidden},
		{"unknown action", admin, Action("publish"), company, apperr.ErrForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Authorize(tc.actor, tc.action, tc.target)
			if tc.want == nil {
				assert.True(t, d.Allowed)
				assert.NoError(t, d.Err())
				return
			}
			assert.False(t, d.Allowed)
			require.Error(t, d.Err())
			assert.ErrorIs(t, d.Err(), tc.want)
		})
	}
}

func TestActorHasAdminAccess(t *testing.T) {
	assert.True(t, admin.HasAdminAccess())
	assert.False(t, adminNoCap.HasAdminAccess())
	assert.False(t, Actor{Role: userentity.RoleMember, Capabilities: []string{sessionentity.CapabilityAdmin}}.HasAdminAccess())
}
