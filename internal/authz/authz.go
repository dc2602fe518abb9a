// Package authz decides whether an actor may perform an action on a target.
// Authorize is pure: it never touches the store, callers load the target
// first and pass the facts that matter.
package authz

import (
	"slices"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	sessionentity "github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

type Action string

const (
	// member surface
	View   Action = "view"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"

	// admin surface
	AdminList   Action = "admin.list"
	AdminDelete Action = "admin.delete"
	AdminAuthor Action = "admin.author"
	AdminManage Action = "admin.manage"
)

func (a Action) adminSurface() bool {
	switch a {
	case AdminList, AdminDelete, AdminAuthor, AdminManage:
		return true
	}
	return false
}

type Kind string

const (
	KindUser    Kind = "user"
	KindCompany Kind = "company"
	KindPost    Kind = "post"
	KindAdmin   Kind = "admin"
)

// Actor is the authenticated user together with the capabilities of the
// token they presented.
type Actor struct {
	UserID       int64
	Role         userentity.Role
	Capabilities []string
}

func (a Actor) IsAdmin() bool { return a.Role == userentity.RoleAdmin }

func (a Actor) Can(capability string) bool { return slices.Contains(a.Capabilities, capability) }

// HasAdminAccess requires both the admin role and an admin-capable token.
func (a Actor) HasAdminAccess() bool { return a.IsAdmin() && a.Can(sessionentity.CapabilityAdmin) }

// Target describes the resource being acted on. OwnerID is the owning user
// (company owner, post author, or the user itself). For a post, CompanyOwnerID
// is the owner of the attached company, when one is attached.
type Target struct {
	Kind           Kind
	ID             int64
	OwnerID        int64
	Role           userentity.Role
	CompanyOwnerID *int64
}

// Decision is the outcome of Authorize. Reason is nil when Allowed.
type Decision struct {
	Allowed bool
	Reason  error
}

func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}

func allow() Decision { return Decision{Allowed: true} }
func deny(err error) Decision { return Decision{Reason: err} }

// Authorize applies the rules in order; the first one that matches decides.
func Authorize(actor Actor, action Action, target Target) Decision {
	if action == AdminDelete && target.Kind == KindUser && target.Role == userentity.RoleAdmin {
		return deny(apperr.ErrCannotDeleteAdmin)
	}

	if action.adminSurface() {
		if !actor.HasAdminAccess() {
			return deny(apperr.ErrForbidden)
		}
		if action == AdminAuthor && target.Kind == KindPost && target.ID != 0 && target.OwnerID != actor.UserID {
			return deny(apperr.ErrNotPostOwner)
		}
		return allow()
	}

	switch action {
	case View, Create, Update, Delete:
	default:
		return deny(apperr.ErrForbidden)
	}
	switch target.Kind {
	case KindCompany:
		if target.OwnerID != actor.UserID {
			return deny(apperr.ErrNotOwner)
		}
		return allow()
	case KindPost:
		if target.OwnerID != actor.UserID {
			return deny(apperr.ErrNotOwner)
		}
		if (action == Create || action == Update) && target.CompanyOwnerID != nil && *target.CompanyOwnerID != actor.UserID {
			return deny(apperr.ErrCompanyNotOwned)
		}
		return allow()
	}
	return deny(apperr.ErrForbidden)
}
