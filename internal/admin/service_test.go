package admin

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/authz"
	companyentity "github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
	"github.com/ProConnect-Lab/proconnect-backend/internal/post"
	postentity "github.com/ProConnect-Lab/proconnect-backend/internal/post/entity"
	sessionentity "github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

type fixture struct {
	ctx   context.Context
	st    store.Store
	svc   *Service
	admin authz.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	a, err := st.Users().UpsertAdmin(ctx, &userentity.User{Name: "Root", Email: "root@example.com", PasswordHash: "h", AccountType: userentity.AccountPro})
	require.NoError(t, err)
	return &fixture{
		ctx:   ctx,
		st:    st,
		svc:   NewService(st, nil),
		admin: authz.Actor{UserID: a.ID, Role: userentity.RoleAdmin, Capabilities: []string{sessionentity.CapabilityAdmin}},
	}
}

func (f *fixture) member(t *testing.T, email string) *userentity.User {
	t.Helper()
	u := &userentity.User{Name: email, Email: email, AccountType: userentity.AccountPro, Role: userentity.RoleMember, PasswordHash: "h"}
	require.NoError(t, f.st.Users().Create(f.ctx, u))
	return u
}

func (f *fixture) company(t *testing.T, owner int64, name string) *companyentity.Company {
	t.Helper()
	c := &companyentity.Company{UserID: owner, Name: name, CFENumber: "CFE", Address: "addr"}
	require.NoError(t, f.st.Companies().Create(f.ctx, c))
	return c
}

func (f *fixture) post(t *testing.T, author int64, companyID *int64, title string) *postentity.Post {
	t.Helper()
	p := &postentity.Post{UserID: author, CompanyID: companyID, Title: title, Content: "content"}
	require.NoError(t, f.st.Posts().Create(f.ctx, p))
	return p
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	victim := f.member(t, "victim@example.com")
	bystander := f.member(t, "bystander@example.com")
	c := f.company(t, victim.ID, "Victim Co")
	f.post(t, victim.ID, nil, "own")
	f.post(t, bystander.ID, &c.ID, "on victim company")
	kept := f.post(t, bystander.ID, nil, "unrelated")
	require.NoError(t, f.st.Tokens().Save(f.ctx, &sessionentity.Token{ID: "t1", UserID: victim.ID}))

	require.NoError(t, f.svc.DeleteUser(f.ctx, f.admin, victim.ID))

	_, err := f.st.Users().GetByID(f.ctx, victim.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.st.Companies().GetByID(f.ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.st.Tokens().Get(f.ctx, "t1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	views, err := f.st.Posts().List(f.ctx, postentity.Filter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, kept.ID, views[0].ID)
}

func TestDeleteUserGuards(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.DeleteUser(f.ctx, f.admin, f.admin.UserID), apperr.ErrCannotDeleteAdmin)
	assert.ErrorIs(t, f.svc.DeleteUser(f.ctx, f.admin, 12345), apperr.ErrNotFound)

	m := f.member(t, "m@example.com")
	noCapability := f.admin
	noCapability.Capabilities = nil
	assert.ErrorIs(t, f.svc.DeleteUser(f.ctx, noCapability, m.ID), apperr.ErrForbidden)
	asMember := authz.Actor{UserID: m.ID, Role: userentity.RoleMember, Capabilities: []string{sessionentity.CapabilityAdmin}}
	assert.ErrorIs(t, f.svc.DeleteUser(f.ctx, asMember, m.ID), apperr.ErrForbidden)
}

func TestDeleteCompanyRemovesItsPosts(t *testing.T) {
	f := newFixture(t)
	m := f.member(t, "m@example.com")
	c := f.company(t, m.ID, "Nova Labs")
	f.post(t, m.ID, &c.ID, "attached")
	f.post(t, m.ID, nil, "free")

	require.NoError(t, f.svc.DeleteCompany(f.ctx, f.admin, c.ID))
	n, err := f.st.Posts().Count(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, f.svc.DeleteCompany(f.ctx, f.admin, c.ID), apperr.ErrNotFound)
}

func TestAdminPosts(t *testing.T) {
	f := newFixture(t)
	m := f.member(t, "m@example.com")
	c := f.company(t, m.ID, "Nova Labs")
	memberPost := f.post(t, m.ID, nil, "member post")

	l, err := f.svc.CreatePost(f.ctx, f.admin, post.Input{Title: " Notice ", Content: "Body", CompanyID: &c.ID})
	require.NoError(t, err)
	assert.Equal(t, "Notice", l.Title)
	assert.Equal(t, f.admin.UserID, l.Author.ID)
	require.NotNil(t, l.Company)
	assert.Equal(t, "Nova Labs", l.Company.Name)

	_, err = f.svc.UpdatePost(f.ctx, f.admin, memberPost.ID, post.Input{})
	assert.ErrorIs(t, err, apperr.ErrNotPostOwner)

	missing := int64(999)
	_, err = f.svc.UpdatePost(f.ctx, f.admin, l.ID, post.Input{Title: "t", Content: "c", CompanyID: &missing})
	assert.True(t, apperr.IsValidation(err))

	// moderation deletes any post
	require.NoError(t, f.svc.DeletePost(f.ctx, f.admin, memberPost.ID))
	assert.ErrorIs(t, f.svc.DeletePost(f.ctx, f.admin, memberPost.ID), apperr.ErrNotFound)
}

func TestSearchesPaginate(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		m := f.member(t, fmt.Sprintf("user%02d@example.com", i))
		f.company(t, m.ID, fmt.Sprintf("Company %02d", i))
		f.post(t, m.ID, nil, fmt.Sprintf("Post %02d", i))
	}

	users, err := f.svc.SearchUsers(f.ctx, f.admin, "", page.New(2, 5))
	require.NoError(t, err)
	assert.Len(t, users.Items, 5)
	assert.Equal(t, page.Meta{CurrentPage: 2, PerPage: 5, Total: 12, LastPage: 3}, users.Meta)

	companies, err := f.svc.SearchCompanies(f.ctx, f.admin, "company 1", page.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, companies.Meta.Total)

	posts, err := f.svc.SearchPosts(f.ctx, f.admin, "POST 03", page.New(1, 10))
	require.NoError(t, err)
	require.Len(t, posts.Items, 1)
	assert.Equal(t, "Post 03", posts.Items[0].Title)
	assert.Equal(t, "user03@example.com", posts.Items[0].Author.Email)

	empty, err := f.svc.SearchPosts(f.ctx, f.admin, "", page.New(9, 10))
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 2, empty.Meta.LastPage)

	refs, err := f.svc.AllCompanies(f.ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, refs, 12)
	assert.Equal(t, "Company 00", refs[0].Name)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		m := f.member(t, fmt.Sprintf("u%d@example.com", i))
		f.post(t, m.ID, nil, fmt.Sprintf("p%d", i))
	}
	st, err := f.svc.Stats(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, Totals{Users: 7, Companies: 0, Posts: 7, Admins: 1}, st.Totals)
	assert.Len(t, st.LatestUsers, latestCount)
	assert.Len(t, st.LatestPosts, latestCount)
	assert.Equal(t, "u6@example.com", st.LatestUsers[0].Email)

	_, err = f.svc.Stats(f.ctx, authz.Actor{UserID: 1, Role: userentity.RoleMember})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
