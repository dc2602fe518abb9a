package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	companyentity "github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
	postentity "github.com/ProConnect-Lab/proconnect-backend/internal/post/entity"
	sessionentity "github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/database"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/utilities"
)

// memData is the shared state of a Memory store. mu guards the maps; txMu
// serializes transactions with each other. Writes outside a transaction do
// not wait for txMu and are never touched by another transaction's rollback.
type memData struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users     map[int64]userentity.User
	companies map[int64]companyentity.Company
	posts     map[int64]postentity.Post
	tokens    map[string]sessionentity.Token
}

// memTx is the undo log of one transaction. Entries are appended while mu is
// held for writing and replayed newest first on rollback.
type memTx struct {
	undo []func()
}

func (d *memData) rollback(tx *memTx) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

// setRow stores v under k, recording the previous state of k in tx.
// Callers hold mu for writing.
func setRow[K comparable, V any](tx *memTx, m map[K]V, k K, v V) {
	remember(tx, m, k)
	m[k] = v
}

// deleteRow removes k, recording the previous state of k in tx.
func deleteRow[K comparable, V any](tx *memTx, m map[K]V, k K) {
	if _, ok := m[k]; !ok {
		return
	}
	remember(tx, m, k)
	delete(m, k)
}

func remember[K comparable, V any](tx *memTx, m map[K]V, k K) {
	if tx == nil {
		return
	}
	old, had := m[k]
	tx.undo = append(tx.undo, func() {
		if had {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// Memory is an in-process Store. It enforces the same unique email and
// ordering rules as Postgres and is used by tests and STORE=memory.
type Memory struct {
	d  *memData
	tx *memTx
}

func NewMemory() *Memory {
	return &Memory{d: &memData{
		users:     map[int64]userentity.User{},
		companies: map[int64]companyentity.Company{},
		posts:     map[int64]postentity.Post{},
		tokens:    map[string]sessionentity.Token{},
	}}
}

func (m *Memory) Users() UserRepository { return memUsers{m.d, m.tx} }
func (m *Memory) Companies() CompanyRepository { return memCompanies{m.d, m.tx} }
func (m *Memory) Posts() PostRepository { return memPosts{m.d, m.tx} }
func (m *Memory) Tokens() TokenRepository { return memTokens{m.d, m.tx} }

// WithinTx runs fn against a transactional view of m. On error or panic only
// the writes made through that view are undone.
func (m *Memory) WithinTx(ctx context.Context, fn func(Store) error) (err error) {
	if m.tx != nil {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.d.txMu.Lock()
	defer m.d.txMu.Unlock()
	tx := &memTx{}
	defer func() {
		if r := recover(); r != nil {
			m.d.rollback(tx)
			panic(r)
		}
		if err != nil {
			m.d.rollback(tx)
		}
	}()
	return fn(&Memory{d: m.d, tx: tx})
}

func errForeignKey(table string) error {
	return fmt.Errorf("memory store: row still referenced by %s", table)
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func newestFirst(aAt, bAt time.Time, aID, bID int64) int {
	if c := bAt.Compare(aAt); c != 0 {
		return c
	}
	switch {
	case aID > bID:
		return -1
	case aID < bID:
		return 1
	}
	return 0
}

// users

type memUsers struct {
	d  *memData
	tx *memTx
}

func (r memUsers) emailOwner(email string) (int64, bool) {
	email = normalizeEmail(email)
	for id, u := range r.d.users {
		if normalizeEmail(u.Email) == email {
			return id, true
		}
	}
	return 0, false
}

func (r memUsers) Create(_ context.Context, u *userentity.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, taken := r.emailOwner(u.Email); taken {
		return database.ErrDuplicate
	}
	if u.ID == 0 {
		u.ID = utilities.NewID()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	setRow(r.tx, r.d.users, u.ID, *u)
	return nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*userentity.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	u, ok := r.d.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*userentity.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	id, ok := r.emailOwner(email)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	u := r.d.users[id]
	return &u, nil
}

func (r memUsers) EmailTaken(_ context.Context, email string, exceptID int64) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	id, ok := r.emailOwner(email)
	return ok && id != exceptID, nil
}

func (r memUsers) UpdateProfile(_ context.Context, u *userentity.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	cur, ok := r.d.users[u.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	if id, taken := r.emailOwner(u.Email); taken && id != u.ID {
		return database.ErrDuplicate
	}
	u.UpdatedAt = time.Now().UTC()
	cur.Name, cur.Email, cur.Address, cur.UpdatedAt = u.Name, u.Email, u.Address, u.UpdatedAt
	setRow(r.tx, r.d.users, u.ID, cur)
	return nil
}

func (r memUsers) UpsertAdmin(_ context.Context, u *userentity.User) (*userentity.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	now := time.Now().UTC()
	if id, ok := r.emailOwner(u.Email); ok {
		cur := r.d.users[id]
		cur.Name, cur.Address, cur.AccountType = u.Name, u.Address, u.AccountType
		cur.PasswordHash, cur.Role, cur.UpdatedAt = u.PasswordHash, userentity.RoleAdmin, now
		setRow(r.tx, r.d.users, id, cur)
		return &cur, nil
	}
	out := *u
	if out.ID == 0 {
		out.ID = utilities.NewID()
	}
	out.Role = userentity.RoleAdmin
	out.CreatedAt, out.UpdatedAt = now, now
	setRow(r.tx, r.d.users, out.ID, out)
	return &out, nil
}

func (r memUsers) Delete(_ context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.users[id]; !ok {
		return apperr.ErrNotFound
	}
	for _, c := range r.d.companies {
		if c.UserID == id {
			return errForeignKey("companies")
		}
	}
	for _, p := range r.d.posts {
		if p.UserID == id {
			return errForeignKey("posts")
		}
	}
	deleteRow(r.tx, r.d.users, id)
	for tid, t := range r.d.tokens {
		if t.UserID == id {
			deleteRow(r.tx, r.d.tokens, tid)
		}
	}
	return nil
}

func (r memUsers) sorted(keep func(userentity.User) bool) []userentity.User {
	out := []userentity.User{}
	for _, u := range r.d.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b userentity.User) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return out
}

func (r memUsers) Search(_ context.Context, f userentity.Filter, pr page.Request) ([]userentity.Summary, int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	term := strings.ToLower(strings.TrimSpace(f.Term))
	matched := r.sorted(func(u userentity.User) bool {
		if f.ExcludeAdmins && u.Role == userentity.RoleAdmin {
			return false
		}
		return term == "" || contains(u.Name, term) || contains(u.Email, term) || contains(u.Address, term)
	})
	window := page.Slice(matched, pr)
	out := make([]userentity.Summary, 0, len(window))
	for _, u := range window {
		s := userentity.Summary{
			ID: u.ID, Name: u.Name, Email: u.Email, AccountType: u.AccountType,
			Address: u.Address, CreatedAt: u.CreatedAt,
		}
		for _, c := range r.d.companies {
			if c.UserID == u.ID {
				s.CompaniesCount++
			}
		}
		for _, p := range r.d.posts {
			if p.UserID == u.ID {
				s.PostsCount++
			}
		}
		out = append(out, s)
	}
	return out, len(matched), nil
}

func (r memUsers) ListByRole(_ context.Context, role userentity.Role) ([]userentity.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return r.sorted(func(u userentity.User) bool { return u.Role == role }), nil
}

func (r memUsers) CountByRole(_ context.Context, role userentity.Role) (int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	n := 0
	for _, u := range r.d.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r memUsers) Latest(ctx context.Context, role userentity.Role, n int) ([]userentity.User, error) {
	all, err := r.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// companies

type memCompanies struct {
	d  *memData
	tx *memTx
}

func (r memCompanies) Create(_ context.Context, c *companyentity.Company) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.users[c.UserID]; !ok {
		return errForeignKey("users")
	}
	if c.ID == 0 {
		c.ID = utilities.NewID()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	setRow(r.tx, r.d.companies, c.ID, *c)
	return nil
}

func (r memCompanies) GetByID(_ context.Context, id int64) (*companyentity.Company, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.companies[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &c, nil
}

func (r memCompanies) Update(_ context.Context, c *companyentity.Company) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	cur, ok := r.d.companies[c.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	cur.Name, cur.CFENumber, cur.Address, cur.UpdatedAt = c.Name, c.CFENumber, c.Address, c.UpdatedAt
	setRow(r.tx, r.d.companies, c.ID, cur)
	return nil
}

func (r memCompanies) Delete(_ context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.companies[id]; !ok {
		return apperr.ErrNotFound
	}
	for _, p := range r.d.posts {
		if p.CompanyID != nil && *p.CompanyID == id {
			return errForeignKey("posts")
		}
	}
	deleteRow(r.tx, r.d.companies, id)
	return nil
}

func (r memCompanies) DeleteByOwner(_ context.Context, userID int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id, c := range r.d.companies {
		if c.UserID != userID {
			continue
		}
		for _, p := range r.d.posts {
			if p.CompanyID != nil && *p.CompanyID == id {
				return errForeignKey("posts")
			}
		}
	}
	for id, c := range r.d.companies {
		if c.UserID == userID {
			deleteRow(r.tx, r.d.companies, id)
		}
	}
	return nil
}

func (r memCompanies) sorted(keep func(companyentity.Company) bool) []companyentity.Company {
	out := []companyentity.Company{}
	for _, c := range r.d.companies {
		if keep(c) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b companyentity.Company) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return out
}

func (r memCompanies) ListByOwner(_ context.Context, userID int64) ([]companyentity.Company, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return r.sorted(func(c companyentity.Company) bool { return c.UserID == userID }), nil
}

func (r memCompanies) Search(_ context.Context, term string, pr page.Request) ([]companyentity.Listing, int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	term = strings.ToLower(strings.TrimSpace(term))
	matched := r.sorted(func(c companyentity.Company) bool {
		return term == "" || contains(c.Name, term) || contains(c.CFENumber, term) || contains(c.Address, term)
	})
	window := page.Slice(matched, pr)
	out := make([]companyentity.Listing, 0, len(window))
	for _, c := range window {
		owner := r.d.users[c.UserID]
		l := companyentity.Listing{
			ID: c.ID, Name: c.Name, CFENumber: c.CFENumber, Address: c.Address,
			Owner:     userentity.Ref{ID: owner.ID, Name: owner.Name, Email: owner.Email},
			CreatedAt: c.CreatedAt,
		}
		for _, p := range r.d.posts {
			if p.CompanyID != nil && *p.CompanyID == c.ID {
				l.PostsCount++
			}
		}
		out = append(out, l)
	}
	return out, len(matched), nil
}

func (r memCompanies) ListRefs(_ context.Context) ([]companyentity.Ref, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]companyentity.Ref, 0, len(r.d.companies))
	for _, c := range r.d.companies {
		out = append(out, companyentity.Ref{ID: c.ID, Name: c.Name})
	}
	slices.SortFunc(out, func(a, b companyentity.Ref) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r memCompanies) Count(_ context.Context) (int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return len(r.d.companies), nil
}

// posts

type memPosts struct {
	d  *memData
	tx *memTx
}

func (r memPosts) checkRefs(p *postentity.Post) error {
	if _, ok := r.d.users[p.UserID]; !ok {
		return errForeignKey("users")
	}
	if p.CompanyID != nil {
		if _, ok := r.d.companies[*p.CompanyID]; !ok {
			return errForeignKey("companies")
		}
	}
	return nil
}

func (r memPosts) Create(_ context.Context, p *postentity.Post) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.checkRefs(p); err != nil {
		return err
	}
	if p.ID == 0 {
		p.ID = utilities.NewID()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	setRow(r.tx, r.d.posts, p.ID, clonePost(*p))
	return nil
}

func (r memPosts) GetByID(_ context.Context, id int64) (*postentity.Post, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	p, ok := r.d.posts[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	p = clonePost(p)
	return &p, nil
}

func (r memPosts) Update(_ context.Context, p *postentity.Post) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	cur, ok := r.d.posts[p.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	if err := r.checkRefs(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	cur.Title, cur.Content, cur.CompanyID, cur.UpdatedAt = p.Title, p.Content, p.CompanyID, p.UpdatedAt
	setRow(r.tx, r.d.posts, p.ID, clonePost(cur))
	return nil
}

func (r memPosts) Delete(_ context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.posts[id]; !ok {
		return apperr.ErrNotFound
	}
	deleteRow(r.tx, r.d.posts, id)
	return nil
}

func (r memPosts) DeleteByCompany(_ context.Context, companyID int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id, p := range r.d.posts {
		if p.CompanyID != nil && *p.CompanyID == companyID {
			deleteRow(r.tx, r.d.posts, id)
		}
	}
	return nil
}

func (r memPosts) DeleteByUser(_ context.Context, userID int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id, p := range r.d.posts {
		if p.UserID == userID {
			deleteRow(r.tx, r.d.posts, id)
			continue
		}
		if p.CompanyID != nil {
			if c, ok := r.d.companies[*p.CompanyID]; ok && c.UserID == userID {
				deleteRow(r.tx, r.d.posts, id)
			}
		}
	}
	return nil
}

func (r memPosts) view(p postentity.Post) postentity.View {
	author := r.d.users[p.UserID]
	v := postentity.View{
		Post:   clonePost(p),
		Author: userentity.Ref{ID: author.ID, Name: author.Name, Email: author.Email},
	}
	if p.CompanyID != nil {
		if c, ok := r.d.companies[*p.CompanyID]; ok {
			v.Company = &companyentity.Ref{ID: c.ID, Name: c.Name}
		}
	}
	return v
}

func (r memPosts) matching(f postentity.Filter) []postentity.View {
	term := strings.ToLower(strings.TrimSpace(f.Term))
	var posts []postentity.Post
	for _, p := range r.d.posts {
		if f.AuthorID != 0 && p.UserID != f.AuthorID {
			continue
		}
		if term != "" && !contains(p.Title, term) && !contains(p.Content, term) {
			continue
		}
		posts = append(posts, p)
	}
	slices.SortFunc(posts, func(a, b postentity.Post) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	out := make([]postentity.View, 0, len(posts))
	for _, p := range posts {
		out = append(out, r.view(p))
	}
	return out
}

func (r memPosts) View(_ context.Context, id int64) (*postentity.View, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	p, ok := r.d.posts[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	v := r.view(p)
	return &v, nil
}

func (r memPosts) List(_ context.Context, f postentity.Filter) ([]postentity.View, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return r.matching(f), nil
}

func (r memPosts) Search(_ context.Context, f postentity.Filter, pr page.Request) ([]postentity.View, int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	all := r.matching(f)
	return page.Slice(all, pr), len(all), nil
}

func (r memPosts) Latest(_ context.Context, n int) ([]postentity.View, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	all := r.matching(postentity.Filter{})
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (r memPosts) Count(_ context.Context) (int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return len(r.d.posts), nil
}

func clonePost(p postentity.Post) postentity.Post {
	if p.CompanyID != nil {
		id := *p.CompanyID
		p.CompanyID = &id
	}
	return p
}

// tokens

type memTokens struct {
	d  *memData
	tx *memTx
}

func (r memTokens) Save(_ context.Context, t *sessionentity.Token) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.users[t.UserID]; !ok {
		return errForeignKey("users")
	}
	if _, ok := r.d.tokens[t.ID]; ok {
		return database.ErrDuplicate
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	cp.Abilities = slices.Clone(t.Abilities)
	setRow(r.tx, r.d.tokens, t.ID, cp)
	return nil
}

func (r memTokens) Get(_ context.Context, id string) (*sessionentity.Token, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	t, ok := r.d.tokens[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	t.Abilities = slices.Clone(t.Abilities)
	return &t, nil
}

func (r memTokens) Touch(_ context.Context, id string, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if t, ok := r.d.tokens[id]; ok {
		t.LastUsedAt = &at
		setRow(r.tx, r.d.tokens, id, t)
	}
	return nil
}

func (r memTokens) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	deleteRow(r.tx, r.d.tokens, id)
	return nil
}

func (r memTokens) DeleteByUser(_ context.Context, userID int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id, t := range r.d.tokens {
		if t.UserID == userID {
			deleteRow(r.tx, r.d.tokens, id)
		}
	}
	return nil
}
