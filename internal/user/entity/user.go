package entity

import "time"

// Role is the binary member/admin distinction.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// AccountType distinguishes private individuals from professionals.
type AccountType string

const (
	AccountPrivate AccountType = "private"
	AccountPro     AccountType = "pro"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t == AccountPrivate || t == AccountPro
}

// User represents a row of the `users` table. PasswordHash never leaves the
// process: it carries no JSON name.
type User struct {
	ID           int64       `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Email        string      `db:"email" json:"email"`
	Address      string      `db:"address" json:"address"`
	AccountType  AccountType `db:"account_type" json:"account_type"`
	Role         Role        `db:"role" json:"role"`
	PasswordHash string      `db:"password_hash" json:"-"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Ref is the author/owner summary embedded in company and post listings.
type Ref struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email,omitempty"`
}

// Summary is the admin listing projection with ownership counts.
type Summary struct {
	ID             int64       `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Email          string      `db:"email" json:"email"`
	AccountType    AccountType `db:"account_type" json:"account_type"`
	Address        string      `db:"address" json:"address"`
	CompaniesCount int         `db:"companies_count" json:"companies_count"`
	PostsCount     int         `db:"posts_count" json:"posts_count"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// Filter narrows user searches.
type Filter struct {
	Term          string
	ExcludeAdmins bool
}
