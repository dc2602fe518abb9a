package entity

import (
	"time"

	companyentity "github.com/ProConnect-Lab/proconnect-backend/internal/company/entity"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

// Post is authored by one user and optionally attached to a company.
type Post struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CompanyID *int64    `db:"company_id" json:"company_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// View is a post with its author and company summarized.
type View struct {
	Post
	Author  userentity.Ref     `json:"user"`
	Company *companyentity.Ref `json:"company"`
}

// Filter narrows post listings. AuthorID 0 means every author.
type Filter struct {
	Term     string
	AuthorID int64
}
