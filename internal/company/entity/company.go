package entity

import (
	"time"

	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

// Company is owned by exactly one user.
type Company struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CFENumber string    `db:"cfe_number" json:"cfe_number"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Ref is the short form embedded in post listings.
type Ref struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Listing is the admin search projection.
type Listing struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	CFENumber  string         `json:"cfe_number"`
	Address    string         `json:"address"`
	Owner      userentity.Ref `json:"owner"`
	PostsCount int            `json:"posts_count"`
	CreatedAt  time.Time      `json:"created_at"`
}
