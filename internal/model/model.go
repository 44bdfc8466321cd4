// Package model defines domain entities used by services and repositories.
package model

import (
	"slices"
	"time"
)

// Role names known to the route guards.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Tokens collects an issued access/refresh token pair.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// User is an account record persisted in the users document.
type User struct {
	ID                int64     `json:"id"`                // max existing + 1, never reused
	Email             string    `json:"email"`             // unique, case-insensitive
	Name              string    `json:"name"`              // display name
	PasswordHash      string    `json:"passwordHash"`      // encoded Argon2id
	Roles             []string  `json:"roles"`             // order preserved
	ActiveRefreshJTIs []string  `json:"activeRefreshJtis"` // refresh sessions still usable
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// HasRefreshJTI reports whether jti is an active refresh session of the user.
func (u *User) HasRefreshJTI(jti string) bool {
	return slices.Contains(u.ActiveRefreshJTIs, jti)
}

// Public strips credentials and session state from the account.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Roles: slices.Clone(u.Roles),
	}
}

// PublicUser is the account view returned to callers.
type PublicUser struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// Session is the result of a login or a refresh.
type Session struct {
	User PublicUser `json:"user"`
	Tokens
}

// Product is a catalog entry persisted in the products document.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProduct holds the caller-supplied fields of a product.
type NewProduct struct {
	Name  string
	Price float64
	Stock int
}

// ProductPatch is a partial update; nil fields keep their current value.
type ProductPatch struct {
	Name  *string
	Price *float64
	Stock *int
}

// PageMeta describes a page of a filtered listing.
type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ProductPage is one page of products.
type ProductPage struct {
	Meta  PageMeta  `json:"meta"`
	Items []Product `json:"items"`
}
