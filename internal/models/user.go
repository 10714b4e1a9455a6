package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered customer or admin.
type User struct {
	BaseModel
	Name                 string     `json:"name"`
	Email                string     `gorm:"uniqueIndex" json:"email"`
	PasswordHash         string     `json:"-"`
	Role                 string     `gorm:"default:'user'" json:"role"`
	NewsletterSubscribed bool       `json:"newsletter_subscribed"`
	LastLogin            *time.Time `json:"last_login"`
	Orders               []Order    `json:"orders,omitempty"`
	CartItems            []CartItem `json:"cart_items,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Guest is a newsletter subscriber without an account.
type Guest struct {
	BaseModel
	Email                string `gorm:"uniqueIndex" json:"email"`
	NewsletterSubscribed bool   `json:"newsletter_subscribed"`
}
