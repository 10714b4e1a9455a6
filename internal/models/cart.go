package models

import "github.com/google/uuid"

// CartItem is one line of a user's cart. The (user, product) pair is
// unique so add/update operations stay idempotent-safe on retry.
type CartItem struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
}
