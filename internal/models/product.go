package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is a catalog item. Orders snapshot its name/price/image at
// purchase time, so edits here never alter historical orders.
type Product struct {
	BaseModel
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Category      string         `gorm:"index" json:"category"`
	Price         float64        `json:"price"`
	OriginalPrice float64        `json:"original_price"`
	Stock         int            `json:"stock"`
	Images        pq.StringArray `gorm:"type:text[]" json:"images"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	IsFeatured    bool           `json:"is_featured"`
	IsBestseller  bool           `json:"is_bestseller"`
	IsOrganic     bool           `json:"is_organic"`
	CreatedBy     *uuid.UUID     `gorm:"type:uuid" json:"created_by"`
}

// HeroImage returns the first image, if any.
func (p *Product) HeroImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
