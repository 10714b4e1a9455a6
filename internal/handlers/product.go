package handlers

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/example/mindymunchs/internal/middleware"
	"github.com/example/mindymunchs/internal/models"
	"github.com/example/mindymunchs/internal/services"
	"github.com/example/mindymunchs/internal/utils"
)

// ProductHandler manages the catalog endpoints.
type ProductHandler struct {
	db    *gorm.DB
	email *services.EmailService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB, email *services.EmailService) *ProductHandler {
	return &ProductHandler{db: db, email: email}
}

var productSortColumns = map[string]string{
	"created_at": "created_at",
	"price":      "price",
	"name":       "name",
}

// ListProducts returns paginated products with optional filters.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{})

	if c.Query("is_active") != "false" {
		query = query.Where("is_active = ?", true)
	}

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", q, q)
	}

	if minPrice := c.Query("min_price"); minPrice != "" {
		if val, err := strconv.ParseFloat(minPrice, 64); err == nil {
			query = query.Where("price >= ?", val)
		}
	}

	if maxPrice := c.Query("max_price"); maxPrice != "" {
		if val, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			query = query.Where("price <= ?", val)
		}
	}

	sortColumn, ok := productSortColumns[c.Query("sort", "created_at")]
	if !ok {
		sortColumn = "created_at"
	}
	direction := "desc"
	if c.Query("order") == "asc" {
		direction = "asc"
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.
		Order(sortColumn + " " + direction).
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetProduct loads a single product.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// FeaturedProducts returns active featured products, newest first.
func (h *ProductHandler) FeaturedProducts(c *fiber.Ctx) error {
	return h.flaggedProducts(c, "is_featured")
}

// BestsellerProducts returns active bestseller products, newest first.
func (h *ProductHandler) BestsellerProducts(c *fiber.Ctx) error {
	return h.flaggedProducts(c, "is_bestseller")
}

func (h *ProductHandler) flaggedProducts(c *fiber.Ctx, flag string) error {
	limit := 8
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	var products []models.Product
	if err := h.db.
		Where("is_active = ? AND "+flag+" = ?", true, true).
		Order("created_at desc").
		Limit(limit).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": products})
}

type productRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"original_price"`
	Stock         int      `json:"stock"`
	Images        []string `json:"images"`
	IsActive      *bool    `json:"is_active"`
	IsFeatured    bool     `json:"is_featured"`
	IsBestseller  bool     `json:"is_bestseller"`
	IsOrganic     bool     `json:"is_organic"`
}

// CreateProduct creates a catalog item. Admin only.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" || req.Price <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "name and a positive price are required")
	}

	product := models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Stock:         req.Stock,
		Images:        pq.StringArray(req.Images),
		IsActive:      true,
		IsFeatured:    req.IsFeatured,
		IsBestseller:  req.IsBestseller,
		IsOrganic:     req.IsOrganic,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if adminID, ok := middleware.GetCurrentUserID(c); ok {
		product.CreatedBy = &adminID
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}

	if product.IsActive && product.IsFeatured {
		go h.dispatchProductAlert(product, false)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "product created",
		"data":    product,
	})
}

// UpdateProduct updates a catalog item. Admin only.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Category != "" {
		product.Category = req.Category
	}
	if req.Price > 0 {
		product.Price = req.Price
	}
	if req.OriginalPrice > 0 {
		product.OriginalPrice = req.OriginalPrice
	}
	if req.Images != nil {
		product.Images = pq.StringArray(req.Images)
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.IsFeatured = req.IsFeatured
	product.IsBestseller = req.IsBestseller
	product.IsOrganic = req.IsOrganic

	if err := h.db.Save(&product).Error; err != nil {
		return err
	}

	if product.IsActive && product.IsFeatured {
		go h.dispatchProductAlert(product, true)
	}

	return c.JSON(fiber.Map{"success": true, "message": "product updated", "data": product})
}

// DeleteProduct removes a catalog item. Admin only. Order items keep
// their snapshot, so history is unaffected.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "product deleted"})
}

type stockUpdateRequest struct {
	Stock *int `json:"stock"`
}

// UpdateStock sets a product's stock level. Admin only.
func (h *ProductHandler) UpdateStock(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req stockUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Stock == nil || *req.Stock < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "stock must be zero or positive")
	}

	res := h.db.Model(&models.Product{}).Where("id = ?", id).Update("stock", *req.Stock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "stock updated"})
}

// dispatchProductAlert emails newsletter subscribers about a new or
// updated featured product. Best-effort.
func (h *ProductHandler) dispatchProductAlert(product models.Product, isUpdate bool) {
	var emails []string

	var userEmails []string
	if err := h.db.Model(&models.User{}).
		Where("newsletter_subscribed = ?", true).
		Pluck("email", &userEmails).Error; err != nil {
		log.Printf("[Newsletter] failed to load user subscribers: %v", err)
	}
	emails = append(emails, userEmails...)

	var guestEmails []string
	if err := h.db.Model(&models.Guest{}).
		Where("newsletter_subscribed = ?", true).
		Pluck("email", &guestEmails).Error; err != nil {
		log.Printf("[Newsletter] failed to load guest subscribers: %v", err)
	}
	emails = append(emails, guestEmails...)

	if err := h.email.NotifyProductAlert(&product, emails, isUpdate); err != nil {
		log.Printf("[Newsletter] product alert for %s failed: %v", product.Name, err)
	}
}
