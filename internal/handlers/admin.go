package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/mindymunchs/internal/models"
	"github.com/example/mindymunchs/internal/services"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db              *gorm.DB
	orders          *services.OrderService
	protectedEmails []string
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, orders *services.OrderService, protectedEmails []string) *AdminHandler {
	return &AdminHandler{db: db, orders: orders, protectedEmails: protectedEmails}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalProducts int64
	if err := h.db.Model(&models.Product{}).Count(&totalProducts).Error; err != nil {
		return err
	}

	var lowStock int64
	if err := h.db.Model(&models.Product{}).
		Where("stock <= ?", 5).
		Count(&lowStock).Error; err != nil {
		return err
	}

	var totalUsers int64
	if err := h.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	// Subscribers live in two tables: registered users and guests.
	var userSubscribers, guestSubscribers int64
	if err := h.db.Model(&models.User{}).
		Where("newsletter_subscribed = ?", true).
		Count(&userSubscribers).Error; err != nil {
		return err
	}
	if err := h.db.Model(&models.Guest{}).
		Where("newsletter_subscribed = ?", true).
		Count(&guestSubscribers).Error; err != nil {
		return err
	}

	analytics, err := h.orders.Analytics(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_products":         totalProducts,
			"low_stock":              lowStock,
			"total_orders":           analytics.TotalOrders,
			"pending_orders":         analytics.PendingOrders,
			"revenue":                analytics.Revenue,
			"today_revenue":          analytics.TodayRevenue,
			"orders_by_status":       analytics.OrdersByStatus,
			"total_users":            totalUsers,
			"newsletter_subscribers": userSubscribers + guestSubscribers,
		},
	})
}

// SearchUsers finds non-admin users by email or name substring.
func (h *AdminHandler) SearchUsers(c *fiber.Ctx) error {
	q := "%" + c.Query("q") + "%"

	var users []models.User
	if err := h.db.
		Select("id, name, email, created_at, last_login").
		Where("role = ? AND (email ILIKE ? OR name ILIKE ?)", models.RoleUser, q, q).
		Order("created_at desc").
		Limit(20).
		Find(&users).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": users})
}

// ListAdmins returns all admin users.
func (h *AdminHandler) ListAdmins(c *fiber.Ctx) error {
	var admins []models.User
	if err := h.db.
		Select("id, name, email, created_at, last_login").
		Where("role = ?", models.RoleAdmin).
		Order("created_at desc").
		Find(&admins).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": admins})
}

// PromoteUser grants the admin role to a user.
func (h *AdminHandler) PromoteUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	if err := h.db.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "user promoted to admin",
		"data":    fiber.Map{"id": user.ID, "name": user.Name, "email": user.Email, "role": models.RoleAdmin},
	})
}

// DemoteAdmin revokes the admin role. Emails on the protected list
// cannot be demoted.
func (h *AdminHandler) DemoteAdmin(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	for _, protected := range h.protectedEmails {
		if user.Email == protected {
			return fiber.NewError(fiber.StatusForbidden, "this admin cannot be demoted")
		}
	}

	if err := h.db.Model(&user).Update("role", models.RoleUser).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "admin demoted to user",
		"data":    fiber.Map{"id": user.ID, "name": user.Name, "email": user.Email, "role": models.RoleUser},
	})
}
