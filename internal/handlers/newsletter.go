package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/mindymunchs/internal/models"
)

// NewsletterHandler manages newsletter subscriptions.
type NewsletterHandler struct {
	db *gorm.DB
}

// NewNewsletterHandler constructs NewsletterHandler.
func NewNewsletterHandler(db *gorm.DB) *NewsletterHandler {
	return &NewsletterHandler{db: db}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe adds an email to the newsletter. Known users get their flag
// set; unknown emails become guest subscribers. Safe to retry.
func (h *NewsletterHandler) Subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return fiber.NewError(fiber.StatusBadRequest, "a valid email is required")
	}

	var user models.User
	err := h.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		if err := h.db.Model(&user).Update("newsletter_subscribed", true).Error; err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "message": "subscribed to newsletter"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var guest models.Guest
	err = h.db.Where("email = ?", email).First(&guest).Error
	switch {
	case err == nil:
		if err := h.db.Model(&guest).Update("newsletter_subscribed", true).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		guest = models.Guest{Email: email, NewsletterSubscribed: true}
		if err := h.db.Create(&guest).Error; err != nil {
			return err
		}
	default:
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "subscribed to newsletter"})
}

// Unsubscribe clears the newsletter flag wherever the email appears.
func (h *NewsletterHandler) Unsubscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "a valid email is required")
	}

	if err := h.db.Model(&models.User{}).
		Where("email = ?", email).
		Update("newsletter_subscribed", false).Error; err != nil {
		return err
	}
	if err := h.db.Model(&models.Guest{}).
		Where("email = ?", email).
		Update("newsletter_subscribed", false).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "unsubscribed from newsletter"})
}
