package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/mindymunchs/internal/middleware"
	"github.com/example/mindymunchs/internal/services"
	"github.com/example/mindymunchs/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db     *gorm.DB
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, orders *services.OrderService) *OrderHandler {
	return &OrderHandler{db: db, orders: orders}
}

// CreateOrder places an order from the authenticated user's cart.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var input services.CreateOrderInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.orders.Create(c.Context(), userID, input)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"order": order},
	})
}

// MyOrders returns the authenticated user's orders, newest first.
func (h *OrderHandler) MyOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orders, err := h.orders.ListForUser(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": orders})
}

// GetOrder returns a single order for its owner or an admin.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.orders.GetByID(c.Context(), id, userID, middleware.IsAdmin(c))
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// CancelOrder cancels the caller's own order if it has not shipped.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.orders.Cancel(c.Context(), id, userID)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "order cancelled", "data": order})
}

// ListAllOrders returns all orders with pagination and filtering. Admin only.
func (h *OrderHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	orders, total, err := h.orders.ListAll(c.Context(), services.ListOrdersFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}, services.PageRequest{Limit: pg.Limit, Offset: pg.Offset})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// UpdateOrderStatus applies an admin status change.
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var input services.StatusUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.orders.UpdateStatus(c.Context(), id, input)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "order status updated", "data": order})
}

// OrderAnalytics returns the admin analytics summary.
func (h *OrderHandler) OrderAnalytics(c *fiber.Ctx) error {
	analytics, err := h.orders.Analytics(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": analytics})
}
