package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/mindymunchs/internal/services"
)

// PaymentHandler exposes the gateway-facing checkout endpoints.
type PaymentHandler struct {
	gateway services.Gateway
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(gateway services.Gateway) *PaymentHandler {
	return &PaymentHandler{gateway: gateway}
}

type createGatewayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateRazorpayOrder creates a gateway payment intent. Amount is in
// paise. The response shape matches what the Razorpay checkout widget
// expects.
func (h *PaymentHandler) CreateRazorpayOrder(c *fiber.Ctx) error {
	var req createGatewayOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be a positive integer in paise")
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	order, err := h.gateway.CreateOrder(c.Context(), req.Amount, req.Currency)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":       order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
	})
}

// VerifyPayment checks a client-relayed gateway callback. The server
// recomputes the signature itself; a client-asserted success is never
// trusted.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	var req services.PaymentConfirmation
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing payment verification fields")
	}

	if !h.gateway.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		log.Printf("[Payment] signature mismatch for gateway order %s", req.RazorpayOrderID)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "failure",
			"message": "Invalid signature",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Payment verified successfully",
	})
}
