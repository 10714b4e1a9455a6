package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/mindymunchs/internal/services"
)

// ErrorHandler renders every error that escapes a handler as the
// uniform {success, message} envelope. *fiber.Error keeps its status
// code and message; anything else is logged server-side and returned
// as a generic 500 so storage and driver errors never reach clients.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
		})
	}

	log.Printf("[HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "something went wrong, please try again",
	})
}

// writeServiceError maps typed service errors onto the HTTP boundary.
// Validation and authorization problems never escape as 500s; gateway
// and signature failures get a generic client message.
func writeServiceError(c *fiber.Ctx, err error) error {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  ve.Fields,
		})
	}

	var nf *services.NotFoundError
	if errors.As(err, &nf) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": nf.Error(),
		})
	}

	var fe *services.ForbiddenError
	if errors.As(err, &fe) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": fe.Error(),
		})
	}

	var ce *services.ConflictError
	if errors.As(err, &ce) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": ce.Error(),
		})
	}

	var oos *services.OutOfStockError
	if errors.As(err, &oos) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": oos.Error(),
		})
	}

	var ge *services.GatewayError
	if errors.As(err, &ge) {
		log.Printf("[Payment] gateway error: %v", ge)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "payment could not be processed, please try again",
		})
	}

	var sme *services.SignatureMismatchError
	if errors.As(err, &sme) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "payment could not be verified, please try again",
		})
	}

	return err
}
