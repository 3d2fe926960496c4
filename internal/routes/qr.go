package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/merchantpay/merchantpay/internal/flow"
	"github.com/merchantpay/merchantpay/internal/merchant"
	"github.com/merchantpay/merchantpay/internal/qr"
)

// QRHandler renders payment codes for the stored merchant.
type QRHandler struct {
	store   merchant.Store
	builder *qr.Builder
}

func newQRHandler(store merchant.Store, builder *qr.Builder) *QRHandler {
	return &QRHandler{store: store, builder: builder}
}

type qrRequest struct {
	Amount string `json:"amount"`
}

// Generate validates the amount, builds the payment payload and returns the
// rendered image artifact.
func (h *QRHandler) Generate(c *fiber.Ctx) error {
	var req qrRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	record, err := h.store.Load(c.UserContext())
	if errors.Is(err, merchant.ErrNoAccount) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"route": flow.RouteLogin})
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if !record.IsLoggedIn {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"route": flow.RouteLogin})
	}

	image, err := h.builder.Generate(record, req.Amount)
	if errors.Is(err, qr.ErrInvalidAmount) {
		return fiber.NewError(http.StatusBadRequest, "please enter a valid amount greater than 0")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(image)
}

// RegisterQRRoutes wires the QR generation endpoint.
func RegisterQRRoutes(r fiber.Router, h *QRHandler, limiter fiber.Handler) {
	r.Post("/qr", limiter, h.Generate)
}
