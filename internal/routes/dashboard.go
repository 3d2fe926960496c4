package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/merchantpay/merchantpay/internal/flow"
	"github.com/merchantpay/merchantpay/internal/identifier"
	"github.com/merchantpay/merchantpay/internal/merchant"
)

// DashboardHandler serves the merchant summary and the session toggle.
type DashboardHandler struct {
	store merchant.Store
}

func newDashboardHandler(store merchant.Store) *DashboardHandler {
	return &DashboardHandler{store: store}
}

const recentTransactions = 5

type dashboardResponse struct {
	ID           string                 `json:"id"`
	DisplayID    string                 `json:"displayId"`
	BusinessName string                 `json:"businessName"`
	Email        string                 `json:"email"`
	CountryCode  string                 `json:"countryCode"`
	Phone        string                 `json:"phone"`
	Currency     string                 `json:"currency"`
	Balance      float64                `json:"balance"`
	Transactions []merchant.Transaction `json:"transactions"`
}

// Show returns the dashboard summary. A missing, malformed or logged-out
// record is a routing signal back to the login entry point, never a crash.
func (h *DashboardHandler) Show(c *fiber.Ctx) error {
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

	recent := record.Transactions
	if len(recent) > recentTransactions {
		recent = recent[:recentTransactions]
	}

	return c.Status(http.StatusOK).JSON(dashboardResponse{
		ID:           record.ID,
		DisplayID:    identifier.Format(record.ID),
		BusinessName: record.BusinessName,
		Email:        record.Email,
		CountryCode:  record.CountryCode,
		Phone:        record.Phone,
		Currency:     record.Currency,
		Balance:      record.Balance,
		Transactions: recent,
	})
}

// Logout clears the session flag and signals navigation home.
func (h *DashboardHandler) Logout(c *fiber.Ctx) error {
	err := h.store.SetLoggedIn(c.UserContext(), false)
	if errors.Is(err, merchant.ErrNoAccount) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"route": flow.RouteLogin})
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out", "route": flow.RouteHome})
}

// RegisterDashboardRoutes wires the dashboard endpoints.
func RegisterDashboardRoutes(r fiber.Router, h *DashboardHandler) {
	r.Get("/dashboard", h.Show)
	r.Post("/logout", h.Logout)
}
