package routes

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/merchantpay/merchantpay/internal/flow"
)

// flowRegistry tracks the live flow instances, keyed by an opaque UUID the
// client carries between requests. Finished flows are evicted eagerly so
// their timers cannot outlive the attempt.
type flowRegistry struct {
	mu    sync.Mutex
	flows map[string]flow.Flow
}

func newFlowRegistry() *flowRegistry {
	return &flowRegistry{flows: make(map[string]flow.Flow)}
}

func (r *flowRegistry) add(f flow.Flow) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.flows[id] = f
	r.mu.Unlock()
	return id
}

func (r *flowRegistry) get(id string) (flow.Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[id]
	return f, ok
}

func (r *flowRegistry) remove(id string) (flow.Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[id]
	if ok {
		delete(r.flows, id)
	}
	return f, ok
}

// FlowHandler exposes the step machines over HTTP: one endpoint per user
// action, mirroring the Next/Back/Resend/Verify buttons.
type FlowHandler struct {
	opts     flow.Options
	registry *flowRegistry
}

func newFlowHandler(opts flow.Options) *FlowHandler {
	return &FlowHandler{opts: opts, registry: newFlowRegistry()}
}

type createFlowResponse struct {
	FlowID string        `json:"flowId"`
	State  flow.Snapshot `json:"state"`
}

func (h *FlowHandler) create(build func(flow.Options) flow.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := build(h.opts)
		id := h.registry.add(f)
		return c.Status(http.StatusCreated).JSON(createFlowResponse{FlowID: id, State: f.Snapshot()})
	}
}

// event merges any posted field edits into the form buffer, applies one
// transition and returns the new snapshot. Validation failures map to 400s
// except the missing-account case, which is a 404 routing signal.
func (h *FlowHandler) event(ev flow.Event) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, ok := h.registry.get(c.Params("id"))
		if !ok {
			return fiber.NewError(http.StatusNotFound, "flow not found")
		}

		if len(c.Body()) > 0 {
			var in flow.Input
			if err := c.BodyParser(&in); err != nil {
				return fiber.NewError(http.StatusBadRequest, err.Error())
			}
			f.Fill(in)
		}

		snap, err := f.Apply(c.UserContext(), ev)
		if err != nil {
			return flowError(err)
		}
		if snap.Done {
			if gone, ok := h.registry.remove(c.Params("id")); ok {
				gone.Close()
			}
		}
		return c.Status(http.StatusOK).JSON(snap)
	}
}

func (h *FlowHandler) snapshot(c *fiber.Ctx) error {
	f, ok := h.registry.get(c.Params("id"))
	if !ok {
		return fiber.NewError(http.StatusNotFound, "flow not found")
	}
	return c.Status(http.StatusOK).JSON(f.Snapshot())
}

func (h *FlowHandler) teardown(c *fiber.Ctx) error {
	f, ok := h.registry.remove(c.Params("id"))
	if !ok {
		return fiber.NewError(http.StatusNotFound, "flow not found")
	}
	f.Close()
	return c.SendStatus(http.StatusNoContent)
}

func flowError(err error) error {
	switch {
	case errors.Is(err, flow.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, flow.ErrFlowClosed):
		return fiber.NewError(http.StatusGone, err.Error())
	case errors.Is(err, flow.ErrMissingField),
		errors.Is(err, flow.ErrInvalidOTP),
		errors.Is(err, flow.ErrInvalidPIN),
		errors.Is(err, flow.ErrPinMismatch):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// RegisterFlowRoutes wires the login and registration step machines.
func RegisterFlowRoutes(r fiber.Router, h *FlowHandler, otpLimiter fiber.Handler) {
	login := r.Group("/login/flows")
	login.Post("/", otpLimiter, h.create(func(opts flow.Options) flow.Flow { return flow.NewLogin(opts) }))
	registerFlowEvents(login, h, otpLimiter)

	register := r.Group("/register/flows")
	register.Post("/", h.create(func(opts flow.Options) flow.Flow { return flow.NewRegistration(opts) }))
	registerFlowEvents(register, h, otpLimiter)
	register.Post("/:id/verify-email", h.event(flow.EventVerifyEmail))
}

func registerFlowEvents(g fiber.Router, h *FlowHandler, otpLimiter fiber.Handler) {
	g.Get("/:id", h.snapshot)
	g.Post("/:id/next", h.event(flow.EventNext))
	g.Post("/:id/back", h.event(flow.EventBack))
	g.Post("/:id/resend", otpLimiter, h.event(flow.EventResend))
	g.Delete("/:id", h.teardown)
}
