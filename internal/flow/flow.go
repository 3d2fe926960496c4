package flow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/merchantpay/merchantpay/internal/merchant"
	"github.com/merchantpay/merchantpay/internal/notification"
)

// Validation failures surfaced by step transitions. All are user-input class:
// the flow stays on the same step and the user corrects the field.
var (
	ErrMissingField    = errors.New("missing required field")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidOTP      = errors.New("invalid otp")
	ErrInvalidPIN      = errors.New("invalid pin")
	ErrPinMismatch     = errors.New("pin mismatch")
	ErrFlowClosed      = errors.New("flow closed")
)

// Routes the flows signal to the client-side router.
const (
	RouteHome      = "home"
	RouteLogin     = "login"
	RouteRegister  = "register"
	RouteDashboard = "dashboard"
)

// Flow names reported in snapshots.
const (
	FlowLogin        = "login"
	FlowRegistration = "registration"
)

// Event drives a step transition.
type Event string

const (
	EventNext        Event = "next"
	EventBack        Event = "back"
	EventResend      Event = "resend"
	EventVerifyEmail Event = "verify_email"
)

const pinLength = 6

// FormState buffers the in-progress input for the active flow attempt. It is
// transient: destroyed with the flow, never persisted.
type FormState struct {
	BusinessName   string
	Email          string
	CountryCode    string
	Phone          string
	Currency       string
	OTP            string
	PIN            string
	ConfirmPIN     string
	EmailVerified  bool
	MobileVerified bool
}

// Input carries field edits into the form buffer. Empty strings leave the
// corresponding field untouched so partial updates compose.
type Input struct {
	BusinessName string `json:"businessName"`
	Email        string `json:"email"`
	CountryCode  string `json:"countryCode"`
	Phone        string `json:"phone"`
	Currency     string `json:"currency"`
	OTP          string `json:"otp"`
	PIN          string `json:"pin"`
	ConfirmPIN   string `json:"confirmPin"`
}

func (f *FormState) merge(in Input) {
	if in.BusinessName != "" {
		f.BusinessName = in.BusinessName
	}
	if in.Email != "" {
		f.Email = in.Email
	}
	if in.CountryCode != "" {
		f.CountryCode = in.CountryCode
	}
	if in.Phone != "" {
		f.Phone = in.Phone
	}
	if in.Currency != "" {
		f.Currency = in.Currency
	}
	if in.OTP != "" {
		f.OTP = in.OTP
	}
	if in.PIN != "" {
		f.PIN = in.PIN
	}
	if in.ConfirmPIN != "" {
		f.ConfirmPIN = in.ConfirmPIN
	}
}

// Snapshot is the externally visible state of a flow at a point in time.
type Snapshot struct {
	Flow            string `json:"flow"`
	Step            int    `json:"step"`
	TotalSteps      int    `json:"totalSteps"`
	Revealing       bool   `json:"revealing"`
	Done            bool   `json:"done"`
	Route           string `json:"route,omitempty"`
	ResendRemaining int    `json:"resendRemaining"`
}

// Flow is a step-driven state machine consumed by the presentation layer.
type Flow interface {
	// Fill merges field edits into the form buffer.
	Fill(in Input)
	// Apply runs one transition and returns the resulting snapshot. A
	// validation error leaves form and step state untouched.
	Apply(ctx context.Context, event Event) (Snapshot, error)
	// Snapshot returns the current state without transitioning.
	Snapshot() Snapshot
	// Subscribe registers an observer invoked on every state change. The
	// returned function removes it.
	Subscribe(fn func(Snapshot)) (unsubscribe func())
	// Close tears the flow down: the resend timer stops ticking and any
	// pending reveal outcome is discarded.
	Close()
}

// Options configures a flow instance. Store and Notifier are required;
// everything else has working defaults.
type Options struct {
	Store          merchant.Store
	Notifier       notification.Notifier
	Dispatcher     Dispatcher
	Logger         *slog.Logger
	ResendCooldown time.Duration
	TickInterval   time.Duration
	// RevealDelay simulates network latency before a final outcome is
	// revealed. Zero applies outcomes synchronously.
	RevealDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Dispatcher == nil {
		o.Dispatcher = NewStaticDispatcher(o.Logger)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.ResendCooldown <= 0 {
		o.ResendCooldown = 30 * time.Second
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	return o
}

func (o Options) cooldownSeconds() int {
	return int(o.ResendCooldown / time.Second)
}

func (o Options) notify(ctx context.Context, title, description, severity string) {
	if o.Notifier != nil {
		o.Notifier.Notify(ctx, notification.Notice{Title: title, Description: description, Severity: severity})
	}
}
