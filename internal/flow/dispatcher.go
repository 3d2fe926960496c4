package flow

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
)

// Dispatcher represents the connector to an external OTP/email delivery
// provider. Delivery is simulated in this system; nothing leaves the process.
type Dispatcher interface {
	SendOTP(ctx context.Context, countryCode, phone string) (code string, err error)
	SendVerificationEmail(ctx context.Context, email string) error
}

// StaticDispatcher simulates a delivery provider that always succeeds. The
// generated code is logged so an operator can complete a flow by hand.
type StaticDispatcher struct {
	logger *slog.Logger
}

// NewStaticDispatcher constructs the simulated delivery connector.
func NewStaticDispatcher(logger *slog.Logger) *StaticDispatcher {
	return &StaticDispatcher{logger: logger}
}

// SendOTP pretends to deliver a fresh 6-digit code to the phone.
func (d *StaticDispatcher) SendOTP(_ context.Context, countryCode, phone string) (string, error) {
	code := fmt.Sprintf("%06d", rand.Intn(1_000_000))
	if d.logger != nil {
		d.logger.Info("otp dispatched", "phone", countryCode+phone, "code", code)
	}
	return code, nil
}

// SendVerificationEmail pretends to deliver a verification email.
func (d *StaticDispatcher) SendVerificationEmail(_ context.Context, email string) error {
	if d.logger != nil {
		d.logger.Info("verification email dispatched", "email", email)
	}
	return nil
}
