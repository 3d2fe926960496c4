package flow

import (
	"context"
	"sync"
	"time"

	"github.com/merchantpay/merchantpay/internal/identifier"
	"github.com/merchantpay/merchantpay/internal/merchant"
	"github.com/merchantpay/merchantpay/internal/notification"
)

// Registration step ordinals.
const (
	registerStepBusiness  = 1
	registerStepEmail     = 2
	registerStepMobile    = 3
	registerStepMobileOTP = 4
	registerStepPIN       = 5

	registerTotalSteps = 5
)

// Registration is the enrollment flow: BusinessInfo -> EmailVerify ->
// MobileInfo -> MobileOtp -> SetPin -> created. Completing it overwrites any
// existing merchant record; there is no multi-account support.
type Registration struct {
	opts      Options
	countdown *Countdown

	mu           sync.Mutex
	form         FormState
	step         int
	revealing    bool
	done         bool
	route        string
	closed       bool
	cancelReveal func()
	subs         map[int]func(Snapshot)
	nextSub      int
}

// NewRegistration builds a registration flow bound to the injected store.
func NewRegistration(opts Options) *Registration {
	opts = opts.withDefaults()
	return &Registration{
		opts:      opts,
		countdown: newCountdown(opts.TickInterval),
		step:      registerStepBusiness,
		subs:      make(map[int]func(Snapshot)),
	}
}

// Fill merges field edits into the form buffer.
func (r *Registration) Fill(in Input) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.done {
		return
	}
	r.form.merge(in)
}

// Snapshot returns the current state without transitioning.
func (r *Registration) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Subscribe registers an observer invoked on every state change.
func (r *Registration) Subscribe(fn func(Snapshot)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// Close tears the flow down, stopping the countdown and discarding any
// pending reveal outcome.
func (r *Registration) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.teardownTimersLocked()
	r.subs = make(map[int]func(Snapshot))
}

// Apply runs one transition. Validation failures surface a notice, leave the
// form and step untouched, and return the matching sentinel error.
func (r *Registration) Apply(ctx context.Context, event Event) (Snapshot, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Snapshot{}, ErrFlowClosed
	}
	if r.done || r.revealing {
		snap := r.snapshotLocked()
		r.mu.Unlock()
		return snap, nil
	}

	var (
		after func()
		err   error
	)
	switch event {
	case EventNext:
		after, err = r.nextLocked(ctx)
	case EventBack:
		r.backLocked()
	case EventResend:
		r.resendLocked(ctx)
	case EventVerifyEmail:
		r.verifyEmailLocked(ctx)
	}

	snap := r.snapshotLocked()
	subs := subscriberList(r.subs)
	r.mu.Unlock()

	if err == nil {
		for _, fn := range subs {
			fn(snap)
		}
	}
	if after != nil {
		after()
		return r.Snapshot(), err
	}
	return snap, err
}

func (r *Registration) nextLocked(ctx context.Context) (func(), error) {
	switch r.step {
	case registerStepBusiness:
		if r.form.BusinessName == "" || r.form.Email == "" {
			r.opts.notify(ctx, "Missing Information", "Please fill in all required fields", notification.SeverityDestructive)
			return nil, ErrMissingField
		}
		if err := r.opts.Dispatcher.SendVerificationEmail(ctx, r.form.Email); err != nil {
			r.opts.notify(ctx, "Delivery Failed", "Could not send the verification email", notification.SeverityDestructive)
			return nil, err
		}
		r.opts.notify(ctx, "Verification Email Sent", "Check your inbox to verify your email address", notification.SeverityInfo)
		r.step = registerStepEmail
		return nil, nil

	case registerStepEmail:
		// Verification is never automatic: the user must trigger the
		// verify_email event on this step first.
		if !r.form.EmailVerified {
			r.opts.notify(ctx, "Email Not Verified", "Please verify your email address to continue", notification.SeverityDestructive)
			return nil, ErrMissingField
		}
		r.step = registerStepMobile
		return nil, nil

	case registerStepMobile:
		if r.form.Phone == "" {
			r.opts.notify(ctx, "Missing Information", "Please enter your phone number", notification.SeverityDestructive)
			return nil, ErrMissingField
		}
		if r.form.Currency != "" && !merchant.SupportedCurrency(r.form.Currency) {
			r.opts.notify(ctx, "Unsupported Currency", "Please choose one of the listed currencies", notification.SeverityDestructive)
			return nil, ErrMissingField
		}
		if _, err := r.opts.Dispatcher.SendOTP(ctx, r.form.CountryCode, r.form.Phone); err != nil {
			r.opts.notify(ctx, "Delivery Failed", "Could not send the verification code", notification.SeverityDestructive)
			return nil, err
		}
		r.countdown.Reset(r.opts.cooldownSeconds())
		r.opts.notify(ctx, "OTP Sent", "Verification code sent to your phone number", notification.SeverityInfo)
		r.step = registerStepMobileOTP
		return nil, nil

	case registerStepMobileOTP:
		if len(r.form.OTP) != pinLength {
			r.opts.notify(ctx, "Invalid OTP", "Please enter a valid 6-digit OTP", notification.SeverityDestructive)
			return nil, ErrInvalidOTP
		}
		r.form.MobileVerified = true
		r.countdown.Stop()
		r.step = registerStepPIN
		return nil, nil

	case registerStepPIN:
		if len(r.form.PIN) != pinLength {
			r.opts.notify(ctx, "Invalid PIN", "PIN must be 6 digits", notification.SeverityDestructive)
			return nil, ErrInvalidPIN
		}
		if r.form.PIN != r.form.ConfirmPIN {
			r.opts.notify(ctx, "PIN Mismatch", "Both PIN entries must match", notification.SeverityDestructive)
			return nil, ErrPinMismatch
		}
		r.revealing = true
		form := r.form
		return func() {
			cancel := reveal(r.opts.RevealDelay, func() { r.finish(form) })
			r.mu.Lock()
			if r.revealing && !r.closed {
				r.cancelReveal = cancel
			}
			r.mu.Unlock()
		}, nil
	}
	return nil, nil
}

// finish creates and persists the merchant record once the simulated latency
// elapsed. A flow closed in the meantime discards the outcome entirely.
func (r *Registration) finish(form FormState) {
	ctx := context.Background()

	r.mu.Lock()
	if r.closed || !r.revealing {
		r.mu.Unlock()
		return
	}
	r.revealing = false
	r.cancelReveal = nil
	r.mu.Unlock()

	hash, err := merchant.HashPIN(form.PIN)
	if err != nil {
		r.opts.Logger.Error("hash pin", "error", err)
		r.opts.notify(ctx, "Registration Failed", "Could not create your account, please try again", notification.SeverityDestructive)
		return
	}

	record := merchant.Record{
		ID:           identifier.Generate(),
		BusinessName: form.BusinessName,
		Email:        form.Email,
		CountryCode:  form.CountryCode,
		Phone:        form.Phone,
		PINHash:      hash,
		Currency:     form.Currency,
		Balance:      0,
		IsLoggedIn:   true,
		Transactions: []merchant.Transaction{},
		CreatedAt:    time.Now().UTC(),
	}

	if err := r.opts.Store.Save(ctx, record); err != nil {
		r.opts.Logger.Error("save merchant record", "error", err)
		r.opts.notify(ctx, "Registration Failed", "Could not create your account, please try again", notification.SeverityDestructive)
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.route = RouteDashboard
	r.teardownTimersLocked()
	snap := r.snapshotLocked()
	subs := subscriberList(r.subs)
	r.mu.Unlock()

	r.opts.notify(ctx, "Account Created", "Welcome to MerchantPay!", notification.SeverityInfo)
	for _, fn := range subs {
		fn(snap)
	}
}

func (r *Registration) backLocked() {
	if r.step > registerStepBusiness {
		if r.step == registerStepMobileOTP {
			r.countdown.Stop()
		}
		r.step--
		return
	}
	r.done = true
	r.route = RouteHome
	r.teardownTimersLocked()
}

func (r *Registration) resendLocked(ctx context.Context) {
	if r.step != registerStepMobileOTP || r.countdown.Remaining() > 0 {
		return
	}
	if _, err := r.opts.Dispatcher.SendOTP(ctx, r.form.CountryCode, r.form.Phone); err != nil {
		r.opts.notify(ctx, "Delivery Failed", "Could not resend the verification code", notification.SeverityDestructive)
		return
	}
	r.countdown.Reset(r.opts.cooldownSeconds())
	r.opts.notify(ctx, "OTP Sent", "Verification code resent to your phone number", notification.SeverityInfo)
}

func (r *Registration) verifyEmailLocked(ctx context.Context) {
	if r.step != registerStepEmail || r.form.EmailVerified {
		return
	}
	r.form.EmailVerified = true
	r.opts.notify(ctx, "Email Verified", "Your email address has been verified", notification.SeverityInfo)
}

func (r *Registration) snapshotLocked() Snapshot {
	return Snapshot{
		Flow:            FlowRegistration,
		Step:            r.step,
		TotalSteps:      registerTotalSteps,
		Revealing:       r.revealing,
		Done:            r.done,
		Route:           r.route,
		ResendRemaining: r.countdown.Remaining(),
	}
}

func (r *Registration) teardownTimersLocked() {
	r.countdown.Stop()
	if r.cancelReveal != nil {
		r.cancelReveal()
		r.cancelReveal = nil
	}
	r.revealing = false
}
