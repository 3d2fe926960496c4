package flow

import (
	"context"
	"sync"

	"github.com/merchantpay/merchantpay/internal/notification"
)

// Login step ordinals.
const (
	loginStepPhone = 1
	loginStepOTP   = 2
	loginStepPIN   = 3

	loginTotalSteps = 3
)

// Login is the authentication flow: Phone -> OTP -> PIN -> authenticated.
type Login struct {
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

// NewLogin builds a login flow bound to the injected store and notifier.
func NewLogin(opts Options) *Login {
	opts = opts.withDefaults()
	return &Login{
		opts:      opts,
		countdown: newCountdown(opts.TickInterval),
		step:      loginStepPhone,
		subs:      make(map[int]func(Snapshot)),
	}
}

// Fill merges field edits into the form buffer.
func (l *Login) Fill(in Input) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.done {
		return
	}
	l.form.merge(in)
}

// Snapshot returns the current state without transitioning.
func (l *Login) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Subscribe registers an observer invoked on every state change.
func (l *Login) Subscribe(fn func(Snapshot)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// Close tears the flow down: the countdown stops ticking and a pending
// reveal outcome, if any, is discarded.
func (l *Login) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.teardownLocked()
}

// Apply runs one transition. Validation failures surface a notice, leave the
// form and step untouched, and return the matching sentinel error.
func (l *Login) Apply(ctx context.Context, event Event) (Snapshot, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return Snapshot{}, ErrFlowClosed
	}
	if l.done || l.revealing {
		snap := l.snapshotLocked()
		l.mu.Unlock()
		return snap, nil
	}

	var (
		after func()
		err   error
	)
	switch event {
	case EventNext:
		after, err = l.nextLocked(ctx)
	case EventBack:
		l.backLocked()
	case EventResend:
		l.resendLocked(ctx)
	default:
		// Unknown events, including verify_email, do not apply to login.
	}

	snap := l.snapshotLocked()
	subs := subscriberList(l.subs)
	l.mu.Unlock()

	if err == nil {
		for _, fn := range subs {
			fn(snap)
		}
	}
	if after != nil {
		after()
		return l.Snapshot(), err
	}
	return snap, err
}

func (l *Login) nextLocked(ctx context.Context) (func(), error) {
	switch l.step {
	case loginStepPhone:
		if l.form.Phone == "" {
			l.opts.notify(ctx, "Missing Information", "Please enter your phone number", notification.SeverityDestructive)
			return nil, ErrMissingField
		}
		record, err := l.opts.Store.Load(ctx)
		if err != nil || record.Phone != l.form.Phone {
			l.opts.notify(ctx, "Account Not Found", "No account exists for this phone number", notification.SeverityDestructive)
			return nil, ErrAccountNotFound
		}
		if _, err := l.opts.Dispatcher.SendOTP(ctx, l.form.CountryCode, l.form.Phone); err != nil {
			l.opts.notify(ctx, "Delivery Failed", "Could not send the verification code", notification.SeverityDestructive)
			return nil, err
		}
		l.countdown.Reset(l.opts.cooldownSeconds())
		l.opts.notify(ctx, "OTP Sent", "Verification code sent to your phone number", notification.SeverityInfo)
		l.step = loginStepOTP
		return nil, nil

	case loginStepOTP:
		if len(l.form.OTP) != pinLength {
			l.opts.notify(ctx, "Invalid OTP", "Please enter a valid 6-digit OTP", notification.SeverityDestructive)
			return nil, ErrInvalidOTP
		}
		l.countdown.Stop()
		l.step = loginStepPIN
		return nil, nil

	case loginStepPIN:
		if len(l.form.PIN) != pinLength {
			l.opts.notify(ctx, "Invalid PIN", "Please enter your 6-digit PIN", notification.SeverityDestructive)
			return nil, ErrInvalidPIN
		}
		l.revealing = true
		phone, pin := l.form.Phone, l.form.PIN
		return func() {
			cancel := reveal(l.opts.RevealDelay, func() { l.finish(phone, pin) })
			l.mu.Lock()
			if l.revealing && !l.closed {
				l.cancelReveal = cancel
			}
			l.mu.Unlock()
		}, nil
	}
	return nil, nil
}

// finish applies the deferred login outcome. It is discarded when the flow
// was closed while the simulated latency elapsed.
func (l *Login) finish(phone, pin string) {
	ctx := context.Background()

	l.mu.Lock()
	if l.closed || !l.revealing {
		l.mu.Unlock()
		return
	}
	l.revealing = false
	l.cancelReveal = nil
	l.mu.Unlock()

	record, err := l.opts.Store.Load(ctx)
	authed := err == nil && record.Phone == phone && record.PINMatches(pin)
	if authed {
		if err := l.opts.Store.SetLoggedIn(ctx, true); err != nil {
			l.opts.Logger.Error("mark logged in", "error", err)
			authed = false
		}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if authed {
		l.done = true
		l.route = RouteDashboard
		l.teardownTimersLocked()
	}
	snap := l.snapshotLocked()
	subs := subscriberList(l.subs)
	l.mu.Unlock()

	if authed {
		l.opts.notify(ctx, "Login Successful", "Welcome back, "+record.BusinessName+"!", notification.SeverityInfo)
	} else {
		l.opts.notify(ctx, "Invalid PIN", "The PIN you entered is incorrect", notification.SeverityDestructive)
	}
	for _, fn := range subs {
		fn(snap)
	}
}

func (l *Login) backLocked() {
	if l.step > loginStepPhone {
		if l.step == loginStepOTP {
			l.countdown.Stop()
		}
		l.step--
		return
	}
	// Backing out of the first step exits the flow entirely.
	l.done = true
	l.route = RouteHome
	l.teardownTimersLocked()
}

func (l *Login) resendLocked(ctx context.Context) {
	// Resend only applies while on the OTP step and once the cooldown decayed.
	if l.step != loginStepOTP || l.countdown.Remaining() > 0 {
		return
	}
	if _, err := l.opts.Dispatcher.SendOTP(ctx, l.form.CountryCode, l.form.Phone); err != nil {
		l.opts.notify(ctx, "Delivery Failed", "Could not resend the verification code", notification.SeverityDestructive)
		return
	}
	l.countdown.Reset(l.opts.cooldownSeconds())
	l.opts.notify(ctx, "OTP Sent", "Verification code resent to your phone number", notification.SeverityInfo)
}

func (l *Login) snapshotLocked() Snapshot {
	return Snapshot{
		Flow:            FlowLogin,
		Step:            l.step,
		TotalSteps:      loginTotalSteps,
		Revealing:       l.revealing,
		Done:            l.done,
		Route:           l.route,
		ResendRemaining: l.countdown.Remaining(),
	}
}

func (l *Login) teardownTimersLocked() {
	l.countdown.Stop()
	if l.cancelReveal != nil {
		l.cancelReveal()
		l.cancelReveal = nil
	}
	l.revealing = false
}

func (l *Login) teardownLocked() {
	l.closed = true
	l.teardownTimersLocked()
	l.subs = make(map[int]func(Snapshot))
}

func subscriberList(subs map[int]func(Snapshot)) []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}
