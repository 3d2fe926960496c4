package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/merchantpay/merchantpay/internal/logging"
	"github.com/merchantpay/merchantpay/internal/merchant"
	"github.com/merchantpay/merchantpay/internal/notification"
)

type countingDispatcher struct {
	mu     sync.Mutex
	otps   int
	emails int
}

func (d *countingDispatcher) SendOTP(_ context.Context, _, _ string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.otps++
	return "123456", nil
}

func (d *countingDispatcher) SendVerificationEmail(_ context.Context, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails++
	return nil
}

func (d *countingDispatcher) otpCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.otps
}

func seedAccount(t *testing.T, store merchant.Store, phone, pin string, loggedIn bool) merchant.Record {
	t.Helper()
	hash, err := merchant.HashPIN(pin)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	record := merchant.Record{
		ID:           "MPSEED000001",
		BusinessName: "Acme",
		Email:        "a@acme.com",
		CountryCode:  "+91",
		Phone:        phone,
		PINHash:      hash,
		Currency:     "INR",
		IsLoggedIn:   loggedIn,
		Transactions: []merchant.Transaction{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return record
}

func loginOptions(store merchant.Store, dispatcher Dispatcher, recorder *notification.Recorder) Options {
	return Options{
		Store:      store,
		Notifier:   recorder,
		Dispatcher: dispatcher,
		Logger:     logging.Discard(),
		// An hour-long tick keeps the countdown frozen so assertions are
		// deterministic; decay itself is covered by the countdown tests.
		TickInterval: time.Hour,
	}
}

func TestLoginHappyPath(t *testing.T) {
	ctx := context.Background()
	store := merchant.NewMemoryStore()
	seedAccount(t, store, "9998887777", "123456", false)

	dispatcher := &countingDispatcher{}
	recorder := notification.NewRecorder()
	l := NewLogin(loginOptions(store, dispatcher, recorder))
	defer l.Close()

	l.Fill(Input{Phone: "9998887777"})
	snap, err := l.Apply(ctx, EventNext)
	if err != nil {
		t.Fatalf("phone step: %v", err)
	}
	if snap.Step != loginStepOTP {
		t.Fatalf("expected OTP step, got %d", snap.Step)
	}
	if snap.ResendRemaining != 30 {
		t.Fatalf("expected 30s cooldown after dispatch, got %d", snap.ResendRemaining)
	}
	if dispatcher.otpCount() != 1 {
		t.Fatalf("expected one OTP dispatch, got %d", dispatcher.otpCount())
	}

	l.Fill(Input{OTP: "654321"})
	snap, err = l.Apply(ctx, EventNext)
	if err != nil {
		t.Fatalf("otp step: %v", err)
	}
	if snap.Step != loginStepPIN {
		t.Fatalf("expected PIN step, got %d", snap.Step)
	}

	l.Fill(Input{PIN: "123456"})
	snap, err = l.Apply(ctx, EventNext)
	if err != nil {
		t.Fatalf("pin step: %v", err)
	}
	if !snap.Done || snap.Route != RouteDashboard {
		t.Fatalf("expected authenticated flow routed to dashboard, got %+v", snap)
	}

	record, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if !record.IsLoggedIn {
		t.Fatalf("expected isLoggedIn=true after login")
	}
}

func TestLoginUnknownPhone(t *testing.T) {
	ctx := context.Background()
	store := merchant.NewMemoryStore()
	seedAccount(t, store, "9998887777", "123456", false)

	recorder := notification.NewRecorder()
	l := NewLogin(loginOptions(store, &countingDispatcher{}, recorder))
	defer l.Close()

	l.Fill(Input{Phone: "1112223333"})
	snap, err := l.Apply(ctx, EventNext)
	if err != ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if snap.Step != loginStepPhone {
		t.Fatalf("validation failure must not advance the step, got %d", snap.Step)
	}
	if last := recorder.Last(); last.Severity != notification.SeverityDestructive {
		t.Fatalf("expected destructive notice, got %+v", last)
	}
}

func TestLoginWrongPINLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	store := merchant.NewMemoryStore()
	seedAccount(t, store, "9998887777", "123456", false)

	recorder := notification.NewRecorder()
	l := NewLogin(loginOptions(store, &countingDispatcher{}, recorder))
	defer l.Close()

	l.Fill(Input{Phone: "9998887777", OTP: "111111", PIN: "999999"})
	mustApply(t, l, EventNext)
	mustApply(t, l, EventNext)

	snap, err := l.Apply(ctx, EventNext)
	if err != nil {
		t.Fatalf("pin step: %v", err)
	}
	if snap.Done {
		t.Fatalf("wrong PIN must not authenticate")
	}
	if snap.Step != loginStepPIN {
		t.Fatalf("expected to stay on PIN step, got %d", snap.Step)
	}

	record, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.IsLoggedIn {
		t.Fatalf("wrong PIN must leave isLoggedIn unchanged")
	}
	if last := recorder.Last(); last.Title != "Invalid PIN" {
		t.Fatalf("expected Invalid PIN notice, got %+v", last)
	}
}

func TestLoginShortPIN(t *testing.T) {
	ctx := context.Background()
	store := merchant.NewMemoryStore()
	seedAccount(t, store, "9998887777", "123456", false)

	l := NewLogin(loginOptions(store, &countingDispatcher{}, notification.NewRecorder()))
	defer l.Close()

	l.Fill(Input{Phone: "9998887777", OTP: "111111", PIN: "123"})
	mustApply(t, l, EventNext)
	mustApply(t, l, EventNext)

	if _, err := l.Apply(ctx, EventNext); err != ErrInvalidPIN {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
}

func TestLoginResendGating(t *testing.T) {
	ctx := context.Background()
	store := merchant.NewMemoryStore()
	seedAccount(t, store, "9998887777", "123456", false)

	dispatcher := &countingDispatcher{}
	l := NewLogin(loginOptions(store, dispatcher, notification.NewRecorder()))
	defer l.Close()

	l.Fill(Input{Phone: "9998887777"})
	mustApply(t, l, EventNext)
	if dispatcher.otpCount() != 1 {
		t.Fatalf("expected one dispatch, got %d", dispatcher.otpCount())
	}

	// While the cooldown is positive a resend is a strict no-op.
	l.countdown.tick(nil)
	before := l.countdown.Remaining()
	snap, err := l.Apply(ctx, EventResend)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if dispatcher.otpCount() != 1 {
		t.Fatalf("resend during cooldown must not re-dispatch, got %d", dispatcher.otpCount())
	}
	if snap.ResendRemaining != before {
		t.Fatalf("resend during cooldown must not reset the timer: %d != %d", snap.ResendRemaining, before)
	}

	// Once decayed to zero, a resend re-dispatches and restores the cooldown.
	for l.countdown.Remaining() > 0 {
		l.countdown.tick(nil)
	}
	snap, err = l.Apply(ctx, EventResend)
	if err != nil {
		t.Fatalf("resend after decay: %v", err)
	}
	if dispatcher.otpCount() != 2 {
		t.Fatalf("expected re-dispatch after decay, got %d", dispatcher.otpCount())
	}
	if snap.ResendRemaining != 30 {
		t.Fatalf("expected cooldown reset to 30, got %d", snap.ResendRemaining)
	}
}

func TestLoginBackExitsFromFirstStep(t *testing.T) {
	ctx := context.Background()
	store := merchant.NewMemoryStore()
	l := NewLogin(loginOptions(store, &countingDispatcher{}, notification.NewRecorder()))
	defer l.Close()

	snap, err := l.Apply(ctx, EventBack)
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if !snap.Done || snap.Route != RouteHome {
		t.Fatalf("expected exit to home, got %+v", snap)
	}
}

func TestLoginCloseDiscardsPendingOutcome(t *testing.T) {
	ctx := context.Background()
	store := merchant.NewMemoryStore()
	seedAccount(t, store, "9998887777", "123456", false)

	opts := loginOptions(store, &countingDispatcher{}, notification.NewRecorder())
	opts.RevealDelay = time.Hour
	l := NewLogin(opts)

	l.Fill(Input{Phone: "9998887777", OTP: "111111", PIN: "123456"})
	mustApply(t, l, EventNext)
	mustApply(t, l, EventNext)

	snap, err := l.Apply(ctx, EventNext)
	if err != nil {
		t.Fatalf("pin step: %v", err)
	}
	if !snap.Revealing {
		t.Fatalf("expected pending reveal, got %+v", snap)
	}

	l.Close()

	record, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.IsLoggedIn {
		t.Fatalf("closed flow must not write a late outcome")
	}
	if _, err := l.Apply(ctx, EventNext); err != ErrFlowClosed {
		t.Fatalf("expected ErrFlowClosed, got %v", err)
	}
}

func TestLoginDelayedReveal(t *testing.T) {
	ctx := context.Background()
	store := merchant.NewMemoryStore()
	seedAccount(t, store, "9998887777", "123456", false)

	opts := loginOptions(store, &countingDispatcher{}, notification.NewRecorder())
	opts.RevealDelay = 10 * time.Millisecond
	l := NewLogin(opts)
	defer l.Close()

	done := make(chan Snapshot, 1)
	l.Subscribe(func(s Snapshot) {
		if s.Done {
			select {
			case done <- s:
			default:
			}
		}
	})

	l.Fill(Input{Phone: "9998887777", OTP: "111111", PIN: "123456"})
	mustApply(t, l, EventNext)
	mustApply(t, l, EventNext)

	snap, err := l.Apply(ctx, EventNext)
	if err != nil {
		t.Fatalf("pin step: %v", err)
	}
	if !snap.Revealing {
		t.Fatalf("expected reveal in flight, got %+v", snap)
	}

	select {
	case snap = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("outcome never revealed")
	}
	if snap.Route != RouteDashboard {
		t.Fatalf("expected dashboard route, got %+v", snap)
	}
}

func mustApply(t *testing.T, f Flow, event Event) Snapshot {
	t.Helper()
	snap, err := f.Apply(context.Background(), event)
	if err != nil {
		t.Fatalf("apply %s: %v", event, err)
	}
	return snap
}
