package qr

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/merchantpay/merchantpay/internal/merchant"
)

func testMerchant() merchant.Record {
	return merchant.Record{
		ID:           "MPTESTID0001",
		BusinessName: "Acme Stores",
		Phone:        "9998887777",
		Currency:     "INR",
	}
}

func fixedBuilder() *Builder {
	b := NewBuilder()
	b.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func TestBuildPayload(t *testing.T) {
	b := fixedBuilder()

	payload, err := b.Build(testMerchant(), "100")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if payload.Amount != 100 {
		t.Fatalf("expected amount 100, got %v", payload.Amount)
	}
	if payload.Currency != "INR" {
		t.Fatalf("expected fixed INR currency, got %q", payload.Currency)
	}
	if !strings.Contains(payload.PaymentURL, "am=100") {
		t.Fatalf("payment url missing amount: %q", payload.PaymentURL)
	}
	if !strings.Contains(payload.PaymentURL, url.QueryEscape("Acme Stores")) {
		t.Fatalf("payment url missing encoded business name: %q", payload.PaymentURL)
	}
	if !strings.HasPrefix(payload.PaymentURL, "upi://pay?pa=9998887777@paytm") {
		t.Fatalf("unexpected payment url: %q", payload.PaymentURL)
	}
	if payload.Timestamp != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp: %q", payload.Timestamp)
	}
}

func TestBuildRejectsBadAmounts(t *testing.T) {
	b := fixedBuilder()
	for _, amount := range []string{"0", "-5", "abc", "", "NaN", "+Inf"} {
		if _, err := b.Build(testMerchant(), amount); err != ErrInvalidAmount {
			t.Fatalf("amount %q: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestRenderArtifact(t *testing.T) {
	b := fixedBuilder()

	img, err := b.Generate(testMerchant(), "250")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.HasPrefix(img.PNG, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("rendered bytes are not a PNG")
	}
	if !strings.HasPrefix(img.DataURI, "data:image/png;base64,") {
		t.Fatalf("unexpected data uri prefix: %q", img.DataURI[:30])
	}
	if img.Filename != "payment-qr-250-rupees.png" {
		t.Fatalf("unexpected filename: %q", img.Filename)
	}

	var decoded Payload
	if err := json.Unmarshal([]byte(img.Payload), &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Amount != 250 || decoded.MerchantName != "Acme Stores" {
		t.Fatalf("payload round trip mismatch: %+v", decoded)
	}
}

func TestSameMillisecondPayloadsAgree(t *testing.T) {
	b := fixedBuilder()

	first, err := b.Build(testMerchant(), "42")
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := b.Build(testMerchant(), "42")
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if first != second {
		t.Fatalf("identical inputs at a pinned clock must agree:\n%+v\n%+v", first, second)
	}
}
