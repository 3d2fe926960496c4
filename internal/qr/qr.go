package qr

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/merchantpay/merchantpay/internal/merchant"
)

// ErrInvalidAmount rejects zero, negative, non-finite and unparsable amounts
// identically.
var ErrInvalidAmount = errors.New("invalid amount")

const (
	// payloadCurrency is fixed for the QR flow regardless of the merchant's
	// settlement currency.
	payloadCurrency = "INR"

	imageSize       = 300
	transactionNote = "Payment"
)

// Foreground/background pair for the rendered code. High contrast plus the
// highest recovery level keeps damaged or badly printed codes decodable.
var (
	foreground = color.RGBA{R: 0x1e, G: 0x40, B: 0xaf, A: 0xff}
	background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Payload is the structured payment request encoded into the QR image.
type Payload struct {
	MerchantName string  `json:"merchantName"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Phone        string  `json:"phone"`
	Timestamp    string  `json:"timestamp"`
	PaymentURL   string  `json:"paymentUrl"`
}

// Image is the rendered artifact: raw PNG bytes, an embeddable data URI, the
// serialized payload and a download filename carrying the amount.
type Image struct {
	PNG      []byte `json:"-"`
	DataURI  string `json:"dataUri"`
	Payload  string `json:"payload"`
	Filename string `json:"filename"`
}

// Builder constructs payment payloads for a merchant. The clock is injectable
// so payload timestamps can be pinned in tests.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder using the wall clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Build validates the entered amount and assembles the payment payload for
// the merchant. The UPI-style URL embeds the recipient, the URL-encoded
// business name, the amount, the currency and a fixed transaction note.
func (b *Builder) Build(record merchant.Record, amountString string) (Payload, error) {
	amountString = strings.TrimSpace(amountString)
	amount, err := strconv.ParseFloat(amountString, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return Payload{}, ErrInvalidAmount
	}

	paymentURL := fmt.Sprintf("upi://pay?pa=%s@paytm&pn=%s&am=%s&cu=%s&tn=%s",
		record.Phone, url.QueryEscape(record.BusinessName), amountString, payloadCurrency, transactionNote)

	return Payload{
		MerchantName: record.BusinessName,
		Amount:       amount,
		Currency:     payloadCurrency,
		Phone:        record.Phone,
		Timestamp:    b.now().UTC().Format(time.RFC3339),
		PaymentURL:   paymentURL,
	}, nil
}

// Render serializes the payload and encodes it as a scannable PNG at a fixed
// pixel width with the highest error-correction level.
func (b *Builder) Render(payload Payload, amountString string) (Image, error) {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return Image{}, fmt.Errorf("encode payload: %w", err)
	}

	code, err := qrcode.New(string(serialized), qrcode.Highest)
	if err != nil {
		return Image{}, fmt.Errorf("build qr code: %w", err)
	}
	code.ForegroundColor = foreground
	code.BackgroundColor = background

	png, err := code.PNG(imageSize)
	if err != nil {
		return Image{}, fmt.Errorf("render qr code: %w", err)
	}

	return Image{
		PNG:      png,
		DataURI:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Payload:  string(serialized),
		Filename: fmt.Sprintf("payment-qr-%s-rupees.png", strings.TrimSpace(amountString)),
	}, nil
}

// Generate runs Build and Render in one step.
func (b *Builder) Generate(record merchant.Record, amountString string) (Image, error) {
	payload, err := b.Build(record, amountString)
	if err != nil {
		return Image{}, err
	}
	return b.Render(payload, amountString)
}
