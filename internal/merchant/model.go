package merchant

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Transaction types recorded against a merchant balance.
const (
	TxCredit = "credit"
	TxDebit  = "debit"
)

// Currencies a merchant may settle in, first entry is the default.
var Currencies = []string{"INR", "USD", "EUR", "GBP", "JPY", "AUD", "CAD", "SGD", "AED"}

// DialCodes lists the supported country calling codes, first entry is the default.
var DialCodes = []string{"+91", "+1", "+44", "+61", "+49", "+33", "+81", "+65", "+971"}

// Transaction is one entry in a merchant's history.
type Transaction struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
}

// Record is the single persisted merchant account. The PIN is stored as a
// bcrypt hash; plain digits never reach the store.
type Record struct {
	ID           string        `json:"id"`
	BusinessName string        `json:"businessName"`
	Email        string        `json:"email"`
	CountryCode  string        `json:"countryCode"`
	Phone        string        `json:"phone"`
	PINHash      []byte        `json:"pinHash"`
	Currency     string        `json:"currency"`
	Balance      float64       `json:"balance"`
	IsLoggedIn   bool          `json:"isLoggedIn"`
	Transactions []Transaction `json:"transactions"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// HashPIN derives the stored credential from a plain 6-digit PIN.
func HashPIN(pin string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
}

// PINMatches reports whether the entered PIN matches the stored credential.
func (r Record) PINMatches(pin string) bool {
	return bcrypt.CompareHashAndPassword(r.PINHash, []byte(pin)) == nil
}

// SupportedCurrency reports whether code is one of the enumerated currencies.
func SupportedCurrency(code string) bool {
	for _, c := range Currencies {
		if c == code {
			return true
		}
	}
	return false
}

// normalize fills natural defaults for fields an older record shape may lack,
// so readers never observe a nil history or an empty currency.
func normalize(r Record) Record {
	if r.Transactions == nil {
		r.Transactions = []Transaction{}
	}
	if r.Currency == "" {
		r.Currency = Currencies[0]
	}
	if r.CountryCode == "" {
		r.CountryCode = DialCodes[0]
	}
	return r
}
