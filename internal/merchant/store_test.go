package merchant

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func sampleRecord(t *testing.T) Record {
	t.Helper()
	hash, err := HashPIN("123456")
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	return Record{
		ID:           "MPTESTID0001",
		BusinessName: "Acme",
		Email:        "a@acme.com",
		CountryCode:  "+91",
		Phone:        "9998887777",
		PINHash:      hash,
		Currency:     "INR",
		Balance:      0,
		IsLoggedIn:   true,
		Transactions: []Transaction{},
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	if _, err := store.Load(ctx); err != ErrNoAccount {
		t.Fatalf("expected ErrNoAccount from empty store, got %v", err)
	}
	if err := store.SetLoggedIn(ctx, false); err != ErrNoAccount {
		t.Fatalf("expected ErrNoAccount from SetLoggedIn on empty store, got %v", err)
	}

	record := sampleRecord(t)
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != record.ID || loaded.Phone != record.Phone || !loaded.IsLoggedIn {
		t.Fatalf("loaded record mismatch: %+v", loaded)
	}
	if !loaded.PINMatches("123456") {
		t.Fatalf("stored credential does not match original PIN")
	}
	if loaded.PINMatches("654321") {
		t.Fatalf("stored credential matched a wrong PIN")
	}

	if err := store.SetLoggedIn(ctx, false); err != nil {
		t.Fatalf("set logged in: %v", err)
	}
	first, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load after logout: %v", err)
	}
	if first.IsLoggedIn {
		t.Fatalf("expected isLoggedIn=false after logout")
	}

	// Logout twice: second call must leave the record identical.
	if err := store.SetLoggedIn(ctx, false); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	second, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load after second logout: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("logout not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if second.Balance != record.Balance || second.BusinessName != record.BusinessName {
		t.Fatalf("SetLoggedIn touched unrelated fields: %+v", second)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestFileStoreContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merchant.json")
	runStoreContract(t, NewFileStore(path))
}

func TestRedisStoreContract(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	runStoreContract(t, NewRedisStore(client))
}

func TestFileStoreMalformedIsNoAccount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merchant.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	store := NewFileStore(path)
	if _, err := store.Load(context.Background()); err != ErrNoAccount {
		t.Fatalf("expected ErrNoAccount for malformed record, got %v", err)
	}
}

func TestDecodeFillsMissingFields(t *testing.T) {
	// Older record shapes may lack transactions, currency and countryCode.
	data := []byte(`{"id":"MPOLD","businessName":"Acme","phone":"9998887777","balance":12,"isLoggedIn":true}`)

	record, err := decodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.Transactions == nil || len(record.Transactions) != 0 {
		t.Fatalf("expected empty transactions, got %#v", record.Transactions)
	}
	if record.Currency != "INR" {
		t.Fatalf("expected default currency INR, got %q", record.Currency)
	}
	if record.CountryCode != "+91" {
		t.Fatalf("expected default country code +91, got %q", record.CountryCode)
	}
}
