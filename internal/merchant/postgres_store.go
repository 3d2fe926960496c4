package merchant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over a single-row table. The slot column is
// fixed at 1 so Save is a plain upsert and only one account can ever exist.
//
//	CREATE TABLE merchant_record (
//	    slot          smallint PRIMARY KEY CHECK (slot = 1),
//	    id            text NOT NULL,
//	    business_name text NOT NULL,
//	    email         text NOT NULL,
//	    country_code  text NOT NULL,
//	    phone         text NOT NULL,
//	    pin_hash      bytea NOT NULL,
//	    currency      text NOT NULL,
//	    balance       double precision NOT NULL,
//	    is_logged_in  boolean NOT NULL,
//	    transactions  jsonb NOT NULL DEFAULT '[]',
//	    created_at    timestamptz NOT NULL
//	);
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed merchant store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads the record, reporting ErrNoAccount when the row is missing or
// its history column fails to decode.
func (s *PostgresStore) Load(ctx context.Context) (Record, error) {
	row := s.db.QueryRow(ctx, `SELECT id, business_name, email, country_code, phone, pin_hash,
        currency, balance, is_logged_in, transactions, created_at
        FROM merchant_record WHERE slot = 1`)

	var (
		record    Record
		history   []byte
		createdAt time.Time
	)
	err := row.Scan(&record.ID, &record.BusinessName, &record.Email, &record.CountryCode,
		&record.Phone, &record.PINHash, &record.Currency, &record.Balance,
		&record.IsLoggedIn, &history, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNoAccount
	}
	if err != nil {
		return Record{}, fmt.Errorf("load record: %w", err)
	}

	if err := json.Unmarshal(history, &record.Transactions); err != nil {
		return Record{}, ErrNoAccount
	}
	record.CreatedAt = createdAt.UTC()
	return normalize(record), nil
}

// Save upserts the single row, overwriting any existing record.
func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	record = normalize(record)
	history, err := json.Marshal(record.Transactions)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}

	_, err = s.db.Exec(ctx, `INSERT INTO merchant_record
        (slot, id, business_name, email, country_code, phone, pin_hash, currency, balance, is_logged_in, transactions, created_at)
        VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (slot) DO UPDATE SET
            id = EXCLUDED.id,
            business_name = EXCLUDED.business_name,
            email = EXCLUDED.email,
            country_code = EXCLUDED.country_code,
            phone = EXCLUDED.phone,
            pin_hash = EXCLUDED.pin_hash,
            currency = EXCLUDED.currency,
            balance = EXCLUDED.balance,
            is_logged_in = EXCLUDED.is_logged_in,
            transactions = EXCLUDED.transactions,
            created_at = EXCLUDED.created_at`,
		record.ID, record.BusinessName, record.Email, record.CountryCode, record.Phone,
		record.PINHash, record.Currency, record.Balance, record.IsLoggedIn, history,
		record.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// SetLoggedIn flips only the session flag, leaving every other column intact.
func (s *PostgresStore) SetLoggedIn(ctx context.Context, loggedIn bool) error {
	cmd, err := s.db.Exec(ctx, `UPDATE merchant_record SET is_logged_in = $1 WHERE slot = 1`, loggedIn)
	if err != nil {
		return fmt.Errorf("update session flag: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNoAccount
	}
	return nil
}
