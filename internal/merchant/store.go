package merchant

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoAccount indicates no usable merchant record exists. Absent and
// malformed records are deliberately indistinguishable: callers route to the
// registration/login entry point either way.
var ErrNoAccount = errors.New("no merchant account")

// Store persists the single merchant record. Save overwrites whatever is
// there; only one account exists per storage scope.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, record Record) error
	SetLoggedIn(ctx context.Context, loggedIn bool) error
}

// decodeRecord parses a serialized record, mapping any decode failure to
// ErrNoAccount and filling defaults for fields older shapes may omit.
func decodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, ErrNoAccount
	}
	return normalize(r), nil
}
