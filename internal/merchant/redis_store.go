package merchant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const recordKey = "merchant:record:v1"

type redisStore struct {
	client *redis.Client
}

// NewRedisStore builds a merchant store backed by a single Redis key.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Load(ctx context.Context) (Record, error) {
	data, err := s.client.Get(ctx, recordKey).Bytes()
	if err == redis.Nil {
		return Record{}, ErrNoAccount
	}
	if err != nil {
		return Record{}, fmt.Errorf("load record: %w", err)
	}
	return decodeRecord(data)
}

func (s *redisStore) Save(ctx context.Context, record Record) error {
	data, err := json.Marshal(normalize(record))
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.Set(ctx, recordKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (s *redisStore) SetLoggedIn(ctx context.Context, loggedIn bool) error {
	record, err := s.Load(ctx)
	if err != nil {
		return err
	}
	record.IsLoggedIn = loggedIn
	return s.Save(ctx, record)
}
