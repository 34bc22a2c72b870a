package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dss:session:"

// RedisStore keeps sessions in Redis as JSON with a TTL, so several server
// instances can share visitor state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// DialRedis parses a redis:// URL and verifies the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type observationJSON struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type sessionJSON struct {
	ID           string            `json:"id"`
	WellID       string            `json:"well_id"`
	Observations []observationJSON `json:"observations"`
	FetchedAt    time.Time         `json:"fetched_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sj sessionJSON
	if err := json.Unmarshal(raw, &sj); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	obs := make([]domain.Observation, len(sj.Observations))
	for i, o := range sj.Observations {
		d, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			return nil, fmt.Errorf("decode session %s: %w", id, err)
		}
		obs[i] = domain.Observation{Date: d, Value: o.Value}
	}
	return &Session{
		ID:        sj.ID,
		WellID:    sj.WellID,
		Series:    domain.NewTimeSeries(obs),
		FetchedAt: sj.FetchedAt,
		ExpiresAt: sj.ExpiresAt,
	}, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	sj := sessionJSON{
		ID:        s.ID,
		WellID:    s.WellID,
		FetchedAt: s.FetchedAt,
		ExpiresAt: s.ExpiresAt,
	}
	for _, o := range s.Series.Observations() {
		sj.Observations = append(sj.Observations, observationJSON{
			Date:  o.Date.Format(time.DateOnly),
			Value: o.Value,
		})
	}
	raw, err := json.Marshal(sj)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+s.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
