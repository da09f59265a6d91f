package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// OTPStore keeps pending one-time codes with a time to live.
type OTPStore interface {
	Save(ctx context.Context, record *domain.OTPRecord, ttl time.Duration) error
	// Load returns ErrNotFound when no live code exists for contact.
	Load(ctx context.Context, contact string) (*domain.OTPRecord, error)
	IncrementAttempts(ctx context.Context, contact string) (int, error)
	// Consume removes the code and reports whether this caller removed it.
	// Of several concurrent callers exactly one sees true.
	Consume(ctx context.Context, contact string) (bool, error)
	Delete(ctx context.Context, contact string) error
}

// otpCommands is the subset of redis.Cmdable used by the OTP store.
type otpCommands interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisOTPStore struct {
	client otpCommands
	prefix string
}

// NewRedisOTPStore returns a store keeping each code in a Redis hash.
func NewRedisOTPStore(client otpCommands) OTPStore {
	return &redisOTPStore{client: client, prefix: "otp:"}
}

func (s *redisOTPStore) key(contact string) string {
	return s.prefix + contact
}

func (s *redisOTPStore) Save(ctx context.Context, record *domain.OTPRecord, ttl time.Duration) error {
	key := s.key(record.Contact)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, key,
		"hash", record.CodeHash,
		"attempts", 0,
		"expires_at", record.ExpiresAt.UTC().Format(time.RFC3339Nano),
	).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *redisOTPStore) Load(ctx context.Context, contact string) (*domain.OTPRecord, error) {
	values, err := s.client.HGetAll(ctx, s.key(contact)).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || values["hash"] == "" {
		return nil, &domain.NotFoundError{Resource: "otp", ID: contact}
	}
	attempts, err := strconv.Atoi(values["attempts"])
	if err != nil {
		return nil, fmt.Errorf("decode otp attempts: %w", err)
	}
	record := &domain.OTPRecord{Contact: contact, CodeHash: values["hash"], Attempts: attempts}
	if raw := values["expires_at"]; raw != "" {
		if record.ExpiresAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, fmt.Errorf("decode otp expiry: %w", err)
		}
	}
	return record, nil
}

func (s *redisOTPStore) IncrementAttempts(ctx context.Context, contact string) (int, error) {
	n, err := s.client.HIncrBy(ctx, s.key(contact), "attempts", 1).Result()
	return int(n), err
}

func (s *redisOTPStore) Consume(ctx context.Context, contact string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(contact)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *redisOTPStore) Delete(ctx context.Context, contact string) error {
	return s.client.Del(ctx, s.key(contact)).Err()
}
