package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOTPStore keeps email verification codes in Redis so they expire
// on their own and survive process restarts.
type RedisOTPStore struct {
	client *redis.Client
}

// NewRedisOTPStore creates a RedisOTPStore.
func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func otpKey(email string) string {
	return fmt.Sprintf("otp:verify:%s", email)
}

// Set stores a verification code with the given TTL, replacing any
// previous code for the address.
func (s *RedisOTPStore) Set(ctx context.Context, email, code string, ttl time.Duration) error {
	return s.client.Set(ctx, otpKey(email), code, ttl).Err()
}

// Get returns the current code for the address, or empty when none is
// outstanding.
func (s *RedisOTPStore) Get(ctx context.Context, email string) (string, error) {
	code, err := s.client.Get(ctx, otpKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return code, err
}

// Delete removes the code after a successful verification.
func (s *RedisOTPStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, otpKey(email)).Err()
}
