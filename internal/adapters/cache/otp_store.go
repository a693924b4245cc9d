// Package cache stores short-lived data in Redis.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/floroz/bidout/internal/domain/notifications"
)

const (
	otpKeyPrefix = "otp:"

	// expiredOTPRetention keeps an expired code around so a late attempt
	// is reported as expired rather than incorrect.
	expiredOTPRetention = 24 * time.Hour
)

// RedisOTPStore implements notifications.OTPStore as one hash per user.
type RedisOTPStore struct {
	client redis.UniversalClient
}

func NewRedisOTPStore(client redis.UniversalClient) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func otpKey(userID uuid.UUID) string {
	return otpKeyPrefix + userID.String()
}

func (s *RedisOTPStore) Save(ctx context.Context, userID uuid.UUID, otp notifications.OTP) error {
	key := otpKey(userID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "code", otp.Code, "expires_at", otp.ExpiresAt.UnixMilli())
		pipe.ExpireAt(ctx, key, otp.ExpiresAt.Add(expiredOTPRetention))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Get(ctx context.Context, userID uuid.UUID) (*notifications.OTP, error) {
	fields, err := s.client.HGetAll(ctx, otpKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt otp expiry for user %s: %w", userID, err)
	}
	return &notifications.OTP{Code: fields["code"], ExpiresAt: time.UnixMilli(expiresAt)}, nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, otpKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}
