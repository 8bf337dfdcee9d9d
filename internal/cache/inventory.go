package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	EventListKey         = "events:all"
	LiveStreamListKey    = "live-streams:public"
	LiveStreamCurrentKey = "live-streams:current"
	TokenBlacklistPrefix = "blacklist:%s"
	EditorSessionPrefix  = "editor:session:%s"
)

const (
	UserTTL       = 5 * time.Minute
	EventListTTL  = 30 * time.Second
	StreamListTTL = 10 * time.Second

	// EditorSessionTTL bounds how long an idle editor session survives.
	EditorSessionTTL = 2 * time.Hour
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func TokenBlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistPrefix, jti)
}

func EditorSessionKey(id string) string {
	return fmt.Sprintf(EditorSessionPrefix, id)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateEvents(ctx context.Context) {
	Invalidate(ctx, EventListKey)
}

func InvalidateLiveStreams(ctx context.Context) {
	Invalidate(ctx, LiveStreamListKey, LiveStreamCurrentKey)
}

// BlacklistToken revokes a token id until its natural expiry.
func BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil || jti == "" || ttl <= 0 {
		return nil
	}
	return client.Set(ctx, TokenBlacklistKey(jti), "1", ttl).Err()
}

// IsTokenBlacklisted reports whether the token id was revoked.
func IsTokenBlacklisted(ctx context.Context, jti string) bool {
	if client == nil || jti == "" {
		return false
	}
	n, err := client.Exists(ctx, TokenBlacklistKey(jti)).Result()
	return err == nil && n > 0
}
