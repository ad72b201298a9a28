package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/workoutlog/pkg"
)

const (
	sessionKeyPrefix      = "workoutlog-session||"
	userSessionsKeyPrefix = "workoutlog-user-sessions||"
	// revokedSessionsChannel carries revoked tokens so every instance drops them from its cache.
	revokedSessionsChannel = "workoutlog-sessions-revoked"

	cacheSizeBytes = 2 * 1024 * 1024
)

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func userSessionsKey(userID int) string {
	return userSessionsKeyPrefix + strconv.Itoa(userID)
}

// Service keeps sessions in redis: token -> user id (with TTL), and a set of tokens per user.
// Resolved tokens are cached locally for cacheTTL.
type Service struct {
	redisClient *redis.Client
	ttl         time.Duration
	cache       *freecache.Cache
	cacheTTL    time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewAuthService(
	ttl time.Duration,
	cacheTTL time.Duration,
	redisClient *redis.Client,
) *Service {
	s := &Service{
		ttl:            ttl,
		cacheTTL:       cacheTTL,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
	if cacheTTL >= time.Second {
		s.cache = freecache.NewCache(cacheSizeBytes)
	}
	return s
}

func (as *Service) CreateSession(ctx context.Context, userID int) (string, error) {
	token, err := as.RandStringFunc(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	if err := as.redisClient.Set(ctx, sessionKey(token), userID, as.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	// add token to the user's set of sessions
	userKey := userSessionsKey(userID)
	if err := as.redisClient.SAdd(ctx, userKey, token).Err(); err != nil {
		return "", fmt.Errorf("add user session: %w", err)
	}
	if err := as.redisClient.Expire(ctx, userKey, as.ttl).Err(); err != nil {
		return "", fmt.Errorf("expire user sessions: %w", err)
	}

	return token, nil
}

func (as *Service) ResolveSession(ctx context.Context, token string) (int, error) {
	if token == "" {
		return 0, ErrSessionNotFound
	}

	if as.cache != nil {
		if cached, err := as.cache.Get([]byte(token)); err == nil {
			if userID, err := strconv.Atoi(string(cached)); err == nil {
				return userID, nil
			}
		}
	}

	val, err := as.redisClient.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}

	userID, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse session user id: %w", err)
	}

	if as.cache != nil {
		if err := as.cache.Set([]byte(token), []byte(val), int(as.cacheTTL.Seconds())); err != nil {
			log.Warnf("auth service, cache session: %s", err)
		}
	}

	return userID, nil
}

func (as *Service) DeleteSession(ctx context.Context, token string) error {
	if as.cache != nil {
		as.cache.Del([]byte(token))
	}

	val, err := as.redisClient.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		return err
	}

	if err := as.redisClient.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	userID, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("parse session user id: %w", err)
	}
	if err := as.redisClient.SRem(ctx, userSessionsKey(userID), token).Err(); err != nil {
		return fmt.Errorf("remove user session: %w", err)
	}

	as.publishRevoked(ctx, token)
	return nil
}

func (as *Service) DeleteUserSessions(ctx context.Context, userID int) error {
	userKey := userSessionsKey(userID)
	tokens, err := as.redisClient.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("get user sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKey(token))
		if as.cache != nil {
			as.cache.Del([]byte(token))
		}
	}
	keys = append(keys, userKey)

	if err := as.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}

	as.publishRevoked(ctx, tokens...)
	return nil
}

func (as *Service) publishRevoked(ctx context.Context, tokens ...string) {
	if as.cache == nil {
		return
	}
	for _, token := range tokens {
		if err := as.redisClient.Publish(ctx, revokedSessionsChannel, token).Err(); err != nil {
			log.Warnf("auth service, publish revoked session: %s", err)
		}
	}
}

// EvictRevokedSessions drops tokens revoked by any instance from the local cache, until ctx is done.
// Without it, a revoked token keeps resolving here for up to cacheTTL.
func (as *Service) EvictRevokedSessions(ctx context.Context) {
	if as.cache == nil {
		return
	}

	pubsub := as.redisClient.Subscribe(ctx, revokedSessionsChannel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			log.Warnf("auth service, close revoked sessions subscription: %s", err)
		}
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.Errorf("auth service, subscribe to revoked sessions: %s", err)
		return
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			as.cache.Del([]byte(msg.Payload))
		}
	}
}

// ScanAndClean will run through all per-user session sets and drop tokens whose sessions already expired.
func (as *Service) ScanAndClean(ctx context.Context) {
	var cursor uint64
	cleaned := 0
	for {
		userKeys, nextCursor, err := as.redisClient.Scan(ctx, cursor, userSessionsKeyPrefix+"*", 100).Result()
		if err != nil {
			log.Errorf("!!! auth service, scan and clean, scan user sessions: %s", err)
			return
		}

		for _, userKey := range userKeys {
			cleaned += as.cleanUserSessions(ctx, userKey)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	log.Debugf("=> auth service, scan and clean done, [%d] stale tokens removed", cleaned)
}

func (as *Service) cleanUserSessions(ctx context.Context, userKey string) int {
	tokens, err := as.redisClient.SMembers(ctx, userKey).Result()
	if err != nil {
		log.Errorf("=> auth service, scan and clean %s: %s", userKey, err)
		return 0
	}

	cleaned := 0
	for _, token := range tokens {
		exists, err := as.redisClient.Exists(ctx, sessionKey(token)).Result()
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}
		if exists > 0 {
			continue
		}

		if err := as.redisClient.SRem(ctx, userKey, token).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}
		cleaned++
	}

	return cleaned
}
