package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultStateTTL = 12 * time.Hour

	liveKeyPrefix = "workoutlog-live||"
)

var ErrNoLiveSession = errors.New("no live workout")

var (
	_ StateStore = (*RedisStateStore)(nil)
	_ StateStore = (*MemoryStateStore)(nil)
)

// StateStore keeps the live session of each user between requests.
type StateStore interface {
	Load(ctx context.Context, userID int) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID int) error
}

func liveKey(userID int) string {
	return liveKeyPrefix + strconv.Itoa(userID)
}

type RedisStateStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisStateStore(redisClient *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (rs *RedisStateStore) Load(ctx context.Context, userID int) (*Session, error) {
	data, err := rs.redisClient.Get(ctx, liveKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoLiveSession
		}
		return nil, fmt.Errorf("get live session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal live session: %w", err)
	}
	if session.PersistedCounts == nil {
		session.PersistedCounts = map[string]int{}
	}
	return &session, nil
}

// Save refreshes the TTL on every write.
func (rs *RedisStateStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal live session: %w", err)
	}
	if err := rs.redisClient.Set(ctx, liveKey(session.UserID), data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("store live session: %w", err)
	}
	return nil
}

func (rs *RedisStateStore) Delete(ctx context.Context, userID int) error {
	deleted, err := rs.redisClient.Del(ctx, liveKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("delete live session: %w", err)
	}
	if deleted == 0 {
		return ErrNoLiveSession
	}
	return nil
}

// MemoryStateStore keeps sessions as JSON in process memory, so loaded sessions never alias stored ones.
type MemoryStateStore struct {
	mutex    sync.Mutex
	sessions map[int][]byte
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		sessions: make(map[int][]byte),
	}
}

func (ms *MemoryStateStore) Load(_ context.Context, userID int) (*Session, error) {
	ms.mutex.Lock()
	data, ok := ms.sessions[userID]
	ms.mutex.Unlock()
	if !ok {
		return nil, ErrNoLiveSession
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal live session: %w", err)
	}
	if session.PersistedCounts == nil {
		session.PersistedCounts = map[string]int{}
	}
	return &session, nil
}

func (ms *MemoryStateStore) Save(_ context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal live session: %w", err)
	}

	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.sessions[session.UserID] = data
	return nil
}

func (ms *MemoryStateStore) Delete(_ context.Context, userID int) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if _, ok := ms.sessions[userID]; !ok {
		return ErrNoLiveSession
	}
	delete(ms.sessions, userID)
	return nil
}
