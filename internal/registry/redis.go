package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const callKeyPrefix = "astra_active_call:"

// defaultCallTTL bounds how long a registered call can linger in Redis.
// There is no explicit deletion API, so records expire instead.
const defaultCallTTL = 4 * time.Hour

// RedisConfig holds connection settings for the Redis-backed store.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisStore implements Store on Redis so call mappings survive a restart
// and can be shared across pods.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config *RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    defaultCallTTL,
	}, nil
}

func callKey(sessionID string) string {
	return callKeyPrefix + sessionID
}

// Register inserts or overwrites the record for sessionID.
func (s *RedisStore) Register(ctx context.Context, sessionID, carrierCallSID, callerNumber, joinURL string) error {
	record := CallRecord{
		SessionID:      sessionID,
		CarrierCallSID: carrierCallSID,
		CallerNumber:   callerNumber,
		StartTime:      time.Now(),
		JoinURL:        joinURL,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, callKey(sessionID), data, s.ttl).Err()
}

// Get looks up the record for sessionID.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (CallRecord, error) {
	data, err := s.client.Get(ctx, callKey(sessionID)).Result()
	if err == redis.Nil {
		return CallRecord{}, ErrCallNotFound
	}
	if err != nil {
		return CallRecord{}, err
	}

	var record CallRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return CallRecord{}, err
	}
	return record, nil
}

// ListAll scans the call keyspace and returns every registered call.
func (s *RedisStore) ListAll(ctx context.Context) ([]CallRecord, error) {
	var records []CallRecord
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, callKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err == redis.Nil {
				continue // expired between scan and get
			}
			if err != nil {
				return nil, err
			}

			var record CallRecord
			if err := json.Unmarshal([]byte(data), &record); err != nil {
				return nil, err
			}
			records = append(records, record)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return records, nil
}
