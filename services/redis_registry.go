package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"resume-graph-service/models"
	"resume-graph-service/utils"
)

const (
	redisSessionPrefix = "resume:session:"
	redisLatestKey     = "resume:latest"
	redisSessionsIndex = "resume:sessions"
)

// setTextScript attaches text only when the session hash still exists.
var setTextScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'text', ARGV[1])
return 1
`)

// markLatestScript points the latest key at an existing session. With a TTL the pointer
// expires together with the session it names.
var markLatestScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
  redis.call('SET', KEYS[2], ARGV[1], 'PX', ttl)
else
  redis.call('SET', KEYS[2], ARGV[1])
end
return 1
`)

// RedisSessionRegistry shares sessions between the API and worker processes. Each
// session is a hash holding the brotli-compressed upload, the extracted text and the
// creation time; a sorted set orders sessions for capacity eviction.
type RedisSessionRegistry struct {
	client    *redis.Client
	retention RetentionOptions
}

func NewRedisSessionRegistry(client *redis.Client, retention RetentionOptions) *RedisSessionRegistry {
	return &RedisSessionRegistry{client: client, retention: retention}
}

func sessionKey(id string) string { return redisSessionPrefix + id }

func (r *RedisSessionRegistry) Create(ctx context.Context, raw []byte) (string, error) {
	id := uuid.NewString()
	blob, algo, err := utils.CompressBlob(raw)
	if err != nil {
		return "", fmt.Errorf("compress upload: %w", err)
	}
	created := time.Now().UTC()
	key := sessionKey(id)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"raw", blob,
			"compression", string(algo),
			"created_at", created.UnixNano(),
		)
		if r.retention.TTL > 0 {
			pipe.PExpire(ctx, key, r.retention.TTL)
		}
		pipe.ZAdd(ctx, redisSessionsIndex, redis.Z{Score: float64(created.UnixNano()), Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("register session: %w", err)
	}

	if err := r.evictOverCapacity(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *RedisSessionRegistry) SetExtractedText(ctx context.Context, id, text string) error {
	ok, err := setTextScript.Run(ctx, r.client, []string{sessionKey(id)}, text).Int()
	if err != nil {
		return fmt.Errorf("set extracted text: %w", err)
	}
	if ok == 0 {
		return ErrUnknownSession
	}
	return nil
}

func (r *RedisSessionRegistry) MarkLatest(ctx context.Context, id string) error {
	ok, err := markLatestScript.Run(ctx, r.client, []string{sessionKey(id), redisLatestKey}, id).Int()
	if err != nil {
		return fmt.Errorf("mark latest: %w", err)
	}
	if ok == 0 {
		return ErrUnknownSession
	}
	return nil
}

func (r *RedisSessionRegistry) Latest(ctx context.Context) (string, error) {
	id, err := r.client.Get(ctx, redisLatestKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("read latest session: %w", err)
	}
	return id, nil
}

func (r *RedisSessionRegistry) ExtractedText(ctx context.Context, id string) (string, error) {
	vals, err := r.client.HMGet(ctx, sessionKey(id), "text", "created_at").Result()
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if vals[1] == nil {
		return "", ErrUnknownSession
	}
	text, ok := vals[0].(string)
	if !ok {
		return "", ErrTextNotReady
	}
	return text, nil
}

func (r *RedisSessionRegistry) Get(ctx context.Context, id string) (*models.Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrUnknownSession
	}

	raw, err := utils.DecompressData([]byte(fields["raw"]), utils.CompressionAlgorithm(fields["compression"]))
	if err != nil {
		return nil, fmt.Errorf("decompress upload: %w", err)
	}
	nanos, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	text, hasText := fields["text"]

	return &models.Session{
		ID:        id,
		Raw:       raw,
		Text:      text,
		HasText:   hasText,
		CreatedAt: time.Unix(0, nanos).UTC(),
	}, nil
}

// SweepExpired drops index entries whose session hash already expired and returns how
// many were removed.
func (r *RedisSessionRegistry) SweepExpired(ctx context.Context) (int, error) {
	ids, err := r.client.ZRange(ctx, redisSessionsIndex, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	pipe := r.client.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("check sessions: %w", err)
	}

	var stale []interface{}
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := r.client.ZRem(ctx, redisSessionsIndex, stale...).Err(); err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return len(stale), nil
}

func (r *RedisSessionRegistry) Close() error {
	return r.client.Close()
}

// evictOverCapacity deletes the oldest sessions other than keep and the latest until
// the index fits MaxCount.
func (r *RedisSessionRegistry) evictOverCapacity(ctx context.Context, keep string) error {
	if r.retention.MaxCount <= 0 {
		return nil
	}
	count, err := r.client.ZCard(ctx, redisSessionsIndex).Result()
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	excess := int(count) - r.retention.MaxCount
	if excess <= 0 {
		return nil
	}

	latest, err := r.client.Get(ctx, redisLatestKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read latest session: %w", err)
	}

	// Two extra candidates cover skipping keep and latest.
	candidates, err := r.client.ZRange(ctx, redisSessionsIndex, 0, int64(excess+1)).Result()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	var victims []string
	for _, id := range candidates {
		if len(victims) == excess {
			break
		}
		if id == keep || id == latest {
			continue
		}
		victims = append(victims, id)
	}
	if len(victims) == 0 {
		return nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members := make([]interface{}, len(victims))
		for i, id := range victims {
			pipe.Del(ctx, sessionKey(id))
			members[i] = id
		}
		pipe.ZRem(ctx, redisSessionsIndex, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("evict sessions: %w", err)
	}
	return nil
}
