// redis.go
package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"secret.share/internal/models"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps one hash per secret. The immutable part of the record is
// gob encoded in the "record" field; "views" and "expired" are the mutable
// counters, only ever changed by compareAndUpdateScript.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(options *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

var createScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('HSET', KEYS[1], 'record', ARGV[1], 'views', ARGV[2], 'expired', ARGV[3])
	return 1
`)

func (r *RedisStore) Create(ctx context.Context, secret *models.Secret) error {
	data, err := encode(secret)
	if err != nil {
		return err
	}
	created, err := createScript.Run(ctx, r.client, []string{secretKey(secret.ID)},
		data, secret.ViewCount, flag(secret.IsExpired)).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return ErrExists
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*models.Secret, error) {
	fields, err := r.client.HGetAll(ctx, secretKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return fromFields(fields)
}

var compareAndUpdateScript = redis.NewScript(`
	local key = KEYS[1]
	if redis.call('EXISTS', key) == 0 then
		return -1
	end
	local views = tonumber(redis.call('HGET', key, 'views'))
	local expired = redis.call('HGET', key, 'expired')
	if views ~= tonumber(ARGV[1]) or expired == '1' then
		return 0
	end
	redis.call('HSET', key, 'views', ARGV[2], 'expired', ARGV[3])
	return 1
`)

func (r *RedisStore) CompareAndUpdate(ctx context.Context, id string, expectedViews int, next models.ViewState) error {
	res, err := compareAndUpdateScript.Run(ctx, r.client, []string{secretKey(id)},
		expectedViews, next.ViewCount, flag(next.IsExpired)).Int()
	if err != nil {
		return err
	}
	switch res {
	case -1:
		return ErrNotFound
	case 0:
		return ErrConflict
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]*models.Secret, error) {
	var out []*models.Secret
	iter := r.client.Scan(ctx, 0, secretKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		fields, err := r.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		secret, err := fromFields(fields)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", iter.Val(), err)
		}
		out = append(out, secret)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, secretKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Helpers

func secretKey(id string) string {
	return "secret:" + id
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func fromFields(fields map[string]string) (*models.Secret, error) {
	secret, err := decode([]byte(fields["record"]))
	if err != nil {
		return nil, err
	}
	views, err := strconv.Atoi(fields["views"])
	if err != nil {
		return nil, fmt.Errorf("invalid view count: %w", err)
	}
	secret.ViewCount = views
	secret.IsExpired = fields["expired"] == "1"
	return secret, nil
}

func encode(secret *models.Secret) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(secret); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*models.Secret, error) {
	if len(data) == 0 {
		return nil, errors.New("empty record")
	}
	var secret models.Secret
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&secret); err != nil {
		return nil, err
	}
	return &secret, nil
}
