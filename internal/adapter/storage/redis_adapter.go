package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

const (
	authorityKeyPrefix = "authority:"
	authoritySetKey    = "authorities"
	requestChannel     = "lootsheet:requests"
	idempotencyKeyTTL  = 24 * time.Hour
)

// activeAuthoritiesScript returns the presence records of every registered
// authority whose heartbeat has not expired, and forgets the rest.
var activeAuthoritiesScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
local out = {}

for _, id in ipairs(ids) do
	local record = redis.call('GET', ARGV[1] .. id)
	if record then
		table.insert(out, record)
	else
		redis.call('SREM', KEYS[1], id)
	end
end

return out
`)

type RedisAdapter struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisAdapter(client *redis.Client, logger *zap.Logger) *RedisAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisAdapter{client: client, logger: logger}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// Heartbeat announces a as active for ttl.
func (r *RedisAdapter) Heartbeat(ctx context.Context, a domain.Authority, ttl time.Duration) error {
	record, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode authority: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, authorityKeyPrefix+a.UserID, record, ttl)
	pipe.SAdd(ctx, authoritySetKey, a.UserID)
	_, err = pipe.Exec(ctx)
	return err
}

// Withdraw removes an authority's presence immediately.
func (r *RedisAdapter) Withdraw(ctx context.Context, userID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, authorityKeyPrefix+userID)
	pipe.SRem(ctx, authoritySetKey, userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisAdapter) ActiveAuthorities(ctx context.Context) ([]domain.Authority, error) {
	records, err := activeAuthoritiesScript.Run(ctx, r.client, []string{authoritySetKey}, authorityKeyPrefix).StringSlice()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Authority, 0, len(records))
	for _, rec := range records {
		var a domain.Authority
		if err := json.Unmarshal([]byte(rec), &a); err != nil {
			r.logger.Warn("skipping malformed presence record", zap.String("record", rec), zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *RedisAdapter) Publish(ctx context.Context, req domain.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return r.client.Publish(ctx, requestChannel, payload).Err()
}

// Subscribe forwards published requests to out until ctx is cancelled.
// Messages that do not decode are dropped.
func (r *RedisAdapter) Subscribe(ctx context.Context, out chan<- domain.Request) error {
	sub := r.client.Subscribe(ctx, requestChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", requestChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var req domain.Request
			if err := json.Unmarshal([]byte(msg.Payload), &req); err != nil {
				r.logger.Warn("dropping malformed request", zap.Error(err))
				continue
			}
			select {
			case out <- req:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
