package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDepthGauge publishes this process's queue depth/in-flight counts to a
// shared Redis hash, so a fleet of bridge processes pointed at the same
// terminal can observe aggregate backpressure without a shared in-process
// Queue. It implements Metrics, so it can be used as a standalone
// replacement for the local Prometheus adapter, or composed alongside it.
type RedisDepthGauge struct {
	client   *redis.Client
	key      string
	field    string
	ttl      time.Duration
	rejected string
	coalesced string
}

// RedisDepthGaugeOptions configures a RedisDepthGauge.
type RedisDepthGaugeOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// Key namespaces the shared hash; Field disambiguates this process's
	// counters within it (e.g. a hostname or pid), since multiple bridge
	// processes write to the same key.
	Key   string
	Field string
	TTL   time.Duration
}

// NewRedisDepthGauge dials Redis and verifies connectivity with a bounded
// ping, following the teacher's pkg/cache.NewRedisCache shape.
func NewRedisDepthGauge(opts RedisDepthGaugeOptions) (*RedisDepthGauge, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	field := opts.Field
	if field == "" {
		field = "default"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("queue: redis ping failed: %w", err)
	}

	return &RedisDepthGauge{
		client:    client,
		key:       opts.Key,
		field:     field,
		ttl:       ttl,
		rejected:  opts.Key + ":rejected_total",
		coalesced: opts.Key + ":coalesced_total",
	}, nil
}

// SetQueueDepth writes this process's current (queued, in_flight) pair into
// the shared hash under its own field, best-effort: a publish failure never
// blocks or fails the caller's Submit.
func (g *RedisDepthGauge) SetQueueDepth(queued, inFlight int) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pipe := g.client.Pipeline()
	pipe.HSet(ctx, g.key, g.field, fmt.Sprintf("%d:%d", queued, inFlight))
	pipe.Expire(ctx, g.key, g.ttl)
	pipe.Exec(ctx)
}

// IncRejected increments the fleet-wide rejected-submission counter.
func (g *RedisDepthGauge) IncRejected() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	g.client.Incr(ctx, g.rejected)
}

// IncCoalesced increments the fleet-wide coalesced-submission counter.
func (g *RedisDepthGauge) IncCoalesced() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	g.client.Incr(ctx, g.coalesced)
}

// Close releases the underlying Redis connection pool.
func (g *RedisDepthGauge) Close() error {
	return g.client.Close()
}
