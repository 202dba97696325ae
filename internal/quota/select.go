package quota

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Config holds the remote store settings. An empty Addr selects the
// in-process variant.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

const pingTimeout = 2 * time.Second

// New selects a Store once at startup. When a remote address is configured it
// is tried first; any failure to reach it logs a warning and falls back to
// the in-process store instead of crashing.
func New(ctx context.Context, cfg Config) Store {
	if cfg.Addr == "" {
		return NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if errPing := client.Ping(ctxPing).Err(); errPing != nil {
		_ = client.Close()
		log.WithError(errPing).Warn("quota: redis unavailable, using in-process store")
		return NewMemoryStore()
	}
	log.WithField("addr", cfg.Addr).Info("quota: using redis store")
	return NewRedisStore(client, cfg.Prefix)
}
