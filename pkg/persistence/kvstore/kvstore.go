package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Store is the durable keyed record store backing conversation logs and the
// current identity. Values are opaque byte slices; callers own the encoding.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Settings selects and configures a Store backend.
type Settings struct {
	Backend        string `glazed:"store-backend"`
	Path           string `glazed:"store-path"`
	DSN            string `glazed:"store-dsn"`
	RedisAddr      string `glazed:"store-redis-addr"`
	RedisDB        int    `glazed:"store-redis-db"`
	RedisNamespace string `glazed:"store-redis-namespace"`
}

// Open builds the Store described by settings.
func Open(settings Settings) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Backend)) {
	case "", BackendMemory:
		return NewInMemoryStore(), nil
	case BackendSQLite:
		dsn := strings.TrimSpace(settings.DSN)
		if dsn == "" {
			path := strings.TrimSpace(settings.Path)
			if dir := filepath.Dir(path); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, errors.Wrap(err, "create sqlite store dir")
				}
			}
			var err error
			dsn, err = SQLiteDSNForFile(path)
			if err != nil {
				return nil, err
			}
		}
		return NewSQLiteStore(dsn)
	case BackendRedis:
		return NewRedisStore(RedisOptions{
			Addr:      settings.RedisAddr,
			DB:        settings.RedisDB,
			Namespace: settings.RedisNamespace,
		})
	default:
		return nil, errors.Errorf("unknown store backend %q", settings.Backend)
	}
}

func validateKey(prefix string, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New(prefix + ": key is empty")
	}
	return nil
}
