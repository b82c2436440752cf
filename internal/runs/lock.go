package runs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"creatorsync/internal/config"
)

// Locker grants exclusive access to a run type. A false ok with a nil error
// means another holder owns the lock.
type Locker interface {
	Acquire(ctx context.Context, runType string, ttl time.Duration) (release func(), ok bool, err error)
}

// FileLocker takes advisory file locks under a directory, one file per run type.
type FileLocker struct {
	dir string
}

// NewFileLocker constructs a file locker rooted at dir.
func NewFileLocker(dir string) *FileLocker {
	return &FileLocker{dir: dir}
}

// Path returns the lock file used for runType.
func (l *FileLocker) Path(runType string) string {
	return filepath.Join(l.dir, runType+".lock")
}

// Acquire implements Locker. The ttl is ignored; the lock lives until released
// or the process exits.
func (l *FileLocker) Acquire(_ context.Context, runType string, _ time.Duration) (func(), bool, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(l.Path(runType))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { _ = lock.Unlock() }, true, nil
}

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLocker takes SET NX locks with a TTL so a crashed holder cannot block
// other hosts forever.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLocker returns a locker for the configured Redis server, or nil
// when no address is configured.
func NewRedisLocker(cfg config.Redis) *RedisLocker {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	return NewRedisLockerWithClient(client)
}

// NewRedisLockerWithClient wraps an existing client.
func NewRedisLockerWithClient(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, prefix: "creatorsync:run:"}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, runType string, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	key := l.prefix + runType
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire redis lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
	}
	return release, true, nil
}

// Close releases the Redis connection pool.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
