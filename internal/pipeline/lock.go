package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"aniportrait/internal/logging"
)

const (
	lockFileName   = "aniportrait.lock"
	lockRetryDelay = 500 * time.Millisecond
)

// acquireLock blocks until the request lock in dir is held or ctx ends.
// Requests sharing a work directory share one GPU, so they run one at a time.
func acquireLock(ctx context.Context, dir string, logger *slog.Logger) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire request lock: %w", err)
	}
	if !ok {
		logger.Info("waiting for another request to finish",
			logging.String(logging.FieldEventType, "lock_wait"),
			logging.String("lock_file", lock.Path()),
		)
		ok, err = lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("wait for request lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("request lock %s unavailable", lock.Path())
		}
	}
	return func() { _ = lock.Unlock() }, nil
}
