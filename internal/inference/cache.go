package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"lipsync/internal/logging"
)

const deviceLockRetry = 250 * time.Millisecond

// ErrClosed is returned by Infer after Close.
var ErrClosed = errors.New("inference: model cache closed")

// Cache owns the process-wide model handle.
type Cache struct {
	load   Loader
	logger *slog.Logger
	lock   *flock.Flock

	mu     sync.Mutex
	model  Model
	closed bool
	loads  int
}

// NewCache returns a cache that builds its model with load on first use.
// A non-empty lockPath serializes inference across processes.
func NewCache(load Loader, lockPath string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Cache{load: load, logger: logger}
	if lockPath = strings.TrimSpace(lockPath); lockPath != "" {
		c.lock = flock.New(lockPath)
	}
	return c
}

// Warm loads the model without running inference. A model already held is
// reused.
func (c *Cache) Warm(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.modelLocked(ctx)
	return err
}

// Infer runs one batch. Calls are serialized.
func (c *Cache) Infer(ctx context.Context, faces, mels Tensor) (Tensor, error) {
	if err := CheckShapes(faces, mels); err != nil {
		return Tensor{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	model, err := c.modelLocked(ctx)
	if err != nil {
		return Tensor{}, err
	}
	if c.lock != nil {
		if err := os.MkdirAll(filepath.Dir(c.lock.Path()), 0o755); err != nil {
			return Tensor{}, fmt.Errorf("device lock dir: %w", err)
		}
		locked, err := c.lock.TryLockContext(ctx, deviceLockRetry)
		if err != nil {
			return Tensor{}, fmt.Errorf("acquire device lock: %w", err)
		}
		if !locked {
			return Tensor{}, fmt.Errorf("acquire device lock %s: not acquired", c.lock.Path())
		}
		defer func() {
			if err := c.lock.Unlock(); err != nil {
				c.logger.Warn("failed to release device lock", logging.String("lock", c.lock.Path()), logging.Error(err))
			}
		}()
	}

	pred, err := model.Infer(ctx, faces, mels)
	if err != nil {
		return Tensor{}, err
	}
	if err := pred.Validate(); err != nil {
		return Tensor{}, fmt.Errorf("prediction: %w", err)
	}
	if pred.Batch() != faces.Batch() {
		return Tensor{}, fmt.Errorf("prediction batch %d, want %d", pred.Batch(), faces.Batch())
	}
	return pred, nil
}

func (c *Cache) modelLocked(ctx context.Context) (Model, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.model != nil {
		return c.model, nil
	}
	if c.load == nil {
		return nil, errors.New("inference: no model loader configured")
	}
	c.loads++
	started := time.Now()
	model, err := c.load(ctx)
	if err != nil {
		c.logger.Warn("model load failed; will retry on next job",
			logging.Int("attempt", c.loads),
			logging.Error(err),
		)
		return nil, fmt.Errorf("load model: %w", err)
	}
	c.model = model
	c.logger.Info("model loaded",
		logging.Int("attempt", c.loads),
		logging.Duration("elapsed", time.Since(started)),
	)
	return model, nil
}

// Close releases the model. Later Infer calls fail with ErrClosed.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	model := c.model
	c.model = nil
	if closer, ok := model.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
