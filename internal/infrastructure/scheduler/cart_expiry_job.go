package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned when the job configuration cannot run
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// AbandonRecorder is told how many carts each sweep abandoned
type AbandonRecorder interface {
	CartsAbandoned(ctx context.Context, n int64)
}

// CartExpiryJob periodically moves active carts past their expiry to
// abandoned. Each sweep works in batches until a batch comes back short.
type CartExpiryJob struct {
	repo     cart.Repository
	recorder AbandonRecorder
	logger   *zap.Logger
	config   config.SchedulerConfig
	now      func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// CartExpiryJobOption configures a CartExpiryJob
type CartExpiryJobOption func(*CartExpiryJob)

// WithAbandonRecorder reports sweep results, typically to CommerceMetrics
func WithAbandonRecorder(recorder AbandonRecorder) CartExpiryJobOption {
	return func(j *CartExpiryJob) {
		j.recorder = recorder
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) CartExpiryJobOption {
	return func(j *CartExpiryJob) {
		j.now = now
	}
}

// NewCartExpiryJob creates the job. It does nothing until Start.
func NewCartExpiryJob(repo cart.Repository, logger *zap.Logger, cfg config.SchedulerConfig, opts ...CartExpiryJobOption) (*CartExpiryJob, error) {
	if cfg.Enabled && (cfg.CartSweepInterval <= 0 || cfg.CartSweepBatchSize <= 0) {
		return nil, fmt.Errorf("%w: cart sweep interval and batch size must be positive", ErrInvalidConfig)
	}
	j := &CartExpiryJob{
		repo:   repo,
		logger: logger.Named("cart_expiry"),
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Start launches the sweep loop. A disabled job logs and returns.
func (j *CartExpiryJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isRunning {
		return nil
	}
	if !j.config.Enabled {
		j.logger.Info("Cart expiry job is disabled")
		return nil
	}
	j.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	j.wg.Add(1)
	go j.run(ctx)

	j.logger.Info("Cart expiry job started",
		zap.Duration("interval", j.config.CartSweepInterval),
		zap.Int("batch_size", j.config.CartSweepBatchSize),
	)
	return nil
}

// Stop cancels the loop and waits for the current sweep until ctx ends
func (j *CartExpiryJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = false
	j.cancel()
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("Cart expiry job stopped gracefully")
		return nil
	case <-ctx.Done():
		j.logger.Warn("Cart expiry job stop timed out")
		return ctx.Err()
	}
}

func (j *CartExpiryJob) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.config.CartSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				j.logger.Error("Cart expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep abandons every cart that has expired as of now, one batch at a
// time, and returns the total changed
func (j *CartExpiryJob) Sweep(ctx context.Context) (int64, error) {
	if j.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.JobTimeout)
		defer cancel()
	}

	batch := j.config.CartSweepBatchSize
	if batch <= 0 {
		batch = 500
	}
	now := j.now().UTC()

	var total int64
	for {
		n, err := j.repo.AbandonExpired(ctx, now, batch)
		total += n
		if err != nil {
			j.record(ctx, total)
			return total, fmt.Errorf("abandon expired carts: %w", err)
		}
		if n < int64(batch) {
			break
		}
	}

	j.record(ctx, total)
	if total > 0 {
		j.logger.Info("Expired carts abandoned", zap.Int64("count", total))
	}
	return total, nil
}

func (j *CartExpiryJob) record(ctx context.Context, n int64) {
	if j.recorder != nil && n > 0 {
		j.recorder.CartsAbandoned(ctx, n)
	}
}
