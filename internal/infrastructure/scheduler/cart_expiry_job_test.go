package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) FindActive(ctx context.Context, identity cart.Identity) (*cart.Cart, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) CreateIfAbsent(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCartRepository) AbandonExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).(int64), args.Error(1)
}

type countingRecorder struct {
	total atomic.Int64
}

func (r *countingRecorder) CartsAbandoned(_ context.Context, n int64) {
	r.total.Add(n)
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:            true,
		CartSweepInterval:  time.Hour,
		CartSweepBatchSize: 100,
		JobTimeout:         time.Minute,
	}
}

func TestNewCartExpiryJob_InvalidConfig(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.CartSweepInterval = 0

	_, err := NewCartExpiryJob(new(MockCartRepository), zap.NewNop(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.Enabled = false
	_, err = NewCartExpiryJob(new(MockCartRepository), zap.NewNop(), cfg)
	assert.NoError(t, err)
}

func TestCartExpiryJob_Sweep(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("drains full batches", func(t *testing.T) {
		repo := new(MockCartRepository)
		repo.On("AbandonExpired", mock.Anything, fixed, 100).Return(int64(100), nil).Twice()
		repo.On("AbandonExpired", mock.Anything, fixed, 100).Return(int64(37), nil).Once()
		recorder := &countingRecorder{}

		job, err := NewCartExpiryJob(repo, zap.NewNop(), testSchedulerConfig(),
			WithAbandonRecorder(recorder),
			WithClock(func() time.Time { return fixed }))
		require.NoError(t, err)

		n, err := job.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(237), n)
		assert.Equal(t, int64(237), recorder.total.Load())
		repo.AssertExpectations(t)
	})

	t.Run("nothing expired", func(t *testing.T) {
		repo := new(MockCartRepository)
		repo.On("AbandonExpired", mock.Anything, fixed, 100).Return(int64(0), nil).Once()
		recorder := &countingRecorder{}

		job, err := NewCartExpiryJob(repo, zap.NewNop(), testSchedulerConfig(),
			WithAbandonRecorder(recorder),
			WithClock(func() time.Time { return fixed }))
		require.NoError(t, err)

		n, err := job.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, recorder.total.Load())
	})

	t.Run("repository error keeps partial count", func(t *testing.T) {
		repo := new(MockCartRepository)
		repo.On("AbandonExpired", mock.Anything, fixed, 100).Return(int64(100), nil).Once()
		repo.On("AbandonExpired", mock.Anything, fixed, 100).Return(int64(0), errors.New("connection reset")).Once()
		recorder := &countingRecorder{}

		job, err := NewCartExpiryJob(repo, zap.NewNop(), testSchedulerConfig(),
			WithAbandonRecorder(recorder),
			WithClock(func() time.Time { return fixed }))
		require.NoError(t, err)

		n, err := job.Sweep(context.Background())
		assert.Error(t, err)
		assert.Equal(t, int64(100), n)
		assert.Equal(t, int64(100), recorder.total.Load())
	})
}

func TestCartExpiryJob_StartStop(t *testing.T) {
	repo := new(MockCartRepository)
	swept := make(chan struct{}, 1)
	repo.On("AbandonExpired", mock.Anything, mock.Anything, 100).
		Run(func(mock.Arguments) {
			select {
			case swept <- struct{}{}:
			default:
			}
		}).
		Return(int64(0), nil)

	cfg := testSchedulerConfig()
	cfg.CartSweepInterval = 10 * time.Millisecond
	job, err := NewCartExpiryJob(repo, zap.NewNop(), cfg)
	require.NoError(t, err)

	require.NoError(t, job.Start(context.Background()))
	require.NoError(t, job.Start(context.Background()))

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep never ran")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, job.Stop(stopCtx))
	assert.NoError(t, job.Stop(stopCtx))
}

func TestCartExpiryJob_DisabledDoesNotRun(t *testing.T) {
	repo := new(MockCartRepository)
	cfg := testSchedulerConfig()
	cfg.Enabled = false

	job, err := NewCartExpiryJob(repo, zap.NewNop(), cfg)
	require.NoError(t, err)
	require.NoError(t, job.Start(context.Background()))
	require.NoError(t, job.Stop(context.Background()))

	repo.AssertNotCalled(t, "AbandonExpired", mock.Anything, mock.Anything, mock.Anything)
}
