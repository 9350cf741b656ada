package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockCouponRepository is a mock implementation of coupon.Repository
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *MockCouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *MockCouponRepository) FindAll(ctx context.Context, filter coupon.ListFilter) ([]coupon.Coupon, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]coupon.Coupon), args.Get(1).(int64), args.Error(2)
}

func (m *MockCouponRepository) ExistsByCode(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, code, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCouponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCouponRepository) Redeem(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, repo *MockCouponRepository) *CouponService {
	return NewCouponService(repo, shared.FixedClock{At: testNow}, zaptest.NewLogger(t))
}

func welcome10(t *testing.T) *coupon.Coupon {
	t.Helper()
	minOrder := valueobject.MustMoney("50")
	c, err := coupon.NewCoupon(coupon.Params{
		Code:          "WELCOME10",
		Type:          coupon.TypePercentage,
		Value:         decimal.NewFromInt(10),
		ValidFrom:     testNow.Add(-time.Hour),
		MinOrderValue: &minOrder,
		IsActive:      true,
	})
	require.NoError(t, err)
	return c
}

func TestCouponService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes and saves", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		repo.On("ExistsByCode", ctx, "SUMMER5", (*uuid.UUID)(nil)).Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*coupon.Coupon")).Return(nil)

		resp, err := svc.Create(ctx, CreateCouponRequest{
			Code:      "summer5",
			Type:      "fixed",
			Value:     decimal.NewFromInt(5),
			ValidFrom: testNow,
		})
		require.NoError(t, err)
		assert.Equal(t, "SUMMER5", resp.Code)
		assert.True(t, resp.IsActive)
		assert.Equal(t, 0, resp.TimesUsed)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate code", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		repo.On("ExistsByCode", ctx, "SUMMER5", (*uuid.UUID)(nil)).Return(true, nil)

		_, err := svc.Create(ctx, CreateCouponRequest{
			Code:      "Summer5",
			Type:      "fixed",
			Value:     decimal.NewFromInt(5),
			ValidFrom: testNow,
		})
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid params never reach the repository", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)

		_, err := svc.Create(ctx, CreateCouponRequest{
			Code:      "BIG",
			Type:      "percentage",
			Value:     decimal.NewFromInt(150),
			ValidFrom: testNow,
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		repo.AssertExpectations(t)
	})
}

func TestCouponService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("unused coupon", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		c := welcome10(t)

		newCode := "welcome15"
		newValue := decimal.NewFromInt(15)
		repo.On("FindByID", ctx, c.ID).Return(c, nil)
		repo.On("ExistsByCode", ctx, "WELCOME15", &c.ID).Return(false, nil)
		repo.On("Save", ctx, c).Return(nil)

		resp, err := svc.Update(ctx, c.ID, UpdateCouponRequest{Code: &newCode, Value: &newValue})
		require.NoError(t, err)
		assert.Equal(t, "WELCOME15", resp.Code)
		assert.True(t, resp.Value.Equal(newValue))
		assert.Equal(t, "50.00", resp.MinOrderValue.String())
		repo.AssertExpectations(t)
	})

	t.Run("redeemed coupon rejects new terms", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		c := welcome10(t)
		c.TimesUsed = 4

		newValue := decimal.NewFromInt(90)
		repo.On("FindByID", ctx, c.ID).Return(c, nil)

		_, err := svc.Update(ctx, c.ID, UpdateCouponRequest{Value: &newValue})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, "10", c.Value.String())
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("redeemed coupon can be deactivated", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		c := welcome10(t)
		c.TimesUsed = 4

		inactive := false
		repo.On("FindByID", ctx, c.ID).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)

		resp, err := svc.Update(ctx, c.ID, UpdateCouponRequest{IsActive: &inactive})
		require.NoError(t, err)
		assert.False(t, resp.IsActive)
		assert.Equal(t, 4, resp.TimesUsed)
		repo.AssertExpectations(t)
	})
}

func TestCouponService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCouponRepository)
	svc := newService(t, repo)

	repo.On("FindAll", ctx, mock.MatchedBy(func(f coupon.ListFilter) bool {
		return f.ActiveOnly && f.Now.Equal(testNow) && f.Page == 2 && f.PageSize == 15
	})).Return([]coupon.Coupon{*welcome10(t)}, int64(16), nil)

	page, err := svc.List(ctx, ListFilter{ActiveOnly: true, Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)
	repo.AssertExpectations(t)
}

func TestCouponService_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown code", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		repo.On("FindByCode", ctx, "NOPE").Return(nil, shared.ErrNotFound)

		_, err := svc.Validate(ctx, ValidateCouponRequest{Code: "nope", OrderTotal: decimal.NewFromInt(10)})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("inactive coupon is reported invalid", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		c := welcome10(t)
		c.Deactivate()
		repo.On("FindByCode", ctx, "WELCOME10").Return(c, nil)

		resp, err := svc.Validate(ctx, ValidateCouponRequest{Code: "welcome10", OrderTotal: decimal.NewFromInt(100)})
		require.NoError(t, err)
		assert.False(t, resp.Valid)
		assert.NotEmpty(t, resp.Message)
		assert.True(t, resp.Discount.IsZero())
		assert.Equal(t, "100.00", resp.FinalTotal.String())
	})

	t.Run("discount and final total", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		repo.On("FindByCode", ctx, "WELCOME10").Return(welcome10(t), nil)

		resp, err := svc.Validate(ctx, ValidateCouponRequest{Code: "WELCOME10", OrderTotal: decimal.RequireFromString("123.45")})
		require.NoError(t, err)
		assert.True(t, resp.Valid)
		assert.Equal(t, "12.35", resp.Discount.String())
		assert.Equal(t, "111.10", resp.FinalTotal.String())
		require.NotNil(t, resp.Coupon)
	})

	t.Run("below minimum is valid with zero discount", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		repo.On("FindByCode", ctx, "WELCOME10").Return(welcome10(t), nil)

		resp, err := svc.Validate(ctx, ValidateCouponRequest{Code: "WELCOME10", OrderTotal: decimal.NewFromInt(20)})
		require.NoError(t, err)
		assert.True(t, resp.Valid)
		assert.True(t, resp.Discount.IsZero())
		assert.Equal(t, "20.00", resp.FinalTotal.String())
		assert.Contains(t, resp.Message, "50.00")
	})
}

func TestCouponService_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("increments usage", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		c := welcome10(t)
		repo.On("FindByID", ctx, c.ID).Return(c, nil)
		repo.On("Redeem", ctx, c.ID).Return(nil)

		resp, err := svc.Redeem(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.TimesUsed)
	})

	t.Run("guard failure surfaces as exhausted", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		c := welcome10(t)
		repo.On("FindByID", ctx, c.ID).Return(c, nil)
		repo.On("Redeem", ctx, c.ID).Return(shared.ErrCouponExhausted)

		_, err := svc.Redeem(ctx, c.ID)
		assert.True(t, errors.Is(err, shared.ErrCouponExhausted))
	})

	t.Run("expired coupon is rejected before redeeming", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		c := welcome10(t)
		until := testNow.Add(-time.Minute)
		c.ValidFrom = testNow.Add(-time.Hour)
		c.ValidUntil = &until
		repo.On("FindByID", ctx, c.ID).Return(c, nil)

		_, err := svc.Redeem(ctx, c.ID)
		assert.True(t, errors.Is(err, shared.ErrCouponInvalid))
		repo.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything)
	})
}

func TestCouponService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		id := uuid.New()
		repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		assert.True(t, errors.Is(svc.Delete(ctx, id), shared.ErrNotFound))
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("unused coupon", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		c := welcome10(t)
		repo.On("FindByID", ctx, c.ID).Return(c, nil)
		repo.On("Delete", ctx, c.ID).Return(nil)

		require.NoError(t, svc.Delete(ctx, c.ID))
		repo.AssertExpectations(t)
	})

	t.Run("redeemed coupon is kept", func(t *testing.T) {
		repo := new(MockCouponRepository)
		svc := newService(t, repo)
		c := welcome10(t)
		c.TimesUsed = 1
		repo.On("FindByID", ctx, c.ID).Return(c, nil)

		assert.True(t, errors.Is(svc.Delete(ctx, c.ID), shared.ErrInvalidState))
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
