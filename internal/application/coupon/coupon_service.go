package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// CouponService handles coupon administration and validation
type CouponService struct {
	repo   coupon.Repository
	clock  shared.Clock
	logger *zap.Logger
}

// NewCouponService creates a new CouponService
func NewCouponService(repo coupon.Repository, clock shared.Clock, logger *zap.Logger) *CouponService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CouponService{repo: repo, clock: clock, logger: logger}
}

// List returns a page of coupons
func (s *CouponService) List(ctx context.Context, filter ListFilter) (*shared.Paginated[CouponResponse], error) {
	f := coupon.ListFilter{
		Filter:     shared.DefaultFilter(),
		ActiveOnly: filter.ActiveOnly,
		Now:        s.clock.Now(),
	}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	f.Search = filter.Search

	coupons, total, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToCouponResponses(coupons), total, f.Page, f.PageSize)
	return &page, nil
}

// GetByID retrieves a coupon
func (s *CouponService) GetByID(ctx context.Context, id uuid.UUID) (*CouponResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToCouponResponse(c)
	return &response, nil
}

// Create creates a coupon; codes are unique case-insensitively
func (s *CouponService) Create(ctx context.Context, req CreateCouponRequest) (*CouponResponse, error) {
	params := coupon.Params{
		Code:          req.Code,
		Type:          coupon.Type(req.Type),
		Value:         req.Value,
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
		MaxUses:       req.MaxUses,
		MinOrderValue: moneyPtr(req.MinOrderValue),
		IsActive:      true,
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}

	c, err := coupon.NewCoupon(params)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, c.Code, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Coupon code already exists")
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("coupon created", zap.String("coupon_id", c.ID.String()), zap.String("code", c.Code))
	response := ToCouponResponse(c)
	return &response, nil
}

// Update applies a partial update to a coupon
func (s *CouponService) Update(ctx context.Context, id uuid.UUID, req UpdateCouponRequest) (*CouponResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	params := coupon.Params{
		Code:          c.Code,
		Type:          c.Type,
		Value:         c.Value,
		ValidFrom:     c.ValidFrom,
		ValidUntil:    c.ValidUntil,
		MaxUses:       c.MaxUses,
		MinOrderValue: c.MinOrderValue,
		IsActive:      c.IsActive,
	}
	if req.Code != nil {
		params.Code = *req.Code
	}
	if req.Type != nil {
		params.Type = coupon.Type(*req.Type)
	}
	if req.Value != nil {
		params.Value = *req.Value
	}
	if req.ValidFrom != nil {
		params.ValidFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil {
		params.ValidUntil = req.ValidUntil
	}
	if req.MaxUses != nil {
		params.MaxUses = req.MaxUses
	}
	if req.MinOrderValue != nil {
		params.MinOrderValue = moneyPtr(req.MinOrderValue)
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}

	if code := coupon.NormalizeCode(params.Code); code != c.Code {
		exists, err := s.repo.ExistsByCode(ctx, code, &c.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Coupon code already exists")
		}
	}

	if err := c.Update(params); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	response := ToCouponResponse(c)
	return &response, nil
}

// Delete removes a coupon that no order has redeemed
func (s *CouponService) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.CanDelete(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Validate reports whether code can be used and what it is worth against
// orderTotal. An unknown code is shared.ErrNotFound; a known but unusable
// code is a response with Valid false.
func (s *CouponService) Validate(ctx context.Context, req ValidateCouponRequest) (*ValidateCouponResponse, error) {
	if req.OrderTotal.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order total cannot be negative")
	}

	c, err := s.repo.FindByCode(ctx, coupon.NormalizeCode(req.Code))
	if err != nil {
		return nil, err
	}

	total := valueobject.NewMoney(req.OrderTotal)
	now := s.clock.Now()
	if err := c.Validate(now); err != nil {
		message := shared.ErrCouponInvalid.Message
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			message = domainErr.Message
		}
		return &ValidateCouponResponse{
			Valid:      false,
			Discount:   valueobject.Zero(),
			FinalTotal: total.Rounded(),
			Message:    message,
		}, nil
	}

	discount := c.CalculateDiscount(total, now)
	response := ToCouponResponse(c)
	result := &ValidateCouponResponse{
		Valid:      true,
		Discount:   discount,
		FinalTotal: total.Subtract(discount).Rounded(),
		Coupon:     &response,
	}
	if !c.MeetsMinimum(total) {
		result.Message = fmt.Sprintf("Order total is below the minimum of %s", c.MinOrderValue.String())
	}
	return result, nil
}

// Redeem consumes one use of a coupon
func (s *CouponService) Redeem(ctx context.Context, id uuid.UUID) (*CouponResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Redeem(ctx, id); err != nil {
		return nil, err
	}
	c.TimesUsed++

	s.logger.Info("coupon redeemed", zap.String("coupon_id", c.ID.String()), zap.Int("times_used", c.TimesUsed))
	response := ToCouponResponse(c)
	return &response, nil
}
