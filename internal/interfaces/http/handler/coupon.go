package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	couponapp "github.com/storefront/backend/internal/application/coupon"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CouponHandler handles coupon administration and validation
type CouponHandler struct {
	BaseHandler
	couponService *couponapp.CouponService
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(couponService *couponapp.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// List returns a page of coupons
// GET /api/v1/coupons
func (h *CouponHandler) List(c *gin.Context) {
	var filter couponapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	result, err := h.couponService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns a coupon by ID
// GET /api/v1/coupons/:id
func (h *CouponHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.couponService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Create adds a coupon
// POST /api/v1/coupons
func (h *CouponHandler) Create(c *gin.Context) {
	var req couponapp.CreateCouponRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.couponService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update changes a coupon
// PUT /api/v1/coupons/:id
func (h *CouponHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req couponapp.UpdateCouponRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.couponService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes a coupon
// DELETE /api/v1/coupons/:id
func (h *CouponHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.couponService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Validate reports what a code is worth against an order total. An unusable
// code answers 400 with the evaluation in data.
// POST /api/v1/coupons/validate
func (h *CouponHandler) Validate(c *gin.Context) {
	var req couponapp.ValidateCouponRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.couponService.Validate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !resp.Valid {
		body := dto.NewErrorResponseWithRequestID(dto.ErrCodeCouponInvalid, resp.Message, middleware.GetRequestID(c))
		body.Data = resp
		c.JSON(http.StatusBadRequest, body)
		return
	}
	h.Success(c, resp)
}

// Redeem consumes one use of a coupon
// POST /api/v1/coupons/:id/redeem
func (h *CouponHandler) Redeem(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.couponService.Redeem(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
