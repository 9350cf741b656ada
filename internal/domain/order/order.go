package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// NumberPrefix starts every order number
const NumberPrefix = "ORD-"

// Status represents the fulfilment status of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusCompleted
	case StatusCompleted, StatusCancelled:
		return false // Terminal states
	}
	return false
}

// PaymentStatus tracks whether an order has been paid
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsValid checks if the payment status is known
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// Line represents a product line in an order
type Line struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	ProductName string // display snapshot
	Quantity    int
	UnitPrice   valueobject.Money
	Subtotal    valueobject.Money // Quantity * UnitPrice
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewLine creates an order line priced at unitPrice
func NewLine(orderID, productID uuid.UUID, variantID *uuid.UUID, productName string, quantity int, unitPrice valueobject.Money) (*Line, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if quantity < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be at least 1")
	}
	subtotal, err := pricing.LineSubtotal(quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Line{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   productID,
		VariantID:   variantID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Subtotal:    subtotal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Order is the placed-order aggregate. Its totals change only through
// RecalculateTotal, which every line mutation calls.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	UserID          uuid.UUID
	Status          Status
	PaymentStatus   PaymentStatus
	PaymentMethod   string
	ShippingAddress string
	BillingAddress  string
	Subtotal        valueobject.Money
	Tax             valueobject.Money
	Shipping        valueobject.Money
	Discount        valueobject.Money
	Total           valueobject.Money
	CouponID        *uuid.UUID
	CartID          *uuid.UUID
	Lines           []Line
}

// NewNumber generates a fresh order number
func NewNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return NumberPrefix + strings.ToUpper(id[:16])
}

// NewOrder creates a pending, unpaid order with flat-rate shipping
func NewOrder(userID uuid.UUID, shippingAddress, billingAddress, paymentMethod string) (*Order, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order requires a user")
	}
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Shipping address cannot be empty")
	}
	if strings.TrimSpace(billingAddress) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Billing address cannot be empty")
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Payment method cannot be empty")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       NewNumber(),
		UserID:            userID,
		Status:            StatusPending,
		PaymentStatus:     PaymentStatusPending,
		PaymentMethod:     paymentMethod,
		ShippingAddress:   shippingAddress,
		BillingAddress:    billingAddress,
		Subtotal:          valueobject.Zero(),
		Tax:               valueobject.Zero(),
		Shipping:          pricing.ShippingFlatRate,
		Discount:          valueobject.Zero(),
		Total:             valueobject.Zero(),
		Lines:             make([]Line, 0),
	}
	o.RecalculateTotal()
	return o, nil
}

func (o *Order) ensurePending(action string) error {
	if o.Status != StatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, "Can only "+action+" pending orders")
	}
	return nil
}

// AddLine appends quantity of product at its current price (or the
// variant's override) and recalculates the totals.
func (o *Order) AddLine(product *catalog.Product, variant *catalog.Variant, quantity int) (*Line, error) {
	if err := o.ensurePending("add items to"); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product is required")
	}
	if variant != nil && variant.ProductID != product.ID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Variant does not belong to product")
	}

	var variantID *uuid.UUID
	name := product.Name
	if variant != nil {
		id := variant.ID
		variantID = &id
		if variant.Name != "" {
			name = product.Name + " - " + variant.Name
		}
	}

	line, err := NewLine(o.ID, product.ID, variantID, name, quantity, catalog.UnitPrice(product, variant))
	if err != nil {
		return nil, err
	}
	o.Lines = append(o.Lines, *line)
	o.RecalculateTotal()
	return &o.Lines[len(o.Lines)-1], nil
}

// RemoveLine removes a line and returns it so the caller can restore its stock
func (o *Order) RemoveLine(lineID uuid.UUID) (*Line, error) {
	if err := o.ensurePending("remove items from"); err != nil {
		return nil, err
	}
	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			removed := o.Lines[idx]
			o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
			o.RecalculateTotal()
			return &removed, nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, "Order item not found")
}

// AttachCoupon records the redeemed coupon and its discount
func (o *Order) AttachCoupon(couponID uuid.UUID, discount valueobject.Money) error {
	if err := o.ensurePending("apply coupons to"); err != nil {
		return err
	}
	if couponID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon ID cannot be empty")
	}
	if discount.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Discount cannot be negative")
	}
	id := couponID
	o.CouponID = &id
	o.Discount = discount.Rounded()
	o.RecalculateTotal()
	return nil
}

// RecalculateTotal rederives subtotal, tax and total from the lines and the
// stored shipping and discount. Calling it twice changes nothing.
func (o *Order) RecalculateTotal() {
	subtotal := valueobject.Zero()
	for idx := range o.Lines {
		subtotal = subtotal.Add(o.Lines[idx].Subtotal)
	}
	totals := pricing.Compute(subtotal.Rounded(), o.Shipping, o.Discount)
	o.Subtotal = totals.Subtotal
	o.Tax = totals.Tax
	o.Total = totals.Total
	o.UpdatedAt = time.Now()
}

// CanDelete reports whether the order may be deleted
func (o *Order) CanDelete() bool {
	return o.Status == StatusPending
}

// MarkDeleted records the deletion event; stock restoration is the caller's job
func (o *Order) MarkDeleted() error {
	if !o.CanDelete() {
		return shared.NewDomainError(shared.CodeInvalidState, "Can only delete pending orders")
	}
	o.AddDomainEvent(NewDeletedEvent(o))
	return nil
}

// UpdateStatus moves the order along its state machine. Moving to
// cancelled raises OrderCancelled, whose lines the caller restocks.
func (o *Order) UpdateStatus(target Status) error {
	if !target.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unknown order status: "+string(target))
	}
	if o.Status == target {
		return nil
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot move order from "+o.Status.String()+" to "+target.String())
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	if target == StatusCancelled {
		o.AddDomainEvent(NewCancelledEvent(o))
	}
	return nil
}

// UpdatePaymentStatus sets the payment status
func (o *Order) UpdatePaymentStatus(status PaymentStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unknown payment status: "+string(status))
	}
	o.PaymentStatus = status
	o.UpdatedAt = time.Now()
	return nil
}

// UpdateAddresses replaces the non-empty addresses given
func (o *Order) UpdateAddresses(shippingAddress, billingAddress string) error {
	if o.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot change addresses of a closed order")
	}
	if s := strings.TrimSpace(shippingAddress); s != "" {
		o.ShippingAddress = s
	}
	if b := strings.TrimSpace(billingAddress); b != "" {
		o.BillingAddress = b
	}
	o.UpdatedAt = time.Now()
	return nil
}

// Place raises OrderPlaced once the order has been built
func (o *Order) Place() {
	o.AddDomainEvent(NewPlacedEvent(o))
}

// GetLine returns the line with lineID, or nil
func (o *Order) GetLine(lineID uuid.UUID) *Line {
	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			return &o.Lines[idx]
		}
	}
	return nil
}

// ItemCount returns the number of lines
func (o *Order) ItemCount() int {
	return len(o.Lines)
}

// IsPending returns true if the order is pending
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

// IsTerminal returns true if the order is completed or cancelled
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCancelled
}

// OwnedBy reports whether userID placed the order
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}
