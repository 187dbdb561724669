package vouchers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Scope identifies what an order line is for. PartnerID is resolved from the
// catalog and is nil when the voucher has no partner targets.
type Scope struct {
	PropertyID *uuid.UUID
	RoomTypeID *uuid.UUID
	PartnerID  *uuid.UUID
}

// ValidateForUse checks status, time window and global usage.
func ValidateForUse(v *Voucher, now time.Time) error {
	switch v.Status {
	case StatusActive:
	case StatusExpired:
		return ErrVoucherExpired
	default:
		return ErrVoucherNotActive
	}
	if now.Before(v.StartDate) {
		return ErrVoucherNotStarted
	}
	if now.After(v.EndDate) {
		return ErrVoucherExpired
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return ErrVoucherExhausted
	}
	return nil
}

// IsApplicable reports whether any target matches the scope. A voucher
// without targets applies everywhere.
func IsApplicable(v *Voucher, scope Scope) bool {
	if len(v.Targets) == 0 {
		return true
	}
	for _, t := range v.Targets {
		switch t.TargetType {
		case TargetGlobal:
			return true
		case TargetPartner:
			if sameID(t.PartnerID, scope.PartnerID) {
				return true
			}
		case TargetProperty:
			if sameID(t.PropertyID, scope.PropertyID) {
				return true
			}
		case TargetRoomType:
			if sameID(t.RoomTypeID, scope.RoomTypeID) {
				return true
			}
		}
	}
	return false
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

// CalculateDiscount returns a discount in [0, orderAmount] rounded to cents.
func CalculateDiscount(v *Voucher, orderAmount decimal.Decimal) decimal.Decimal {
	if !orderAmount.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch v.DiscountType {
	case DiscountTypePercentage:
		discount = orderAmount.Mul(v.DiscountValue).Div(hundred)
		if v.MaximumDiscountAmount.Valid && discount.GreaterThan(v.MaximumDiscountAmount.Decimal) {
			discount = v.MaximumDiscountAmount.Decimal
		}
	case DiscountTypeFixedAmount:
		discount = v.DiscountValue
	default:
		return decimal.Zero
	}

	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(2)
}

// CheckMinimumOrder fails when the order is below the voucher minimum.
func CheckMinimumOrder(v *Voucher, orderAmount decimal.Decimal) error {
	if v.MinimumOrderAmount.Valid && orderAmount.LessThan(v.MinimumOrderAmount.Decimal) {
		return ErrMinimumOrderNotMet.Withf("minimum %s, order %s", v.MinimumOrderAmount.Decimal.StringFixed(2), orderAmount.StringFixed(2))
	}
	return nil
}

// CheckPerUserLimit fails when the user already holds the allowed number of
// active redemptions.
func CheckPerUserLimit(v *Voucher, activeRedemptions int64) error {
	if v.UsageLimitPerUser != nil && activeRedemptions >= int64(*v.UsageLimitPerUser) {
		return ErrPerUserLimitReached
	}
	return nil
}

// OrderLine is one priced line of an order being evaluated.
type OrderLine struct {
	RoomTypeID uuid.UUID
	Amount     decimal.Decimal
}

type Order struct {
	UserID     uuid.UUID
	PropertyID uuid.UUID
	Lines      []OrderLine
}

// Subtotal is the sum of all line amounts.
func (o Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// Evaluation is the outcome of applying a voucher to an order.
// LineDiscounts is index-aligned with Order.Lines.
type Evaluation struct {
	Voucher        *Voucher          `json:"-"`
	Code           string            `json:"code"`
	OrderAmount    decimal.Decimal   `json:"order_amount"`
	EligibleAmount decimal.Decimal   `json:"eligible_amount"`
	Discount       decimal.Decimal   `json:"discount"`
	FinalAmount    decimal.Decimal   `json:"final_amount"`
	LineDiscounts  []decimal.Decimal `json:"line_discounts"`
}

// PartnerResolver resolves the partner that owns a property.
type PartnerResolver interface {
	PartnerIDOf(ctx context.Context, propertyID uuid.UUID) (uuid.UUID, error)
}

// RedemptionCounter counts a user's active redemptions of a voucher.
type RedemptionCounter interface {
	CountActiveRedemptions(ctx context.Context, voucherID, userID uuid.UUID) (int64, error)
}

// Engine evaluates a loaded voucher against an order.
type Engine struct {
	partners PartnerResolver
	ledger   RedemptionCounter
}

func NewEngine(partners PartnerResolver, ledger RedemptionCounter) *Engine {
	return &Engine{partners: partners, ledger: ledger}
}

// Evaluate validates v for the order and spreads the discount over the
// eligible lines. The minimum order is checked against the whole order,
// the discount is computed on the eligible lines only.
func (e *Engine) Evaluate(ctx context.Context, v *Voucher, order Order, now time.Time) (*Evaluation, error) {
	if err := ValidateForUse(v, now); err != nil {
		return nil, err
	}

	partnerID, err := e.partnerFor(ctx, v, order.PropertyID)
	if err != nil {
		return nil, err
	}

	propertyID := order.PropertyID
	eligible := make([]bool, len(order.Lines))
	eligibleAmount := decimal.Zero
	for i, line := range order.Lines {
		roomTypeID := line.RoomTypeID
		if IsApplicable(v, Scope{PropertyID: &propertyID, RoomTypeID: &roomTypeID, PartnerID: partnerID}) {
			eligible[i] = true
			eligibleAmount = eligibleAmount.Add(line.Amount)
		}
	}
	if eligibleAmount.IsZero() {
		return nil, ErrVoucherNotApplicable
	}

	orderAmount := order.Subtotal()
	if err := CheckMinimumOrder(v, orderAmount); err != nil {
		return nil, err
	}

	if v.UsageLimitPerUser != nil && e.ledger != nil {
		used, err := e.ledger.CountActiveRedemptions(ctx, v.ID, order.UserID)
		if err != nil {
			return nil, err
		}
		if err := CheckPerUserLimit(v, used); err != nil {
			return nil, err
		}
	}

	discount := CalculateDiscount(v, eligibleAmount)
	return &Evaluation{
		Voucher:        v,
		Code:           v.Code,
		OrderAmount:    orderAmount,
		EligibleAmount: eligibleAmount,
		Discount:       discount,
		FinalAmount:    orderAmount.Sub(discount),
		LineDiscounts:  allocate(discount, order.Lines, eligible, eligibleAmount),
	}, nil
}

func (e *Engine) partnerFor(ctx context.Context, v *Voucher, propertyID uuid.UUID) (*uuid.UUID, error) {
	needsPartner := false
	for _, t := range v.Targets {
		if t.TargetType == TargetPartner {
			needsPartner = true
			break
		}
	}
	if !needsPartner || e.partners == nil {
		return nil, nil
	}
	partnerID, err := e.partners.PartnerIDOf(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return &partnerID, nil
}

// allocate splits discount across eligible lines in proportion to their
// amounts. Shares are rounded to cents and the last eligible line takes the
// remainder; no share ever exceeds its line amount.
func allocate(discount decimal.Decimal, lines []OrderLine, eligible []bool, eligibleAmount decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(lines))
	for i := range shares {
		shares[i] = decimal.Zero
	}

	last := -1
	for i := range lines {
		if eligible[i] {
			last = i
		}
	}
	if last < 0 || !discount.IsPositive() {
		return shares
	}

	allocated := decimal.Zero
	for i, line := range lines {
		if !eligible[i] || i == last {
			continue
		}
		share := discount.Mul(line.Amount).Div(eligibleAmount).Round(2)
		if share.GreaterThan(line.Amount) {
			share = line.Amount
		}
		shares[i] = share
		allocated = allocated.Add(share)
	}

	remainder := discount.Sub(allocated)
	if remainder.GreaterThan(lines[last].Amount) {
		excess := remainder.Sub(lines[last].Amount)
		remainder = lines[last].Amount
		for i := range lines {
			if !eligible[i] || i == last || !excess.IsPositive() {
				continue
			}
			room := lines[i].Amount.Sub(shares[i])
			move := decimal.Min(room, excess)
			shares[i] = shares[i].Add(move)
			excess = excess.Sub(move)
		}
	}
	if remainder.IsNegative() {
		deficit := remainder.Neg()
		remainder = decimal.Zero
		for i := last - 1; i >= 0 && deficit.IsPositive(); i-- {
			take := decimal.Min(shares[i], deficit)
			shares[i] = shares[i].Sub(take)
			deficit = deficit.Sub(take)
		}
	}
	shares[last] = remainder
	return shares
}
