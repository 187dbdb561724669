package vouchers

import (
	"context"
	"testing"
	"time"

	"tripenjoy/internal/shared/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(n int) *int { return &n }

func activeVoucher(discountType DiscountType, value string) *Voucher {
	now := time.Now().UTC()
	return &Voucher{
		ID:            uuid.New(),
		Code:          "TEST10",
		DiscountType:  discountType,
		DiscountValue: dec(value),
		Status:        StatusActive,
		StartDate:     now.Add(-24 * time.Hour),
		EndDate:       now.Add(24 * time.Hour),
		CreatorType:   CreatorAdmin,
		Version:       1,
	}
}

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name     string
		voucher  func() *Voucher
		amount   string
		expected string
	}{
		{
			name: "percentage capped by maximum",
			voucher: func() *Voucher {
				v := activeVoucher(DiscountTypePercentage, "20")
				v.MaximumDiscountAmount = decimal.NewNullDecimal(dec("50"))
				return v
			},
			amount:   "1000",
			expected: "50",
		},
		{
			name:     "percentage without cap",
			voucher:  func() *Voucher { return activeVoucher(DiscountTypePercentage, "15") },
			amount:   "200",
			expected: "30",
		},
		{
			name:     "fixed amount larger than order",
			voucher:  func() *Voucher { return activeVoucher(DiscountTypeFixedAmount, "500") },
			amount:   "120.50",
			expected: "120.5",
		},
		{
			name:     "percentage rounds to cents",
			voucher:  func() *Voucher { return activeVoucher(DiscountTypePercentage, "33.33") },
			amount:   "10",
			expected: "3.33",
		},
		{
			name:     "zero order",
			voucher:  func() *Voucher { return activeVoucher(DiscountTypeFixedAmount, "10") },
			amount:   "0",
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDiscount(tt.voucher(), dec(tt.amount))
			assert.True(t, got.Equal(dec(tt.expected)), "got %s", got)
		})
	}
}

func TestCalculateDiscount_StaysWithinOrderAmount(t *testing.T) {
	amounts := []string{"0.01", "1", "49.99", "100", "1234.56", "99999"}
	vouchers := []*Voucher{
		activeVoucher(DiscountTypePercentage, "100"),
		activeVoucher(DiscountTypePercentage, "7.5"),
		activeVoucher(DiscountTypeFixedAmount, "0.5"),
		activeVoucher(DiscountTypeFixedAmount, "5000"),
	}

	for _, v := range vouchers {
		for _, a := range amounts {
			amount := dec(a)
			got := CalculateDiscount(v, amount)
			assert.False(t, got.IsNegative(), "%s %s on %s", v.DiscountType, v.DiscountValue, a)
			assert.True(t, got.LessThanOrEqual(amount), "%s %s on %s gave %s", v.DiscountType, v.DiscountValue, a, got)
		}
	}
}

func TestValidateForUse(t *testing.T) {
	now := time.Now().UTC()

	v := activeVoucher(DiscountTypeFixedAmount, "10")
	assert.NoError(t, ValidateForUse(v, now))

	expired := activeVoucher(DiscountTypeFixedAmount, "10")
	expired.EndDate = now.Add(-time.Hour)
	assert.ErrorIs(t, ValidateForUse(expired, now), ErrVoucherExpired)

	notStarted := activeVoucher(DiscountTypeFixedAmount, "10")
	notStarted.StartDate = now.Add(time.Hour)
	assert.ErrorIs(t, ValidateForUse(notStarted, now), ErrVoucherNotStarted)

	disabled := activeVoucher(DiscountTypeFixedAmount, "10")
	disabled.Status = StatusDisabled
	assert.ErrorIs(t, ValidateForUse(disabled, now), ErrVoucherNotActive)

	exhausted := activeVoucher(DiscountTypeFixedAmount, "10")
	exhausted.UsageLimit = intPtr(2)
	exhausted.UsedCount = 2
	err := ValidateForUse(exhausted, now)
	assert.ErrorIs(t, err, ErrVoucherExhausted)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestIsApplicable(t *testing.T) {
	propertyID := uuid.New()
	roomTypeID := uuid.New()
	partnerID := uuid.New()
	other := uuid.New()

	v := activeVoucher(DiscountTypeFixedAmount, "10")
	assert.True(t, IsApplicable(v, Scope{PropertyID: &propertyID}), "no targets applies everywhere")

	v.Targets = []VoucherTarget{{TargetType: TargetProperty, PropertyID: &propertyID}}
	assert.True(t, IsApplicable(v, Scope{PropertyID: &propertyID, RoomTypeID: &roomTypeID}))
	assert.False(t, IsApplicable(v, Scope{PropertyID: &other, RoomTypeID: &roomTypeID}))

	v.Targets = []VoucherTarget{{TargetType: TargetRoomType, RoomTypeID: &roomTypeID}}
	assert.True(t, IsApplicable(v, Scope{PropertyID: &other, RoomTypeID: &roomTypeID}))
	assert.False(t, IsApplicable(v, Scope{PropertyID: &propertyID, RoomTypeID: &other}))

	v.Targets = []VoucherTarget{{TargetType: TargetPartner, PartnerID: &partnerID}}
	assert.True(t, IsApplicable(v, Scope{PartnerID: &partnerID}))
	assert.False(t, IsApplicable(v, Scope{PropertyID: &propertyID}), "unresolved partner never matches")

	v.Targets = []VoucherTarget{{TargetType: TargetGlobal}}
	assert.True(t, IsApplicable(v, Scope{}))
}

func TestCheckMinimumOrder(t *testing.T) {
	v := activeVoucher(DiscountTypeFixedAmount, "10")
	v.MinimumOrderAmount = decimal.NewNullDecimal(dec("500"))

	assert.ErrorIs(t, CheckMinimumOrder(v, dec("499.99")), ErrMinimumOrderNotMet)
	assert.NoError(t, CheckMinimumOrder(v, dec("500")))
}

type stubPartners map[uuid.UUID]uuid.UUID

func (s stubPartners) PartnerIDOf(ctx context.Context, propertyID uuid.UUID) (uuid.UUID, error) {
	return s[propertyID], nil
}

type stubLedger int64

func (s stubLedger) CountActiveRedemptions(ctx context.Context, voucherID, userID uuid.UUID) (int64, error) {
	return int64(s), nil
}

func TestEngineEvaluate_DiscountsEligibleLinesOnly(t *testing.T) {
	propertyID := uuid.New()
	deluxe := uuid.New()
	standard := uuid.New()

	v := activeVoucher(DiscountTypePercentage, "10")
	v.Targets = []VoucherTarget{{TargetType: TargetRoomType, RoomTypeID: &deluxe}}

	order := Order{
		UserID:     uuid.New(),
		PropertyID: propertyID,
		Lines: []OrderLine{
			{RoomTypeID: deluxe, Amount: dec("600")},
			{RoomTypeID: standard, Amount: dec("300")},
		},
	}

	eval, err := NewEngine(nil, nil).Evaluate(context.Background(), v, order, time.Now().UTC())
	require.NoError(t, err)

	assert.True(t, eval.OrderAmount.Equal(dec("900")))
	assert.True(t, eval.EligibleAmount.Equal(dec("600")))
	assert.True(t, eval.Discount.Equal(dec("60")))
	assert.True(t, eval.FinalAmount.Equal(dec("840")))
	require.Len(t, eval.LineDiscounts, 2)
	assert.True(t, eval.LineDiscounts[0].Equal(dec("60")))
	assert.True(t, eval.LineDiscounts[1].IsZero())
}

func TestEngineEvaluate_Rejections(t *testing.T) {
	propertyID := uuid.New()
	partnerID := uuid.New()
	order := Order{
		UserID:     uuid.New(),
		PropertyID: propertyID,
		Lines:      []OrderLine{{RoomTypeID: uuid.New(), Amount: dec("100")}},
	}
	now := time.Now().UTC()

	t.Run("not applicable", func(t *testing.T) {
		other := uuid.New()
		v := activeVoucher(DiscountTypeFixedAmount, "10")
		v.Targets = []VoucherTarget{{TargetType: TargetProperty, PropertyID: &other}}
		_, err := NewEngine(nil, nil).Evaluate(context.Background(), v, order, now)
		assert.ErrorIs(t, err, ErrVoucherNotApplicable)
	})

	t.Run("minimum order", func(t *testing.T) {
		v := activeVoucher(DiscountTypeFixedAmount, "10")
		v.MinimumOrderAmount = decimal.NewNullDecimal(dec("150"))
		_, err := NewEngine(nil, nil).Evaluate(context.Background(), v, order, now)
		assert.ErrorIs(t, err, ErrMinimumOrderNotMet)
	})

	t.Run("per user limit", func(t *testing.T) {
		v := activeVoucher(DiscountTypeFixedAmount, "10")
		v.UsageLimitPerUser = intPtr(1)
		_, err := NewEngine(nil, stubLedger(1)).Evaluate(context.Background(), v, order, now)
		assert.ErrorIs(t, err, ErrPerUserLimitReached)
	})

	t.Run("partner target resolved through catalog", func(t *testing.T) {
		v := activeVoucher(DiscountTypeFixedAmount, "10")
		v.Targets = []VoucherTarget{{TargetType: TargetPartner, PartnerID: &partnerID}}
		eval, err := NewEngine(stubPartners{propertyID: partnerID}, nil).Evaluate(context.Background(), v, order, now)
		require.NoError(t, err)
		assert.True(t, eval.Discount.Equal(dec("10")))
	})
}

func TestAllocate(t *testing.T) {
	lines := []OrderLine{
		{Amount: dec("100")},
		{Amount: dec("100")},
		{Amount: dec("100")},
	}
	eligible := []bool{true, true, true}

	shares := allocate(dec("10"), lines, eligible, dec("300"))
	sum := decimal.Zero
	for i, s := range shares {
		assert.True(t, s.LessThanOrEqual(lines[i].Amount))
		sum = sum.Add(s)
	}
	assert.True(t, sum.Equal(dec("10")), "shares must add up to the discount, got %s", sum)
	assert.True(t, shares[0].Equal(dec("3.33")))
	assert.True(t, shares[2].Equal(dec("3.34")))

	// a tiny last line cannot absorb the remainder
	lines = []OrderLine{{Amount: dec("99.99")}, {Amount: dec("0.01")}}
	shares = allocate(dec("100"), lines, []bool{true, true}, dec("100"))
	assert.True(t, shares[0].Equal(dec("99.99")))
	assert.True(t, shares[1].Equal(dec("0.01")))
}
