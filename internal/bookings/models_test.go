package bookings

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"tripenjoy/internal/shared/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(offset int) time.Time {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, offset)
}

func newPendingBooking(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking(uuid.New(), uuid.New(), day(1), day(3), 2, decimal.Zero, nil, time.Now().UTC())
	require.NoError(t, err)
	return b
}

func TestNewBooking_Validation(t *testing.T) {
	now := time.Now().UTC()

	_, err := NewBooking(uuid.New(), uuid.New(), day(3), day(3), 2, decimal.Zero, nil, now)
	assert.ErrorIs(t, err, ErrInvalidDates)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = NewBooking(uuid.New(), uuid.New(), day(1), day(2), 0, decimal.Zero, nil, now)
	assert.ErrorIs(t, err, ErrInvalidGuests)

	_, err = NewBooking(uuid.New(), uuid.New(), day(1), day(2), 1, dec("-1"), nil, now)
	assert.ErrorIs(t, err, ErrNegativeTotal)

	b, err := NewBooking(uuid.New(), uuid.New(), day(1), day(3), 2, decimal.Zero, nil, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, 2, b.Nights())
	require.Len(t, b.History, 1)
	assert.Equal(t, StatusPending, b.History[0].Status)
	assert.Equal(t, b.UserID, *b.History[0].ChangedBy)
}

func TestBooking_TotalReconciliation(t *testing.T) {
	b := newPendingBooking(t)

	require.NoError(t, b.AddBookingDetail(BookingDetail{RoomTypeID: uuid.New(), Quantity: 2, Nights: 3, PricePerNight: dec("100")}))
	require.NoError(t, b.AddBookingDetail(BookingDetail{RoomTypeID: uuid.New(), Quantity: 1, Nights: 3, PricePerNight: dec("100")}))

	// adding details does not touch the total
	assert.True(t, b.TotalPrice.IsZero())

	b.RecalculateTotalPrice()
	assert.True(t, b.Details[0].TotalPrice.Equal(dec("600")))
	assert.True(t, b.Details[1].TotalPrice.Equal(dec("300")))
	assert.True(t, b.TotalPrice.Equal(dec("900")), "got %s", b.TotalPrice)
}

func TestBooking_AddBookingDetailRejectsBadLines(t *testing.T) {
	b := newPendingBooking(t)

	assert.ErrorIs(t, b.AddBookingDetail(BookingDetail{Quantity: 0, Nights: 1, PricePerNight: dec("10")}), ErrInvalidDetail)
	assert.ErrorIs(t, b.AddBookingDetail(BookingDetail{Quantity: 1, Nights: 0, PricePerNight: dec("10")}), ErrInvalidDetail)
	assert.ErrorIs(t, b.AddBookingDetail(BookingDetail{Quantity: 1, Nights: 1, PricePerNight: dec("-10")}), ErrInvalidDetail)
	assert.ErrorIs(t, b.AddBookingDetail(BookingDetail{Quantity: 1, Nights: 1, PricePerNight: dec("10"), DiscountAmount: dec("10.01")}), ErrInvalidDiscount)
	assert.Empty(t, b.Details)
}

func TestBooking_ApplyLineDiscounts(t *testing.T) {
	b := newPendingBooking(t)
	require.NoError(t, b.AddBookingDetail(BookingDetail{RoomTypeID: uuid.New(), Quantity: 1, Nights: 2, PricePerNight: dec("300")}))
	require.NoError(t, b.AddBookingDetail(BookingDetail{RoomTypeID: uuid.New(), Quantity: 1, Nights: 2, PricePerNight: dec("150")}))
	b.RecalculateTotalPrice()

	assert.ErrorIs(t, b.ApplyLineDiscounts([]decimal.Decimal{dec("1")}), ErrInvalidDiscount)
	assert.ErrorIs(t, b.ApplyLineDiscounts([]decimal.Decimal{dec("601"), decimal.Zero}), ErrInvalidDiscount)
	assert.True(t, b.TotalPrice.Equal(dec("900")), "rejected discounts leave the total alone")

	require.NoError(t, b.ApplyLineDiscounts([]decimal.Decimal{dec("60"), decimal.Zero}))
	assert.True(t, b.TotalPrice.Equal(dec("840")))
	assert.True(t, b.DiscountTotal().Equal(dec("60")))

	sum := decimal.Zero
	for _, d := range b.Details {
		sum = sum.Add(d.TotalPrice)
	}
	assert.True(t, sum.Equal(b.TotalPrice))
}

func TestBooking_Transitions(t *testing.T) {
	adminID := uuid.New()
	now := time.Now().UTC()

	t.Run("confirm only from pending", func(t *testing.T) {
		b := newPendingBooking(t)
		require.NoError(t, b.Confirm(&adminID, now))
		assert.Equal(t, StatusConfirmed, b.Status)
		require.Len(t, b.History, 2)
		assert.Equal(t, StatusConfirmed, b.LastHistory().Status)
		assert.Equal(t, adminID, *b.LastHistory().ChangedBy)

		err := b.Confirm(&adminID, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
		assert.Len(t, b.History, 2, "rejected transitions leave no history")
	})

	t.Run("cancel from pending or confirmed", func(t *testing.T) {
		b := newPendingBooking(t)
		require.NoError(t, b.Cancel(nil, "changed plans", now))
		assert.Equal(t, StatusCancelled, b.Status)
		require.NotNil(t, b.CancelledAt)
		assert.Nil(t, b.LastHistory().ChangedBy, "nil actor means system")
		assert.Contains(t, b.LastHistory().Description, "changed plans")

		assert.ErrorIs(t, b.Confirm(nil, now), ErrInvalidTransition)
		assert.ErrorIs(t, b.Cancel(nil, "", now), ErrInvalidTransition)

		confirmed := newPendingBooking(t)
		require.NoError(t, confirmed.Confirm(nil, now))
		require.NoError(t, confirmed.Cancel(&adminID, "", now))
		assert.Len(t, confirmed.History, 3)
	})

	t.Run("complete only from confirmed", func(t *testing.T) {
		b := newPendingBooking(t)
		assert.ErrorIs(t, b.Complete(nil, now), ErrInvalidTransition)
		require.NoError(t, b.Confirm(nil, now))
		require.NoError(t, b.Complete(nil, now))
		assert.Equal(t, StatusCompleted, b.Status)
		assert.ErrorIs(t, b.Cancel(nil, "", now), ErrInvalidTransition)
	})
}

func TestBooking_LongCancelReasonKeepsValidUTF8(t *testing.T) {
	b := newPendingBooking(t)
	require.NoError(t, b.Cancel(nil, strings.Repeat("ệ", 300), time.Now().UTC()))

	description := b.LastHistory().Description
	assert.True(t, utf8.ValidString(description))
	assert.LessOrEqual(t, len(description), 500)
	assert.True(t, strings.HasPrefix(description, "Booking cancelled: ệệ"))
}
