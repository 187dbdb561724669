package bookings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"tripenjoy/internal/catalog"
	"tripenjoy/internal/notifications"
	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/apperror"
	"tripenjoy/internal/shared/testdb"
	"tripenjoy/internal/shared/uow"
	"tripenjoy/internal/vouchers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []notifications.LifecycleNotification
}

func (p *recordingPublisher) Publish(ctx context.Context, n notifications.LifecycleNotification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []notifications.NotificationType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.NotificationType, 0, len(p.sent))
	for _, n := range p.sent {
		out = append(out, n.Type)
	}
	return out
}

type MockPaymentRefunder struct {
	mock.Mock
}

func (m *MockPaymentRefunder) RefundBookingPayments(ctx context.Context, bookingID uuid.UUID, reason string) error {
	args := m.Called(ctx, bookingID, reason)
	return args.Error(0)
}

type fixture struct {
	db        *gorm.DB
	svc       *service
	vouchers  vouchers.Service
	voucherDB vouchers.Repository
	publisher *recordingPublisher
	refunder  *MockPaymentRefunder

	partnerID uuid.UUID
	property  catalog.Property
	standard  catalog.RoomType
	deluxe    catalog.RoomType
}

func setupFixture(t *testing.T, policy vouchers.UsagePolicy) *fixture {
	t.Helper()
	db := testdb.Open(t,
		&catalog.Property{}, &catalog.RoomType{},
		&vouchers.Voucher{}, &vouchers.VoucherTarget{}, &vouchers.VoucherRedemption{},
		&Booking{}, &BookingDetail{}, &BookingHistory{},
	)

	f := &fixture{db: db, partnerID: uuid.New(), publisher: &recordingPublisher{}, refunder: &MockPaymentRefunder{}}
	f.property = catalog.Property{PartnerID: f.partnerID, Name: "Riverside Hotel", City: "Hanoi", IsActive: true}
	require.NoError(t, db.Create(&f.property).Error)
	f.standard = catalog.RoomType{PropertyID: f.property.ID, Name: "Standard", BasePrice: dec("100"), Capacity: 2, IsActive: true}
	require.NoError(t, db.Create(&f.standard).Error)
	f.deluxe = catalog.RoomType{PropertyID: f.property.ID, Name: "Deluxe", BasePrice: dec("300"), Capacity: 3, IsActive: true}
	require.NoError(t, db.Create(&f.deluxe).Error)

	tx := uow.NewManager(db)
	catalogRepo := catalog.NewRepository(db, nil, 0)
	f.voucherDB = vouchers.NewRepository(db)
	f.vouchers = vouchers.NewService(f.voucherDB, catalogRepo, tx, policy)

	svc := NewService(NewRepository(db), catalogRepo, f.vouchers, tx, f.publisher)
	svc.SetPaymentRefunder(f.refunder)
	f.svc = svc.(*service)
	return f
}

func (f *fixture) request(items ...BookingItemRequest) CreateBookingRequest {
	return CreateBookingRequest{
		PropertyID:     f.property.ID,
		CheckInDate:    day(1).Format(dateLayout),
		CheckOutDate:   day(4).Format(dateLayout),
		NumberOfGuests: 2,
		Items:          items,
	}
}

func (f *fixture) createVoucher(t *testing.T, code string, mutate func(*vouchers.CreateVoucherRequest)) *vouchers.Voucher {
	t.Helper()
	start := time.Now().UTC().Add(-time.Hour)
	req := vouchers.CreateVoucherRequest{
		Code:          code,
		DiscountType:  vouchers.DiscountTypePercentage,
		DiscountValue: dec("10"),
		StartDate:     start,
		EndDate:       start.Add(30 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(&req)
	}
	v, err := f.vouchers.CreateVoucher(context.Background(), actor.New(uuid.New(), actor.RoleAdmin), req)
	require.NoError(t, err)
	return v
}

// expectRefund accepts any number of refund hook calls answering err.
func (f *fixture) expectRefund(err error) {
	f.refunder.On("RefundBookingPayments", mock.Anything, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("string")).Return(err)
}

func (f *fixture) countBookings(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&Booking{}).Count(&n).Error)
	return n
}

func TestService_CreateBooking_PricesFromCatalog(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	userID := uuid.New()

	// 2 standard rooms and 1 deluxe for 3 nights
	req := f.request(
		BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 2},
		BookingItemRequest{RoomTypeID: f.deluxe.ID, Quantity: 1},
	)
	req.SpecialRequests = "  late check-in  "
	booking, err := f.svc.CreateBooking(ctx, userID, req)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, booking.Status)
	assert.True(t, booking.TotalPrice.Equal(dec("1500")), "got %s", booking.TotalPrice)
	require.NotNil(t, booking.SpecialRequests)
	assert.Equal(t, "late check-in", *booking.SpecialRequests)

	stored, err := f.svc.GetBooking(ctx, actor.New(userID, actor.RoleUser), booking.ID)
	require.NoError(t, err)
	require.Len(t, stored.Details, 2)
	assert.True(t, stored.Details[0].TotalPrice.Equal(dec("600")))
	assert.True(t, stored.Details[1].TotalPrice.Equal(dec("900")))
	assert.Equal(t, 3, stored.Details[0].Nights)
	require.Len(t, stored.History, 1)
	assert.Equal(t, []notifications.NotificationType{notifications.NotificationTypeBookingCreated}, f.publisher.types())
}

func TestService_CreateBooking_Rejections(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	userID := uuid.New()

	t.Run("check-in in the past", func(t *testing.T) {
		req := f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1})
		req.CheckInDate = day(-1).Format(dateLayout)
		_, err := f.svc.CreateBooking(ctx, userID, req)
		assert.ErrorIs(t, err, ErrCheckInInPast)
	})

	t.Run("check-out before check-in", func(t *testing.T) {
		req := f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1})
		req.CheckOutDate = req.CheckInDate
		_, err := f.svc.CreateBooking(ctx, userID, req)
		assert.ErrorIs(t, err, ErrInvalidDates)
	})

	t.Run("room type of another property", func(t *testing.T) {
		other := catalog.Property{PartnerID: uuid.New(), Name: "Elsewhere", IsActive: true}
		require.NoError(t, f.db.Create(&other).Error)
		foreign := catalog.RoomType{PropertyID: other.ID, Name: "Suite", BasePrice: dec("500"), Capacity: 2, IsActive: true}
		require.NoError(t, f.db.Create(&foreign).Error)

		_, err := f.svc.CreateBooking(ctx, userID, f.request(BookingItemRequest{RoomTypeID: foreign.ID, Quantity: 1}))
		assert.ErrorIs(t, err, ErrRoomTypeUnavailable)
	})

	t.Run("unknown room type", func(t *testing.T) {
		_, err := f.svc.CreateBooking(ctx, userID, f.request(BookingItemRequest{RoomTypeID: uuid.New(), Quantity: 1}))
		assert.ErrorIs(t, err, catalog.ErrRoomTypeNotFound)
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	})

	t.Run("too many guests", func(t *testing.T) {
		req := f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1})
		req.NumberOfGuests = 3
		_, err := f.svc.CreateBooking(ctx, userID, req)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	})

	t.Run("inactive property", func(t *testing.T) {
		closed := catalog.Property{PartnerID: uuid.New(), Name: "Closed", IsActive: false}
		require.NoError(t, f.db.Create(&closed).Error)
		req := f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1})
		req.PropertyID = closed.ID
		_, err := f.svc.CreateBooking(ctx, userID, req)
		assert.ErrorIs(t, err, ErrPropertyUnavailable)
	})

	assert.Zero(t, f.countBookings(t))
	assert.Empty(t, f.publisher.types())
}

func TestService_CreateBooking_WithVoucher(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	userID := uuid.New()

	limit := 1
	maxDiscount := dec("50")
	v := f.createVoucher(t, "deluxe20", func(r *vouchers.CreateVoucherRequest) {
		r.DiscountValue = dec("20")
		r.MaximumDiscountAmount = &maxDiscount
		r.UsageLimit = &limit
		r.Targets = []vouchers.TargetRequest{{TargetType: vouchers.TargetRoomType, RoomTypeID: &f.deluxe.ID}}
	})

	req := f.request(
		BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 2},
		BookingItemRequest{RoomTypeID: f.deluxe.ID, Quantity: 1},
	)
	req.VoucherCode = "deluxe20"
	booking, err := f.svc.CreateBooking(ctx, userID, req)
	require.NoError(t, err)

	// 20% of the 900 deluxe line is capped at 50
	assert.True(t, booking.TotalPrice.Equal(dec("1450")), "got %s", booking.TotalPrice)
	assert.True(t, booking.Details[0].DiscountAmount.IsZero())
	assert.True(t, booking.Details[1].DiscountAmount.Equal(dec("50")))
	require.NotNil(t, booking.VoucherCode)
	assert.Equal(t, "DELUXE20", *booking.VoucherCode)

	stored, err := f.voucherDB.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)
	redemption, err := f.voucherDB.GetActiveRedemptionByBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.True(t, redemption.DiscountAmount.Equal(dec("50")))

	// the limit is used up, so the next booking fails and nothing is persisted
	_, err = f.svc.CreateBooking(ctx, uuid.New(), req)
	assert.ErrorIs(t, err, vouchers.ErrVoucherExhausted)
	assert.Equal(t, int64(1), f.countBookings(t))
}

func TestService_CreateBooking_FullyDiscountedIsConfirmed(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	userID := uuid.New()

	f.createVoucher(t, "stayfree", func(r *vouchers.CreateVoucherRequest) {
		r.DiscountType = vouchers.DiscountTypeFixedAmount
		r.DiscountValue = dec("500")
	})

	// one standard room for three nights is a 300 line, the discount caps at it
	req := f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1})
	req.VoucherCode = "stayfree"
	booking, err := f.svc.CreateBooking(ctx, userID, req)
	require.NoError(t, err)
	assert.True(t, booking.TotalPrice.IsZero(), "got %s", booking.TotalPrice)
	assert.Equal(t, StatusConfirmed, booking.Status)

	stored, err := f.svc.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)
	require.Len(t, stored.History, 2)
	assert.Equal(t, StatusPending, stored.History[0].Status)
	assert.Equal(t, StatusConfirmed, stored.History[1].Status)
	assert.Nil(t, stored.History[1].ChangedBy, "confirmed by the system")

	assert.Equal(t, []notifications.NotificationType{
		notifications.NotificationTypeBookingCreated,
		notifications.NotificationTypeBookingConfirmed,
	}, f.publisher.types())

	// a priced booking still waits for its payment
	paid, err := f.svc.CreateBooking(ctx, userID, f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, paid.Status)
}

func TestService_CancelBooking_LongReasonKeepsValidUTF8(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	userID := uuid.New()
	f.expectRefund(nil)

	booking, err := f.svc.CreateBooking(ctx, userID, f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, actor.New(userID, actor.RoleUser), booking.ID, strings.Repeat("ệ", 300))
	require.NoError(t, err)

	stored, err := f.svc.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	description := stored.LastHistory().Description
	assert.True(t, utf8.ValidString(description))
	assert.LessOrEqual(t, len(description), 500)
}

func TestService_CreateBooking_VoucherRaceHasOneWinner(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()

	limit := 1
	v := f.createVoucher(t, "ONCE", func(r *vouchers.CreateVoucherRequest) { r.UsageLimit = &limit })

	req := f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1})
	req.VoucherCode = "ONCE"

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateBooking(ctx, uuid.New(), req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, vouchers.ErrUsageLimitReached) || errors.Is(err, vouchers.ErrVoucherExhausted), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), f.countBookings(t))

	stored, err := f.voucherDB.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestService_CancelBooking(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	userID := uuid.New()
	f.expectRefund(nil)

	booking, err := f.svc.CreateBooking(ctx, userID, f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, actor.New(uuid.New(), actor.RoleUser), booking.ID, "")
	assert.ErrorIs(t, err, ErrNotBookingOwner)

	cancelled, err := f.svc.CancelBooking(ctx, actor.New(userID, actor.RoleUser), booking.ID, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	f.refunder.AssertCalled(t, "RefundBookingPayments", mock.Anything, booking.ID, "booking cancelled: plans changed")

	stored, err := f.svc.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
	require.Len(t, stored.History, 2)
	assert.Equal(t, "Booking cancelled: plans changed", stored.History[1].Description)
	assert.Equal(t, userID, *stored.History[1].ChangedBy)

	_, err = f.svc.CancelBooking(ctx, actor.New(userID, actor.RoleUser), booking.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	f.refunder.AssertNumberOfCalls(t, "RefundBookingPayments", 1)

	assert.Equal(t, []notifications.NotificationType{
		notifications.NotificationTypeBookingCreated,
		notifications.NotificationTypeBookingCancelled,
	}, f.publisher.types())
}

func TestService_CancelBooking_RefundFailureKeepsCancellation(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	f.expectRefund(errors.New("gateway down"))

	booking, err := f.svc.CreateBooking(ctx, uuid.New(), f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1}))
	require.NoError(t, err)

	cancelled, err := f.svc.CancelBooking(ctx, actor.New(uuid.New(), actor.RoleAdmin), booking.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	stored, err := f.svc.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
}

func TestService_CancelBooking_VoucherPolicy(t *testing.T) {
	for _, tc := range []struct {
		policy   vouchers.UsagePolicy
		wantUsed int
	}{
		{vouchers.RetainOnCancel, 1},
		{vouchers.ReleaseOnCancel, 0},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			f := setupFixture(t, tc.policy)
			f.expectRefund(nil)
			ctx := context.Background()
			userID := uuid.New()
			v := f.createVoucher(t, "TRIP10", nil)

			req := f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1})
			req.VoucherCode = "TRIP10"
			booking, err := f.svc.CreateBooking(ctx, userID, req)
			require.NoError(t, err)

			_, err = f.svc.CancelBooking(ctx, actor.New(userID, actor.RoleUser), booking.ID, "")
			require.NoError(t, err)

			stored, err := f.voucherDB.GetByID(ctx, v.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantUsed, stored.UsedCount)
		})
	}
}

func TestService_ConfirmBooking_Authorization(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	userID := uuid.New()

	booking, err := f.svc.CreateBooking(ctx, userID, f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.ConfirmBooking(ctx, actor.New(userID, actor.RoleUser), booking.ID)
	assert.ErrorIs(t, err, ErrNotBookingOwner)

	_, err = f.svc.ConfirmBooking(ctx, actor.New(uuid.New(), actor.RolePartner), booking.ID)
	assert.ErrorIs(t, err, ErrNotBookingOwner)

	partner := actor.New(f.partnerID, actor.RolePartner)
	confirmed, err := f.svc.ConfirmBooking(ctx, partner, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, f.partnerID, *confirmed.LastHistory().ChangedBy)

	_, err = f.svc.ConfirmBooking(ctx, partner, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// the owning partner can read the booking, a stranger cannot
	_, err = f.svc.GetBooking(ctx, partner, booking.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetBooking(ctx, actor.New(uuid.New(), actor.RoleUser), booking.ID)
	assert.ErrorIs(t, err, ErrNotBookingOwner)
}

func TestService_CompleteFinishedStays(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	admin := actor.New(uuid.New(), actor.RoleAdmin)

	stay, err := f.svc.CreateBooking(ctx, uuid.New(), f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.ConfirmBooking(ctx, admin, stay.ID)
	require.NoError(t, err)

	pending, err := f.svc.CreateBooking(ctx, uuid.New(), f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1}))
	require.NoError(t, err)

	n, err := f.svc.CompleteFinishedStays(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing has checked out yet")

	f.svc.now = func() time.Time { return day(5) }
	n, err = f.svc.CompleteFinishedStays(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := f.svc.repo.GetByID(ctx, stay.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Nil(t, stored.LastHistory().ChangedBy)

	untouched, err := f.svc.repo.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, untouched.Status)
}

func TestService_GetUserBookings(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateBooking(ctx, userID, f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1}))
		require.NoError(t, err)
	}
	_, err := f.svc.CreateBooking(ctx, uuid.New(), f.request(BookingItemRequest{RoomTypeID: f.standard.ID, Quantity: 1}))
	require.NoError(t, err)

	bookings, total, err := f.svc.GetUserBookings(ctx, userID, BookingListQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, bookings, 2)
	for _, b := range bookings {
		assert.Equal(t, userID, b.UserID)
		assert.Len(t, b.Details, 1)
	}

	_, total, err = f.svc.GetUserBookings(ctx, userID, BookingListQuery{Status: StatusConfirmed})
	require.NoError(t, err)
	assert.Zero(t, total)
}
