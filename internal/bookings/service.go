package bookings

import (
	"context"
	"fmt"
	"time"

	"tripenjoy/internal/catalog"
	"tripenjoy/internal/notifications"
	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/uow"
	"tripenjoy/internal/vouchers"
	"tripenjoy/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogReader interface for property lookups (catalog management lives elsewhere)
type CatalogReader interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*catalog.Property, error)
	GetRoomType(ctx context.Context, id uuid.UUID) (*catalog.RoomType, error)
}

// VoucherService interface for voucher evaluation and usage bookkeeping
type VoucherService interface {
	Evaluate(ctx context.Context, code string, order vouchers.Order) (*vouchers.Evaluation, error)
	Redeem(ctx context.Context, eval *vouchers.Evaluation, userID, bookingID uuid.UUID) (*vouchers.VoucherRedemption, error)
	ReleaseForBooking(ctx context.Context, bookingID uuid.UUID) error
}

// PaymentRefunder interface for refunding captured payments of a cancelled
// booking (implemented by the payment coordinator, set after construction to
// avoid an import cycle)
type PaymentRefunder interface {
	RefundBookingPayments(ctx context.Context, bookingID uuid.UUID, reason string) error
}

// Service interface defines the contract for booking business logic
type Service interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req CreateBookingRequest) (*Booking, error)
	GetBooking(ctx context.Context, by actor.Actor, bookingID uuid.UUID) (*Booking, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)
	ConfirmBooking(ctx context.Context, by actor.Actor, bookingID uuid.UUID) (*Booking, error)
	CancelBooking(ctx context.Context, by actor.Actor, bookingID uuid.UUID, reason string) (*Booking, error)
	CompleteFinishedStays(ctx context.Context) (int64, error)

	SetPaymentRefunder(refunder PaymentRefunder)
}

type service struct {
	repo      Repository
	catalog   CatalogReader
	vouchers  VoucherService
	tx        uow.Manager
	publisher notifications.Publisher
	refunder  PaymentRefunder
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a new booking service instance
func NewService(repo Repository, catalogReader CatalogReader, voucherService VoucherService, tx uow.Manager, publisher notifications.Publisher) Service {
	if publisher == nil {
		publisher = notifications.NewLogPublisher()
	}
	return &service{
		repo:      repo,
		catalog:   catalogReader,
		vouchers:  voucherService,
		tx:        tx,
		publisher: publisher,
		log:       logger.GetDefault(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) SetPaymentRefunder(refunder PaymentRefunder) {
	s.refunder = refunder
}

// CreateBooking prices the requested rooms, applies the voucher if one was
// given and persists the booking together with the voucher redemption.
func (s *service) CreateBooking(ctx context.Context, userID uuid.UUID, req CreateBookingRequest) (*Booking, error) {
	now := s.now()

	checkIn, checkOut, err := req.stayDates()
	if err != nil {
		return nil, err
	}
	if checkIn.Before(truncateToDate(now)) {
		return nil, ErrCheckInInPast
	}
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	property, err := s.catalog.GetProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsActive {
		return nil, ErrPropertyUnavailable
	}

	booking, err := NewBooking(userID, property.ID, checkIn, checkOut, req.NumberOfGuests, decimal.Zero, req.specialRequests(), now)
	if err != nil {
		return nil, err
	}

	// Step 1: Price each line from the catalog
	capacity := 0
	nights := booking.Nights()
	for _, item := range req.Items {
		roomType, err := s.catalog.GetRoomType(ctx, item.RoomTypeID)
		if err != nil {
			return nil, err
		}
		if roomType.PropertyID != property.ID || !roomType.IsActive {
			return nil, ErrRoomTypeUnavailable.Withf("room type %s", item.RoomTypeID)
		}
		capacity += roomType.Capacity * item.Quantity

		err = booking.AddBookingDetail(BookingDetail{
			RoomTypeID:     roomType.ID,
			Quantity:       item.Quantity,
			Nights:         nights,
			PricePerNight:  roomType.BasePrice,
			DiscountAmount: decimal.Zero,
		})
		if err != nil {
			return nil, err
		}
	}
	if req.NumberOfGuests > capacity {
		return nil, ErrCapacityExceeded.Withf("%d guests for %d places", req.NumberOfGuests, capacity)
	}
	booking.RecalculateTotalPrice()

	// Step 2: Evaluate the voucher against the priced lines
	var eval *vouchers.Evaluation
	if req.VoucherCode != "" {
		order := vouchers.Order{UserID: userID, PropertyID: property.ID}
		for _, d := range booking.Details {
			order.Lines = append(order.Lines, vouchers.OrderLine{RoomTypeID: d.RoomTypeID, Amount: d.Subtotal()})
		}
		eval, err = s.vouchers.Evaluate(ctx, req.VoucherCode, order)
		if err != nil {
			return nil, err
		}
		if err := booking.ApplyLineDiscounts(eval.LineDiscounts); err != nil {
			return nil, err
		}
		code := eval.Code
		booking.VoucherCode = &code
	}

	// A voucher covering the whole stay leaves nothing to pay, so the
	// booking is confirmed by the system instead of waiting for a payment
	freeOfCharge := booking.TotalPrice.IsZero()
	if freeOfCharge {
		if err := booking.Confirm(nil, now); err != nil {
			return nil, err
		}
	}

	// Step 3: Persist booking and voucher usage atomically
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, booking); err != nil {
			return err
		}
		if eval != nil {
			if _, err := s.vouchers.Redeem(ctx, eval, userID, booking.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.LogBookingCreated(ctx, booking.ID.String(), property.ID.String(), userID.String(), booking.TotalPrice.StringFixed(2))
	s.notify(ctx, notifications.NotificationTypeBookingCreated, booking)
	if freeOfCharge {
		s.log.LogBookingTransition(ctx, booking.ID.String(), string(StatusPending), string(StatusConfirmed), actor.System.String())
		s.notify(ctx, notifications.NotificationTypeBookingConfirmed, booking)
	}
	return booking, nil
}

func (s *service) GetBooking(ctx context.Context, by actor.Actor, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, by, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	return s.repo.GetUserBookings(ctx, userID, query)
}

// ConfirmBooking is the manual confirmation by an admin or the owning partner.
// Paid bookings are confirmed by the payment coordinator instead.
func (s *service) ConfirmBooking(ctx context.Context, by actor.Actor, bookingID uuid.UUID) (*Booking, error) {
	var booking *Booking
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.authorizeManage(ctx, by, b); err != nil {
			return err
		}
		from := b.Status
		if err := b.Confirm(by.Ref(), s.now()); err != nil {
			return err
		}
		if err := s.repo.SaveTransition(ctx, b, from); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogBookingTransition(ctx, booking.ID.String(), string(StatusPending), string(booking.Status), by.String())
	s.notify(ctx, notifications.NotificationTypeBookingConfirmed, booking)
	return booking, nil
}

// CancelBooking cancels on behalf of the guest or an admin. Voucher usage is
// handled per policy inside the same unit of work; captured payments are
// refunded after commit.
func (s *service) CancelBooking(ctx context.Context, by actor.Actor, bookingID uuid.UUID, reason string) (*Booking, error) {
	var booking *Booking
	var from Status
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !by.IsAdmin() && !by.IsSystem() && !b.IsOwnedBy(by.ID) {
			return ErrNotBookingOwner
		}
		from = b.Status
		if err := b.Cancel(by.Ref(), reason, s.now()); err != nil {
			return err
		}
		if err := s.repo.SaveTransition(ctx, b, from); err != nil {
			return err
		}
		if err := s.vouchers.ReleaseForBooking(ctx, b.ID); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogBookingTransition(ctx, booking.ID.String(), string(from), string(booking.Status), by.String())
	s.notify(ctx, notifications.NotificationTypeBookingCancelled, booking)

	if s.refunder != nil {
		if err := s.refunder.RefundBookingPayments(ctx, booking.ID, refundReason(reason)); err != nil {
			// The cancellation stands; the refund can be retried by an admin.
			s.log.ErrorWithContext(ctx, "Refund after cancellation failed", err, map[string]interface{}{
				"booking_id": booking.ID.String(),
			})
		}
	}
	return booking, nil
}

// CompleteFinishedStays closes Confirmed bookings whose check-out has passed.
func (s *service) CompleteFinishedStays(ctx context.Context) (int64, error) {
	now := s.now()
	candidates, err := s.repo.ListFinishedStays(ctx, now, 200)
	if err != nil {
		return 0, err
	}

	var completed int64
	for _, candidate := range candidates {
		err := s.tx.Do(ctx, func(ctx context.Context) error {
			b, err := s.repo.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			from := b.Status
			if err := b.Complete(nil, now); err != nil {
				return err
			}
			return s.repo.SaveTransition(ctx, b, from)
		})
		if err != nil {
			s.log.ErrorWithContext(ctx, "Failed to complete stay", err, map[string]interface{}{
				"booking_id": candidate.ID.String(),
			})
			continue
		}
		completed++
		s.log.LogBookingTransition(ctx, candidate.ID.String(), string(StatusConfirmed), string(StatusCompleted), actor.System.String())
	}
	return completed, nil
}

func (s *service) authorizeView(ctx context.Context, by actor.Actor, b *Booking) error {
	switch {
	case by.IsAdmin(), by.IsSystem(), b.IsOwnedBy(by.ID):
		return nil
	case by.IsPartner():
		return s.checkPartner(ctx, by, b)
	default:
		return ErrNotBookingOwner
	}
}

func (s *service) authorizeManage(ctx context.Context, by actor.Actor, b *Booking) error {
	switch {
	case by.IsAdmin(), by.IsSystem():
		return nil
	case by.IsPartner():
		return s.checkPartner(ctx, by, b)
	default:
		return ErrNotBookingOwner
	}
}

func (s *service) checkPartner(ctx context.Context, by actor.Actor, b *Booking) error {
	property, err := s.catalog.GetProperty(ctx, b.PropertyID)
	if err != nil {
		return err
	}
	if property.PartnerID != by.ID {
		return ErrNotBookingOwner
	}
	return nil
}

func (s *service) notify(ctx context.Context, notType notifications.NotificationType, b *Booking) {
	n := notifications.NewNotificationBuilder(notType).
		WithBooking(b.ID, b.UserID, string(b.Status)).
		WithAmount(b.TotalPrice).
		WithMeta("property_id", b.PropertyID.String())
	if b.VoucherCode != nil {
		n = n.WithMeta("voucher_code", *b.VoucherCode)
	}
	s.publisher.Publish(ctx, n.Build())
}

func refundReason(reason string) string {
	if reason == "" {
		return "booking cancelled"
	}
	return "booking cancelled: " + reason
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
