package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"tripenjoy/internal/bookings"
	"tripenjoy/internal/notifications"
	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/config"
	"tripenjoy/internal/shared/uow"
	"tripenjoy/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStore interface for the booking rows a payment moves (satisfied by
// bookings.Repository)
type BookingStore interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*bookings.Booking, error)
	SaveTransition(ctx context.Context, booking *bookings.Booking, from bookings.Status) error
}

// InitiateResult is a payment handed to its gateway
type InitiateResult struct {
	Payment    *Payment
	PaymentURL string
}

// CallbackOutcome describes what a gateway callback did
type CallbackOutcome struct {
	PaymentID        uuid.UUID
	BookingID        uuid.UUID
	Status           Status
	Success          bool
	AlreadyProcessed bool
	AmountMismatch   bool
	BookingConfirmed bool
	Message          string
}

// Coordinator advances payments and their bookings together.
type Coordinator interface {
	InitiatePayment(ctx context.Context, userID, bookingID uuid.UUID, method Method, returnURL, clientIP string) (*InitiateResult, error)
	// HandleGatewayCallback is idempotent: a callback for a payment that
	// already reached a final state changes nothing, except that money
	// captured for a failed attempt is recorded once and refunded.
	HandleGatewayCallback(ctx context.Context, method Method, payload url.Values) (*CallbackOutcome, error)
	RefundPayment(ctx context.Context, by actor.Actor, paymentID uuid.UUID, reason string) (*Payment, error)
	RefundBookingPayments(ctx context.Context, bookingID uuid.UUID, reason string) error
	FailStalePayments(ctx context.Context) (int64, error)
	GetPayment(ctx context.Context, by actor.Actor, paymentID uuid.UUID) (*Payment, error)
}

type coordinator struct {
	repo      Repository
	bookings  BookingStore
	gateways  Gateways
	tx        uow.Manager
	publisher notifications.Publisher
	timeout   time.Duration
	currency  string
	log       *logger.Logger
	now       func() time.Time
}

// NewCoordinator creates the payment coordinator
func NewCoordinator(repo Repository, bookingStore BookingStore, gateways Gateways, tx uow.Manager, publisher notifications.Publisher, cfg config.PaymentConfig) Coordinator {
	if publisher == nil {
		publisher = notifications.NewLogPublisher()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "VND"
	}
	return &coordinator{
		repo:      repo,
		bookings:  bookingStore,
		gateways:  gateways,
		tx:        tx,
		publisher: publisher,
		timeout:   cfg.Timeout,
		currency:  cfg.Currency,
		log:       logger.GetDefault(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// InitiatePayment opens a Processing payment for a Pending booking and asks
// the gateway for the payer's redirect URL.
func (c *coordinator) InitiatePayment(ctx context.Context, userID, bookingID uuid.UUID, method Method, returnURL, clientIP string) (*InitiateResult, error) {
	gateway, err := c.gateways.Get(method)
	if err != nil {
		return nil, err
	}
	now := c.now()

	var payment *Payment
	var expired *Payment
	err = c.tx.Do(ctx, func(ctx context.Context) error {
		// the booking row lock serializes concurrent initiations
		booking, err := c.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !booking.IsOwnedBy(userID) {
			return ErrNotPaymentOwner
		}
		if booking.Status != bookings.StatusPending {
			return ErrBookingNotPayable.Withf("booking is %s", booking.Status)
		}

		existing, err := c.repo.FindActiveByBooking(ctx, booking.ID)
		switch {
		case errors.Is(err, ErrPaymentNotFound):
		case err != nil:
			return err
		case existing.IsStale(now, c.timeout):
			from := existing.Status
			if err := existing.MarkAsFailed("payment timed out", now); err != nil {
				return err
			}
			if err := c.repo.Save(ctx, existing, from); err != nil {
				return err
			}
			expired = existing
		default:
			return ErrPaymentInProgress
		}

		p, err := NewPayment(booking.ID, userID, booking.TotalPrice, method, c.currency, now)
		if err != nil {
			return err
		}
		if err := c.repo.Create(ctx, p); err != nil {
			return err
		}
		if err := p.MarkAsProcessing(now); err != nil {
			return err
		}
		if err := c.repo.Save(ctx, p, StatusPending); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired != nil {
		c.notify(ctx, notifications.NotificationTypePaymentFailed, expired, "payment timed out")
	}

	paymentURL, err := gateway.CreatePaymentURL(ctx, PaymentURLRequest{
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		OrderInfo: "Payment for booking " + bookingID.String(),
		ReturnURL: returnURL,
		ClientIP:  clientIP,
		CreatedAt: now,
		ExpiresAt: now.Add(c.timeout),
	})
	if err != nil {
		c.failAfterGatewayError(ctx, payment, err)
		return nil, fmt.Errorf("initiate payment %s: %w", payment.ID, err)
	}

	c.log.LogPaymentInitiated(ctx, payment.ID.String(), bookingID.String(), string(method), payment.Amount.StringFixed(2))
	return &InitiateResult{Payment: payment, PaymentURL: paymentURL}, nil
}

// failAfterGatewayError leaves the payment Failed so the booking can be paid again.
func (c *coordinator) failAfterGatewayError(ctx context.Context, payment *Payment, cause error) {
	err := c.tx.Do(ctx, func(ctx context.Context) error {
		p, err := c.repo.GetForUpdate(ctx, payment.ID)
		if err != nil {
			return err
		}
		from := p.Status
		if err := p.MarkAsFailed("gateway error: "+cause.Error(), c.now()); err != nil {
			return err
		}
		if err := c.repo.Save(ctx, p, from); err != nil {
			return err
		}
		*payment = *p
		return nil
	})
	if err != nil {
		c.log.ErrorWithContext(ctx, "Failed to mark payment as failed after gateway error", err, map[string]interface{}{
			"payment_id": payment.ID.String(),
		})
		return
	}
	c.notify(ctx, notifications.NotificationTypePaymentFailed, payment, "gateway error")
}

func (c *coordinator) HandleGatewayCallback(ctx context.Context, method Method, payload url.Values) (*CallbackOutcome, error) {
	gateway, err := c.gateways.Get(method)
	if err != nil {
		return nil, err
	}
	result, err := gateway.VerifyCallback(ctx, payload)
	if err != nil {
		return nil, err
	}

	now := c.now()
	outcome := &CallbackOutcome{PaymentID: result.PaymentID, Message: result.Message}
	var payment *Payment
	refundNeeded := false
	strayCapture := false
	captured := result.Success && strings.TrimSpace(result.TransactionID) != ""

	err = c.tx.Do(ctx, func(ctx context.Context) error {
		// booking row first, the order InitiatePayment locks in
		peek, err := c.repo.GetByID(ctx, result.PaymentID)
		if err != nil {
			return err
		}
		if peek.PaymentMethod != method {
			return ErrInvalidCallback.Withf("payment %s was not made through %s", peek.ID, method)
		}
		booking, err := c.bookings.GetForUpdate(ctx, peek.BookingID)
		if err != nil {
			return err
		}
		p, err := c.repo.GetForUpdate(ctx, peek.ID)
		if err != nil {
			return err
		}
		outcome.BookingID = p.BookingID
		payment = p

		if p.IsTerminal() {
			outcome.AlreadyProcessed = true
			if p.Status == StatusFailed && p.TransactionID == nil && captured {
				// the gateway took the money after the attempt timed out or was replaced
				if err := p.RecordStrayCapture(result.TransactionID, result.Amount, now); err != nil {
					return err
				}
				if err := c.repo.Save(ctx, p, StatusFailed); err != nil {
					return err
				}
				strayCapture = true
			}
			outcome.Status = p.Status
			outcome.Success = p.Status == StatusSuccess || p.Status == StatusRefunded
			return nil
		}

		from := p.Status
		switch {
		case !result.Amount.Equal(p.Amount):
			outcome.AmountMismatch = true
			reason := fmt.Sprintf("amount mismatch: gateway reported %s, expected %s", result.Amount.StringFixed(2), p.Amount.StringFixed(2))
			if err := p.MarkAsFailed(reason, now); err != nil {
				return err
			}
			if captured {
				if err := p.RecordStrayCapture(result.TransactionID, result.Amount, now); err != nil {
					return err
				}
				strayCapture = true
			}
		case result.Success:
			if err := p.MarkAsSuccess(result.TransactionID, now); err != nil {
				return err
			}
		default:
			if err := p.MarkAsFailed(result.Message, now); err != nil {
				return err
			}
		}
		if err := c.repo.Save(ctx, p, from); err != nil {
			return err
		}
		outcome.Status = p.Status
		outcome.Success = p.Status == StatusSuccess
		if !outcome.Success {
			return nil
		}

		switch booking.Status {
		case bookings.StatusPending:
			if err := booking.Confirm(nil, now); err != nil {
				return err
			}
			if err := c.bookings.SaveTransition(ctx, booking, bookings.StatusPending); err != nil {
				return err
			}
			outcome.BookingConfirmed = true
		case bookings.StatusCancelled:
			// cancelled while the payer was at the gateway
			refundNeeded = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.LogPaymentCallback(ctx, outcome.PaymentID.String(), string(outcome.Status), outcome.AlreadyProcessed)
	if strayCapture {
		defer c.refundStrayCapture(ctx, payment)
	}
	if outcome.AlreadyProcessed {
		return outcome, nil
	}

	if outcome.Success {
		c.notify(ctx, notifications.NotificationTypePaymentSucceeded, payment, "")
	} else {
		c.notify(ctx, notifications.NotificationTypePaymentFailed, payment, outcome.Message)
	}
	if outcome.BookingConfirmed {
		c.log.LogBookingTransition(ctx, payment.BookingID.String(), string(bookings.StatusPending), string(bookings.StatusConfirmed), actor.System.String())
		c.publisher.Publish(ctx, notifications.NewNotificationBuilder(notifications.NotificationTypeBookingConfirmed).
			WithBooking(payment.BookingID, payment.UserID, string(bookings.StatusConfirmed)).
			WithPayment(payment.ID).
			WithAmount(payment.Amount).
			Build())
	}
	if refundNeeded {
		if _, err := c.RefundPayment(ctx, actor.System, payment.ID, "booking was cancelled before the payment completed"); err != nil {
			c.log.ErrorWithContext(ctx, "Automatic refund of a cancelled booking failed", err, map[string]interface{}{
				"payment_id": payment.ID.String(),
				"booking_id": payment.BookingID.String(),
			})
		}
	}
	return outcome, nil
}

// refundStrayCapture returns money captured for a failed attempt. A failure
// leaves the capture recorded on the payment for an admin refund.
func (c *coordinator) refundStrayCapture(ctx context.Context, payment *Payment) {
	if _, err := c.RefundPayment(ctx, actor.System, payment.ID, "payment captured after the attempt had failed"); err != nil {
		c.log.ErrorWithContext(ctx, "Refund of a stray capture failed, needs reconciliation", err, map[string]interface{}{
			"payment_id":     payment.ID.String(),
			"booking_id":     payment.BookingID.String(),
			"transaction_id": *payment.TransactionID,
			"amount":         payment.CapturedAmount.Decimal.StringFixed(2),
		})
		c.notify(ctx, notifications.NotificationTypePaymentFailed, payment, "captured after failure, refund pending")
	}
}

// RefundPayment reverses a successful payment through its gateway, or returns
// money captured for a failed attempt. The booking keeps its status.
func (c *coordinator) RefundPayment(ctx context.Context, by actor.Actor, paymentID uuid.UUID, reason string) (*Payment, error) {
	if !by.IsAdmin() && !by.IsSystem() {
		return nil, ErrRefundForbidden
	}

	var refunded *Payment
	err := c.tx.Do(ctx, func(ctx context.Context) error {
		// the row lock is held across the gateway call so a payment is refunded once
		p, err := c.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		from := p.Status
		var amount decimal.Decimal
		switch {
		case p.NeedsStrayRefund():
			amount = p.CapturedAmount.Decimal
		case p.TransactionID == nil || *p.TransactionID == "":
			return ErrMissingTransactionID
		case p.Status != StatusSuccess:
			return ErrInvalidPaymentState.Withf("cannot refund a %s payment", p.Status)
		default:
			amount = p.Amount
		}
		gateway, err := c.gateways.Get(p.PaymentMethod)
		if err != nil {
			return err
		}

		var paidAt time.Time
		if p.PaidAt != nil {
			paidAt = *p.PaidAt
		}
		refundTxID, err := gateway.ProcessRefund(ctx, RefundRequest{
			PaymentID:     p.ID,
			TransactionID: *p.TransactionID,
			Amount:        amount,
			Reason:        reason,
			PaidAt:        paidAt,
			RequestedBy:   by.String(),
		})
		if err != nil {
			return err
		}

		if from == StatusFailed {
			err = p.RecordStrayRefund(refundTxID, reason, c.now())
		} else {
			err = p.MarkAsRefunded(refundTxID, reason, c.now())
		}
		if err != nil {
			return err
		}
		if err := c.repo.Save(ctx, p, from); err != nil {
			return err
		}
		refunded = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	refundTxID := ""
	if refunded.RefundTransactionID != nil {
		refundTxID = *refunded.RefundTransactionID
	}
	c.log.LogPaymentRefunded(ctx, refunded.ID.String(), refundTxID, reason)
	c.notify(ctx, notifications.NotificationTypePaymentRefunded, refunded, reason)
	return refunded, nil
}

// RefundBookingPayments refunds every successful payment of a booking.
func (c *coordinator) RefundBookingPayments(ctx context.Context, bookingID uuid.UUID, reason string) error {
	paid, err := c.repo.ListByBooking(ctx, bookingID, StatusSuccess)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range paid {
		if _, err := c.RefundPayment(ctx, actor.System, p.ID, reason); err != nil {
			errs = append(errs, fmt.Errorf("refund payment %s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

// FailStalePayments fails Processing payments the gateway never reported on.
func (c *coordinator) FailStalePayments(ctx context.Context) (int64, error) {
	now := c.now()
	stale, err := c.repo.ListStale(ctx, now.Add(-c.timeout), 200)
	if err != nil {
		return 0, err
	}

	var failed int64
	for _, candidate := range stale {
		var payment *Payment
		err := c.tx.Do(ctx, func(ctx context.Context) error {
			p, err := c.repo.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !p.IsStale(now, c.timeout) {
				return nil
			}
			from := p.Status
			if err := p.MarkAsFailed("payment timed out", now); err != nil {
				return err
			}
			if err := c.repo.Save(ctx, p, from); err != nil {
				return err
			}
			payment = p
			return nil
		})
		if err != nil {
			c.log.ErrorWithContext(ctx, "Failed to expire stale payment", err, map[string]interface{}{
				"payment_id": candidate.ID.String(),
			})
			continue
		}
		if payment != nil {
			failed++
			c.notify(ctx, notifications.NotificationTypePaymentFailed, payment, "payment timed out")
		}
	}
	return failed, nil
}

func (c *coordinator) GetPayment(ctx context.Context, by actor.Actor, paymentID uuid.UUID) (*Payment, error) {
	p, err := c.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !by.IsAdmin() && !by.IsSystem() && p.UserID != by.ID {
		return nil, ErrNotPaymentOwner
	}
	return p, nil
}

func (c *coordinator) notify(ctx context.Context, notType notifications.NotificationType, p *Payment, reason string) {
	n := notifications.NewNotificationBuilder(notType).
		WithBooking(p.BookingID, p.UserID, string(p.Status)).
		WithPayment(p.ID).
		WithAmount(p.Amount).
		WithMeta("method", string(p.PaymentMethod)).
		WithMeta("reason", reason)
	if p.TransactionID != nil {
		n = n.WithMeta("transaction_id", *p.TransactionID)
	}
	if p.RefundTransactionID != nil {
		n = n.WithMeta("refund_transaction_id", *p.RefundTransactionID)
	}
	c.publisher.Publish(ctx, n.Build())
}
