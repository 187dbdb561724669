package payments

import (
	"context"
	"errors"
	"time"

	"tripenjoy/internal/shared/apperror"
	"tripenjoy/internal/shared/uow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// GetForUpdate loads the payment and locks its row for the current unit of work
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)
	// Save writes the payment's mutable fields provided its stored status is still from
	Save(ctx context.Context, payment *Payment, from Status) error

	// FindActiveByBooking returns the booking's Pending or Processing payment
	FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*Payment, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID, statuses ...Status) ([]Payment, error)
	// ListStale returns Processing payments created before cutoff
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Payment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, payment *Payment) error {
	if err := uow.DB(ctx, r.db).Create(payment).Error; err != nil {
		if uow.IsUniqueViolation(err) {
			return ErrPaymentInProgress
		}
		return apperror.Failure("PAYMENT_SAVE_FAILED", "failed to create payment", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return r.first(uow.DB(ctx, r.db).Where("id = ?", id))
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return r.first(uow.ForUpdate(uow.DB(ctx, r.db)).Where("id = ?", id))
}

func (r *repository) FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*Payment, error) {
	q := uow.ForUpdate(uow.DB(ctx, r.db)).
		Where("booking_id = ? AND status IN ?", bookingID, []Status{StatusPending, StatusProcessing})
	return r.first(q)
}

func (r *repository) first(q *gorm.DB) (*Payment, error) {
	var payment Payment
	if err := q.First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, apperror.Failure("PAYMENT_LOAD_FAILED", "failed to load payment", err)
	}
	return &payment, nil
}

func (r *repository) Save(ctx context.Context, payment *Payment, from Status) error {
	res := uow.DB(ctx, r.db).Model(&Payment{}).
		Where("id = ? AND status = ?", payment.ID, from).
		Updates(map[string]interface{}{
			"status":                payment.Status,
			"transaction_id":        payment.TransactionID,
			"paid_at":               payment.PaidAt,
			"failure_reason":        payment.FailureReason,
			"refund_transaction_id": payment.RefundTransactionID,
			"refund_reason":         payment.RefundReason,
			"refunded_at":           payment.RefundedAt,
			"captured_amount":       payment.CapturedAmount,
			"updated_at":            payment.UpdatedAt,
		})
	if res.Error != nil {
		return apperror.Failure("PAYMENT_SAVE_FAILED", "failed to update payment", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidPaymentState.Withf("payment %s is no longer %s", payment.ID, from)
	}
	return nil
}

func (r *repository) ListByBooking(ctx context.Context, bookingID uuid.UUID, statuses ...Status) ([]Payment, error) {
	var payments []Payment
	q := uow.DB(ctx, r.db).Where("booking_id = ?", bookingID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("created_at ASC").Find(&payments).Error; err != nil {
		return nil, apperror.Failure("PAYMENT_LOAD_FAILED", "failed to list payments", err)
	}
	return payments, nil
}

func (r *repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Payment, error) {
	var payments []Payment
	err := uow.DB(ctx, r.db).
		Where("status = ? AND created_at < ?", StatusProcessing, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, apperror.Failure("PAYMENT_LOAD_FAILED", "failed to list stale payments", err)
	}
	return payments, nil
}
