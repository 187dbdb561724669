package bookings

import (
	"context"
	"errors"
	"time"

	"tripenjoy/internal/shared/apperror"
	"tripenjoy/internal/shared/uow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingListQuery struct {
	Page   int
	Limit  int
	Status Status
}

type Repository interface {
	// Create persists the booking with its details and history
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// GetForUpdate loads the booking and locks its row for the current unit of work
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)
	// SaveTransition writes the status change made on booking, provided the
	// stored status is still from, and appends its newest history entry.
	SaveTransition(ctx context.Context, booking *Booking, from Status) error

	GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)
	// ListFinishedStays returns Confirmed bookings whose check-out has passed
	ListFinishedStays(ctx context.Context, now time.Time, limit int) ([]Booking, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, booking *Booking) error {
	if err := uow.DB(ctx, r.db).Create(booking).Error; err != nil {
		return apperror.Failure("BOOKING_SAVE_FAILED", "failed to create booking", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.load(ctx, uow.DB(ctx, r.db), id)
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.load(ctx, uow.ForUpdate(uow.DB(ctx, r.db)), id)
}

func (r *repository) load(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := db.Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, apperror.Failure("BOOKING_LOAD_FAILED", "failed to load booking", err)
	}
	if err := r.loadChildren(ctx, []*Booking{&booking}); err != nil {
		return nil, err
	}
	return &booking, nil
}

// loadChildren fills details and history. Preload cannot be combined with
// the row lock on postgres, so children are read with separate queries.
func (r *repository) loadChildren(ctx context.Context, bookings []*Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(bookings))
	byID := make(map[uuid.UUID]*Booking, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
		byID[b.ID] = b
		b.Details = nil
		b.History = nil
	}

	var details []BookingDetail
	if err := uow.DB(ctx, r.db).Where("booking_id IN ?", ids).Order("position ASC").Find(&details).Error; err != nil {
		return apperror.Failure("BOOKING_LOAD_FAILED", "failed to load booking details", err)
	}
	for _, d := range details {
		byID[d.BookingID].Details = append(byID[d.BookingID].Details, d)
	}

	var history []BookingHistory
	if err := uow.DB(ctx, r.db).Where("booking_id IN ?", ids).Order("sequence ASC").Find(&history).Error; err != nil {
		return apperror.Failure("BOOKING_LOAD_FAILED", "failed to load booking history", err)
	}
	for _, h := range history {
		byID[h.BookingID].History = append(byID[h.BookingID].History, h)
	}
	return nil
}

func (r *repository) SaveTransition(ctx context.Context, booking *Booking, from Status) error {
	entry := booking.LastHistory()
	if entry == nil || entry.Status != booking.Status {
		return apperror.Failure("BOOKING_SAVE_FAILED", "transition has no history entry", nil)
	}

	write := func(tx *gorm.DB) error {
		res := tx.Model(&Booking{}).
			Where("id = ? AND status = ?", booking.ID, from).
			Updates(map[string]interface{}{
				"status":       booking.Status,
				"updated_at":   booking.UpdatedAt,
				"cancelled_at": booking.CancelledAt,
			})
		if res.Error != nil {
			return apperror.Failure("BOOKING_SAVE_FAILED", "failed to update booking status", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition.Withf("booking %s is no longer %s", booking.ID, from)
		}
		if err := tx.Create(entry).Error; err != nil {
			return apperror.Failure("BOOKING_SAVE_FAILED", "failed to append booking history", err)
		}
		return nil
	}

	if uow.InTx(ctx) {
		return write(uow.DB(ctx, r.db))
	}
	return r.db.WithContext(ctx).Transaction(write)
}

func (r *repository) GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	var bookings []Booking
	var totalCount int64

	// Set defaults
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 10
	}

	baseQuery := uow.DB(ctx, r.db).
		Model(&Booking{}).
		Where("user_id = ?", userID)
	if query.Status != "" {
		baseQuery = baseQuery.Where("status = ?", query.Status)
	}

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, apperror.Failure("BOOKING_LOAD_FAILED", "failed to count bookings", err)
	}

	offset := (query.Page - 1) * query.Limit
	err := baseQuery.
		Order("created_at DESC").
		Offset(offset).
		Limit(query.Limit).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, apperror.Failure("BOOKING_LOAD_FAILED", "failed to list bookings", err)
	}

	ptrs := make([]*Booking, len(bookings))
	for i := range bookings {
		ptrs[i] = &bookings[i]
	}
	if err := r.loadChildren(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return bookings, totalCount, nil
}

func (r *repository) ListFinishedStays(ctx context.Context, now time.Time, limit int) ([]Booking, error) {
	var bookings []Booking
	err := uow.DB(ctx, r.db).
		Where("status = ? AND check_out_date <= ?", StatusConfirmed, now).
		Order("check_out_date ASC").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, apperror.Failure("BOOKING_LOAD_FAILED", "failed to list finished stays", err)
	}
	return bookings, nil
}
