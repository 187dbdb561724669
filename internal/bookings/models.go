package bookings

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking defines the reservation aggregate. TotalPrice always equals the sum
// of its details' totals once RecalculateTotalPrice has run.
type Booking struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	PropertyID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"property_id"`
	CheckInDate     time.Time       `gorm:"type:date;not null" json:"check_in_date"`
	CheckOutDate    time.Time       `gorm:"type:date;not null;index" json:"check_out_date"`
	NumberOfGuests  int             `gorm:"not null" json:"number_of_guests"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_price"`
	Status          Status          `gorm:"type:varchar(20);not null;index" json:"status"`
	SpecialRequests *string         `gorm:"type:text" json:"special_requests,omitempty"`
	VoucherCode     *string         `gorm:"type:varchar(50)" json:"voucher_code,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`

	// Relationships
	Details []BookingDetail  `json:"details" gorm:"foreignKey:BookingID"`
	History []BookingHistory `json:"history" gorm:"foreignKey:BookingID"`
}

// BookingDetail is one room-type line of a booking
type BookingDetail struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"booking_id"`
	RoomTypeID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"room_type_id"`
	Position       int             `gorm:"not null" json:"-"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	Nights         int             `gorm:"not null" json:"nights"`
	PricePerNight  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"price_per_night"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"discount_amount"`
	TotalPrice     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_price"`
}

// BookingHistory is an append-only record of one status transition.
// A nil ChangedBy means the system made the change.
type BookingHistory struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"booking_id"`
	Sequence    int        `gorm:"not null" json:"-"`
	Description string     `gorm:"type:varchar(500);not null" json:"description"`
	Status      Status     `gorm:"type:varchar(20);not null" json:"status"`
	ChangedAt   time.Time  `gorm:"not null" json:"changed_at"`
	ChangedBy   *uuid.UUID `gorm:"type:uuid" json:"changed_by,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// TableName sets the table name for BookingDetail
func (BookingDetail) TableName() string {
	return "booking_details"
}

// TableName sets the table name for BookingHistory
func (BookingHistory) TableName() string {
	return "booking_histories"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (d *BookingDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (h *BookingHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// NewBooking creates a Pending booking and records its creation in history.
func NewBooking(userID, propertyID uuid.UUID, checkIn, checkOut time.Time, guests int, initialTotal decimal.Decimal, specialRequests *string, now time.Time) (*Booking, error) {
	if !checkOut.After(checkIn) {
		return nil, ErrInvalidDates
	}
	if guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if initialTotal.IsNegative() {
		return nil, ErrNegativeTotal
	}

	b := &Booking{
		ID:              uuid.New(),
		UserID:          userID,
		PropertyID:      propertyID,
		CheckInDate:     checkIn,
		CheckOutDate:    checkOut,
		NumberOfGuests:  guests,
		TotalPrice:      initialTotal,
		Status:          StatusPending,
		SpecialRequests: specialRequests,
		CreatedAt:       now,
	}
	by := userID
	b.record("Booking created", &by, now)
	return b, nil
}

// Nights is the length of stay in whole days.
func (b *Booking) Nights() int {
	return int(b.CheckOutDate.Sub(b.CheckInDate).Hours() / 24)
}

// Subtotal is the line amount before discount.
func (d BookingDetail) Subtotal() decimal.Decimal {
	return d.PricePerNight.Mul(decimal.NewFromInt(int64(d.Quantity) * int64(d.Nights)))
}

func (d BookingDetail) validate() error {
	if d.Quantity <= 0 || d.Nights <= 0 || d.PricePerNight.IsNegative() {
		return ErrInvalidDetail
	}
	if d.DiscountAmount.IsNegative() || d.DiscountAmount.GreaterThan(d.Subtotal()) {
		return ErrInvalidDiscount
	}
	return nil
}

// AddBookingDetail appends a line and computes its total. The booking total
// is left untouched until RecalculateTotalPrice.
func (b *Booking) AddBookingDetail(d BookingDetail) error {
	if err := d.validate(); err != nil {
		return err
	}
	d.BookingID = b.ID
	d.Position = len(b.Details)
	d.TotalPrice = d.Subtotal().Sub(d.DiscountAmount)
	b.Details = append(b.Details, d)
	return nil
}

// RecalculateTotalPrice sets TotalPrice to the sum of the line totals.
func (b *Booking) RecalculateTotalPrice() {
	total := decimal.Zero
	for _, d := range b.Details {
		total = total.Add(d.TotalPrice)
	}
	b.TotalPrice = total
}

// ApplyLineDiscounts sets one discount per line, index-aligned with Details,
// and recomputes every total.
func (b *Booking) ApplyLineDiscounts(discounts []decimal.Decimal) error {
	if len(discounts) != len(b.Details) {
		return ErrInvalidDiscount.Withf("got %d discounts for %d lines", len(discounts), len(b.Details))
	}
	for i, discount := range discounts {
		if discount.IsNegative() || discount.GreaterThan(b.Details[i].Subtotal()) {
			return ErrInvalidDiscount
		}
	}
	for i, discount := range discounts {
		b.Details[i].DiscountAmount = discount
		b.Details[i].TotalPrice = b.Details[i].Subtotal().Sub(discount)
	}
	b.RecalculateTotalPrice()
	return nil
}

// DiscountTotal is the sum of line discounts.
func (b *Booking) DiscountTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range b.Details {
		total = total.Add(d.DiscountAmount)
	}
	return total
}

// Confirm moves a Pending booking to Confirmed.
func (b *Booking) Confirm(changedBy *uuid.UUID, now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidTransition.Withf("cannot confirm a %s booking", b.Status)
	}
	return b.transition(StatusConfirmed, "Booking confirmed", changedBy, now)
}

// Cancel moves a Pending or Confirmed booking to Cancelled.
func (b *Booking) Cancel(changedBy *uuid.UUID, reason string, now time.Time) error {
	if !b.Status.CanBeCancelled() {
		return ErrInvalidTransition.Withf("cannot cancel a %s booking", b.Status)
	}
	description := "Booking cancelled"
	if reason != "" {
		description = fmt.Sprintf("Booking cancelled: %s", reason)
	}
	if err := b.transition(StatusCancelled, description, changedBy, now); err != nil {
		return err
	}
	b.CancelledAt = &now
	return nil
}

// Complete closes a Confirmed booking once the stay is over.
func (b *Booking) Complete(changedBy *uuid.UUID, now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidTransition.Withf("cannot complete a %s booking", b.Status)
	}
	return b.transition(StatusCompleted, "Stay completed", changedBy, now)
}

func (b *Booking) transition(to Status, description string, changedBy *uuid.UUID, now time.Time) error {
	b.Status = to
	b.UpdatedAt = &now
	b.record(description, changedBy, now)
	return nil
}

func (b *Booking) record(description string, changedBy *uuid.UUID, now time.Time) {
	description = truncate(description, 500)
	b.History = append(b.History, BookingHistory{
		ID:          uuid.New(),
		BookingID:   b.ID,
		Sequence:    len(b.History),
		Description: description,
		Status:      b.Status,
		ChangedAt:   now,
		ChangedBy:   changedBy,
	})
}

// LastHistory returns the most recent history entry.
func (b *Booking) LastHistory() *BookingHistory {
	if len(b.History) == 0 {
		return nil
	}
	return &b.History[len(b.History)-1]
}

// IsOwnedBy reports whether userID made the booking
func (b *Booking) IsOwnedBy(userID uuid.UUID) bool {
	return b.UserID == userID
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
