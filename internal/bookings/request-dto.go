package bookings

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type BookingItemRequest struct {
	RoomTypeID uuid.UUID `json:"room_type_id" binding:"required"`
	Quantity   int       `json:"quantity" binding:"required,gt=0,lte=20"`
}

type CreateBookingRequest struct {
	PropertyID      uuid.UUID            `json:"property_id" binding:"required"`
	CheckInDate     string               `json:"check_in_date" binding:"required,datetime=2006-01-02"`
	CheckOutDate    string               `json:"check_out_date" binding:"required,datetime=2006-01-02"`
	NumberOfGuests  int                  `json:"number_of_guests" binding:"required,gt=0"`
	Items           []BookingItemRequest `json:"items" binding:"required,min=1,dive"`
	VoucherCode     string               `json:"voucher_code" binding:"omitempty,max=50"`
	SpecialRequests string               `json:"special_requests" binding:"max=1000"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=300"`
}

func (r CreateBookingRequest) stayDates() (time.Time, time.Time, error) {
	checkIn, err := time.ParseInLocation(dateLayout, r.CheckInDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDates.Withf("check-in %q", r.CheckInDate)
	}
	checkOut, err := time.ParseInLocation(dateLayout, r.CheckOutDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDates.Withf("check-out %q", r.CheckOutDate)
	}
	return checkIn, checkOut, nil
}

func (r CreateBookingRequest) specialRequests() *string {
	trimmed := strings.TrimSpace(r.SpecialRequests)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
