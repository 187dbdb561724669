package bookings

import "tripenjoy/internal/shared/apperror"

var (
	ErrBookingNotFound     = apperror.NotFound("BOOKING_NOT_FOUND", "booking not found")
	ErrInvalidDates        = apperror.Validation("BOOKING_INVALID_DATES", "check-out date must be after check-in date")
	ErrCheckInInPast       = apperror.Validation("BOOKING_CHECK_IN_PAST", "check-in date cannot be in the past")
	ErrInvalidGuests       = apperror.Validation("BOOKING_INVALID_GUESTS", "number of guests must be greater than zero")
	ErrNegativeTotal       = apperror.Validation("BOOKING_NEGATIVE_TOTAL", "total price cannot be negative")
	ErrNoItems             = apperror.Validation("BOOKING_NO_ITEMS", "booking needs at least one room")
	ErrInvalidDetail       = apperror.Validation("BOOKING_INVALID_DETAIL", "quantity and nights must be positive and price cannot be negative")
	ErrInvalidDiscount     = apperror.Validation("BOOKING_INVALID_DISCOUNT", "line discount must be between zero and the line subtotal")
	ErrPropertyUnavailable = apperror.Validation("BOOKING_PROPERTY_UNAVAILABLE", "property is not accepting bookings")
	ErrRoomTypeUnavailable = apperror.Validation("BOOKING_ROOM_TYPE_UNAVAILABLE", "room type is not offered by this property")
	ErrCapacityExceeded    = apperror.Validation("BOOKING_CAPACITY_EXCEEDED", "selected rooms cannot host that many guests")
	ErrInvalidTransition   = apperror.Conflict("BOOKING_INVALID_STATE", "booking status does not allow this operation")
	ErrNotBookingOwner     = apperror.Forbidden("BOOKING_FORBIDDEN", "booking belongs to another user")
)
