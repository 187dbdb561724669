package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingDetailResponse struct {
	RoomTypeID     uuid.UUID       `json:"room_type_id"`
	Quantity       int             `json:"quantity"`
	Nights         int             `json:"nights"`
	PricePerNight  decimal.Decimal `json:"price_per_night"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}

type BookingHistoryResponse struct {
	Status      Status     `json:"status"`
	Description string     `json:"description"`
	ChangedAt   time.Time  `json:"changed_at"`
	ChangedBy   *uuid.UUID `json:"changed_by,omitempty"`
}

type BookingResponse struct {
	ID              uuid.UUID                `json:"id"`
	UserID          uuid.UUID                `json:"user_id"`
	PropertyID      uuid.UUID                `json:"property_id"`
	CheckInDate     string                   `json:"check_in_date"`
	CheckOutDate    string                   `json:"check_out_date"`
	NumberOfGuests  int                      `json:"number_of_guests"`
	Status          Status                   `json:"status"`
	TotalPrice      decimal.Decimal          `json:"total_price"`
	DiscountAmount  decimal.Decimal          `json:"discount_amount"`
	VoucherCode     *string                  `json:"voucher_code,omitempty"`
	SpecialRequests *string                  `json:"special_requests,omitempty"`
	Details         []BookingDetailResponse  `json:"details"`
	History         []BookingHistoryResponse `json:"history"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       *time.Time               `json:"updated_at,omitempty"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

func ToBookingResponse(b *Booking) BookingResponse {
	resp := BookingResponse{
		ID:              b.ID,
		UserID:          b.UserID,
		PropertyID:      b.PropertyID,
		CheckInDate:     b.CheckInDate.Format(dateLayout),
		CheckOutDate:    b.CheckOutDate.Format(dateLayout),
		NumberOfGuests:  b.NumberOfGuests,
		Status:          b.Status,
		TotalPrice:      b.TotalPrice,
		DiscountAmount:  b.DiscountTotal(),
		VoucherCode:     b.VoucherCode,
		SpecialRequests: b.SpecialRequests,
		Details:         make([]BookingDetailResponse, 0, len(b.Details)),
		History:         make([]BookingHistoryResponse, 0, len(b.History)),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	for _, d := range b.Details {
		resp.Details = append(resp.Details, BookingDetailResponse{
			RoomTypeID:     d.RoomTypeID,
			Quantity:       d.Quantity,
			Nights:         d.Nights,
			PricePerNight:  d.PricePerNight,
			DiscountAmount: d.DiscountAmount,
			TotalPrice:     d.TotalPrice,
		})
	}
	for _, h := range b.History {
		resp.History = append(resp.History, BookingHistoryResponse{
			Status:      h.Status,
			Description: h.Description,
			ChangedAt:   h.ChangedAt,
			ChangedBy:   h.ChangedBy,
		})
	}
	return resp
}
