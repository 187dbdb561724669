package bookings

import (
	"net/http"
	"strconv"

	"tripenjoy/internal/shared/middleware"
	"tripenjoy/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateBooking godoc
// @Summary      Create booking
// @Description  Prices the rooms from the catalog, applies an optional voucher and creates a Pending booking
// @Tags         Bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body CreateBookingRequest true "Booking"
// @Success      201 {object} response.StandardApiResponse
// @Failure      400 {object} response.StandardApiResponse
// @Failure      409 {object} response.StandardApiResponse
// @Router       /bookings [post]
func (c *Controller) CreateBooking(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	booking, err := c.service.CreateBooking(ctx.Request.Context(), userID, req)
	if err != nil {
		response.RespondError(ctx, "Failed to create booking", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusCreated, "Booking created successfully", ToBookingResponse(booking))
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, nil)
		return
	}
	by, err := middleware.CurrentActor(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), by, bookingID)
	if err != nil {
		response.RespondError(ctx, "Failed to get booking", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Booking retrieved successfully", ToBookingResponse(booking))
}

// GetUserBookings handles GET /api/v1/users/bookings?page=1&limit=10&status=PENDING
func (c *Controller) GetUserBookings(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	query := BookingListQuery{Page: page, Limit: limit, Status: Status(ctx.Query("status"))}

	bookings, total, err := c.service.GetUserBookings(ctx.Request.Context(), userID, query)
	if err != nil {
		response.RespondError(ctx, "Failed to get user bookings", err)
		return
	}

	items := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		items = append(items, ToBookingResponse(&bookings[i]))
	}
	response.RespondSuccess(ctx, http.StatusOK, "Bookings retrieved successfully", BookingListResponse{
		Bookings: items,
		Total:    total,
		Page:     page,
		Limit:    limit,
	})
}

// ConfirmBooking handles POST /api/v1/bookings/:id/confirm
func (c *Controller) ConfirmBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, nil)
		return
	}
	by, err := middleware.CurrentActor(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	booking, err := c.service.ConfirmBooking(ctx.Request.Context(), by, bookingID)
	if err != nil {
		response.RespondError(ctx, "Failed to confirm booking", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Booking confirmed successfully", ToBookingResponse(booking))
}

// CancelBooking godoc
// @Summary      Cancel booking
// @Description  Cancels a Pending or Confirmed booking; captured payments are refunded
// @Tags         Bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Booking ID"
// @Param        body body CancelBookingRequest false "Reason"
// @Success      200 {object} response.StandardApiResponse
// @Failure      409 {object} response.StandardApiResponse
// @Router       /bookings/{id}/cancel [post]
func (c *Controller) CancelBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, nil)
		return
	}
	by, err := middleware.CurrentActor(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	// body is optional
	var req CancelBookingRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondBindingError(ctx, err)
			return
		}
	}

	booking, err := c.service.CancelBooking(ctx.Request.Context(), by, bookingID, req.Reason)
	if err != nil {
		response.RespondError(ctx, "Failed to cancel booking", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Booking cancelled successfully", ToBookingResponse(booking))
}
