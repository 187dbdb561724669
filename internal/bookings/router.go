package bookings

import (
	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.POST("", middleware.RequireRoles(actor.RoleUser, actor.RoleAdmin), controller.CreateBooking)
		bookings.GET("/:id", controller.GetBooking)
		bookings.POST("/:id/confirm", middleware.RequireRoles(actor.RoleAdmin, actor.RolePartner), controller.ConfirmBooking)
		bookings.POST("/:id/cancel", middleware.RequireRoles(actor.RoleUser, actor.RoleAdmin), controller.CancelBooking)
	}

	// User-specific booking routes
	users := rg.Group("/users")
	users.Use(auth, middleware.RequireRoles(actor.RoleUser, actor.RoleAdmin))
	{
		users.GET("/bookings", controller.GetUserBookings)
	}
}

// Route definitions for reference:
//
// POST   /api/v1/bookings                  - Create a Pending booking
// Request body: { "property_id": "...", "check_in_date": "2026-11-02", "check_out_date": "2026-11-04",
//                 "number_of_guests": 2, "items": [{ "room_type_id": "...", "quantity": 1 }], "voucher_code": "SAVE10" }
// GET    /api/v1/bookings/:id              - Get a booking (owner, property partner or admin)
// POST   /api/v1/bookings/:id/confirm      - Manual confirmation (admin or property partner)
// POST   /api/v1/bookings/:id/cancel       - Cancel (owner or admin), refunds captured payments
// GET    /api/v1/users/bookings            - Own bookings, ?page=1&limit=10&status=CONFIRMED
//
// Paid bookings are confirmed by the payment callback, see internal/payments.
