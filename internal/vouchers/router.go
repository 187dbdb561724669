package vouchers

import (
	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupVoucherRoutes configures all voucher-related routes
func SetupVoucherRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	RegisterValidators()

	vouchers := rg.Group("/vouchers")
	vouchers.Use(auth)
	{
		vouchers.GET("/code/:code", controller.GetVoucherByCode)
		vouchers.POST("/preview", middleware.RequireRoles(actor.RoleUser, actor.RoleAdmin), controller.PreviewDiscount)

		manage := vouchers.Group("")
		manage.Use(middleware.RequireRoles(actor.RoleAdmin, actor.RolePartner))
		{
			manage.POST("", controller.CreateVoucher)
			manage.GET("", controller.ListVouchers)
			manage.PUT("/:id", controller.UpdateVoucher)
			manage.POST("/:id/disable", controller.DisableVoucher)
		}
	}
}
