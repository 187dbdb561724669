package vouchers

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

// CreateVoucher godoc
// @Summary      Create voucher
// @Description  Admins may create global vouchers; partners must target their own properties
// @Tags         Vouchers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body CreateVoucherRequest true "Voucher"
// @Success      201 {object} response.StandardApiResponse
// @Failure      400 {object} response.StandardApiResponse
// @Failure      403 {object} response.StandardApiResponse
// @Failure      409 {object} response.StandardApiResponse
// @Router       /vouchers [post]
func (c *Controller) CreateVoucher(ctx *gin.Context) {
	by, err := middleware.CurrentActor(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	var req CreateVoucherRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	voucher, err := c.service.CreateVoucher(ctx.Request.Context(), by, req)
	if err != nil {
		response.RespondError(ctx, "Failed to create voucher", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusCreated, "Voucher created successfully", ToVoucherResponse(voucher))
}

// UpdateVoucher godoc
// @Summary      Update voucher
// @Description  Optimistic update, the body must carry the version that was read
// @Tags         Vouchers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Voucher ID"
// @Param        body body UpdateVoucherRequest true "Changes"
// @Success      200 {object} response.StandardApiResponse
// @Failure      409 {object} response.StandardApiResponse
// @Router       /vouchers/{id} [put]
func (c *Controller) UpdateVoucher(ctx *gin.Context) {
	by, err := middleware.CurrentActor(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid voucher ID", nil, nil)
		return
	}

	var req UpdateVoucherRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	voucher, err := c.service.UpdateVoucher(ctx.Request.Context(), by, id, req)
	if err != nil {
		response.RespondError(ctx, "Failed to update voucher", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Voucher updated successfully", ToVoucherResponse(voucher))
}

// DisableVoucher handles POST /api/v1/vouchers/:id/disable
func (c *Controller) DisableVoucher(ctx *gin.Context) {
	by, err := middleware.CurrentActor(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid voucher ID", nil, nil)
		return
	}

	voucher, err := c.service.DisableVoucher(ctx.Request.Context(), by, id)
	if err != nil {
		response.RespondError(ctx, "Failed to disable voucher", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Voucher disabled successfully", ToVoucherResponse(voucher))
}

// GetVoucherByCode handles GET /api/v1/vouchers/code/:code
func (c *Controller) GetVoucherByCode(ctx *gin.Context) {
	voucher, err := c.service.GetVoucherByCode(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		response.RespondError(ctx, "Voucher not found", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Voucher retrieved successfully", ToVoucherResponse(voucher))
}

// ListVouchers handles GET /api/v1/vouchers?page=1&limit=20&status=ACTIVE
func (c *Controller) ListVouchers(ctx *gin.Context) {
	by, err := middleware.CurrentActor(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	query := ListQuery{Page: page, Limit: limit, Status: Status(ctx.Query("status"))}

	vouchers, total, err := c.service.ListVouchers(ctx.Request.Context(), by, query)
	if err != nil {
		response.RespondError(ctx, "Failed to list vouchers", err)
		return
	}

	items := make([]VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		items = append(items, ToVoucherResponse(&vouchers[i]))
	}
	response.RespondSuccess(ctx, http.StatusOK, "Vouchers retrieved successfully", VoucherListResponse{
		Vouchers: items,
		Total:    total,
		Page:     page,
		Limit:    limit,
	})
}

// PreviewDiscount godoc
// @Summary      Preview voucher discount
// @Description  Prices the items and applies the voucher without redeeming it
// @Tags         Vouchers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body PreviewRequest true "Order"
// @Success      200 {object} response.StandardApiResponse
// @Failure      400 {object} response.StandardApiResponse
// @Router       /vouchers/preview [post]
func (c *Controller) PreviewDiscount(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	var req PreviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	eval, err := c.service.PreviewDiscount(ctx.Request.Context(), userID, req)
	if err != nil {
		response.RespondError(ctx, "Voucher cannot be applied", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Voucher applies", eval)
}
