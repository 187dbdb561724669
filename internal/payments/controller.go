package payments

import (
	"errors"
	"net/http"
	"strings"

	"tripenjoy/internal/shared/middleware"
	"tripenjoy/internal/shared/utils/response"
	"tripenjoy/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	coordinator Coordinator
	sandbox     *SandboxGateway
}

func NewController(coordinator Coordinator) *Controller {
	return &Controller{coordinator: coordinator}
}

// EnableSandboxCheckout serves the payer page of the sandbox gateway.
func (c *Controller) EnableSandboxCheckout(gateway *SandboxGateway) {
	c.sandbox = gateway
}

// InitiatePayment godoc
// @Summary      Initiate payment
// @Description  Opens a payment for a Pending booking and returns the gateway redirect URL
// @Tags         Payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body InitiatePaymentRequest true "Payment"
// @Success      201 {object} response.StandardApiResponse
// @Failure      400 {object} response.StandardApiResponse
// @Failure      409 {object} response.StandardApiResponse
// @Failure      500 {object} response.StandardApiResponse
// @Router       /payments [post]
func (c *Controller) InitiatePayment(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	var req InitiatePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}
	method, err := ParseMethod(req.Method)
	if err != nil {
		response.RespondError(ctx, "Invalid payment method", err)
		return
	}

	result, err := c.coordinator.InitiatePayment(ctx.Request.Context(), userID, req.BookingID, method, req.ReturnURL, ctx.ClientIP())
	if err != nil {
		response.RespondError(ctx, "Failed to initiate payment", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusCreated, "Payment initiated successfully", InitiatePaymentResponse{
		Payment:    ToPaymentResponse(result.Payment),
		PaymentURL: result.PaymentURL,
	})
}

// GetPayment handles GET /api/v1/payments/:id
func (c *Controller) GetPayment(ctx *gin.Context) {
	paymentID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid payment ID", nil, nil)
		return
	}
	by, err := middleware.CurrentActor(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	payment, err := c.coordinator.GetPayment(ctx.Request.Context(), by, paymentID)
	if err != nil {
		response.RespondError(ctx, "Failed to get payment", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Payment retrieved successfully", ToPaymentResponse(payment))
}

// RefundPayment godoc
// @Summary      Refund payment
// @Description  Refunds a successful payment through its gateway; the booking keeps its status
// @Tags         Payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID"
// @Param        body body RefundPaymentRequest true "Reason"
// @Success      200 {object} response.StandardApiResponse
// @Failure      404 {object} response.StandardApiResponse
// @Failure      409 {object} response.StandardApiResponse
// @Router       /payments/{id}/refund [post]
func (c *Controller) RefundPayment(ctx *gin.Context) {
	paymentID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid payment ID", nil, nil)
		return
	}
	by, err := middleware.CurrentActor(ctx)
	if err != nil {
		response.RespondError(ctx, "Authentication required", err)
		return
	}

	var req RefundPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	payment, err := c.coordinator.RefundPayment(ctx.Request.Context(), by, paymentID, req.Reason)
	if err != nil {
		response.RespondError(ctx, "Failed to refund payment", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Payment refunded successfully", ToPaymentResponse(payment))
}

// GatewayReturn godoc
// @Summary      Gateway browser return
// @Description  Handles the payer's redirect back from the gateway; replays are harmless
// @Tags         Payments
// @Produce      json
// @Param        method path string true "Gateway" Enums(VNPAY, SANDBOX)
// @Success      200 {object} response.StandardApiResponse
// @Failure      400 {object} response.StandardApiResponse
// @Router       /payments/callback/{method} [get]
func (c *Controller) GatewayReturn(ctx *gin.Context) {
	method, err := ParseMethod(ctx.Param("method"))
	if err != nil {
		response.RespondError(ctx, "Unsupported payment method", err)
		return
	}

	outcome, err := c.coordinator.HandleGatewayCallback(ctx.Request.Context(), method, ctx.Request.URL.Query())
	if err != nil {
		response.RespondError(ctx, "Failed to process payment callback", err)
		return
	}

	message := "Payment failed"
	if outcome.Success {
		message = "Payment completed successfully"
	}
	response.RespondSuccess(ctx, http.StatusOK, message, toCallbackResponse(outcome))
}

// GatewayIPN handles GET /api/v1/payments/ipn/:method, the server-to-server
// notification. Gateways read RspCode rather than the HTTP status.
func (c *Controller) GatewayIPN(ctx *gin.Context) {
	method, err := ParseMethod(ctx.Param("method"))
	if err != nil {
		ctx.JSON(http.StatusOK, IPNResponse{RspCode: "99", Message: "Unsupported method"})
		return
	}

	outcome, err := c.coordinator.HandleGatewayCallback(ctx.Request.Context(), method, ctx.Request.URL.Query())
	if err != nil {
		logger.GetDefault().ErrorWithContext(ctx.Request.Context(), "IPN rejected", err, map[string]interface{}{
			"method": string(method),
		})
		ctx.JSON(http.StatusOK, ipnError(err))
		return
	}

	switch {
	case outcome.AlreadyProcessed:
		ctx.JSON(http.StatusOK, IPNResponse{RspCode: "02", Message: "Order already confirmed"})
	case outcome.AmountMismatch:
		ctx.JSON(http.StatusOK, IPNResponse{RspCode: "04", Message: "Invalid amount"})
	default:
		ctx.JSON(http.StatusOK, IPNResponse{RspCode: "00", Message: "Confirm Success"})
	}
}

// SandboxCheckout handles GET /api/v1/payments/sandbox/checkout. It stands in
// for the provider's hosted page: outcome=decline refuses the payment, any
// other value approves it, and the payer is sent to the callback route.
func (c *Controller) SandboxCheckout(ctx *gin.Context) {
	if c.sandbox == nil {
		response.RespondJSON(ctx, "error", http.StatusNotFound, "Sandbox payments are disabled", nil, nil)
		return
	}

	paymentID, amount, err := c.sandbox.VerifyCheckout(ctx.Request.URL.Query())
	if err != nil {
		response.RespondError(ctx, "Invalid checkout link", err)
		return
	}

	approved := ctx.Query("outcome") != "decline"
	transactionID := ""
	if approved {
		transactionID = "SBX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	}
	payload := c.sandbox.CallbackPayload(paymentID, amount, approved, transactionID)

	callbackPath := strings.TrimSuffix(ctx.FullPath(), "/sandbox/checkout") + "/callback/" + strings.ToLower(string(MethodSandbox))
	ctx.Redirect(http.StatusFound, callbackPath+"?"+payload.Encode())
}

func ipnError(err error) IPNResponse {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return IPNResponse{RspCode: "97", Message: "Invalid signature"}
	case errors.Is(err, ErrPaymentNotFound):
		return IPNResponse{RspCode: "01", Message: "Order not found"}
	case errors.Is(err, ErrInvalidCallback):
		return IPNResponse{RspCode: "99", Message: "Invalid request"}
	default:
		return IPNResponse{RspCode: "99", Message: "Unknown error"}
	}
}
