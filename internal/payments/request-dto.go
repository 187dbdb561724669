package payments

import "github.com/google/uuid"

type InitiatePaymentRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
	Method    string    `json:"method" binding:"required,oneof=VNPAY SANDBOX vnpay sandbox"`
	ReturnURL string    `json:"return_url" binding:"omitempty,url"`
}

type RefundPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=300"`
}
