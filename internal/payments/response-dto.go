package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentResponse struct {
	ID                  uuid.UUID       `json:"id"`
	BookingID           uuid.UUID       `json:"booking_id"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	PaymentMethod       Method          `json:"payment_method"`
	Status              Status          `json:"status"`
	TransactionID       *string         `json:"transaction_id,omitempty"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	FailureReason       *string         `json:"failure_reason,omitempty"`
	RefundTransactionID *string         `json:"refund_transaction_id,omitempty"`
	RefundReason        *string         `json:"refund_reason,omitempty"`
	RefundedAt          *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`

	CapturedAmount *decimal.Decimal `json:"captured_amount,omitempty"`
}

type InitiatePaymentResponse struct {
	Payment    PaymentResponse `json:"payment"`
	PaymentURL string          `json:"payment_url"`
}

type CallbackResponse struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	BookingID        uuid.UUID `json:"booking_id"`
	Status           Status    `json:"status"`
	Success          bool      `json:"success"`
	AlreadyProcessed bool      `json:"already_processed"`
	Message          string    `json:"message,omitempty"`
}

// IPNResponse is the acknowledgement body gateways expect from an IPN call
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

func ToPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:                  p.ID,
		BookingID:           p.BookingID,
		Amount:              p.Amount,
		Currency:            p.Currency,
		PaymentMethod:       p.PaymentMethod,
		Status:              p.Status,
		TransactionID:       p.TransactionID,
		PaidAt:              p.PaidAt,
		FailureReason:       p.FailureReason,
		RefundTransactionID: p.RefundTransactionID,
		RefundReason:        p.RefundReason,
		RefundedAt:          p.RefundedAt,
		CreatedAt:           p.CreatedAt,
		CapturedAmount:      capturedAmount(p),
	}
}

func toCallbackResponse(o *CallbackOutcome) CallbackResponse {
	return CallbackResponse{
		PaymentID:        o.PaymentID,
		BookingID:        o.BookingID,
		Status:           o.Status,
		Success:          o.Success,
		AlreadyProcessed: o.AlreadyProcessed,
		Message:          o.Message,
	}
}

func capturedAmount(p *Payment) *decimal.Decimal {
	if !p.CapturedAmount.Valid {
		return nil
	}
	amount := p.CapturedAmount.Decimal
	return &amount
}
