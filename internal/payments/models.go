package payments

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is one attempt to pay a booking through a gateway.
//
//	PENDING -> PROCESSING -> SUCCESS | FAILED
//	SUCCESS -> REFUNDED
type Payment struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID           uuid.UUID       `gorm:"type:uuid;index;not null;uniqueIndex:uniq_payments_active_booking,where:status = 'PENDING' OR status = 'PROCESSING'" json:"booking_id"`
	UserID              uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount              decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Currency            string          `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentMethod       Method          `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status              Status          `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionID       *string         `gorm:"type:varchar(100)" json:"transaction_id,omitempty"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	FailureReason       *string         `gorm:"type:varchar(500)" json:"failure_reason,omitempty"`
	RefundTransactionID *string         `gorm:"type:varchar(100)" json:"refund_transaction_id,omitempty"`
	RefundReason        *string         `gorm:"type:varchar(500)" json:"refund_reason,omitempty"`
	RefundedAt          *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           *time.Time      `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`

	// CapturedAmount is set when the gateway took money for an attempt
	// that had already failed.
	CapturedAmount decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"captured_amount"`
}

// TableName sets the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NewPayment creates a Pending payment for the booking's amount.
func NewPayment(bookingID, userID uuid.UUID, amount decimal.Decimal, method Method, currency string, now time.Time) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !method.IsValid() {
		return nil, ErrUnsupportedMethod.Withf("%q", method)
	}
	return &Payment{
		ID:            uuid.New(),
		BookingID:     bookingID,
		UserID:        userID,
		Amount:        amount,
		Currency:      currency,
		PaymentMethod: method,
		Status:        StatusPending,
		CreatedAt:     now,
	}, nil
}

// IsTerminal reports whether the payment reached a final gateway outcome.
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

func (p *Payment) MarkAsProcessing(now time.Time) error {
	if p.Status != StatusPending {
		return ErrInvalidPaymentState.Withf("cannot start processing a %s payment", p.Status)
	}
	p.Status = StatusProcessing
	p.UpdatedAt = &now
	return nil
}

// MarkAsSuccess records the gateway's transaction id and the paid time.
func (p *Payment) MarkAsSuccess(transactionID string, now time.Time) error {
	if p.Status != StatusProcessing {
		return ErrInvalidPaymentState.Withf("cannot complete a %s payment", p.Status)
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return ErrEmptyTransactionID
	}
	p.Status = StatusSuccess
	p.TransactionID = &transactionID
	p.PaidAt = &now
	p.UpdatedAt = &now
	return nil
}

func (p *Payment) MarkAsFailed(reason string, now time.Time) error {
	if p.Status != StatusPending && p.Status != StatusProcessing {
		return ErrInvalidPaymentState.Withf("cannot fail a %s payment", p.Status)
	}
	p.Status = StatusFailed
	if reason != "" {
		reason = truncate(reason, 500)
		p.FailureReason = &reason
	}
	p.UpdatedAt = &now
	return nil
}

// MarkAsRefunded needs the original transaction id, which only a
// successful payment has.
func (p *Payment) MarkAsRefunded(refundTransactionID, reason string, now time.Time) error {
	if p.TransactionID == nil || *p.TransactionID == "" {
		return ErrMissingTransactionID
	}
	if p.Status != StatusSuccess {
		return ErrInvalidPaymentState.Withf("cannot refund a %s payment", p.Status)
	}
	p.Status = StatusRefunded
	if refundTransactionID != "" {
		p.RefundTransactionID = &refundTransactionID
	}
	if reason != "" {
		reason = truncate(reason, 500)
		p.RefundReason = &reason
	}
	p.RefundedAt = &now
	p.UpdatedAt = &now
	return nil
}

// RecordStrayCapture keeps the transaction of money the gateway captured for
// an attempt that had already failed. The payment stays Failed.
func (p *Payment) RecordStrayCapture(transactionID string, amount decimal.Decimal, now time.Time) error {
	if p.Status != StatusFailed || p.TransactionID != nil {
		return ErrInvalidPaymentState.Withf("cannot record a capture on a %s payment", p.Status)
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return ErrEmptyTransactionID
	}
	p.TransactionID = &transactionID
	p.CapturedAmount = decimal.NewNullDecimal(amount)
	p.PaidAt = &now
	p.UpdatedAt = &now
	return nil
}

// NeedsStrayRefund reports a failed attempt holding money not yet returned.
func (p *Payment) NeedsStrayRefund() bool {
	return p.Status == StatusFailed && p.TransactionID != nil && p.CapturedAmount.Valid && p.RefundedAt == nil
}

func (p *Payment) RecordStrayRefund(refundTransactionID, reason string, now time.Time) error {
	if !p.NeedsStrayRefund() {
		return ErrInvalidPaymentState.Withf("payment %s holds no capture to refund", p.ID)
	}
	if refundTransactionID != "" {
		p.RefundTransactionID = &refundTransactionID
	}
	if reason != "" {
		reason = truncate(reason, 500)
		p.RefundReason = &reason
	}
	p.RefundedAt = &now
	p.UpdatedAt = &now
	return nil
}

// IsStale reports whether an unfinished payment outlived the gateway timeout.
func (p *Payment) IsStale(now time.Time, timeout time.Duration) bool {
	return !p.IsTerminal() && now.Sub(p.CreatedAt) > timeout
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
