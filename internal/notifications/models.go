package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationType names a booking or payment lifecycle event
type NotificationType string

const (
	NotificationTypeBookingCreated   NotificationType = "BOOKING_CREATED"
	NotificationTypeBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationTypeBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationTypeBookingCompleted NotificationType = "BOOKING_COMPLETED"
	NotificationTypePaymentSucceeded NotificationType = "PAYMENT_SUCCEEDED"
	NotificationTypePaymentFailed    NotificationType = "PAYMENT_FAILED"
	NotificationTypePaymentRefunded  NotificationType = "PAYMENT_REFUNDED"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

// LifecycleNotification is published after a booking or payment transition
// commits. Downstream consumers (email, partner dashboards) subscribe to the
// topic; delivery is their concern.
type LifecycleNotification struct {
	ID         uuid.UUID            `json:"id"`
	Type       NotificationType     `json:"type"`
	Priority   NotificationPriority `json:"priority"`
	BookingID  uuid.UUID            `json:"booking_id"`
	PaymentID  *uuid.UUID           `json:"payment_id,omitempty"`
	UserID     uuid.UUID            `json:"user_id"`
	Amount     decimal.Decimal      `json:"amount"`
	Status     string               `json:"status"`
	OccurredAt time.Time            `json:"occurred_at"`
	Metadata   map[string]string    `json:"metadata,omitempty"`
}

type NotificationBuilder struct {
	notification *LifecycleNotification
}

func NewNotificationBuilder(notType NotificationType) *NotificationBuilder {
	return &NotificationBuilder{
		notification: &LifecycleNotification{
			ID:         uuid.New(),
			Type:       notType,
			Priority:   GetDefaultPriority(notType),
			OccurredAt: time.Now().UTC(),
			Metadata:   make(map[string]string),
		},
	}
}

func (nb *NotificationBuilder) WithBooking(bookingID, userID uuid.UUID, status string) *NotificationBuilder {
	nb.notification.BookingID = bookingID
	nb.notification.UserID = userID
	nb.notification.Status = status
	return nb
}

func (nb *NotificationBuilder) WithPayment(paymentID uuid.UUID) *NotificationBuilder {
	nb.notification.PaymentID = &paymentID
	return nb
}

func (nb *NotificationBuilder) WithAmount(amount decimal.Decimal) *NotificationBuilder {
	nb.notification.Amount = amount
	return nb
}

func (nb *NotificationBuilder) WithMeta(key, value string) *NotificationBuilder {
	if value != "" {
		nb.notification.Metadata[key] = value
	}
	return nb
}

func (nb *NotificationBuilder) Build() LifecycleNotification {
	return *nb.notification
}

func GetDefaultPriority(notType NotificationType) NotificationPriority {
	switch notType {
	case NotificationTypePaymentFailed, NotificationTypePaymentRefunded, NotificationTypeBookingCancelled:
		return NotificationPriorityHigh
	case NotificationTypeBookingCompleted:
		return NotificationPriorityLow
	default:
		return NotificationPriorityMedium
	}
}

// GetPartitionKey keeps every event of one booking on the same partition.
func (n LifecycleNotification) GetPartitionKey() string {
	return n.BookingID.String()
}

func (n LifecycleNotification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}
