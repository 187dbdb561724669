package payments

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentURLRequest describes the redirect a gateway has to build.
type PaymentURLRequest struct {
	PaymentID uuid.UUID
	Amount    decimal.Decimal
	Currency  string
	OrderInfo string
	ReturnURL string
	ClientIP  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// CallbackResult is a verified gateway notification
type CallbackResult struct {
	PaymentID     uuid.UUID
	Success       bool
	TransactionID string
	Amount        decimal.Decimal
	ResponseCode  string
	Message       string
}

// RefundRequest carries what a gateway needs to reverse a captured payment.
type RefundRequest struct {
	PaymentID     uuid.UUID
	TransactionID string
	Amount        decimal.Decimal
	Reason        string
	PaidAt        time.Time
	RequestedBy   string
	ClientIP      string
}

// Gateway is an external payment provider.
type Gateway interface {
	Method() Method
	// CreatePaymentURL returns the URL the payer is redirected to
	CreatePaymentURL(ctx context.Context, req PaymentURLRequest) (string, error)
	// VerifyCallback checks the signature of a return or IPN payload
	VerifyCallback(ctx context.Context, payload url.Values) (*CallbackResult, error)
	// ProcessRefund reverses a captured payment and returns the refund transaction id
	ProcessRefund(ctx context.Context, req RefundRequest) (string, error)
}

// Gateways indexes the enabled gateways by method.
type Gateways map[Method]Gateway

func NewGateways(gateways ...Gateway) Gateways {
	g := make(Gateways, len(gateways))
	for _, gw := range gateways {
		g[gw.Method()] = gw
	}
	return g
}

func (g Gateways) Get(method Method) (Gateway, error) {
	gw, ok := g[method]
	if !ok {
		return nil, ErrUnsupportedMethod.Withf("%s is not enabled", method)
	}
	return gw, nil
}
