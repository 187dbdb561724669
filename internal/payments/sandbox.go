package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SandboxGateway is a local stand-in for a real provider. Callback payloads
// are signed with HMAC-SHA256 so the callback path runs the same checks it
// runs for a real gateway.
type SandboxGateway struct {
	secret   string
	endpoint string
}

func NewSandboxGateway(secret, endpoint string) *SandboxGateway {
	return &SandboxGateway{secret: secret, endpoint: endpoint}
}

func (g *SandboxGateway) Method() Method {
	return MethodSandbox
}

func (g *SandboxGateway) CreatePaymentURL(ctx context.Context, req PaymentURLRequest) (string, error) {
	params := url.Values{}
	params.Set("payment_id", req.PaymentID.String())
	params.Set("amount", req.Amount.StringFixed(2))
	params.Set("return_url", req.ReturnURL)
	params.Set("signature", g.sign(req.PaymentID.String(), req.Amount.StringFixed(2), "", ""))
	return g.endpoint + "?" + params.Encode(), nil
}

// CallbackPayload builds the signed payload the sandbox sends back after
// the payer approved or declined.
func (g *SandboxGateway) CallbackPayload(paymentID uuid.UUID, amount decimal.Decimal, success bool, transactionID string) url.Values {
	status := "declined"
	if success {
		status = "approved"
	}
	params := url.Values{}
	params.Set("payment_id", paymentID.String())
	params.Set("amount", amount.StringFixed(2))
	params.Set("status", status)
	params.Set("transaction_id", transactionID)
	params.Set("signature", g.sign(paymentID.String(), amount.StringFixed(2), status, transactionID))
	return params
}

// VerifyCheckout checks a link produced by CreatePaymentURL and returns the
// payment it was issued for.
func (g *SandboxGateway) VerifyCheckout(query url.Values) (uuid.UUID, decimal.Decimal, error) {
	expected := g.sign(query.Get("payment_id"), query.Get("amount"), "", "")
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(query.Get("signature")))) {
		return uuid.Nil, decimal.Zero, ErrInvalidSignature
	}
	paymentID, err := uuid.Parse(query.Get("payment_id"))
	if err != nil {
		return uuid.Nil, decimal.Zero, ErrInvalidCallback.Withf("payment_id %q", query.Get("payment_id"))
	}
	amount, err := decimal.NewFromString(query.Get("amount"))
	if err != nil {
		return uuid.Nil, decimal.Zero, ErrInvalidCallback.Withf("amount %q", query.Get("amount"))
	}
	return paymentID, amount, nil
}

func (g *SandboxGateway) VerifyCallback(ctx context.Context, payload url.Values) (*CallbackResult, error) {
	expected := g.sign(payload.Get("payment_id"), payload.Get("amount"), payload.Get("status"), payload.Get("transaction_id"))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(payload.Get("signature")))) {
		return nil, ErrInvalidSignature
	}

	paymentID, err := uuid.Parse(payload.Get("payment_id"))
	if err != nil {
		return nil, ErrInvalidCallback.Withf("payment_id %q", payload.Get("payment_id"))
	}
	amount, err := decimal.NewFromString(payload.Get("amount"))
	if err != nil {
		return nil, ErrInvalidCallback.Withf("amount %q", payload.Get("amount"))
	}

	success := payload.Get("status") == "approved"
	message := "Payment declined"
	if success {
		message = "Payment approved"
	}
	return &CallbackResult{
		PaymentID:     paymentID,
		Success:       success,
		TransactionID: payload.Get("transaction_id"),
		Amount:        amount,
		ResponseCode:  payload.Get("status"),
		Message:       message,
	}, nil
}

func (g *SandboxGateway) ProcessRefund(ctx context.Context, req RefundRequest) (string, error) {
	return "RF-" + req.TransactionID, nil
}

func (g *SandboxGateway) sign(parts ...string) string {
	h := hmac.New(sha256.New, []byte(g.secret))
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}
