package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tripenjoy/internal/shared/config"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVNPayConfig(refundURL string) config.VNPayConfig {
	return config.VNPayConfig{
		TmnCode:    "TRIPTEST",
		HashSecret: "vnpay-secret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		RefundURL:  refundURL,
		ReturnURL:  "https://tripenjoy.test/return",
	}
}

// signedVNPayCallback mimics the parameters VNPay appends to the return URL.
func signedVNPayCallback(g *VNPayGateway, paymentID uuid.UUID, minor, code, txNo string) url.Values {
	q := url.Values{}
	q.Set("vnp_TmnCode", "TRIPTEST")
	q.Set("vnp_TxnRef", paymentID.String())
	q.Set("vnp_Amount", minor)
	q.Set("vnp_ResponseCode", code)
	q.Set("vnp_TransactionStatus", code)
	q.Set("vnp_TransactionNo", txNo)
	q.Set("vnp_OrderInfo", "Payment for booking")
	q.Set(vnpSecureHashParam, g.sign(q.Encode()))
	q.Set(vnpHashTypeParam, "HmacSHA512")
	return q
}

func TestVNPayCreatePaymentURL(t *testing.T) {
	g := NewVNPayGateway(testVNPayConfig(""), nil)
	paymentID := uuid.New()
	created := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	raw, err := g.CreatePaymentURL(context.Background(), PaymentURLRequest{
		PaymentID: paymentID,
		Amount:    decimal.RequireFromString("900"),
		OrderInfo: "Payment for booking",
		ClientIP:  "10.0.0.1",
		CreatedAt: created,
		ExpiresAt: created.Add(15 * time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "90000", q.Get("vnp_Amount"))
	assert.Equal(t, paymentID.String(), q.Get("vnp_TxnRef"))
	assert.Equal(t, "20260301100000", q.Get("vnp_CreateDate"))
	assert.Equal(t, "https://tripenjoy.test/return", q.Get("vnp_ReturnUrl"))
	assert.NotEmpty(t, q.Get(vnpSecureHashParam))

	// the signed redirect verifies as its own callback
	q.Set("vnp_ResponseCode", "00")
	q.Del(vnpSecureHashParam)
	q.Set(vnpSecureHashParam, g.sign(q.Encode()))
	result, err := g.VerifyCallback(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(900)))
}

func TestVNPayCreatePaymentURLRequiresCredentials(t *testing.T) {
	g := NewVNPayGateway(config.VNPayConfig{}, nil)
	_, err := g.CreatePaymentURL(context.Background(), PaymentURLRequest{PaymentID: uuid.New(), Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrGatewayFailure)
}

func TestVNPayVerifyCallback(t *testing.T) {
	g := NewVNPayGateway(testVNPayConfig(""), nil)
	paymentID := uuid.New()

	t.Run("success", func(t *testing.T) {
		result, err := g.VerifyCallback(context.Background(), signedVNPayCallback(g, paymentID, "90000", "00", "14012345"))
		require.NoError(t, err)
		assert.Equal(t, paymentID, result.PaymentID)
		assert.True(t, result.Success)
		assert.Equal(t, "14012345", result.TransactionID)
		assert.True(t, result.Amount.Equal(decimal.RequireFromString("900")))
	})

	t.Run("declined", func(t *testing.T) {
		result, err := g.VerifyCallback(context.Background(), signedVNPayCallback(g, paymentID, "90000", "24", ""))
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "Customer cancelled the transaction", result.Message)
	})

	t.Run("tampered amount", func(t *testing.T) {
		q := signedVNPayCallback(g, paymentID, "90000", "00", "14012345")
		q.Set("vnp_Amount", "100")
		_, err := g.VerifyCallback(context.Background(), q)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("missing hash", func(t *testing.T) {
		q := signedVNPayCallback(g, paymentID, "90000", "00", "14012345")
		q.Del(vnpSecureHashParam)
		_, err := g.VerifyCallback(context.Background(), q)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("bad reference", func(t *testing.T) {
		q := url.Values{}
		q.Set("vnp_TxnRef", "not-a-uuid")
		q.Set("vnp_Amount", "100")
		q.Set(vnpSecureHashParam, g.sign(q.Encode()))
		_, err := g.VerifyCallback(context.Background(), q)
		assert.ErrorIs(t, err, ErrInvalidCallback)
	})
}

func TestVNPayProcessRefund(t *testing.T) {
	var received vnpRefundRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vnp_ResponseId":"resp-1","vnp_ResponseCode":"00","vnp_TransactionNo":"RF778899"}`))
	}))
	defer server.Close()

	g := NewVNPayGateway(testVNPayConfig(server.URL), server.Client())
	paymentID := uuid.New()
	refundTxID, err := g.ProcessRefund(context.Background(), RefundRequest{
		PaymentID:     paymentID,
		TransactionID: "14012345",
		Amount:        decimal.RequireFromString("900"),
		Reason:        "guest request",
		PaidAt:        time.Now(),
		RequestedBy:   "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "RF778899", refundTxID)

	assert.Equal(t, "refund", received.Command)
	assert.Equal(t, vnpFullRefund, received.TransactionType)
	assert.Equal(t, paymentID.String(), received.TxnRef)
	assert.Equal(t, "90000", received.Amount)
	assert.Equal(t, "14012345", received.TransactionNo)
	assert.Len(t, received.RequestID, 32)
	assert.NotEmpty(t, received.SecureHash)
}

func TestVNPayProcessRefundRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"vnp_ResponseCode":"94","vnp_Message":"duplicate request"}`))
	}))
	defer server.Close()

	g := NewVNPayGateway(testVNPayConfig(server.URL), server.Client())
	_, err := g.ProcessRefund(context.Background(), RefundRequest{PaymentID: uuid.New(), TransactionID: "1", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Contains(t, err.Error(), "duplicate request")
}

func TestSandboxGateway(t *testing.T) {
	g := NewSandboxGateway("secret", "http://localhost/sandbox/pay")
	paymentID := uuid.New()
	amount := decimal.RequireFromString("900")

	raw, err := g.CreatePaymentURL(context.Background(), PaymentURLRequest{PaymentID: paymentID, Amount: amount, ReturnURL: "http://app/return"})
	require.NoError(t, err)
	assert.Contains(t, raw, "payment_id="+paymentID.String())
	assert.Contains(t, raw, "amount=900.00")

	result, err := g.VerifyCallback(context.Background(), g.CallbackPayload(paymentID, amount, true, "tx123"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "tx123", result.TransactionID)
	assert.True(t, result.Amount.Equal(amount))

	declined, err := g.VerifyCallback(context.Background(), g.CallbackPayload(paymentID, amount, false, ""))
	require.NoError(t, err)
	assert.False(t, declined.Success)

	forged := g.CallbackPayload(paymentID, amount, false, "")
	forged.Set("status", "approved")
	_, err = g.VerifyCallback(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	other := NewSandboxGateway("other-secret", "")
	_, err = g.VerifyCallback(context.Background(), other.CallbackPayload(paymentID, amount, true, "tx"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	refundTxID, err := g.ProcessRefund(context.Background(), RefundRequest{TransactionID: "tx123"})
	require.NoError(t, err)
	assert.Equal(t, "RF-tx123", refundTxID)
}

func TestGatewaysGet(t *testing.T) {
	gateways := NewGateways(NewSandboxGateway("s", ""))
	_, err := gateways.Get(MethodSandbox)
	require.NoError(t, err)
	_, err = gateways.Get(MethodVNPay)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}
