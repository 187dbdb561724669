package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tripenjoy/internal/shared/config"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	vnpDateLayout       = "20060102150405"
	vnpSuccessCode      = "00"
	vnpFullRefund       = "02"
	vnpSecureHashParam  = "vnp_SecureHash"
	vnpHashTypeParam    = "vnp_SecureHashType"
	vnpDefaultOrderType = "other"
)

// VNPay timestamps are in Vietnam local time
var vnpLocation = time.FixedZone("ICT", 7*60*60)

// VNPayGateway signs redirects and verifies callbacks with HMAC-SHA512 over
// the sorted, URL-encoded parameters.
type VNPayGateway struct {
	cfg    config.VNPayConfig
	client *http.Client
}

func NewVNPayGateway(cfg config.VNPayConfig, client *http.Client) *VNPayGateway {
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if cfg.Version == "" {
		cfg.Version = "2.1.0"
	}
	if cfg.Locale == "" {
		cfg.Locale = "vn"
	}
	return &VNPayGateway{cfg: cfg, client: client}
}

func (g *VNPayGateway) Method() Method {
	return MethodVNPay
}

func (g *VNPayGateway) CreatePaymentURL(ctx context.Context, req PaymentURLRequest) (string, error) {
	if g.cfg.TmnCode == "" || g.cfg.HashSecret == "" {
		return "", ErrGatewayFailure.Wrap(fmt.Errorf("vnpay credentials are not configured"))
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = g.cfg.ReturnURL
	}

	params := url.Values{}
	params.Add("vnp_Version", g.cfg.Version)
	params.Add("vnp_Command", "pay")
	params.Add("vnp_TmnCode", g.cfg.TmnCode)
	params.Add("vnp_Amount", toMinorUnits(req.Amount))
	params.Add("vnp_CreateDate", req.CreatedAt.In(vnpLocation).Format(vnpDateLayout))
	params.Add("vnp_CurrCode", "VND")
	params.Add("vnp_IpAddr", req.ClientIP)
	params.Add("vnp_Locale", g.cfg.Locale)
	params.Add("vnp_OrderInfo", req.OrderInfo)
	params.Add("vnp_OrderType", vnpDefaultOrderType)
	params.Add("vnp_ReturnUrl", returnURL)
	params.Add("vnp_TxnRef", req.PaymentID.String())
	if !req.ExpiresAt.IsZero() {
		params.Add("vnp_ExpireDate", req.ExpiresAt.In(vnpLocation).Format(vnpDateLayout))
	}

	// Encode sorts by key
	query := params.Encode()
	return g.cfg.PayURL + "?" + query + "&" + vnpSecureHashParam + "=" + g.sign(query), nil
}

func (g *VNPayGateway) VerifyCallback(ctx context.Context, payload url.Values) (*CallbackResult, error) {
	query := url.Values{}
	for k, v := range payload {
		if strings.HasPrefix(k, "vnp_") {
			query[k] = v
		}
	}
	secureHash := query.Get(vnpSecureHashParam)
	query.Del(vnpSecureHashParam)
	query.Del(vnpHashTypeParam)

	if secureHash == "" || !hmac.Equal([]byte(strings.ToLower(secureHash)), []byte(g.sign(query.Encode()))) {
		return nil, ErrInvalidSignature
	}

	paymentID, err := uuid.Parse(query.Get("vnp_TxnRef"))
	if err != nil {
		return nil, ErrInvalidCallback.Withf("vnp_TxnRef %q", query.Get("vnp_TxnRef"))
	}
	minor, err := strconv.ParseInt(query.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return nil, ErrInvalidCallback.Withf("vnp_Amount %q", query.Get("vnp_Amount"))
	}

	code := query.Get("vnp_ResponseCode")
	status := query.Get("vnp_TransactionStatus")
	success := code == vnpSuccessCode && (status == "" || status == vnpSuccessCode)

	result := &CallbackResult{
		PaymentID:     paymentID,
		Success:       success,
		TransactionID: query.Get("vnp_TransactionNo"),
		Amount:        decimal.New(minor, -2),
		ResponseCode:  code,
		Message:       vnpMessage(code),
	}
	return result, nil
}

type vnpRefundRequest struct {
	RequestID       string `json:"vnp_RequestId"`
	Version         string `json:"vnp_Version"`
	Command         string `json:"vnp_Command"`
	TmnCode         string `json:"vnp_TmnCode"`
	TransactionType string `json:"vnp_TransactionType"`
	TxnRef          string `json:"vnp_TxnRef"`
	Amount          string `json:"vnp_Amount"`
	OrderInfo       string `json:"vnp_OrderInfo"`
	TransactionNo   string `json:"vnp_TransactionNo"`
	TransactionDate string `json:"vnp_TransactionDate"`
	CreateBy        string `json:"vnp_CreateBy"`
	CreateDate      string `json:"vnp_CreateDate"`
	IPAddr          string `json:"vnp_IpAddr"`
	SecureHash      string `json:"vnp_SecureHash"`
}

type vnpRefundResponse struct {
	ResponseID    string `json:"vnp_ResponseId"`
	Command       string `json:"vnp_Command"`
	ResponseCode  string `json:"vnp_ResponseCode"`
	Message       string `json:"vnp_Message"`
	TxnRef        string `json:"vnp_TxnRef"`
	TransactionNo string `json:"vnp_TransactionNo"`
}

func (g *VNPayGateway) ProcessRefund(ctx context.Context, req RefundRequest) (string, error) {
	now := time.Now().In(vnpLocation)
	body := vnpRefundRequest{
		RequestID:       strings.ReplaceAll(uuid.NewString(), "-", "")[:32],
		Version:         g.cfg.Version,
		Command:         "refund",
		TmnCode:         g.cfg.TmnCode,
		TransactionType: vnpFullRefund,
		TxnRef:          req.PaymentID.String(),
		Amount:          toMinorUnits(req.Amount),
		OrderInfo:       refundOrderInfo(req),
		TransactionNo:   req.TransactionID,
		TransactionDate: req.PaidAt.In(vnpLocation).Format(vnpDateLayout),
		CreateBy:        req.RequestedBy,
		CreateDate:      now.Format(vnpDateLayout),
		IPAddr:          req.ClientIP,
	}
	if body.IPAddr == "" {
		body.IPAddr = "127.0.0.1"
	}
	body.SecureHash = g.sign(strings.Join([]string{
		body.RequestID, body.Version, body.Command, body.TmnCode, body.TransactionType,
		body.TxnRef, body.Amount, body.TransactionNo, body.TransactionDate,
		body.CreateBy, body.CreateDate, body.IPAddr, body.OrderInfo,
	}, "|"))

	raw, err := json.Marshal(body)
	if err != nil {
		return "", ErrGatewayFailure.Wrap(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.RefundURL, bytes.NewReader(raw))
	if err != nil {
		return "", ErrGatewayFailure.Wrap(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", ErrGatewayFailure.Wrap(fmt.Errorf("vnpay refund request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ErrGatewayFailure.Wrap(fmt.Errorf("vnpay refund returned HTTP %d", resp.StatusCode))
	}
	var out vnpRefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", ErrGatewayFailure.Wrap(fmt.Errorf("decode vnpay refund response: %w", err))
	}
	if out.ResponseCode != vnpSuccessCode {
		return "", ErrGatewayFailure.Wrap(fmt.Errorf("vnpay refund rejected: %s %s", out.ResponseCode, out.Message))
	}
	if out.TransactionNo != "" {
		return out.TransactionNo, nil
	}
	return out.ResponseID, nil
}

func (g *VNPayGateway) sign(data string) string {
	h := hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func refundOrderInfo(req RefundRequest) string {
	if req.Reason == "" {
		return "Refund payment " + req.PaymentID.String()
	}
	return truncate("Refund payment "+req.PaymentID.String()+": "+req.Reason, 255)
}

// toMinorUnits renders the amount the way VNPay expects it: VND times 100.
func toMinorUnits(amount decimal.Decimal) string {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).String()
}

func vnpMessage(code string) string {
	switch code {
	case "00":
		return "Transaction successful"
	case "07":
		return "Transaction successful, flagged as suspicious"
	case "09":
		return "Card or account is not registered for internet banking"
	case "11", "15":
		return "Payment window expired"
	case "24":
		return "Customer cancelled the transaction"
	case "51":
		return "Insufficient balance"
	case "65":
		return "Daily transaction limit exceeded"
	case "75":
		return "Bank is under maintenance"
	default:
		return "Transaction failed with code " + code
	}
}
