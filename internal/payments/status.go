package payments

import "strings"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
	StatusRefunded   Status = "REFUNDED"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no gateway outcome can change the payment any more.
// Success is terminal for callbacks even though a refund may follow.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusRefunded
}

// Method is the gateway a payment is made through
type Method string

const (
	MethodVNPay   Method = "VNPAY"
	MethodSandbox Method = "SANDBOX"
)

func (m Method) IsValid() bool {
	return m == MethodVNPay || m == MethodSandbox
}

// ParseMethod accepts any letter case.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", ErrUnsupportedMethod.Withf("%q", s)
	}
	return m, nil
}
