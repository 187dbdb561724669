package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAYMENT_TIMEOUT", "")
	t.Setenv("VNP_RETURN_URL", "")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.Payment.Timeout)
	assert.Equal(t, []string{"SANDBOX"}, cfg.Payment.EnabledMethods)
	assert.False(t, cfg.Voucher.ReleaseOnCancel)
	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.Equal(t, cfg.PublicBaseURL+"/api/v1/payments/callback/VNPAY", cfg.VNPay.ReturnURL)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PAYMENT_TIMEOUT", "5m")
	t.Setenv("VOUCHER_RELEASE_ON_CANCEL", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Payment.Timeout)
	assert.True(t, cfg.Voucher.ReleaseOnCancel)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "vnpay without credentials",
			mutate:  func(c *Config) { c.Payment.EnabledMethods = []string{"VNPAY"} },
			wantErr: "VNP_TMNCODE",
		},
		{
			name:    "unknown method",
			mutate:  func(c *Config) { c.Payment.EnabledMethods = []string{"PAYPAL"} },
			wantErr: "unknown payment method",
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.Payment.Timeout = 0 },
			wantErr: "PAYMENT_TIMEOUT",
		},
		{
			name: "sandbox in release",
			mutate: func(c *Config) {
				c.GinMode = "release"
				c.JWT.Secret = "prod-secret"
			},
			wantErr: "SANDBOX",
		},
		{
			name: "default jwt secret in release",
			mutate: func(c *Config) {
				c.GinMode = "release"
				c.Payment.EnabledMethods = []string{"VNPAY"}
				c.VNPay.TmnCode = "TMN"
				c.VNPay.HashSecret = "secret"
			},
			wantErr: "JWT_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
