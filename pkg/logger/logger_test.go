package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warning"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel("nonsense"))
}

func TestDomainHelpersWriteStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	l.LogPaymentCallback(context.Background(), "pay-1", "SUCCESS", true)
	assert.Contains(t, buf.String(), `"payment_id":"pay-1"`)
	assert.Contains(t, buf.String(), `"duplicate":true`)

	buf.Reset()
	l.ErrorWithContext(context.Background(), "refund failed", errors.New("gateway down"), map[string]interface{}{"booking_id": "b-1"})
	assert.Contains(t, buf.String(), `"error":"gateway down"`)
	assert.Contains(t, buf.String(), `"booking_id":"b-1"`)
}
