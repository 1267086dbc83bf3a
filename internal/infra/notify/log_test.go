package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/app/policies"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", maskEmail("asha@example.com"))
	assert.Equal(t, "a@example.com", maskEmail("a@example.com"))
	assert.Equal(t, "no-at-sign", maskEmail("no-at-sign"))
}

func TestLogNotifierRedactsData(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	msg := policies.Notification{To: "asha@example.com", Template: "login_code", Data: map[string]any{"code": "424242"}}

	require.NoError(t, LogNotifier{Logger: logger, Redact: true}.Send(context.Background(), msg))
	assert.NotContains(t, buf.String(), "424242")
	assert.Contains(t, buf.String(), "login_code")

	buf.Reset()
	require.NoError(t, LogNotifier{Logger: logger}.Send(context.Background(), msg))
	assert.Contains(t, buf.String(), "424242")
}
