package domain_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zonixt/eauction/internal/domain"
)

func TestSecretString(t *testing.T) {
	secret := domain.SecretString("2f-api-key-0f9c")

	t.Run("String returns REDACTED", func(t *testing.T) {
		assert.Equal(t, "[REDACTED]", secret.String())
	})

	t.Run("Expose returns actual value", func(t *testing.T) {
		assert.Equal(t, "2f-api-key-0f9c", secret.Expose())
	})

	t.Run("IsEmpty returns false for non-empty", func(t *testing.T) {
		assert.False(t, secret.IsEmpty())
	})

	t.Run("IsEmpty returns true for empty", func(t *testing.T) {
		empty := domain.SecretString("")
		assert.True(t, empty.IsEmpty())
	})

	t.Run("LogValue returns REDACTED slog value", func(t *testing.T) {
		logValue := secret.LogValue()
		assert.Equal(t, slog.KindString, logValue.Kind())
		assert.Equal(t, "[REDACTED]", logValue.String())
	})

	t.Run("slog output contains REDACTED", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		logger.Info("test", "api_key", secret)

		output := buf.String()
		assert.Contains(t, output, "[REDACTED]")
		assert.NotContains(t, output, "2f-api-key-0f9c")
	})
}
