package domain

import "log/slog"

// SecretString wraps sensitive string values such as gateway API keys.
// It renders as a placeholder through fmt and slog.
type SecretString string

// String returns a redacted placeholder, never the actual value.
func (s SecretString) String() string {
	return "[REDACTED]"
}

// LogValue implements slog.LogValuer so a secret never reaches a log sink,
// even when a handler's ReplaceAttr does not catch the key.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// Expose returns the actual secret value. Call it only at the point of use
// (building a gateway URL).
func (s SecretString) Expose() string {
	return string(s)
}

// IsEmpty returns true if the secret is empty.
func (s SecretString) IsEmpty() bool {
	return len(s) == 0
}

var _ slog.LogValuer = SecretString("")
