// Package logging provides the structured logger and secret redaction
// helpers. Credential material (API keys, bearer tokens, HEC tokens)
// never reaches log output raw.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Known secret field names that must be redacted in all log output.
var secretFieldNames = []string{
	"token",
	"access_key",
	"accesskey",
	"client_key",
	"clientkey",
	"passphrase",
	"password",
	"secret",
	"authorization",
	"credentials",
}

// NewLogger creates a console logger writing to stderr.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(writer).
		Level(lvl).
		With().
		Timestamp().
		Str("component", "xdrtriage").
		Logger()
}

// NewJSONLogger creates a JSON-formatted logger for machine consumption.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("component", "xdrtriage").
		Logger()
}

// IsSecretField checks if a field name is a known secret field that should be redacted.
func IsSecretField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, secret := range secretFieldNames {
		if strings.Contains(lower, secret) {
			return true
		}
	}
	return false
}

// RedactValue replaces a secret value with a safe placeholder containing a hash prefix.
func RedactValue(value string) string {
	if value == "" {
		return ""
	}
	h := sha256.Sum256([]byte(value))
	return "[REDACTED:sha256:" + hex.EncodeToString(h[:])[:8] + "]"
}
