package logging

import (
	"strings"
	"testing"
)

func TestIsSecretField(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		expected bool
	}{
		{"bearer token", "token", true},
		{"access key", "access_key", true},
		{"access key camel", "AccessKey", true},
		{"client key", "client_key", true},
		{"splunk token", "splunk_token", true},
		{"vault passphrase", "passphrase", true},
		{"auth header", "Authorization", true},
		{"client id", "client_id", false},
		{"user email", "user_email", false},
		{"incident id", "incident", false},
		{"severity", "severity", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsSecretField(tt.field)
			if got != tt.expected {
				t.Errorf("IsSecretField(%q) = %v, want %v", tt.field, got, tt.expected)
			}
		})
	}
}

func TestRedactValue(t *testing.T) {
	result := RedactValue("eyJhbGciOiJSUzI1NiJ9.payload.signature")
	if !strings.HasPrefix(result, "[REDACTED:sha256:") {
		t.Errorf("Expected [REDACTED:sha256:...], got %s", result)
	}
	if !strings.HasSuffix(result, "]") {
		t.Errorf("Expected trailing ], got %s", result)
	}

	// Same input should produce same hash
	result2 := RedactValue("eyJhbGciOiJSUzI1NiJ9.payload.signature")
	if result != result2 {
		t.Error("Same input should produce same redacted value")
	}

	// Different input should produce different hash
	result3 := RedactValue("anotherToken")
	if result == result3 {
		t.Error("Different inputs should produce different redacted values")
	}
}

func TestRedactEmptyValue(t *testing.T) {
	result := RedactValue("")
	if result != "" {
		t.Errorf("Empty input should return empty, got %q", result)
	}
}
