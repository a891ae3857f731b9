// Package splunk delivers incident payloads to an HTTP Event Collector
// endpoint. Delivery is best effort: one attempt, no queueing, no retry.
package splunk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 10 * time.Second

// Config configures the forwarder.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
	// Insecure disables TLS certificate verification for the collector.
	// It must be set explicitly in configuration; the forwarder warns
	// when it is.
	Insecure bool
}

// Forwarder posts event envelopes to the collector.
type Forwarder struct {
	url    string
	token  string
	client *http.Client
	logger zerolog.Logger
}

type hecEnvelope struct {
	Event json.RawMessage `json:"event"`
}

// NewForwarder validates the collector settings and builds a forwarder.
func NewForwarder(cfg Config, logger zerolog.Logger) (*Forwarder, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("splunk: collector URL is empty")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("splunk: collector token is empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &http.Client{Timeout: timeout}
	if cfg.Insecure {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		logger.Warn().Msg("TLS certificate verification disabled for collector")
	}

	return &Forwarder{
		url:    cfg.URL,
		token:  cfg.Token,
		client: client,
		logger: logger,
	}, nil
}

// Forward posts one event payload wrapped in the HEC envelope. Only HTTP
// 200 counts as delivered; the caller does not retry.
func (f *Forwarder) Forward(ctx context.Context, event json.RawMessage) error {
	body, err := json.Marshal(hecEnvelope{Event: event})
	if err != nil {
		return fmt.Errorf("splunk: marshaling event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("splunk: building request: %w", err)
	}
	req.Header.Set("Authorization", "Splunk "+f.token)
	req.Header.Set("Content-Type", "application/json")

	f.logger.Debug().Str("url", f.url).Int("bytes", len(body)).Msg("forwarding event")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("splunk: posting event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("splunk: collector returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
