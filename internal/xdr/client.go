// Package xdr implements the client for the incident-source API:
// authentication, time-windowed listing, detail retrieval, and the
// comment/close remediation calls. Every operation is a single attempt;
// callers decide whether a failure aborts the run or skips an incident.
package xdr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CloseStatus is the fixed lifecycle state bulk closes set.
const CloseStatus = "closed_handled"

// Per-operation timeouts. Listing pages can be large; everything else is
// a single-record exchange.
const (
	listTimeout   = 20 * time.Second
	actionTimeout = 10 * time.Second
)

// APIError carries the HTTP status and body text of a failed API call for
// diagnostics. StatusCode is zero on transport failures.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xdr %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("xdr %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// Config holds the endpoints and credential set for one client.
type Config struct {
	AuthURL   string
	APIURL    string
	ClientID  string
	AccessKey string
	ClientKey string
	UserEmail string
}

// Client talks to the incident-source API. It holds no session state;
// the caller passes the Session into every authenticated call.
type Client struct {
	cfg    Config
	auth   *http.Client
	list   *http.Client
	action *http.Client
	logger zerolog.Logger
}

// NewClient creates a client for the given endpoints and credentials.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		auth:   &http.Client{},
		list:   &http.Client{Timeout: listTimeout},
		action: &http.Client{Timeout: actionTimeout},
		logger: logger,
	}
}

// Authenticate exchanges the credential set for a bearer token. Only a
// 200 response carrying a non-empty token succeeds.
func (c *Client) Authenticate(ctx context.Context) (*Session, error) {
	body, err := json.Marshal(authRequest{
		ClientID:  c.cfg.ClientID,
		AccessKey: c.cfg.AccessKey,
		ClientKey: c.cfg.ClientKey,
	})
	if err != nil {
		return nil, &APIError{Op: "auth", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Op: "auth", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("op", "auth").Str("url", c.cfg.AuthURL).Msg("xdr api call")

	resp, err := c.auth.Do(req)
	if err != nil {
		return nil, &APIError{Op: "auth", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError("auth", resp)
	}

	var env authEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{Op: "auth", StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding body: %w", err)}
	}
	if env.Data.Token == "" {
		return nil, &APIError{Op: "auth", StatusCode: resp.StatusCode, Body: "response carried no token"}
	}

	return &Session{Token: env.Data.Token, Expires: env.Data.Expires}, nil
}

// ListParams select one page of incidents.
type ListParams struct {
	Window   Window
	Statuses []string // optional server-side status filter
	Limit    int
	Offset   int
}

// ListIncidents retrieves one page of incidents updated inside the window.
// Zero matches is an empty slice, not an error. Server order is preserved.
func (c *Client) ListIncidents(ctx context.Context, s *Session, p ListParams) ([]IncidentSummary, error) {
	q := url.Values{}
	q.Set("filterBy", "updatedAt")
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("offset", strconv.Itoa(p.Offset))
	q.Set("from", p.Window.FromWire())
	q.Set("to", p.Window.ToWire())
	if len(p.Statuses) > 0 {
		q.Set("status", strings.Join(p.Statuses, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &APIError{Op: "list", Err: err}
	}
	c.setAuthHeaders(req, s)

	c.logger.Debug().Str("op", "list").Str("from", p.Window.FromWire()).Str("to", p.Window.ToWire()).Msg("xdr api call")

	resp, err := c.list.Do(req)
	if err != nil {
		return nil, &APIError{Op: "list", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError("list", resp)
	}

	var env listEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{Op: "list", StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding body: %w", err)}
	}

	incidents := env.Data.Incidents
	for i := range incidents {
		normalizeSummary(&incidents[i])
	}
	return incidents, nil
}

// GetDetails retrieves the full record for one incident. Raw keeps the
// undecoded payload for forwarding.
func (c *Client) GetDetails(ctx context.Context, s *Session, incidentID string) (*IncidentDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"/"+url.PathEscape(incidentID), nil)
	if err != nil {
		return nil, &APIError{Op: "detail", Err: err}
	}
	c.setAuthHeaders(req, s)

	c.logger.Debug().Str("op", "detail").Str("incident", incidentID).Msg("xdr api call")

	resp, err := c.action.Do(req)
	if err != nil {
		return nil, &APIError{Op: "detail", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError("detail", resp)
	}

	var env detailEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{Op: "detail", StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding body: %w", err)}
	}
	if len(env.Data) == 0 {
		return nil, &APIError{Op: "detail", StatusCode: resp.StatusCode, Body: "response carried no data"}
	}

	detail := &IncidentDetail{Raw: env.Data}
	if err := json.Unmarshal(env.Data, detail); err != nil {
		return nil, &APIError{Op: "detail", StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding detail: %w", err)}
	}
	return detail, nil
}

// Comment annotates a ticket by its display identifier. 200 and 201 both
// count as recorded.
func (c *Client) Comment(ctx context.Context, s *Session, displayID, text string) error {
	body, err := json.Marshal(commentRequest{Text: text, UserEmail: c.cfg.UserEmail})
	if err != nil {
		return &APIError{Op: "comment", Err: err}
	}

	u := c.cfg.APIURL + "/" + url.PathEscape(displayID) + "/comments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return &APIError{Op: "comment", Err: err}
	}
	c.setAuthHeaders(req, s)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().Str("op", "comment").Str("incident", displayID).Msg("xdr api call")

	resp, err := c.action.Do(req)
	if err != nil {
		return &APIError{Op: "comment", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return readAPIError("comment", resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Close sets a ticket to the fixed closed state and clears its follow-up
// flag. Only 200 counts as closed.
func (c *Client) Close(ctx context.Context, s *Session, incidentID string) error {
	body, err := json.Marshal(closeRequest{Status: CloseStatus, FollowUp: false})
	if err != nil {
		return &APIError{Op: "close", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.cfg.APIURL+"/"+url.PathEscape(incidentID), bytes.NewReader(body))
	if err != nil {
		return &APIError{Op: "close", Err: err}
	}
	c.setAuthHeaders(req, s)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().Str("op", "close").Str("incident", incidentID).Msg("xdr api call")

	resp, err := c.action.Do(req)
	if err != nil {
		return &APIError{Op: "close", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError("close", resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) setAuthHeaders(req *http.Request, s *Session) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Token)
}

func readAPIError(op string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
