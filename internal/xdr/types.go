package xdr

import "encoding/json"

// Defaults applied to absent list fields. The API tolerates partial
// payloads, so decoding does too.
const (
	defaultID      = "N/A"
	defaultSummary = "Sin descripción"
)

// Session is the bearer credential for one run. Expires is informational:
// the API reports it, the tool logs it and never enforces it.
type Session struct {
	Token   string
	Expires string
}

// IncidentSummary is one row of a list response.
type IncidentSummary struct {
	ID          string `json:"id"`
	DisplayID   string `json:"display_id"`
	Summary     string `json:"summary"`
	UpdatedAt   string `json:"updated_at"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`
	IsPrevented bool   `json:"is_prevented"`
}

// Observable is a single asset or indicator attached to an incident.
type Observable struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

// IncidentDetail is the full record for one incident. Raw holds the
// undecoded data object so forwarding preserves fields the typed view
// does not model.
type IncidentDetail struct {
	IncidentSummary
	Assets     []Observable `json:"assets"`
	Indicators []Observable `json:"indicators"`

	Raw json.RawMessage `json:"-"`
}

type authRequest struct {
	ClientID  string `json:"clientId"`
	AccessKey string `json:"accessKey"`
	ClientKey string `json:"ck"`
}

type authEnvelope struct {
	Data struct {
		Token   string `json:"token"`
		Expires string `json:"expires"`
	} `json:"data"`
}

type listEnvelope struct {
	Data struct {
		Incidents []IncidentSummary `json:"incidents"`
	} `json:"data"`
}

type detailEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type commentRequest struct {
	Text      string `json:"text"`
	UserEmail string `json:"userEmail"`
}

type closeRequest struct {
	Status   string `json:"status"`
	FollowUp bool   `json:"followUp"`
}

func normalizeSummary(inc *IncidentSummary) {
	if inc.ID == "" {
		inc.ID = defaultID
	}
	if inc.DisplayID == "" {
		inc.DisplayID = defaultID
	}
	if inc.Summary == "" {
		inc.Summary = defaultSummary
	}
}
