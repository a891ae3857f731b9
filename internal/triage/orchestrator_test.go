package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/xdrtriage/xdrtriage/internal/xdr"
)

type fakeAPI struct {
	incidents  []xdr.IncidentSummary
	listErr    error
	details    map[string]*xdr.IncidentDetail
	detailErr  map[string]error
	commentErr map[string]error
	closeErr   map[string]error

	listParams []xdr.ListParams
	calls      []string // ordered op log, e.g. "comment:D1"
}

func (f *fakeAPI) ListIncidents(ctx context.Context, s *xdr.Session, p xdr.ListParams) ([]xdr.IncidentSummary, error) {
	f.listParams = append(f.listParams, p)
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.incidents, nil
}

func (f *fakeAPI) GetDetails(ctx context.Context, s *xdr.Session, id string) (*xdr.IncidentDetail, error) {
	f.calls = append(f.calls, "detail:"+id)
	if err := f.detailErr[id]; err != nil {
		return nil, err
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, errors.New("no such incident")
}

func (f *fakeAPI) Comment(ctx context.Context, s *xdr.Session, displayID, text string) error {
	f.calls = append(f.calls, "comment:"+displayID)
	return f.commentErr[displayID]
}

func (f *fakeAPI) Close(ctx context.Context, s *xdr.Session, id string) error {
	f.calls = append(f.calls, "close:"+id)
	return f.closeErr[id]
}

func (f *fakeAPI) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if c == prefix || len(c) > len(prefix) && c[:len(prefix)+1] == prefix+":" {
			n++
		}
	}
	return n
}

type fakeForwarder struct {
	events []json.RawMessage
	err    error
}

func (f *fakeForwarder) Forward(ctx context.Context, event json.RawMessage) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func detailWith(id string, values ...string) *xdr.IncidentDetail {
	d := &xdr.IncidentDetail{
		IncidentSummary: xdr.IncidentSummary{ID: id},
		Raw:             json.RawMessage(fmt.Sprintf(`{"id":%q}`, id)),
	}
	for _, v := range values {
		d.Assets = append(d.Assets, xdr.Observable{Value: v})
	}
	return d
}

func newTestOrchestrator(api *fakeAPI, fwd *fakeForwarder) *Orchestrator {
	return New(Config{
		API:          api,
		Forwarder:    fwd,
		Session:      &xdr.Session{Token: "T"},
		DangerousIPs: []string{"10.1.5.13"},
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func opts(hours int) ListOptions { return ListOptions{HoursBack: hours} }

func TestSweep_ForwardsAndClosesCriticalWithDangerousIP(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			{ID: "u1", DisplayID: "D1", Severity: "critical", Status: "new"},
		},
		details: map[string]*xdr.IncidentDetail{
			"u1": detailWith("u1", "10.1.5.13"),
		},
	}
	fwd := &fakeForwarder{}

	result, err := newTestOrchestrator(api, fwd).Sweep(context.Background(), opts(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fwd.events) != 1 {
		t.Fatalf("expected exactly one forward, got %d", len(fwd.events))
	}
	if api.count("comment") != 1 || api.count("close") != 1 {
		t.Fatalf("expected one comment and one close, calls: %v", api.calls)
	}

	// Comment goes to the display identifier, close to the internal id,
	// and the comment lands first.
	want := []string{"list", "detail:u1", "comment:D1", "close:u1"}
	if len(api.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", api.calls, want)
	}
	for i := range want {
		if api.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", api.calls, want)
		}
	}

	if result.Forwarded != 1 || result.Closed != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestSweep_ClosedStatusIncidentIsUntouched(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			{ID: "u1", DisplayID: "D1", Severity: "critical", Status: "closed"},
		},
		details: map[string]*xdr.IncidentDetail{
			"u1": detailWith("u1", "10.1.5.13"),
		},
	}
	fwd := &fakeForwarder{}

	result, err := newTestOrchestrator(api, fwd).Sweep(context.Background(), opts(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fwd.events) != 0 || api.count("comment") != 0 || api.count("close") != 0 {
		t.Errorf("closed incident must trigger nothing, calls: %v", api.calls)
	}
	if result.Forwarded != 0 || result.Closed != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestSweep_PreventedExcludedEverywhere(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			{ID: "u1", DisplayID: "D1", Severity: "critical", Status: "new", IsPrevented: true},
		},
		details: map[string]*xdr.IncidentDetail{
			"u1": detailWith("u1", "10.1.5.13"),
		},
	}
	fwd := &fakeForwarder{}

	if _, err := newTestOrchestrator(api, fwd).Sweep(context.Background(), opts(6)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fwd.events) != 0 || api.count("detail") != 0 || api.count("comment") != 0 || api.count("close") != 0 {
		t.Errorf("prevented incident must trigger nothing, calls: %v", api.calls)
	}
}

func TestSweep_ForwardAndCloseAreIndependent(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			// high severity, no dangerous IP: forward only
			{ID: "u1", DisplayID: "D1", Severity: "high", Status: "new"},
			// low severity, dangerous IP: close only
			{ID: "u2", DisplayID: "D2", Severity: "low", Status: "in progress"},
		},
		details: map[string]*xdr.IncidentDetail{
			"u1": detailWith("u1", "172.16.0.9"),
			"u2": detailWith("u2", "10.1.5.13"),
		},
	}
	fwd := &fakeForwarder{}

	result, err := newTestOrchestrator(api, fwd).Sweep(context.Background(), opts(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fwd.events) != 1 {
		t.Errorf("expected one forward, got %d", len(fwd.events))
	}
	if api.count("comment") != 1 || api.count("close") != 1 {
		t.Errorf("expected one comment+close for u2, calls: %v", api.calls)
	}
	if result.Forwarded != 1 || result.Closed != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestCloseBySeverity_CommentFailureSuppressesClose(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			{ID: "u1", DisplayID: "D1", Severity: "low", Status: "new"},
			{ID: "u2", DisplayID: "D2", Severity: "informational", Status: "new"},
		},
		commentErr: map[string]error{"D1": errors.New("status 500: internal error")},
	}

	result, err := newTestOrchestrator(api, &fakeForwarder{}).CloseBySeverity(context.Background(), opts(6), "medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, c := range api.calls {
		if c == "close:u1" {
			t.Fatal("close must never run after a failed comment")
		}
	}
	if api.count("close") != 1 {
		t.Errorf("batch must continue past the failure, calls: %v", api.calls)
	}
	if result.Closed != 1 {
		t.Errorf("closed = %d, want 1 (failed incident must not count)", result.Closed)
	}
	if result.Matched != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestCloseBySeverity_FiltersAndServerSideStatus(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			{ID: "u1", DisplayID: "D1", Severity: "low", Status: "new"},
			{ID: "u2", DisplayID: "D2", Severity: "critical", Status: "new"},
			{ID: "u3", DisplayID: "D3", Severity: "weird", Status: "new"},
			{ID: "u4", DisplayID: "D4", Severity: "low", Status: "new", IsPrevented: true},
		},
	}

	result, err := newTestOrchestrator(api, &fakeForwarder{}).CloseBySeverity(context.Background(), opts(6), "medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(api.listParams) != 1 {
		t.Fatalf("expected one list call, got %d", len(api.listParams))
	}
	statuses := api.listParams[0].Statuses
	if len(statuses) != 2 || statuses[0] != "new" || statuses[1] != "in progress" {
		t.Errorf("server-side status filter = %v", statuses)
	}

	// Only u1 qualifies: u2 is above the ceiling, u3 has an unrankable
	// severity, u4 is prevented.
	if result.Closed != 1 || api.count("close") != 1 || api.calls[len(api.calls)-1] != "close:u1" {
		t.Errorf("result = %+v, calls = %v", result, api.calls)
	}
}

func TestCloseByDangerousIP(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			{ID: "u1", DisplayID: "D1", Severity: "medium", Status: "new"},
			{ID: "u2", DisplayID: "D2", Severity: "medium", Status: "new"},
			{ID: "u3", DisplayID: "D3", Severity: "medium", Status: "new"},
		},
		details: map[string]*xdr.IncidentDetail{
			"u1": detailWith("u1", "10.1.5.13"),
			"u3": detailWith("u3", "192.0.2.200"),
		},
		detailErr: map[string]error{"u2": errors.New("status 404")},
	}

	result, err := newTestOrchestrator(api, &fakeForwarder{}).CloseByDangerousIP(context.Background(), opts(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// u1 matches and closes; u2's detail failure skips it without
	// aborting; u3 has no dangerous IP.
	if result.Closed != 1 || result.Matched != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v", result)
	}
	if api.count("comment") != 1 || api.count("close") != 1 {
		t.Errorf("calls = %v", api.calls)
	}
}

func TestForwardBySeverity_TierCounts(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			{ID: "u1", DisplayID: "D1", Severity: "critical", Status: "new"},
			{ID: "u2", DisplayID: "D2", Severity: "high", Status: "in progress"},
			{ID: "u3", DisplayID: "D3", Severity: "medium", Status: "new"},
			{ID: "u4", DisplayID: "D4", Severity: "high", Status: "new"},
		},
		details: map[string]*xdr.IncidentDetail{
			"u1": detailWith("u1"),
			"u2": detailWith("u2"),
		},
		detailErr: map[string]error{"u4": errors.New("status 404")},
	}
	fwd := &fakeForwarder{}

	result, err := newTestOrchestrator(api, fwd).ForwardBySeverity(context.Background(), opts(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Forwarded["critical"] != 1 || result.Forwarded["high"] != 1 {
		t.Errorf("forwarded = %v", result.Forwarded)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 for the failed detail fetch", result.Skipped)
	}
	if api.count("detail") != 3 {
		t.Errorf("medium severity must not fetch detail, calls: %v", api.calls)
	}
	if len(fwd.events) != 2 {
		t.Errorf("expected 2 forwards, got %d", len(fwd.events))
	}
}

func TestForwardBySeverity_ForwardFailureContinuesBatch(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			{ID: "u1", DisplayID: "D1", Severity: "critical", Status: "new"},
			{ID: "u2", DisplayID: "D2", Severity: "critical", Status: "new"},
		},
		details: map[string]*xdr.IncidentDetail{
			"u1": detailWith("u1"),
			"u2": detailWith("u2"),
		},
	}
	fwd := &fakeForwarder{err: errors.New("collector down")}

	result, err := newTestOrchestrator(api, fwd).ForwardBySeverity(context.Background(), opts(6))
	if err != nil {
		t.Fatalf("a failing collector must not abort the pass: %v", err)
	}
	if result.Skipped != 2 || len(result.Forwarded) != 0 {
		t.Errorf("result = %+v", result)
	}
	if api.count("detail") != 2 {
		t.Errorf("batch must visit every incident, calls: %v", api.calls)
	}
}

func TestReport(t *testing.T) {
	api := &fakeAPI{
		incidents: []xdr.IncidentSummary{
			{ID: "u1", Severity: "critical", Status: "new"},
			{ID: "u2", Severity: "high", Status: "closed"},
			{ID: "u3", Severity: "low", Status: "new"},
			{ID: "u4", Severity: "high", Status: "In Progress"},
		},
	}

	matched, err := newTestOrchestrator(api, &fakeForwarder{}).Report(context.Background(), opts(6), "high")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("matched = %d, want 2", len(matched))
	}
	if matched[0].ID != "u1" || matched[1].ID != "u4" {
		t.Errorf("server order must be preserved: %+v", matched)
	}
	if api.count("detail") != 0 || api.count("comment") != 0 || api.count("close") != 0 {
		t.Errorf("report must be read-only, calls: %v", api.calls)
	}
}

func TestReport_EmptyWindow(t *testing.T) {
	api := &fakeAPI{}
	matched, err := newTestOrchestrator(api, &fakeForwarder{}).Report(context.Background(), opts(6), "low")
	if err != nil {
		t.Fatalf("zero matches is nothing to do, not an error: %v", err)
	}
	if len(matched) != 0 {
		t.Errorf("matched = %v", matched)
	}
}

func TestWorkflows_InvalidHours(t *testing.T) {
	o := newTestOrchestrator(&fakeAPI{}, &fakeForwarder{})
	if _, err := o.Report(context.Background(), opts(0), "low"); err == nil {
		t.Error("hours back of zero must fail")
	}
	if _, err := o.Sweep(context.Background(), opts(-3)); err == nil {
		t.Error("negative hours back must fail")
	}
}

func TestWindowPassedToList(t *testing.T) {
	api := &fakeAPI{}
	if _, err := newTestOrchestrator(api, &fakeForwarder{}).Report(context.Background(), opts(6), "low"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := api.listParams[0]
	if p.Window.FromWire() != "2024-01-01T06:00:00Z" || p.Window.ToWire() != "2024-01-01T12:00:00Z" {
		t.Errorf("window = %s..%s", p.Window.FromWire(), p.Window.ToWire())
	}
	if p.Limit != DefaultLimit {
		t.Errorf("limit = %d, want default %d", p.Limit, DefaultLimit)
	}
}
