// Package triage composes the XDR client, the classifier, and the
// forwarder into the remediation workflows. Every workflow is a single
// sequential pass over one listed page; a failed step skips that incident
// and never aborts the batch.
package triage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xdrtriage/xdrtriage/internal/classify"
	"github.com/xdrtriage/xdrtriage/internal/xdr"
)

// Notes written to tickets the tool closes. The comment records why, and
// must land before the close may be attempted.
const (
	severityCloseNote    = "Closed by xdrtriage: severity at or below the configured ceiling, per management policy."
	dangerousIPCloseNote = "Closed by xdrtriage: incident involves an address from the dangerous-IP list."
)

// DefaultLimit matches the source API's page ceiling.
const DefaultLimit = 1000

// remediableStatuses is the server-side filter for close workflows.
var remediableStatuses = []string{"new", "in progress"}

// IncidentAPI is the slice of the XDR client the workflows consume.
type IncidentAPI interface {
	ListIncidents(ctx context.Context, s *xdr.Session, p xdr.ListParams) ([]xdr.IncidentSummary, error)
	GetDetails(ctx context.Context, s *xdr.Session, incidentID string) (*xdr.IncidentDetail, error)
	Comment(ctx context.Context, s *xdr.Session, displayID, text string) error
	Close(ctx context.Context, s *xdr.Session, incidentID string) error
}

// EventForwarder delivers one detail payload to the log collector.
type EventForwarder interface {
	Forward(ctx context.Context, event json.RawMessage) error
}

// Config wires an orchestrator.
type Config struct {
	API          IncidentAPI
	Forwarder    EventForwarder
	Session      *xdr.Session
	DangerousIPs []string
	Logger       zerolog.Logger
	Now          func() time.Time // defaults to time.Now
}

// Orchestrator owns the session for one run and drives the workflows.
type Orchestrator struct {
	api       IncidentAPI
	forwarder EventForwarder
	session   *xdr.Session
	dangerous classify.IPSet
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		api:       cfg.API,
		forwarder: cfg.Forwarder,
		session:   cfg.Session,
		dangerous: classify.NewIPSet(cfg.DangerousIPs),
		logger:    cfg.Logger,
		now:       now,
	}
}

// ListOptions tune the page a workflow operates on. Statuses is honored
// only by Report; the close workflows always filter to the remediable set.
type ListOptions struct {
	HoursBack int
	Limit     int
	Offset    int
	Statuses  []string
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

func (o *Orchestrator) list(ctx context.Context, log zerolog.Logger, opts ListOptions, statuses []string) ([]xdr.IncidentSummary, error) {
	window, err := xdr.NewWindow(o.now(), opts.HoursBack)
	if err != nil {
		return nil, err
	}
	incidents, err := o.api.ListIncidents(ctx, o.session, xdr.ListParams{
		Window:   window,
		Statuses: statuses,
		Limit:    opts.limit(),
		Offset:   opts.Offset,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("from", window.FromWire()).Str("to", window.ToWire()).Int("listed", len(incidents)).Msg("incidents listed")
	return incidents, nil
}

func (o *Orchestrator) runLogger(workflow string) zerolog.Logger {
	return o.logger.With().
		Str("workflow", workflow).
		Str("run_id", uuid.NewString()).
		Logger()
}

// Report lists incidents at or above the severity floor that are still
// open for remediation. Read-only: no side effects beyond the list call.
func (o *Orchestrator) Report(ctx context.Context, opts ListOptions, floor string) ([]xdr.IncidentSummary, error) {
	log := o.runLogger("report")

	incidents, err := o.list(ctx, log, opts, opts.Statuses)
	if err != nil {
		return nil, err
	}

	var matched []xdr.IncidentSummary
	for _, inc := range incidents {
		if !classify.StatusEligible(inc.Status) {
			continue
		}
		if !classify.SeverityAtLeast(inc.Severity, floor) {
			continue
		}
		matched = append(matched, inc)
	}
	log.Info().Int("matched", len(matched)).Str("floor", floor).Msg("report complete")
	return matched, nil
}

// ForwardResult summarizes a forward-on-severity pass.
type ForwardResult struct {
	Listed    int
	Forwarded map[string]int // per severity tier
	Skipped   int
}

// ForwardBySeverity forwards full detail for every eligible, non-prevented
// high or critical incident in the window.
func (o *Orchestrator) ForwardBySeverity(ctx context.Context, opts ListOptions) (*ForwardResult, error) {
	log := o.runLogger("forward")

	incidents, err := o.list(ctx, log, opts, nil)
	if err != nil {
		return nil, err
	}

	result := &ForwardResult{
		Listed:    len(incidents),
		Forwarded: map[string]int{},
	}
	for _, inc := range incidents {
		if inc.IsPrevented || !classify.StatusEligible(inc.Status) {
			continue
		}
		if !classify.SeverityAtLeast(inc.Severity, classify.SeverityHigh) {
			continue
		}
		if o.forwardDetail(ctx, log, inc) {
			result.Forwarded[inc.Severity]++
		} else {
			result.Skipped++
		}
	}
	log.Info().Interface("forwarded", result.Forwarded).Int("skipped", result.Skipped).Msg("forward pass complete")
	return result, nil
}

// CloseResult summarizes a bulk-close pass.
type CloseResult struct {
	Listed  int
	Matched int
	Closed  int
	Skipped int
}

// CloseBySeverity comments on and closes every open incident at or below
// the severity ceiling.
func (o *Orchestrator) CloseBySeverity(ctx context.Context, opts ListOptions, ceiling string) (*CloseResult, error) {
	log := o.runLogger("close-severity")

	incidents, err := o.list(ctx, log, opts, remediableStatuses)
	if err != nil {
		return nil, err
	}

	result := &CloseResult{Listed: len(incidents)}
	for _, inc := range incidents {
		if inc.IsPrevented || !classify.StatusEligible(inc.Status) {
			continue
		}
		if !classify.SeverityAtMost(inc.Severity, ceiling) {
			continue
		}
		result.Matched++
		if o.closeWithNote(ctx, log, inc, severityCloseNote) {
			result.Closed++
		} else {
			result.Skipped++
		}
	}
	log.Info().Int("matched", result.Matched).Int("closed", result.Closed).Str("ceiling", ceiling).Msg("close pass complete")
	return result, nil
}

// CloseByDangerousIP comments on and closes every open incident whose
// assets or indicators touch the dangerous-IP set. Incidents whose detail
// cannot be fetched are skipped, not fatal.
func (o *Orchestrator) CloseByDangerousIP(ctx context.Context, opts ListOptions) (*CloseResult, error) {
	log := o.runLogger("close-ip")

	incidents, err := o.list(ctx, log, opts, remediableStatuses)
	if err != nil {
		return nil, err
	}

	result := &CloseResult{Listed: len(incidents)}
	for _, inc := range incidents {
		if inc.IsPrevented || !classify.StatusEligible(inc.Status) {
			continue
		}
		detail, err := o.api.GetDetails(ctx, o.session, inc.ID)
		if err != nil {
			log.Warn().Err(err).Str("incident", inc.ID).Msg("detail fetch failed, skipping incident")
			result.Skipped++
			continue
		}
		if !classify.ContainsDangerousIP(detail, o.dangerous) {
			continue
		}
		result.Matched++
		if o.closeWithNote(ctx, log, inc, dangerousIPCloseNote) {
			result.Closed++
		} else {
			result.Skipped++
		}
	}
	log.Info().Int("matched", result.Matched).Int("closed", result.Closed).Msg("close pass complete")
	return result, nil
}

// SweepResult summarizes a combined pass.
type SweepResult struct {
	Listed    int
	Forwarded int
	Closed    int
	Skipped   int
}

// Sweep runs the combined workflow: one pass over the window; per
// eligible non-prevented incident, forward when severity is high or
// critical, and independently comment+close when a dangerous IP is
// present. Both actions may fire for the same incident.
func (o *Orchestrator) Sweep(ctx context.Context, opts ListOptions) (*SweepResult, error) {
	log := o.runLogger("sweep")

	incidents, err := o.list(ctx, log, opts, nil)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Listed: len(incidents)}
	for _, inc := range incidents {
		if inc.IsPrevented || !classify.StatusEligible(inc.Status) {
			continue
		}

		detail, err := o.api.GetDetails(ctx, o.session, inc.ID)
		if err != nil {
			log.Warn().Err(err).Str("incident", inc.ID).Msg("detail fetch failed, skipping incident")
			result.Skipped++
			continue
		}

		if classify.SeverityAtLeast(inc.Severity, classify.SeverityHigh) {
			if o.forward(ctx, log, inc, detail) {
				result.Forwarded++
			} else {
				result.Skipped++
			}
		}

		if classify.ContainsDangerousIP(detail, o.dangerous) {
			if o.closeWithNote(ctx, log, inc, dangerousIPCloseNote) {
				result.Closed++
			} else {
				result.Skipped++
			}
		}
	}
	log.Info().Int("forwarded", result.Forwarded).Int("closed", result.Closed).Msg("sweep complete")
	return result, nil
}

// Detail fetches one incident's full record for display.
func (o *Orchestrator) Detail(ctx context.Context, incidentID string) (*xdr.IncidentDetail, error) {
	return o.api.GetDetails(ctx, o.session, incidentID)
}

func (o *Orchestrator) forwardDetail(ctx context.Context, log zerolog.Logger, inc xdr.IncidentSummary) bool {
	detail, err := o.api.GetDetails(ctx, o.session, inc.ID)
	if err != nil {
		log.Warn().Err(err).Str("incident", inc.ID).Msg("detail fetch failed, skipping incident")
		return false
	}
	return o.forward(ctx, log, inc, detail)
}

func (o *Orchestrator) forward(ctx context.Context, log zerolog.Logger, inc xdr.IncidentSummary, detail *xdr.IncidentDetail) bool {
	if err := o.forwarder.Forward(ctx, detail.Raw); err != nil {
		log.Warn().Err(err).Str("incident", inc.ID).Msg("forward failed")
		return false
	}
	log.Info().Str("incident", inc.ID).Str("severity", inc.Severity).Msg("event forwarded")
	return true
}

// closeWithNote comments on the ticket and closes it only if the comment
// landed. A failed comment leaves the ticket open.
func (o *Orchestrator) closeWithNote(ctx context.Context, log zerolog.Logger, inc xdr.IncidentSummary, note string) bool {
	if err := o.api.Comment(ctx, o.session, inc.DisplayID, note); err != nil {
		log.Warn().Err(err).Str("incident", inc.ID).Str("display_id", inc.DisplayID).Msg("comment failed, leaving ticket open")
		return false
	}
	if err := o.api.Close(ctx, o.session, inc.ID); err != nil {
		log.Warn().Err(err).Str("incident", inc.ID).Msg("close failed")
		return false
	}
	log.Info().Str("incident", inc.ID).Str("display_id", inc.DisplayID).Msg("ticket closed")
	return true
}
