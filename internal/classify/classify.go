// Package classify holds the pure triage predicates: severity ordering,
// remediation eligibility by status, and dangerous-IP matching.
// No I/O, no configuration lookup.
package classify

import (
	"strings"

	"github.com/xdrtriage/xdrtriage/internal/xdr"
)

// Severity levels in ascending order of impact.
const (
	SeverityInformational = "informational"
	SeverityLow           = "low"
	SeverityMedium        = "medium"
	SeverityHigh          = "high"
	SeverityCritical      = "critical"
)

// Severities lists the defined levels in rank order, lowest first.
var Severities = []string{
	SeverityInformational,
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

var severityRank = map[string]int{
	SeverityInformational: 0,
	SeverityLow:           1,
	SeverityMedium:        2,
	SeverityHigh:          3,
	SeverityCritical:      4,
}

// Rank returns a severity's position in the fixed five-level order.
// ok is false for strings outside the defined set.
func Rank(severity string) (rank int, ok bool) {
	rank, ok = severityRank[strings.ToLower(severity)]
	return rank, ok
}

// KnownSeverity reports whether s is one of the five defined levels.
func KnownSeverity(s string) bool {
	_, ok := Rank(s)
	return ok
}

// SeverityAtLeast reports rank(sev) >= rank(floor). A severity outside the
// defined set never satisfies any floor.
func SeverityAtLeast(sev, floor string) bool {
	s, ok := Rank(sev)
	if !ok {
		return false
	}
	f, ok := Rank(floor)
	if !ok {
		return false
	}
	return s >= f
}

// SeverityAtMost reports rank(sev) <= rank(ceiling). Severities outside
// the defined set are excluded here as well: a ticket whose severity the
// tool cannot rank is never bulk-closed.
func SeverityAtMost(sev, ceiling string) bool {
	s, ok := Rank(sev)
	if !ok {
		return false
	}
	c, ok := Rank(ceiling)
	if !ok {
		return false
	}
	return s <= c
}

// StatusEligible reports whether an incident is open for remediation.
// Only the exact statuses "new" and "in progress" qualify,
// case-insensitively; closed, handled, and custom statuses never do.
func StatusEligible(status string) bool {
	switch strings.ToLower(status) {
	case "new", "in progress":
		return true
	}
	return false
}

// IPSet is a fixed membership set of IP address strings.
type IPSet map[string]struct{}

// NewIPSet builds an IPSet from a list of addresses, dropping empties.
func NewIPSet(addrs []string) IPSet {
	set := make(IPSet, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		set[a] = struct{}{}
	}
	return set
}

// Contains reports exact membership. No prefix or substring matching.
func (s IPSet) Contains(addr string) bool {
	_, ok := s[addr]
	return ok
}

// ContainsDangerousIP reports whether any observable value across the
// incident's assets and indicators is a member of the set. A nil detail
// or empty collections yield false.
func ContainsDangerousIP(detail *xdr.IncidentDetail, set IPSet) bool {
	if detail == nil || len(set) == 0 {
		return false
	}
	for _, obs := range detail.Assets {
		if set.Contains(obs.Value) {
			return true
		}
	}
	for _, obs := range detail.Indicators {
		if set.Contains(obs.Value) {
			return true
		}
	}
	return false
}
