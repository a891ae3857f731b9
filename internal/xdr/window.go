package xdr

import (
	"fmt"
	"time"
)

// WireTimeFormat is the timestamp format the API expects: UTC, second
// precision, literal Z designator rather than a numeric offset.
const WireTimeFormat = "2006-01-02T15:04:05Z"

// Window is the half-open interval [From, To) an incident listing covers.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow computes the window ending at now and reaching hoursBack hours
// into the past.
func NewWindow(now time.Time, hoursBack int) (Window, error) {
	if hoursBack <= 0 {
		return Window{}, fmt.Errorf("window: hours back must be positive, got %d", hoursBack)
	}
	to := now.UTC().Truncate(time.Second)
	return Window{
		From: to.Add(-time.Duration(hoursBack) * time.Hour),
		To:   to,
	}, nil
}

// FromWire returns the lower bound in wire format.
func (w Window) FromWire() string {
	return w.From.UTC().Format(WireTimeFormat)
}

// ToWire returns the upper bound in wire format.
func (w Window) ToWire() string {
	return w.To.UTC().Format(WireTimeFormat)
}
