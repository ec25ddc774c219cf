package merge

import (
	"log/slog"
)

// Policy decides what a failed merge looks like to the caller.
type Policy struct {
	// Debug propagates every failure unchanged.
	Debug bool
	// SuccessURL is returned as the target of a successful merge.
	SuccessURL string
	// FailureURL, when set and Debug is off, turns failures into redirects.
	FailureURL string
}

// Dispatch applies the policy to a merge failure. The store has already
// been rolled back when it is called. With Debug on, or with no failure
// target configured, err is returned unchanged; otherwise the caller gets a
// redirect to FailureURL and err is kept as the Result's Cause.
func (p Policy) Dispatch(log *slog.Logger, err error) (*Result, error) {
	if p.Debug {
		return nil, err
	}
	if p.FailureURL == "" {
		log.Warn("no failure target configured, propagating merge error")
		return nil, err
	}
	return &Result{Outcome: OutcomeRedirect, Target: p.FailureURL, Cause: err}, nil
}
