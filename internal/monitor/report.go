package monitor

import (
	"time"

	"git.home.luguber.info/inful/restockwatch/internal/availability"
	"git.home.luguber.info/inful/restockwatch/internal/config"
)

// TargetResult is the outcome of checking one target.
type TargetResult struct {
	Target   config.Target
	Previous availability.Observed
	Current  availability.Observed
	RuleSet  string
	Duration time.Duration
	Err      error
}

// Changed reports whether the stored state moved during this check.
func (r TargetResult) Changed() bool {
	return availability.Label(r.Previous) != availability.Label(r.Current)
}

// Restocked reports a transition into Available from anything else.
func (r TargetResult) Restocked() bool {
	return r.Err == nil && !availability.WasAvailable(r.Previous) && availability.WasAvailable(r.Current)
}

// Report summarises one run.
type Report struct {
	RunID   string
	Start   time.Time
	End     time.Time
	Results []TargetResult

	// Restocked lists the targets included in the sent batch. It stays
	// empty when the batch could not be delivered.
	Restocked     []config.Target
	HeartbeatSent bool
	Tracked       int
	Available     int
}

// Failed returns the results whose fetch failed.
func (r *Report) Failed() []TargetResult {
	var out []TargetResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
