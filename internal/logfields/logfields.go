package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTarget     = "target"
	KeyHost       = "host"
	KeyRuleSet    = "rule_set"
	KeyState      = "state"
	KeyPrevState  = "prev_state"
	KeyDurationMS = "duration_ms"
	KeyBatchSize  = "batch_size"
	KeyPath       = "path"
	KeySchedule   = "schedule"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Target(t string) slog.Attr       { return slog.String(KeyTarget, t) }
func Host(h string) slog.Attr         { return slog.String(KeyHost, h) }
func RuleSet(name string) slog.Attr   { return slog.String(KeyRuleSet, name) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func PrevState(s string) slog.Attr    { return slog.String(KeyPrevState, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func BatchSize(n int) slog.Attr       { return slog.Int(KeyBatchSize, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Schedule(s string) slog.Attr     { return slog.String(KeySchedule, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
