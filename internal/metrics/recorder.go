// Package metrics records run, fetch and notification metrics.
//
// Components receive a Recorder and default to NoopRecorder, so nothing has
// to nil-check before recording. The Prometheus implementation is activated
// when metrics.textfile or metrics.listen is configured.
package metrics

import "time"

// Outcome enumerates result labels for counters.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Recorder defines the observability hooks used by a monitoring run.
type Recorder interface {
	ObserveFetchDuration(host string, d time.Duration, success bool)
	IncClassification(ruleSet, state string)
	IncTransition(from, to string)
	IncNotification(kind string, outcome Outcome)
	ObserveRunDuration(d time.Duration, outcome Outcome)
	SetTargets(tracked, available int)
	SetLastRun(t time.Time)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetchDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncClassification(string, string)                 {}
func (NoopRecorder) IncTransition(string, string)                     {}
func (NoopRecorder) IncNotification(string, Outcome)                  {}
func (NoopRecorder) ObserveRunDuration(time.Duration, Outcome)        {}
func (NoopRecorder) SetTargets(int, int)                              {}
func (NoopRecorder) SetLastRun(time.Time)                             {}
