// Package metrics defines observability hooks for documentation resolution and
// search, with a Prometheus implementation and a no-op default.
package metrics

import "time"

// Recorder receives resolution and search events. Implementations must be
// safe for concurrent use.
type Recorder interface {
	// IncResolution counts a finished resolution by the strategy that produced it.
	IncResolution(strategy string)
	ObserveResolveDuration(strategy string, d time.Duration)
	// IncStepFault counts a recovered fault inside a resolver step.
	IncStepFault(step string)
	IncSearch(outcome string)
	ObserveSearchDuration(d time.Duration)
	AddIndexedChunks(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncResolution(string)                        {}
func (NoopRecorder) ObserveResolveDuration(string, time.Duration) {}
func (NoopRecorder) IncStepFault(string)                         {}
func (NoopRecorder) IncSearch(string)                            {}
func (NoopRecorder) ObserveSearchDuration(time.Duration)         {}
func (NoopRecorder) AddIndexedChunks(int)                        {}
