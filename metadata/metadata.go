// Package metadata tracks per-request identity, timing and token usage.
//
// A Record is created by Start when a call begins and completed once by
// Finish when it returns. After Finish the record belongs to the caller.

package metadata

import (
	"time"

	"github.com/google/uuid"
	"github.com/richinex/gemway/tokens"
)

// Record is the per-call envelope attached to every response.
type Record struct {
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	StartedAt  time.Time      `json:"startedAt"`
	RequestID  string         `json:"requestId"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	LatencyMs  *int64         `json:"latencyMs,omitempty"`
	TokenUsage *tokens.Usage  `json:"tokenUsage,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Finished reports whether Finish has completed the record.
func (r Record) Finished() bool {
	return r.FinishedAt != nil
}

// Latency returns the recorded latency, or zero before Finish.
func (r Record) Latency() time.Duration {
	if r.LatencyMs == nil {
		return 0
	}
	return time.Duration(*r.LatencyMs) * time.Millisecond
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Tracker stamps and completes records using its clock.
// The zero value uses time.Now.
type Tracker struct {
	Now Clock
}

func (t Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

// Start creates a record for a call that is beginning now.
// extra is copied so later changes by the caller do not leak in.
func (t Tracker) Start(provider, model string, extra map[string]any) Record {
	return Record{
		Provider:  provider,
		Model:     model,
		StartedAt: t.now(),
		RequestID: uuid.NewString(),
		Extra:     copyExtra(extra),
	}
}

// Finish returns rec with FinishedAt, LatencyMs and TokenUsage set.
// Existing fields are kept; a nil usage keeps any usage already present.
// Latency is never negative, even if the clock moved backwards.
func (t Tracker) Finish(rec Record, usage *tokens.Usage) Record {
	finished := t.now()
	latency := max(finished.Sub(rec.StartedAt).Milliseconds(), 0)

	rec.FinishedAt = &finished
	rec.LatencyMs = &latency
	if usage != nil {
		u := *usage
		rec.TokenUsage = &u
	}
	return rec
}

var defaultTracker Tracker

// Start creates a record with the wall clock.
func Start(provider, model string, extra map[string]any) Record {
	return defaultTracker.Start(provider, model, extra)
}

// Finish completes a record with the wall clock.
func Finish(rec Record, usage *tokens.Usage) Record {
	return defaultTracker.Finish(rec, usage)
}

func copyExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}
