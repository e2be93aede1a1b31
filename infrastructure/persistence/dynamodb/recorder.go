package dynamodb

import "time"

// Recorder receives per-call store metrics.
type Recorder interface {
	RecordOperation(operation string, duration time.Duration, err error)
	RecordUnprocessed(operation string, count int)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, time.Duration, error) {}
func (NopRecorder) RecordUnprocessed(string, int)                {}
