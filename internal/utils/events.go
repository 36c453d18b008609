package utils

import "time"

type EventKind string

const (
	EventProbed        EventKind = "probed"
	EventPlanned       EventKind = "planned"
	EventPreallocated  EventKind = "preallocated"
	EventChunkStarted  EventKind = "chunk-started"
	EventChunkProgress EventKind = "chunk-progress"
	EventChunkFinished EventKind = "chunk-finished"
	EventChunkFailed   EventKind = "chunk-failed"
	EventCompleted     EventKind = "completed"
	EventFailed        EventKind = "failed"
)

// Event is a single observation emitted by a download. Fields not relevant to
// the kind are left zero; Chunk is -1 for download-level events.
type Event struct {
	Kind     EventKind
	JobID    string
	FileName string
	Chunk    int
	Start    int64
	End      int64
	Bytes    int64
	Total    int64
	Workers  int
	Ranged   bool
	Digest   string
	Err      error
	Time     time.Time
}

// EventSink receives events from concurrently running chunk fetches, so
// implementations must be safe for concurrent use.
type EventSink interface {
	Emit(Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// NopSink discards every event.
var NopSink EventSink = nopSink{}
