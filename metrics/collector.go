// Package metrics provides per-session counters for uploads.
//
// The Collector accumulates counters during a single upload session. It is a
// leaf package with no internal dependencies. Decoder counters are absorbed
// once at the end of the stream rather than recorded per line.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Session lifecycle
	UploadsStarted   int64 `json:"uploads_started"`
	UploadsCompleted int64 `json:"uploads_completed"`
	UploadsFailed    int64 `json:"uploads_failed"`
	TransportErrors  int64 `json:"transport_errors"`

	// Transport
	ChunksRead int64 `json:"chunks_read"`
	BytesRead  int64 `json:"bytes_read"`

	// Decoder (absorbed at end of stream)
	LinesSplit      int64 `json:"lines_split"`
	EventsDecoded   int64 `json:"events_decoded"`
	MalformedFrames int64 `json:"malformed_frames"`
	DiscardedBytes  int64 `json:"discarded_bytes"`

	// State machine
	ProgressUpdates     int64 `json:"progress_updates"`
	IgnoredEvents       int64 `json:"ignored_events"`
	EventsAfterTerminal int64 `json:"events_after_terminal"`

	// Side effects
	NotifySuccess      int64 `json:"notify_success"`
	NotifyFailure      int64 `json:"notify_failure"`
	ReportWriteSuccess int64 `json:"report_write_success"`
	ReportWriteFailure int64 `json:"report_write_failure"`

	// Dimensions (informational, set at construction)
	SessionID     string `json:"session_id"`
	Filename      string `json:"filename"`
	Adapter       string `json:"adapter,omitempty"`
	ReportBackend string `json:"report_backend,omitempty"`
}

// Collector accumulates metrics during a single upload session.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
// adapter and reportBackend are empty when the feature is not configured.
func NewCollector(sessionID, filename, adapter, reportBackend string) *Collector {
	return &Collector{
		s: Snapshot{
			SessionID:     sessionID,
			Filename:      filename,
			Adapter:       adapter,
			ReportBackend: reportBackend,
		},
	}
}

func (c *Collector) add(fn func(s *Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

// --- Session lifecycle ---

// IncUploadStarted records a session start.
func (c *Collector) IncUploadStarted() { c.add(func(s *Snapshot) { s.UploadsStarted++ }) }

// IncUploadCompleted records a completed outcome.
func (c *Collector) IncUploadCompleted() { c.add(func(s *Snapshot) { s.UploadsCompleted++ }) }

// IncUploadFailed records a failed outcome, whatever its cause.
func (c *Collector) IncUploadFailed() { c.add(func(s *Snapshot) { s.UploadsFailed++ }) }

// IncTransportError records a read error or an unusable response.
func (c *Collector) IncTransportError() { c.add(func(s *Snapshot) { s.TransportErrors++ }) }

// --- Transport ---

// AddChunk records one transport read of n bytes.
func (c *Collector) AddChunk(n int) {
	c.add(func(s *Snapshot) {
		s.ChunksRead++
		s.BytesRead += int64(n)
	})
}

// --- State machine ---

// IncProgressUpdate records an event that overwrote the progress state.
func (c *Collector) IncProgressUpdate() { c.add(func(s *Snapshot) { s.ProgressUpdates++ }) }

// IncIgnoredEvent records an event of unknown shape.
func (c *Collector) IncIgnoredEvent() { c.add(func(s *Snapshot) { s.IgnoredEvents++ }) }

// IncEventAfterTerminal records an event decoded after the outcome was fixed.
func (c *Collector) IncEventAfterTerminal() { c.add(func(s *Snapshot) { s.EventsAfterTerminal++ }) }

// --- Side effects ---

// IncNotifySuccess records a successful notification publish.
func (c *Collector) IncNotifySuccess() { c.add(func(s *Snapshot) { s.NotifySuccess++ }) }

// IncNotifyFailure records a failed notification publish.
func (c *Collector) IncNotifyFailure() { c.add(func(s *Snapshot) { s.NotifyFailure++ }) }

// IncReportWriteSuccess records a successful report write.
func (c *Collector) IncReportWriteSuccess() { c.add(func(s *Snapshot) { s.ReportWriteSuccess++ }) }

// IncReportWriteFailure records a failed report write.
func (c *Collector) IncReportWriteFailure() { c.add(func(s *Snapshot) { s.ReportWriteFailure++ }) }

// --- Decoder (absorbed at end of stream) ---

// AbsorbDecoderStats copies decoder counters into the collector.
// Called once when the stream ends. Takes plain values to keep this package
// free of dependencies on the decoder.
func (c *Collector) AbsorbDecoderStats(lines, events, malformed, discardedBytes int64) {
	c.add(func(s *Snapshot) {
		s.LinesSplit = lines
		s.EventsDecoded = events
		s.MalformedFrames = malformed
		s.DiscardedBytes = discardedBytes
	})
}

// --- Snapshot ---

// Snapshot returns a copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
