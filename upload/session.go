// Package upload drives one document upload from response stream to outcome.
//
// A Session owns the decode pipeline for exactly one upload: a fresh
// sse.Decoder and progress.Tracker are created per session and discarded when
// Run returns. The Orchestrator wraps a Session with file validation, the HTTP
// transport, optional chunk capture, notification and reporting.
package upload

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/docqa/log"
	"github.com/pithecene-io/docqa/metrics"
	"github.com/pithecene-io/docqa/progress"
	"github.com/pithecene-io/docqa/sse"
	"github.com/pithecene-io/docqa/types"
)

// DefaultReadBufferSize is the size of each transport read.
const DefaultReadBufferSize = 4096

// StreamEndedMessage is the failure message when the stream closes before a
// completion or error event arrives.
const StreamEndedMessage = "stream ended before upload completed"

// FailureKind classifies why a session failed.
type FailureKind string

const (
	// FailureNone means the upload completed.
	FailureNone FailureKind = ""
	// FailureServer means the backend reported an error event.
	FailureServer FailureKind = "server"
	// FailureRejected means the server refused the upload request.
	FailureRejected FailureKind = "rejected"
	// FailureTransport means the request failed or the stream broke or ended early.
	FailureTransport FailureKind = "transport"
	// FailureCanceled means the context was canceled or timed out.
	FailureCanceled FailureKind = "canceled"
)

// Observer receives session updates in order.
// OnProgress is called for every progress update; OnOutcome is called exactly
// once, after the last OnProgress.
type Observer interface {
	OnProgress(state types.ProgressState)
	OnOutcome(outcome *types.UploadOutcome)
}

// NopObserver discards all updates.
type NopObserver struct{}

// OnProgress implements Observer.
func (NopObserver) OnProgress(types.ProgressState) {}

// OnOutcome implements Observer.
func (NopObserver) OnOutcome(*types.UploadOutcome) {}

// SessionConfig configures a single session.
type SessionConfig struct {
	// SessionID identifies the session. Generated if empty.
	SessionID string
	// Filename is the name of the uploaded file, for logs and results.
	Filename string
	// Logger is the base logger. Session fields are added. Nil discards.
	Logger *log.Logger
	// Collector records counters. Nil records nothing.
	Collector *metrics.Collector
	// Observer receives progress and the outcome. Nil discards.
	Observer Observer
	// ReadBufferSize is the transport read size (default DefaultReadBufferSize).
	ReadBufferSize int
}

// Result is the result of one session.
type Result struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`
	// Filename is the uploaded file name.
	Filename string `json:"filename"`
	// Outcome is the terminal outcome. Never nil.
	Outcome *types.UploadOutcome `json:"outcome"`
	// Failure classifies a failed outcome.
	Failure FailureKind `json:"failure,omitempty"`
	// LastProgress is the last progress state reported before the outcome.
	LastProgress types.ProgressState `json:"last_progress"`
	// Decoder holds the decoder counters.
	Decoder sse.Stats `json:"decoder"`
	// BytesRead is the number of response bytes read.
	BytesRead int64 `json:"bytes_read"`
	// ChunksRead is the number of transport reads that returned data.
	ChunksRead int64 `json:"chunks_read"`
	// ProgressUpdates is the number of progress states reported.
	ProgressUpdates int64 `json:"progress_updates"`
	// Duration is the wall time of the session.
	Duration time.Duration `json:"duration"`
	// Metrics is the final counter snapshot, set by the Orchestrator after
	// notification and reporting.
	Metrics metrics.Snapshot `json:"metrics"`
}

// Session decodes one upload response stream.
type Session struct {
	id        string
	filename  string
	logger    *log.Logger
	collector *metrics.Collector
	observer  Observer
	bufSize   int

	decoder *sse.Decoder
	tracker *progress.Tracker

	failure         FailureKind
	lastProgress    types.ProgressState
	progressUpdates int64
	notified        bool
}

// NewSession creates a session with its own decoder and tracker.
func NewSession(cfg SessionConfig) *Session {
	id := cfg.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	bufSize := cfg.ReadBufferSize
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}

	s := &Session{
		id:           id,
		filename:     cfg.Filename,
		logger:       logger.ForSession(id, cfg.Filename),
		collector:    cfg.Collector,
		observer:     observer,
		bufSize:      bufSize,
		tracker:      progress.NewTracker(),
		lastProgress: types.InitialProgress(),
	}
	s.decoder = sse.NewDecoder(sse.WithMalformedHandler(func(fe *sse.FrameError) {
		s.logger.Warn("dropped malformed data line", map[string]any{
			"line":  fe.Line,
			"error": fe.Error(),
		})
	}))
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Run reads body until EOF, a read error, or cancellation, and returns the
// result. It never returns a nil result.
//
// Reading continues after a terminal event so trailing events are decoded and
// counted; they do not change the outcome. The caller owns body and must
// close it to unblock a pending Read on cancellation.
func (s *Session) Run(ctx context.Context, body io.Reader) *Result {
	start := time.Now()
	s.collector.IncUploadStarted()
	s.logger.Info("reading upload stream", nil)

	var bytesRead, chunksRead int64
	buf := make([]byte, s.bufSize)

	for {
		if err := ctx.Err(); err != nil {
			s.failTransport(FailureCanceled, err.Error())
			break
		}

		n, err := body.Read(buf)
		if n > 0 {
			bytesRead += int64(n)
			chunksRead++
			s.collector.AddChunk(n)
			for _, ev := range s.decoder.Feed(buf[:n]) {
				s.handle(ev)
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.failTransport(FailureCanceled, ctxErr.Error())
		} else {
			s.failTransport(FailureTransport, err.Error())
		}
		break
	}
	return s.finish(start, bytesRead, chunksRead)
}

// Reject ends a session whose stream never opened, failing it with kind and
// message. The observer still receives the outcome.
func (s *Session) Reject(kind FailureKind, message string) *Result {
	start := time.Now()
	s.collector.IncUploadStarted()
	s.failTransport(kind, message)
	return s.finish(start, 0, 0)
}

// finish closes the decoder, fixes the outcome and builds the result.
func (s *Session) finish(start time.Time, bytesRead, chunksRead int64) *Result {
	buffered, pendingEvent := s.decoder.Buffered(), s.decoder.PendingEvent()
	if rest := s.decoder.Close(); rest != "" || pendingEvent != "" {
		s.logger.Warn("stream ended mid-event", map[string]any{
			"discarded_bytes": len(rest),
			"buffered_bytes":  buffered,
			"pending_event":   pendingEvent,
		})
	}
	if !s.tracker.Phase().IsTerminal() {
		s.failTransport(FailureTransport, StreamEndedMessage)
	}

	stats := s.decoder.Stats()
	s.collector.AbsorbDecoderStats(stats.Lines, stats.Events, stats.Malformed, stats.DiscardedBytes)

	outcome := s.tracker.Outcome()
	if outcome.IsCompleted() {
		s.collector.IncUploadCompleted()
	} else {
		s.collector.IncUploadFailed()
	}
	s.notify(outcome)

	result := &Result{
		SessionID:       s.id,
		Filename:        s.filename,
		Outcome:         outcome,
		Failure:         s.failure,
		LastProgress:    s.lastProgress,
		Decoder:         stats,
		BytesRead:       bytesRead,
		ChunksRead:      chunksRead,
		ProgressUpdates: s.progressUpdates,
		Duration:        time.Since(start),
	}

	s.logger.Info("upload session finished", map[string]any{
		"status":      outcome.Status,
		"failure":     s.failure,
		"bytes_read":  bytesRead,
		"chunks_read": chunksRead,
		"events":      stats.Events,
		"malformed":   stats.Malformed,
		"duration":    result.Duration.String(),
	})
	return result
}

// handle applies one decoded event to the tracker.
func (s *Session) handle(ev types.StreamEvent) {
	switch s.tracker.Handle(ev) {
	case progress.Progressed:
		s.collector.IncProgressUpdate()
		s.progressUpdates++
		s.lastProgress = s.tracker.Progress()
		s.observer.OnProgress(s.lastProgress)

	case progress.Completed:
		s.logger.Info("upload completed", map[string]any{
			"document_id": s.tracker.Outcome().Document.ID,
		})
		s.notify(s.tracker.Outcome())

	case progress.Failed:
		s.failure = FailureServer
		s.logger.Warn("upload failed", map[string]any{
			"message": s.tracker.Outcome().Message,
		})
		s.notify(s.tracker.Outcome())

	case progress.AfterTerminal:
		s.collector.IncEventAfterTerminal()
		s.logger.Debug("event after terminal outcome", map[string]any{
			"event": ev.DisplayName(),
		})

	default:
		s.collector.IncIgnoredEvent()
		s.logger.Debug("ignored event", map[string]any{
			"event": ev.DisplayName(),
		})
	}
}

// failTransport fails the tracker unless an outcome is already fixed.
func (s *Session) failTransport(kind FailureKind, message string) {
	if s.tracker.Phase().IsTerminal() {
		s.logger.Debug("stream ended after terminal event", map[string]any{
			"reason": message,
		})
		return
	}
	if kind == FailureTransport {
		s.collector.IncTransportError()
	}
	s.failure = kind
	s.tracker.Fail(message)
	s.logger.Warn("upload stream failed", map[string]any{
		"failure": kind,
		"error":   message,
	})
}

func (s *Session) notify(outcome *types.UploadOutcome) {
	if s.notified {
		return
	}
	s.notified = true
	s.observer.OnOutcome(outcome)
}
