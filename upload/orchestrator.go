package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/docqa/adapter"
	"github.com/pithecene-io/docqa/api"
	"github.com/pithecene-io/docqa/capture"
	"github.com/pithecene-io/docqa/iox"
	"github.com/pithecene-io/docqa/lode"
	"github.com/pithecene-io/docqa/log"
	"github.com/pithecene-io/docqa/metrics"
	"github.com/pithecene-io/docqa/types"
)

// sideEffectTimeout bounds notification and report writes after a session.
const sideEffectTimeout = 30 * time.Second

// Transport opens the upload response stream.
// *api.Client implements it.
type Transport interface {
	Upload(ctx context.Context, filename string, content io.Reader) (io.ReadCloser, error)
}

// ReportWriter persists upload reports.
// *lode.ReportStore implements it.
type ReportWriter interface {
	WriteReport(ctx context.Context, report lode.UploadReport) error
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	// Transport opens upload streams (required).
	Transport Transport
	// APIURL is recorded in reports.
	APIURL string
	// Logger is the base logger. Nil discards.
	Logger *log.Logger
	// MaxFileSizeMB bounds accepted files (default DefaultMaxFileSizeMB).
	MaxFileSizeMB int
	// ReadBufferSize is the transport read size.
	ReadBufferSize int
	// Adapter publishes upload notifications. Optional.
	Adapter adapter.Adapter
	// AdapterName labels metrics (webhook, redis).
	AdapterName string
	// Reports persists upload reports. Optional.
	Reports ReportWriter
	// ReportBackend labels metrics (fs, s3).
	ReportBackend string
}

// Request is one upload.
type Request struct {
	// Path is the local PDF to upload.
	Path string
	// Observer receives progress and the outcome. Optional.
	Observer Observer
	// CapturePath records the raw response stream when set.
	CapturePath string
}

// Orchestrator runs validated uploads end to end.
// It is safe for concurrent use; every Upload gets its own Session.
type Orchestrator struct {
	config OrchestratorConfig
	logger *log.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Transport == nil {
		return nil, errors.New("upload orchestrator requires a transport")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Orchestrator{config: cfg, logger: logger}, nil
}

// Upload validates the file, streams it to the service and decodes the
// progress stream until an outcome is reached.
//
// Returns a *ValidationError (and no result) when the file is rejected
// locally. Every other failure is reported in the result's outcome; the
// returned error is then nil.
//
// Execution flow:
//  1. Validate the file
//  2. Open the upload stream (non-2xx ends the session as rejected)
//  3. Run the session, teeing chunks into the capture if requested
//  4. Publish the notification and write the report (best effort)
func (o *Orchestrator) Upload(ctx context.Context, req Request) (*Result, error) {
	info, err := ValidateFile(req.Path, o.config.MaxFileSizeMB)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	collector := metrics.NewCollector(sessionID, info.Name, o.config.AdapterName, o.config.ReportBackend)
	logger := o.logger.ForSession(sessionID, info.Name)

	var capWriter *capture.Writer
	if req.CapturePath != "" {
		capWriter, err = capture.Create(req.CapturePath, capture.HeaderRecord{
			SessionID: sessionID,
			Filename:  info.Name,
		})
		if err != nil {
			return nil, &ValidationError{Path: req.CapturePath, Reason: err.Error()}
		}
		defer o.closeCapture(logger, capWriter)
	}

	session := NewSession(SessionConfig{
		SessionID:      sessionID,
		Filename:       info.Name,
		Logger:         o.logger,
		Collector:      collector,
		Observer:       req.Observer,
		ReadBufferSize: o.config.ReadBufferSize,
	})

	result := o.stream(ctx, session, info, capWriter, logger)

	o.publish(ctx, result, info, collector, logger)
	o.report(ctx, result, info, collector, logger)
	result.Metrics = collector.Snapshot()
	return result, nil
}

// stream opens the upload and runs the session over the response body.
func (o *Orchestrator) stream(
	ctx context.Context,
	session *Session,
	info *FileInfo,
	capWriter *capture.Writer,
	logger *log.Logger,
) *Result {
	f, err := os.Open(info.Path)
	if err != nil {
		return session.Reject(FailureTransport, fmt.Sprintf("open file: %v", err))
	}
	defer iox.DiscardClose(f)

	logger.Info("starting upload", map[string]any{
		"path": info.Path,
		"size": info.Size,
	})

	body, err := o.config.Transport.Upload(ctx, info.Name, f)
	if err != nil {
		var statusErr *api.StatusError
		switch {
		case errors.As(err, &statusErr):
			return session.Reject(FailureRejected, statusErr.Message())
		case ctx.Err() != nil:
			return session.Reject(FailureCanceled, ctx.Err().Error())
		default:
			return session.Reject(FailureTransport, err.Error())
		}
	}
	defer iox.DiscardClose(body)

	stop := iox.CloseOnDone(ctx, body)
	defer stop()

	var r io.Reader = body
	var tee *capture.Tee
	if capWriter != nil {
		tee = capture.TeeReader(body, capWriter)
		r = tee
	}

	result := session.Run(ctx, r)

	if tee != nil && tee.Err() != nil {
		logger.Warn("capture write failed", map[string]any{
			"error": tee.Err().Error(),
		})
	}
	return result
}

func (o *Orchestrator) closeCapture(logger *log.Logger, w *capture.Writer) {
	if err := w.Close(); err != nil {
		logger.Warn("failed to close capture", map[string]any{"error": err.Error()})
		return
	}
	logger.Debug("capture written", map[string]any{"chunks": w.Chunks()})
}

// publish sends the notification. Failures are logged, never returned.
func (o *Orchestrator) publish(
	ctx context.Context,
	result *Result,
	info *FileInfo,
	collector *metrics.Collector,
	logger *log.Logger,
) {
	if o.config.Adapter == nil {
		return
	}
	// Publish even when the upload context was canceled.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := o.config.Adapter.Publish(pubCtx, NewUploadCompletedEvent(result, info.Size)); err != nil {
		collector.IncNotifyFailure()
		logger.Warn("notification failed", map[string]any{
			"adapter": o.config.AdapterName,
			"error":   err.Error(),
		})
		return
	}
	collector.IncNotifySuccess()
}

// report writes the upload report. Failures are logged, never returned.
func (o *Orchestrator) report(
	ctx context.Context,
	result *Result,
	info *FileInfo,
	collector *metrics.Collector,
	logger *log.Logger,
) {
	if o.config.Reports == nil {
		return
	}
	repCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := o.config.Reports.WriteReport(repCtx, NewUploadReport(result, info.Size, o.config.APIURL)); err != nil {
		collector.IncReportWriteFailure()
		logger.Warn("report write failed", map[string]any{
			"backend": o.config.ReportBackend,
			"error":   err.Error(),
		})
		return
	}
	collector.IncReportWriteSuccess()
}

// NewUploadCompletedEvent builds the notification for a finished session.
func NewUploadCompletedEvent(result *Result, fileSize int64) *adapter.UploadCompletedEvent {
	ev := &adapter.UploadCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       adapter.EventTypeUploadCompleted,
		SessionID:       result.SessionID,
		Filename:        result.Filename,
		Outcome:         string(result.Outcome.Status),
		Failure:         string(result.Failure),
		Message:         result.Outcome.Message,
		FileSize:        fileSize,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		EventCount:      result.Decoder.Events,
		DurationMs:      result.Duration.Milliseconds(),
	}
	if doc := result.Outcome.Document; doc != nil {
		ev.DocumentID = doc.ID
		ev.PageCount = doc.PageCount
		ev.ChunkCount = doc.ChunkCount
		if doc.FileSize > 0 {
			ev.FileSize = doc.FileSize
		}
	}
	return ev
}

// NewUploadReport builds the stored report for a finished session.
func NewUploadReport(result *Result, fileSize int64, apiURL string) lode.UploadReport {
	r := lode.UploadReport{
		SessionID:       result.SessionID,
		Filename:        result.Filename,
		APIURL:          apiURL,
		Outcome:         string(result.Outcome.Status),
		Failure:         string(result.Failure),
		Message:         result.Outcome.Message,
		FileSize:        fileSize,
		BytesRead:       result.BytesRead,
		ChunksRead:      result.ChunksRead,
		Lines:           result.Decoder.Lines,
		Events:          result.Decoder.Events,
		Malformed:       result.Decoder.Malformed,
		DiscardedBytes:  result.Decoder.DiscardedBytes,
		ProgressUpdates: result.ProgressUpdates,
		LastStage:       string(result.LastProgress.Stage),
		LastPercent:     result.LastProgress.Percent,
		DurationMs:      result.Duration.Milliseconds(),
		CompletedAt:     time.Now().UTC(),
	}
	if doc := result.Outcome.Document; doc != nil {
		r.DocumentID = doc.ID
		r.PageCount = doc.PageCount
		r.ChunkCount = doc.ChunkCount
	}
	return r
}
