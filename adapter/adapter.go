// Package adapter defines the notification boundary for finished uploads.
//
// Adapters publish an upload_completed notification to a downstream system
// once an upload session reaches its outcome, whether completed or failed.
// The orchestrator owns adapter lifecycle; users provide configuration only.
package adapter

import "context"

// EventTypeUploadCompleted is the event_type of every notification.
const EventTypeUploadCompleted = "upload_completed"

// UploadCompletedEvent is the payload published when an upload finishes.
type UploadCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "upload_completed"
	SessionID       string `json:"session_id"`
	Filename        string `json:"filename"`
	Outcome         string `json:"outcome"`           // completed or failed
	Failure         string `json:"failure,omitempty"` // server, transport, canceled
	Message         string `json:"message,omitempty"`
	DocumentID      string `json:"document_id,omitempty"`
	FileSize        int64  `json:"file_size,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	ChunkCount      int    `json:"chunk_count,omitempty"`
	Timestamp       string `json:"timestamp"` // ISO 8601
	EventCount      int64  `json:"event_count"`
	DurationMs      int64  `json:"duration_ms"`
}

// Adapter publishes upload completion events to a downstream system.
type Adapter interface {
	// Publish sends an upload completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *UploadCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
