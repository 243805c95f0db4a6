// Package types defines the core domain types of the docqa client.
//
//nolint:revive // types is a common Go package naming convention
package types

import "encoding/json"

// ContractVersion is the notification contract version (lockstep with Version).
const ContractVersion = Version

// Event names sent by the upload endpoint.
const (
	EventNameProgress = "progress"
	EventNameComplete = "complete"
	EventNameError    = "error"
)

// Payload field names interpreted by the progress state machine.
const (
	FieldDocumentID = "document_id"
	FieldFilename   = "filename"
	FieldFileSize   = "file_size"
	FieldPageCount  = "page_count"
	FieldChunkCount = "chunk_count"
	FieldMessage    = "message"
	FieldPercent    = "percent"
	FieldStage      = "stage"
)

// StreamEvent is one assembled event from the upload stream.
type StreamEvent struct {
	// Name is the value of the last "event:" line of the block.
	// Empty means the default "message" event.
	Name string `json:"name"`
	// Payload is the raw JSON value carried by the "data:" line.
	// It is always syntactically valid JSON.
	Payload json.RawMessage `json:"payload"`
}

// DisplayName returns the event name, defaulting to "message".
func (e StreamEvent) DisplayName() string {
	if e.Name == "" {
		return "message"
	}
	return e.Name
}
