// Package lode stores upload reports in a Lode dataset.
//
// One report is written per finished upload session. Reports are summaries
// (identity, outcome, counters, timing); the decoded event stream itself is
// never stored. Records are JSONL, Hive-partitioned by day and outcome.
package lode

import (
	"encoding/json"
	"time"
)

// DatasetID is the Lode dataset holding upload reports.
const DatasetID = "docqa"

// RecordKindUploadReport discriminates report records.
const RecordKindUploadReport = "upload_report"

// Partition keys, in layout order.
var partitionKeys = []string{"day", "outcome"}

// DeriveDay computes the partition day from a timestamp.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// UploadReport summarizes one upload session.
type UploadReport struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	Filename  string `json:"filename" yaml:"filename"`
	APIURL    string `json:"api_url,omitempty" yaml:"api_url,omitempty"`

	// Outcome is completed or failed; Failure classifies a failed outcome.
	Outcome string `json:"outcome" yaml:"outcome"`
	Failure string `json:"failure,omitempty" yaml:"failure,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	DocumentID string `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	FileSize   int64  `json:"file_size" yaml:"file_size"`
	PageCount  int    `json:"page_count,omitempty" yaml:"page_count,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty" yaml:"chunk_count,omitempty"`

	// Stream counters
	BytesRead       int64 `json:"bytes_read" yaml:"bytes_read"`
	ChunksRead      int64 `json:"chunks_read" yaml:"chunks_read"`
	Lines           int64 `json:"lines" yaml:"lines"`
	Events          int64 `json:"events" yaml:"events"`
	Malformed       int64 `json:"malformed" yaml:"malformed"`
	DiscardedBytes  int64 `json:"discarded_bytes" yaml:"discarded_bytes"`
	ProgressUpdates int64 `json:"progress_updates" yaml:"progress_updates"`

	// LastStage and LastPercent are the last progress reported before the outcome.
	LastStage   string `json:"last_stage,omitempty" yaml:"last_stage,omitempty"`
	LastPercent int    `json:"last_percent" yaml:"last_percent"`

	DurationMs  int64     `json:"duration_ms" yaml:"duration_ms"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

// toRecordMap converts a report to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any with the partition keys
// present as top-level fields.
func toRecordMap(r UploadReport) map[string]any {
	m := map[string]any{
		"record_kind":      RecordKindUploadReport,
		"session_id":       r.SessionID,
		"filename":         r.Filename,
		"outcome":          r.Outcome,
		"file_size":        r.FileSize,
		"bytes_read":       r.BytesRead,
		"chunks_read":      r.ChunksRead,
		"lines":            r.Lines,
		"events":           r.Events,
		"malformed":        r.Malformed,
		"discarded_bytes":  r.DiscardedBytes,
		"progress_updates": r.ProgressUpdates,
		"last_percent":     r.LastPercent,
		"duration_ms":      r.DurationMs,
		"completed_at":     r.CompletedAt.UTC().Format(time.RFC3339Nano),
		"day":              DeriveDay(r.CompletedAt),
	}
	optional := map[string]string{
		"api_url":     r.APIURL,
		"failure":     r.Failure,
		"message":     r.Message,
		"document_id": r.DocumentID,
		"last_stage":  r.LastStage,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	if r.PageCount != 0 {
		m["page_count"] = r.PageCount
	}
	if r.ChunkCount != 0 {
		m["chunk_count"] = r.ChunkCount
	}
	return m
}

// reportFromRecord decodes a stored record. ok is false for records that are
// not upload reports.
func reportFromRecord(item any) (UploadReport, bool) {
	record, ok := item.(map[string]any)
	if !ok || record["record_kind"] != RecordKindUploadReport {
		return UploadReport{}, false
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return UploadReport{}, false
	}
	var r UploadReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return UploadReport{}, false
	}
	return r, true
}
