package types

import "time"

// DocumentMetadata describes a document created by a completed upload.
type DocumentMetadata struct {
	ID         string `json:"id" yaml:"id"`
	Filename   string `json:"filename" yaml:"filename"`
	FileSize   int64  `json:"file_size" yaml:"file_size"`
	PageCount  int    `json:"page_count" yaml:"page_count"`
	ChunkCount int    `json:"chunk_count,omitempty" yaml:"chunk_count,omitempty"`
}

// UploadStatus is the processing status of a stored document.
type UploadStatus string

// Upload status values returned by the documents endpoint.
const (
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusReady      UploadStatus = "ready"
	UploadStatusError      UploadStatus = "error"
)

// Document is a stored document as returned by GET /api/documents.
type Document struct {
	ID           string       `json:"id" yaml:"id"`
	Filename     string       `json:"filename" yaml:"filename"`
	FileSize     int64        `json:"file_size" yaml:"file_size"`
	PageCount    int          `json:"page_count" yaml:"page_count"`
	UploadStatus UploadStatus `json:"upload_status" yaml:"upload_status"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
}

// DocumentList is the response body of GET /api/documents.
type DocumentList struct {
	Documents []Document `json:"documents"`
}
