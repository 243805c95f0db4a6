package api

import (
	"strings"
	"time"

	"github.com/pithecene-io/docqa/types"
)

// documentWire is the list endpoint's document shape. Timestamps may lack a
// zone offset, so they are parsed by hand.
type documentWire struct {
	ID           string             `json:"id"`
	Filename     string             `json:"filename"`
	FileSize     int64              `json:"file_size"`
	PageCount    int                `json:"page_count"`
	UploadStatus types.UploadStatus `json:"upload_status"`
	CreatedAt    string             `json:"created_at"`
}

type documentListWire struct {
	Documents []documentWire `json:"documents"`
}

func (l documentListWire) documents() []types.Document {
	docs := make([]types.Document, 0, len(l.Documents))
	for _, d := range l.Documents {
		docs = append(docs, types.Document{
			ID:           d.ID,
			Filename:     d.Filename,
			FileSize:     d.FileSize,
			PageCount:    d.PageCount,
			UploadStatus: d.UploadStatus,
			CreatedAt:    parseTimestamp(d.CreatedAt),
		})
	}
	return docs
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp parses an ISO 8601 timestamp. Values without an offset are
// taken as UTC; unparseable values yield the zero time.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
