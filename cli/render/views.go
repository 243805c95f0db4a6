package render

import (
	"fmt"
	"time"

	"github.com/pithecene-io/docqa/cli/tui"
	"github.com/pithecene-io/docqa/lode"
	"github.com/pithecene-io/docqa/types"
	"github.com/pithecene-io/docqa/upload"
)

// UploadSummary is the table row for one upload result.
type UploadSummary struct {
	SessionID  string `json:"session_id"`
	Filename   string `json:"filename"`
	Outcome    string `json:"outcome"`
	Failure    string `json:"failure"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
	Events     int64  `json:"events"`
	Malformed  int64  `json:"malformed"`
	Duration   string `json:"duration"`
}

// SummarizeUpload flattens a result for table output.
func SummarizeUpload(res *upload.Result) UploadSummary {
	s := UploadSummary{
		SessionID: res.SessionID,
		Filename:  res.Filename,
		Outcome:   string(res.Outcome.Status),
		Failure:   string(res.Failure),
		Message:   res.Outcome.Message,
		Events:    res.Decoder.Events,
		Malformed: res.Decoder.Malformed,
		Duration:  res.Duration.Round(time.Millisecond).String(),
	}
	if doc := res.Outcome.Document; doc != nil {
		s.DocumentID = doc.ID
		s.Pages = doc.PageCount
		s.Chunks = doc.ChunkCount
	}
	return s
}

// DocumentRow is the table row for one stored document.
type DocumentRow struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Size      string    `json:"size"`
	Pages     int       `json:"pages"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentRows converts documents for table output.
func DocumentRows(docs []types.Document) []DocumentRow {
	rows := make([]DocumentRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, DocumentRow{
			ID:        d.ID,
			Filename:  d.Filename,
			Status:    string(d.UploadStatus),
			Size:      tui.FormatBytes(d.FileSize),
			Pages:     d.PageCount,
			CreatedAt: d.CreatedAt,
		})
	}
	return rows
}

// ReportRow is the table row for one upload report.
type ReportRow struct {
	SessionID   string    `json:"session_id"`
	Filename    string    `json:"filename"`
	Outcome     string    `json:"outcome"`
	Failure     string    `json:"failure"`
	DocumentID  string    `json:"document_id"`
	Events      int64     `json:"events"`
	DurationMs  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// ReportRows converts reports for table output.
func ReportRows(reports []lode.UploadReport) []ReportRow {
	rows := make([]ReportRow, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, ReportRow{
			SessionID:   r.SessionID,
			Filename:    r.Filename,
			Outcome:     r.Outcome,
			Failure:     r.Failure,
			DocumentID:  r.DocumentID,
			Events:      r.Events,
			DurationMs:  r.DurationMs,
			CompletedAt: r.CompletedAt,
		})
	}
	return rows
}

// RenderUpload renders a result. Tables get the flat summary; json and yaml
// get the full result.
func (r *Renderer) RenderUpload(res *upload.Result) error {
	if r.format == FormatTable {
		return r.Render(SummarizeUpload(res))
	}
	return r.Render(res)
}

// RenderDocuments renders stored documents.
func (r *Renderer) RenderDocuments(docs []types.Document) error {
	if r.format == FormatTable {
		return r.Render(DocumentRows(docs))
	}
	if docs == nil {
		docs = []types.Document{}
	}
	return r.Render(docs)
}

// RenderReports renders upload reports.
func (r *Renderer) RenderReports(reports []lode.UploadReport) error {
	if r.format == FormatTable {
		return r.Render(ReportRows(reports))
	}
	if reports == nil {
		reports = []lode.UploadReport{}
	}
	return r.Render(reports)
}

// StatusLine renders a one-line outcome for humans. --no-color drops styling.
func (r *Renderer) StatusLine(res *upload.Result) string {
	var line string
	status := string(res.Outcome.Status)
	if doc := res.Outcome.Document; doc != nil {
		line = fmt.Sprintf("✓ %s uploaded as %s (%d pages, %d chunks)", res.Filename, doc.ID, doc.PageCount, doc.ChunkCount)
	} else {
		line = fmt.Sprintf("✗ %s failed: %s", res.Filename, res.Outcome.Message)
	}
	if r.noColor {
		return line
	}
	return tui.StateStyle(status).Render(line)
}
