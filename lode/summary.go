package lode

// ReportStats aggregates a set of upload reports.
type ReportStats struct {
	Total         int            `json:"total" yaml:"total"`
	Completed     int            `json:"completed" yaml:"completed"`
	Failed        int            `json:"failed" yaml:"failed"`
	ByFailure     map[string]int `json:"by_failure,omitempty" yaml:"by_failure,omitempty"`
	Pages         int            `json:"pages" yaml:"pages"`
	Chunks        int            `json:"chunks" yaml:"chunks"`
	BytesUploaded int64          `json:"bytes_uploaded" yaml:"bytes_uploaded"`
	Malformed     int64          `json:"malformed" yaml:"malformed"`
	AvgDurationMs int64          `json:"avg_duration_ms" yaml:"avg_duration_ms"`
}

// SummarizeReports counts outcomes and totals across reports.
func SummarizeReports(reports []UploadReport) ReportStats {
	var s ReportStats
	var totalMs int64
	for _, r := range reports {
		s.Total++
		totalMs += r.DurationMs
		s.Malformed += r.Malformed
		s.BytesUploaded += r.FileSize

		if r.Outcome == "completed" {
			s.Completed++
			s.Pages += r.PageCount
			s.Chunks += r.ChunkCount
			continue
		}
		s.Failed++
		if r.Failure != "" {
			if s.ByFailure == nil {
				s.ByFailure = make(map[string]int)
			}
			s.ByFailure[r.Failure]++
		}
	}
	if s.Total > 0 {
		s.AvgDurationMs = totalMs / int64(s.Total)
	}
	return s
}
