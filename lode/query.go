package lode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoReports is returned when no report matches the filter.
var ErrNoReports = errors.New("no upload reports found")

// ReportFilter selects reports. Empty fields match everything.
type ReportFilter struct {
	// Day is a YYYY-MM-DD partition.
	Day string
	// Outcome is completed or failed.
	Outcome string
	// SessionID selects a single session.
	SessionID string
	// Limit caps the number of results (0 = no limit).
	Limit int
}

// QueryReports reads reports matching filter, newest first.
// Returns ErrNoReports if nothing matches.
func QueryReports(ctx context.Context, ds lode.Dataset, filter ReportFilter) ([]UploadReport, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, DatasetID+"/snapshots")
	}

	var reports []UploadReport
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]

		// Partition paths are a coarse pre-filter; record fields decide.
		if !snapshotMatchesFilter(snap, "day", filter.Day) ||
			!snapshotMatchesFilter(snap, "outcome", filter.Outcome) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", DatasetID, snap.ID))
		}
		for _, item := range data {
			report, ok := reportFromRecord(item)
			if !ok || !filter.matches(report) {
				continue
			}
			reports = append(reports, report)
		}
	}

	if len(reports) == 0 {
		return nil, ErrNoReports
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CompletedAt.After(reports[j].CompletedAt)
	})
	if filter.Limit > 0 && len(reports) > filter.Limit {
		reports = reports[:filter.Limit]
	}
	return reports, nil
}

func (f ReportFilter) matches(r UploadReport) bool {
	if f.Day != "" && DeriveDay(r.CompletedAt) != f.Day {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	if f.SessionID != "" && r.SessionID != f.SessionID {
		return false
	}
	return true
}

// snapshotMatchesFilter checks if any of a snapshot's file paths carries the
// given partition key=value. An empty value matches.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks if a Hive-partitioned path contains an exact
// key=value segment, so day=2026-10-1 never matches day=2026-10-18.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
