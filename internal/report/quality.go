package report

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoData is the hard data-quality failure: generating a report over an
// empty dataset is never useful.
var ErrNoData = errors.New("No data available for report generation")

const (
	// Soft thresholds. Violations are logged as warnings, never abort a run.
	staleAfter      = 72 * time.Hour
	minCompleteness = 0.8
)

// QualityReport is the outcome of the pre-generation gate.
type QualityReport struct {
	RowCount     int64
	Freshness    time.Duration // age of the newest record
	Completeness float64
	Warnings     []string
}

// assessQuality applies the data-quality gate: an empty dataset is a hard
// failure; stale or incomplete data only produces warnings.
func assessQuality(stats *SourceStats, now time.Time) (*QualityReport, error) {
	if stats.RowCount == 0 {
		return nil, ErrNoData
	}

	q := &QualityReport{
		RowCount:     stats.RowCount,
		Completeness: stats.Completeness,
	}
	if !stats.NewestRecord.IsZero() {
		q.Freshness = now.Sub(stats.NewestRecord)
	}

	if stats.NewestRecord.IsZero() || q.Freshness > staleAfter {
		q.Warnings = append(q.Warnings,
			fmt.Sprintf("data freshness below threshold: newest record is %s old", q.Freshness.Round(time.Hour)))
	}
	if q.Completeness < minCompleteness {
		q.Warnings = append(q.Warnings,
			fmt.Sprintf("data completeness %.0f%% below threshold of %.0f%%", q.Completeness*100, minCompleteness*100))
	}

	return q, nil
}
