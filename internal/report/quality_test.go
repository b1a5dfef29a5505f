package report

import (
	"errors"
	"testing"
	"time"
)

func TestAssessQualityEmptyDataset(t *testing.T) {
	_, err := assessQuality(&SourceStats{RowCount: 0}, time.Now())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if err.Error() != "No data available for report generation" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestAssessQualityFreshData(t *testing.T) {
	now := time.Now()
	q, err := assessQuality(&SourceStats{
		RowCount:     50,
		NewestRecord: now.Add(-1 * time.Hour),
		Completeness: 0.95,
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", q.Warnings)
	}
}

func TestAssessQualityStaleAndIncomplete(t *testing.T) {
	now := time.Now()
	q, err := assessQuality(&SourceStats{
		RowCount:     50,
		NewestRecord: now.Add(-100 * time.Hour),
		Completeness: 0.5,
	}, now)
	if err != nil {
		t.Fatalf("soft violations must not abort: %v", err)
	}
	if len(q.Warnings) != 2 {
		t.Errorf("expected freshness and completeness warnings, got %v", q.Warnings)
	}
}
