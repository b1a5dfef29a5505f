package report

import (
	"reflect"
	"testing"
	"time"

	"github.com/oncoregistry/internal/models"
)

func sampleArtifact() *Artifact {
	return &Artifact{
		Rows: []map[string]interface{}{
			{"patient_id": 1, "status": "ACTIVE"},
			{"patient_id": 2, "status": "ACTIVE"},
			{"patient_id": 2, "status": "REMISSION"},
			{"patient_id": 3, "status": "ACTIVE"},
		},
	}
}

func TestBuildSummaryMetrics(t *testing.T) {
	tmpl := &models.ReportTemplate{Name: "diagnoses", Title: "Active Diagnoses", DataSource: "diagnoses", PeriodDays: 30}
	firing := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

	summary := BuildSummary(tmpl, sampleArtifact(), firing)

	if summary.Title != "Active Diagnoses" {
		t.Errorf("title = %q", summary.Title)
	}
	if summary.Period != "2026-01-31 to 2026-03-02" {
		t.Errorf("period = %q", summary.Period)
	}

	metrics := Metrics(summary)
	want := map[string]float64{
		"Record Count":           4,
		"Distinct Patients":      3,
		"Status ACTIVE Count":    3,
		"Status REMISSION Count": 1,
	}
	if !reflect.DeepEqual(metrics, want) {
		t.Errorf("metrics = %v, want %v", metrics, want)
	}
}

func TestBuildSummaryDeterministic(t *testing.T) {
	tmpl := &models.ReportTemplate{Name: "diagnoses", PeriodDays: 7}
	firing := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

	first := BuildSummary(tmpl, sampleArtifact(), firing)
	second := BuildSummary(tmpl, sampleArtifact(), firing)
	if !reflect.DeepEqual(first, second) {
		t.Error("summary must be deterministic for identical input")
	}
}

func TestBuildSummaryEmptyRows(t *testing.T) {
	tmpl := &models.ReportTemplate{Name: "treatments", DataSource: "treatments", PeriodDays: 30}
	summary := BuildSummary(tmpl, &Artifact{}, time.Now())

	metrics := Metrics(summary)
	if metrics["Record Count"] != 0 {
		t.Errorf("Record Count = %v, want 0", metrics["Record Count"])
	}
	if summary.KeyMetrics[0].Status != "attention" {
		t.Errorf("empty dataset should flag attention, got %q", summary.KeyMetrics[0].Status)
	}
	if len(summary.Recommendations) == 0 {
		t.Error("expected a recommendation for the empty period")
	}
}
