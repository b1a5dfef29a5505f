package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/oncoregistry/internal/models"
)

type KeyMetric struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Trend  string  `json:"trend,omitempty"`
	Status string  `json:"status,omitempty"`
}

type Insight struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

// ExecutiveSummary is the deterministic digest generated alongside each
// report. It is derived purely from the artifact rows and the template; no
// external calls are made.
type ExecutiveSummary struct {
	Title           string      `json:"title"`
	Period          string      `json:"period"`
	KeyMetrics      []KeyMetric `json:"key_metrics"`
	Insights        []Insight   `json:"insights"`
	Recommendations []string    `json:"recommendations"`
	GeneratedAt     time.Time   `json:"generated_at"`
}

// BuildSummary derives the executive summary from the generated rows.
func BuildSummary(tmpl *models.ReportTemplate, art *Artifact, firingTime time.Time) *ExecutiveSummary {
	title := tmpl.Title
	if title == "" {
		title = tmpl.Name
	}

	periodStart := firingTime.AddDate(0, 0, -tmpl.PeriodDays)
	summary := &ExecutiveSummary{
		Title: title,
		Period: fmt.Sprintf("%s to %s",
			periodStart.Format("2006-01-02"), firingTime.Format("2006-01-02")),
		GeneratedAt: firingTime,
	}

	recordCount := float64(len(art.Rows))
	summary.KeyMetrics = append(summary.KeyMetrics, KeyMetric{
		Name:   "Record Count",
		Value:  recordCount,
		Status: countStatus(recordCount),
	})

	if patients := distinct(art.Rows, "patient_id"); patients > 0 {
		summary.KeyMetrics = append(summary.KeyMetrics, KeyMetric{
			Name:  "Distinct Patients",
			Value: float64(patients),
		})
	}

	// One metric per status value so threshold rules can target e.g.
	// "Status ACTIVE Count".
	for _, sc := range statusBreakdown(art.Rows) {
		summary.KeyMetrics = append(summary.KeyMetrics, KeyMetric{
			Name:  fmt.Sprintf("Status %s Count", sc.status),
			Value: float64(sc.count),
		})
		summary.Insights = append(summary.Insights, Insight{
			Category:    "volume",
			Description: fmt.Sprintf("%d records in status %s", sc.count, sc.status),
			Impact:      "informational",
		})
	}

	if recordCount == 0 {
		summary.Recommendations = append(summary.Recommendations,
			"No records in the reporting period; review the template filters.")
	} else {
		summary.Recommendations = append(summary.Recommendations,
			fmt.Sprintf("Review %s dataset covering %d records.", tmpl.DataSource, int(recordCount)))
	}

	return summary
}

// Metrics flattens the key metrics into the name -> value map the threshold
// evaluator consumes.
func Metrics(summary *ExecutiveSummary) map[string]float64 {
	m := make(map[string]float64, len(summary.KeyMetrics))
	for _, km := range summary.KeyMetrics {
		m[km.Name] = km.Value
	}
	return m
}

func countStatus(count float64) string {
	if count == 0 {
		return "attention"
	}
	return "ok"
}

func distinct(rows []map[string]interface{}, column string) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		seen[fmt.Sprintf("%v", v)] = struct{}{}
	}
	return len(seen)
}

type statusCount struct {
	status string
	count  int
}

func statusBreakdown(rows []map[string]interface{}) []statusCount {
	counts := make(map[string]int)
	for _, row := range rows {
		v, ok := row["status"]
		if !ok || v == nil {
			continue
		}
		counts[fmt.Sprintf("%v", v)]++
	}

	var result []statusCount
	for status, count := range counts {
		result = append(result, statusCount{status: status, count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].status < result[j].status
	})
	return result
}
