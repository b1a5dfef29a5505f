package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oncoregistry/internal/models"
	"gorm.io/gorm"
)

// Artifact is the output of one report generation: the file on disk plus the
// raw rows the summary and threshold steps are derived from.
type Artifact struct {
	FilePath string
	FileSize int64
	Rows     []map[string]interface{}
}

// SourceStats describe the data backing a report before generation runs.
type SourceStats struct {
	RowCount     int64
	NewestRecord time.Time
	Completeness float64 // fraction of populated cells across the template's columns
}

// Generator builds the report artifact for a template.
type Generator interface {
	Generate(ctx context.Context, tmpl *models.ReportTemplate, format models.ReportFormat, params map[string]string) (*Artifact, error)
}

// DataSource exposes the pre-generation quality statistics of a template's
// backing dataset.
type DataSource interface {
	Inspect(ctx context.Context, tmpl *models.ReportTemplate, params map[string]string) (*SourceStats, error)
}

// dataSourceTables maps a template's logical data source to its table.
var dataSourceTables = map[string]string{
	"patients":   "patients",
	"diagnoses":  "cancer_diagnoses",
	"treatments": "treatments",
	"radiology":  "radiology_exams",
	"research":   "research_requests",
}

// completenessSampleSize bounds how many rows Inspect reads to score
// completeness.
const completenessSampleSize = 200

// RegistryGenerator renders registry datasets to CSV or HTML files. It
// implements both Generator and DataSource.
type RegistryGenerator struct {
	db        *gorm.DB
	outputDir string
}

func NewRegistryGenerator(db *gorm.DB, outputDir string) *RegistryGenerator {
	return &RegistryGenerator{db: db, outputDir: outputDir}
}

func (g *RegistryGenerator) query(ctx context.Context, tmpl *models.ReportTemplate) (*gorm.DB, error) {
	table, ok := dataSourceTables[tmpl.DataSource]
	if !ok {
		return nil, fmt.Errorf("unknown data source: %s", tmpl.DataSource)
	}

	q := g.db.WithContext(ctx).Table(table).Where("deleted_at IS NULL")
	if tmpl.PeriodDays > 0 {
		since := time.Now().AddDate(0, 0, -tmpl.PeriodDays)
		q = q.Where("created_at >= ?", since)
	}
	for column, value := range tmpl.Filters {
		q = q.Where(fmt.Sprintf("%s = ?", column), value)
	}
	return q, nil
}

// Inspect counts the dataset, finds its newest record and samples rows to
// score completeness over the template's columns.
func (g *RegistryGenerator) Inspect(ctx context.Context, tmpl *models.ReportTemplate, params map[string]string) (*SourceStats, error) {
	q, err := g.query(ctx, tmpl)
	if err != nil {
		return nil, err
	}

	stats := &SourceStats{Completeness: 1}
	if err := q.Count(&stats.RowCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count source rows: %v", err)
	}
	if stats.RowCount == 0 {
		return stats, nil
	}

	// The newest row is read through a typed column rather than MAX(): the
	// sqlite driver only maps declared datetime columns to time.Time.
	q, _ = g.query(ctx, tmpl)
	var newest struct {
		CreatedAt time.Time
	}
	if err := q.Select("created_at").Order("created_at desc").Limit(1).
		Scan(&newest).Error; err != nil {
		return nil, fmt.Errorf("failed to read source freshness: %v", err)
	}
	stats.NewestRecord = newest.CreatedAt

	if len(tmpl.Columns) > 0 {
		q, _ = g.query(ctx, tmpl)
		var sample []map[string]interface{}
		if err := q.Select(tmpl.Columns).Limit(completenessSampleSize).
			Find(&sample).Error; err != nil {
			return nil, fmt.Errorf("failed to sample source rows: %v", err)
		}
		stats.Completeness = completeness(sample, tmpl.Columns)
	}

	return stats, nil
}

// completeness is the fraction of non-empty cells across the given columns.
func completeness(rows []map[string]interface{}, columns []string) float64 {
	if len(rows) == 0 || len(columns) == 0 {
		return 1
	}
	total := len(rows) * len(columns)
	filled := 0
	for _, row := range rows {
		for _, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			filled++
		}
	}
	return float64(filled) / float64(total)
}

func (g *RegistryGenerator) Generate(ctx context.Context, tmpl *models.ReportTemplate, format models.ReportFormat, params map[string]string) (*Artifact, error) {
	q, err := g.query(ctx, tmpl)
	if err != nil {
		return nil, err
	}
	if len(tmpl.Columns) > 0 {
		q = q.Select(tmpl.Columns)
	}

	var rows []map[string]interface{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch report rows: %v", err)
	}

	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %v", err)
	}

	columns := tmpl.Columns
	if len(columns) == 0 {
		columns = columnsOf(rows)
	}

	var path string
	switch format {
	case models.FormatCSV:
		path, err = g.writeCSV(tmpl, columns, rows)
	case models.FormatHTML, models.FormatPDF:
		// PDF conversion is delegated to an external converter downstream;
		// the artifact itself is the HTML rendition.
		path, err = g.writeHTML(tmpl, columns, rows)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat report file: %v", err)
	}

	return &Artifact{FilePath: path, FileSize: info.Size(), Rows: rows}, nil
}

func columnsOf(rows []map[string]interface{}) []string {
	if len(rows) == 0 {
		return nil
	}
	var columns []string
	for col := range rows[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func (g *RegistryGenerator) writeCSV(tmpl *models.ReportTemplate, columns []string, rows []map[string]interface{}) (string, error) {
	path := filepath.Join(g.outputDir, fmt.Sprintf("%s-%s.csv", tmpl.DataSource, uuid.New().String()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("failed to write header: %v", err)
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row[col]; ok && v != nil {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %v", err)
		}
	}
	w.Flush()
	return path, w.Error()
}

var htmlReport = template.Must(template.New("report").Parse(`<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<table border="1">
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
</table>
</body>
</html>
`))

func (g *RegistryGenerator) writeHTML(tmpl *models.ReportTemplate, columns []string, rows []map[string]interface{}) (string, error) {
	path := filepath.Join(g.outputDir, fmt.Sprintf("%s-%s.html", tmpl.DataSource, uuid.New().String()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %v", err)
	}
	defer f.Close()

	ordered := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row[col]; ok && v != nil {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		ordered = append(ordered, cells)
	}

	title := tmpl.Title
	if title == "" {
		title = tmpl.Name
	}
	data := struct {
		Title   string
		Columns []string
		Rows    [][]string
	}{title, columns, ordered}

	return path, htmlReport.Execute(f, data)
}
