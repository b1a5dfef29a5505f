package store

import (
	"fmt"
	"time"

	"github.com/oncoregistry/internal/models"
	"gorm.io/gorm"
)

// Store is the persistence layer for schedule definitions, execution records
// and distribution records.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ScheduleFilter narrows ListSchedules results.
type ScheduleFilter struct {
	IsActive   *bool
	TemplateID uint
}

func (s *Store) CreateSchedule(sr *models.ScheduledReport) error {
	return s.db.Create(sr).Error
}

// UpdateSchedule writes a schedule's definition fields. The run counters and
// last_run are owned by RecordRun and never written here, so a lifecycle
// update racing a finishing execution cannot revert its bookkeeping.
func (s *Store) UpdateSchedule(sr *models.ScheduledReport) error {
	return s.db.Omit("success_count", "failure_count", "last_run").Save(sr).Error
}

func (s *Store) DeleteSchedule(id uint) error {
	return s.db.Delete(&models.ScheduledReport{}, id).Error
}

func (s *Store) GetSchedule(id uint) (*models.ScheduledReport, error) {
	var sr models.ScheduledReport
	if err := s.db.Preload("Template").First(&sr, id).Error; err != nil {
		return nil, err
	}
	return &sr, nil
}

func (s *Store) ListSchedules(filter ScheduleFilter) ([]models.ScheduledReport, error) {
	var schedules []models.ScheduledReport
	query := s.db
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.TemplateID != 0 {
		query = query.Where("template_id = ?", filter.TemplateID)
	}
	if err := query.Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// ListActiveSchedules is the startup reconciliation query.
func (s *Store) ListActiveSchedules() ([]models.ScheduledReport, error) {
	active := true
	return s.ListSchedules(ScheduleFilter{IsActive: &active})
}

// RecordRun advances a schedule's run bookkeeping in a single UPDATE so that
// concurrent executions (or a second process) never lose a counter
// increment. Exactly one of the two counters moves, by exactly 1.
func (s *Store) RecordRun(scheduleID uint, lastRun, nextRun time.Time, success bool) error {
	counter := "failure_count"
	if success {
		counter = "success_count"
	}
	return s.db.Model(&models.ScheduledReport{}).Where("id = ?", scheduleID).
		UpdateColumns(map[string]interface{}{
			"last_run": lastRun,
			"next_run": nextRun,
			counter:    gorm.Expr(counter+" + ?", 1),
		}).Error
}

// -- templates --

func (s *Store) CreateTemplate(t *models.ReportTemplate) error {
	return s.db.Create(t).Error
}

func (s *Store) UpdateTemplate(t *models.ReportTemplate) error {
	return s.db.Save(t).Error
}

func (s *Store) DeleteTemplate(id uint) error {
	return s.db.Delete(&models.ReportTemplate{}, id).Error
}

func (s *Store) GetTemplate(id uint) (*models.ReportTemplate, error) {
	var t models.ReportTemplate
	if err := s.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTemplates() ([]models.ReportTemplate, error) {
	var templates []models.ReportTemplate
	if err := s.db.Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// -- threshold rules --

func (s *Store) CreateThresholdRule(r *models.ThresholdRule) error {
	return s.db.Create(r).Error
}

func (s *Store) UpdateThresholdRule(r *models.ThresholdRule) error {
	return s.db.Save(r).Error
}

func (s *Store) DeleteThresholdRule(id uint) error {
	return s.db.Delete(&models.ThresholdRule{}, id).Error
}

// ListThresholdRules returns the enabled rules for a template.
func (s *Store) ListThresholdRules(templateID uint) ([]models.ThresholdRule, error) {
	var rules []models.ThresholdRule
	if err := s.db.Where("report_template_id = ? AND is_enabled = ?", templateID, true).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// -- executions --

func (s *Store) CreateExecution(e *models.ReportExecution) error {
	return s.db.Create(e).Error
}

// FinalizeExecution writes the terminal state of a RUNNING record.
func (s *Store) FinalizeExecution(e *models.ReportExecution) error {
	return s.db.Save(e).Error
}

func (s *Store) GetExecution(id uint) (*models.ReportExecution, error) {
	var e models.ReportExecution
	if err := s.db.First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListExecutions(scheduleID uint, limit int) ([]models.ReportExecution, error) {
	var executions []models.ReportExecution
	query := s.db.Where("scheduled_report_id = ?", scheduleID).
		Order("execution_time desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&executions).Error; err != nil {
		return nil, err
	}
	return executions, nil
}

// DeleteTerminalExecutionsBefore removes aged execution records together with
// their distribution records. RUNNING records are never eligible regardless
// of age: a stuck run is a signal worth preserving.
func (s *Store) DeleteTerminalExecutionsBefore(cutoff time.Time) (int64, error) {
	terminal := []models.ExecutionStatus{
		models.ExecutionCompleted,
		models.ExecutionFailed,
		models.ExecutionCancelled,
	}

	var ids []uint
	if err := s.db.Model(&models.ReportExecution{}).
		Where("execution_time < ? AND status IN ?", cutoff, terminal).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to select aged executions: %v", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.db.Where("report_execution_id IN ?", ids).
		Delete(&models.ReportDistribution{}).Error; err != nil {
		return 0, fmt.Errorf("failed to delete distribution records: %v", err)
	}
	res := s.db.Delete(&models.ReportExecution{}, ids)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete execution records: %v", res.Error)
	}
	return res.RowsAffected, nil
}

// -- distributions --

func (s *Store) CreateDistribution(d *models.ReportDistribution) error {
	return s.db.Create(d).Error
}

func (s *Store) ListDistributions(executionID uint) ([]models.ReportDistribution, error) {
	var records []models.ReportDistribution
	if err := s.db.Where("report_execution_id = ?", executionID).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
