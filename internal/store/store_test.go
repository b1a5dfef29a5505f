package store

import (
	"testing"
	"time"

	"github.com/oncoregistry/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.ReportTemplate{},
		&models.ScheduledReport{},
		&models.ReportExecution{},
		&models.ReportDistribution{},
		&models.ThresholdRule{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return New(db)
}

func seedSchedule(t *testing.T, s *Store) *models.ScheduledReport {
	t.Helper()
	template := &models.ReportTemplate{Name: "t", DataSource: "diagnoses"}
	if err := s.CreateTemplate(template); err != nil {
		t.Fatalf("failed to seed template: %v", err)
	}
	sr := &models.ScheduledReport{
		TemplateID:         template.ID,
		Name:               "weekly",
		ScheduleExpression: "0 6 * * 1",
		IsActive:           true,
	}
	if err := s.CreateSchedule(sr); err != nil {
		t.Fatalf("failed to seed schedule: %v", err)
	}
	return sr
}

func TestRecordRunCounters(t *testing.T) {
	s := testStore(t)
	sr := seedSchedule(t, s)

	firing := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	next := firing.AddDate(0, 0, 7)

	if err := s.RecordRun(sr.ID, firing, next, true); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}
	if err := s.RecordRun(sr.ID, firing, next, true); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}
	if err := s.RecordRun(sr.ID, firing, next, false); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}

	got, err := s.GetSchedule(sr.ID)
	if err != nil {
		t.Fatalf("GetSchedule returned error: %v", err)
	}
	if got.SuccessCount != 2 || got.FailureCount != 1 {
		t.Errorf("counters = %d/%d, want 2/1", got.SuccessCount, got.FailureCount)
	}
	if got.LastRun == nil || !got.LastRun.Equal(firing) {
		t.Errorf("lastRun = %v, want %v", got.LastRun, firing)
	}
	if got.NextRun == nil || !got.NextRun.Equal(next) {
		t.Errorf("nextRun = %v, want %v", got.NextRun, next)
	}
}

func TestUpdateScheduleKeepsRunBookkeeping(t *testing.T) {
	s := testStore(t)
	sr := seedSchedule(t, s)

	firing := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if err := s.RecordRun(sr.ID, firing, firing.AddDate(0, 0, 7), true); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}

	// sr was read before the run landed; saving it must not roll the run
	// bookkeeping back.
	sr.Description = "weekly diagnoses digest"
	if err := s.UpdateSchedule(sr); err != nil {
		t.Fatalf("UpdateSchedule returned error: %v", err)
	}

	got, err := s.GetSchedule(sr.ID)
	if err != nil {
		t.Fatalf("GetSchedule returned error: %v", err)
	}
	if got.Description != "weekly diagnoses digest" {
		t.Errorf("description = %q, want the updated value", got.Description)
	}
	if got.SuccessCount != 1 {
		t.Errorf("successCount = %d, want 1", got.SuccessCount)
	}
	if got.LastRun == nil || !got.LastRun.Equal(firing) {
		t.Errorf("lastRun = %v, want %v", got.LastRun, firing)
	}
}

func TestListActiveSchedules(t *testing.T) {
	s := testStore(t)
	active := seedSchedule(t, s)

	paused := &models.ScheduledReport{
		TemplateID:         active.TemplateID,
		Name:               "paused",
		ScheduleExpression: "0 6 * * *",
		IsActive:           false,
	}
	if err := s.CreateSchedule(paused); err != nil {
		t.Fatalf("failed to seed schedule: %v", err)
	}

	schedules, err := s.ListActiveSchedules()
	if err != nil {
		t.Fatalf("ListActiveSchedules returned error: %v", err)
	}
	if len(schedules) != 1 || schedules[0].ID != active.ID {
		t.Errorf("unexpected active schedules: %+v", schedules)
	}
}

func TestGetSchedulePreloadsTemplate(t *testing.T) {
	s := testStore(t)
	sr := seedSchedule(t, s)

	got, err := s.GetSchedule(sr.ID)
	if err != nil {
		t.Fatalf("GetSchedule returned error: %v", err)
	}
	if got.Template == nil || got.Template.Name != "t" {
		t.Errorf("template not preloaded: %+v", got.Template)
	}
}

func TestListThresholdRulesEnabledOnly(t *testing.T) {
	s := testStore(t)

	rules := []*models.ThresholdRule{
		{ReportTemplateID: 1, MetricName: "Record Count", Condition: models.ConditionLessThan, ThresholdValue: 10, Severity: models.SeverityWarning, IsEnabled: true},
		{ReportTemplateID: 1, MetricName: "Record Count", Condition: models.ConditionGreaterThan, ThresholdValue: 1000, Severity: models.SeverityInfo, IsEnabled: false},
		{ReportTemplateID: 2, MetricName: "Record Count", Condition: models.ConditionEquals, ThresholdValue: 0, Severity: models.SeverityCritical, IsEnabled: true},
	}
	for _, rule := range rules {
		if err := s.CreateThresholdRule(rule); err != nil {
			t.Fatalf("failed to seed rule: %v", err)
		}
	}

	got, err := s.ListThresholdRules(1)
	if err != nil {
		t.Fatalf("ListThresholdRules returned error: %v", err)
	}
	if len(got) != 1 || got[0].Condition != models.ConditionLessThan {
		t.Errorf("unexpected rules: %+v", got)
	}
}

func TestDeleteTerminalExecutionsBefore(t *testing.T) {
	s := testStore(t)
	sr := seedSchedule(t, s)

	now := time.Now()
	old := now.Add(-100 * 24 * time.Hour)
	executions := []*models.ReportExecution{
		{ScheduledReportID: sr.ID, ExecutionTime: old, Status: models.ExecutionCompleted},
		{ScheduledReportID: sr.ID, ExecutionTime: old, Status: models.ExecutionFailed},
		{ScheduledReportID: sr.ID, ExecutionTime: old, Status: models.ExecutionRunning},
		{ScheduledReportID: sr.ID, ExecutionTime: now, Status: models.ExecutionCompleted},
	}
	for _, e := range executions {
		if err := s.CreateExecution(e); err != nil {
			t.Fatalf("failed to seed execution: %v", err)
		}
	}
	// A distribution hanging off an aged execution goes with it.
	dist := &models.ReportDistribution{
		ReportExecutionID: executions[0].ID,
		RecipientType:     models.RecipientEmail,
		RecipientID:       "a@b.test",
		DeliveryStatus:    models.DeliverySent,
	}
	if err := s.CreateDistribution(dist); err != nil {
		t.Fatalf("failed to seed distribution: %v", err)
	}

	removed, err := s.DeleteTerminalExecutionsBefore(now.Add(-90 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteTerminalExecutionsBefore returned error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	// The stale RUNNING record survives.
	if _, err := s.GetExecution(executions[2].ID); err != nil {
		t.Errorf("RUNNING execution must never be pruned: %v", err)
	}
	// The recent terminal record survives.
	if _, err := s.GetExecution(executions[3].ID); err != nil {
		t.Errorf("recent execution must survive: %v", err)
	}
	// The aged terminal records and their distributions are gone.
	if _, err := s.GetExecution(executions[0].ID); err == nil {
		t.Error("aged COMPLETED execution should be deleted")
	}
	if records, _ := s.ListDistributions(executions[0].ID); len(records) != 0 {
		t.Errorf("distributions of pruned executions should be deleted, got %d", len(records))
	}
}

func TestListExecutionsNewestFirst(t *testing.T) {
	s := testStore(t)
	sr := seedSchedule(t, s)

	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e := &models.ReportExecution{
			ScheduledReportID: sr.ID,
			ExecutionTime:     base.AddDate(0, 0, i),
			Status:            models.ExecutionCompleted,
		}
		if err := s.CreateExecution(e); err != nil {
			t.Fatalf("failed to seed execution: %v", err)
		}
	}

	executions, err := s.ListExecutions(sr.ID, 2)
	if err != nil {
		t.Fatalf("ListExecutions returned error: %v", err)
	}
	if len(executions) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(executions))
	}
	if !executions[0].ExecutionTime.After(executions[1].ExecutionTime) {
		t.Error("executions should be ordered newest first")
	}
}
