package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/oncoregistry/internal/auth"
	"github.com/oncoregistry/internal/models"
	"github.com/oncoregistry/internal/registry"
	"github.com/oncoregistry/internal/report"
	"github.com/oncoregistry/internal/schedule"
	"github.com/oncoregistry/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noopRegistry struct{}

func (noopRegistry) Register(s *models.ScheduledReport) error { return nil }
func (noopRegistry) Unregister(scheduleID uint)               {}
func (noopRegistry) RunNow(scheduleID uint, params map[string]string) (*report.Result, error) {
	return &report.Result{Success: true, ExecutionID: 1, FilePath: "/reports/out.csv"}, nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Patient{},
		&models.CancerDiagnosis{},
		&models.Treatment{},
		&models.RadiologyExam{},
		&models.ResearchRequest{},
		&models.Notification{},
		&models.ReportTemplate{},
		&models.ScheduledReport{},
		&models.ReportExecution{},
		&models.ReportDistribution{},
		&models.ThresholdRule{},
		&models.DistributionList{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	admin := &models.User{
		Username: "admin",
		Role:     models.RoleAdmin,
		Email:    "admin@hospital.test",
		IsActive: true,
	}
	if err := admin.SetPassword("admin-password"); err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	authenticator := auth.NewAuthenticator("test-secret", db)
	st := store.New(db)
	manager := schedule.NewManager(st, schedule.NewCalculator(), noopRegistry{})
	server := NewServer(db, authenticator, st, manager, registry.NewService(db))

	token, err := authenticator.GenerateToken(admin)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return server, token
}

func doJSON(t *testing.T, server *Server, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func createTemplate(t *testing.T, server *Server, token string) uint {
	t.Helper()
	w := doJSON(t, server, token, http.MethodPost, "/api/v1/templates", gin.H{
		"name":        "active-diagnoses",
		"title":       "Active Diagnoses",
		"data_source": "diagnoses",
		"columns":     []string{"primary_site", "stage", "status"},
		"period_days": 30,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create template: status %d: %s", w.Code, w.Body.String())
	}
	var template models.ReportTemplate
	if err := json.Unmarshal(w.Body.Bytes(), &template); err != nil {
		t.Fatalf("failed to decode template: %v", err)
	}
	return template.ID
}

func TestAuthRequired(t *testing.T) {
	server, _ := newTestServer(t)
	w := doJSON(t, server, "", http.MethodGet, "/api/v1/reports", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestLogin(t *testing.T) {
	server, _ := newTestServer(t)

	w := doJSON(t, server, "", http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "admin",
		"password": "admin-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, server, "", http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "admin",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d, want 401", w.Code)
	}
}

func TestScheduleCRUD(t *testing.T) {
	server, token := newTestServer(t)
	templateID := createTemplate(t, server, token)

	w := doJSON(t, server, token, http.MethodPost, "/api/v1/reports", gin.H{
		"template_id":         templateID,
		"name":                "weekly-diagnoses",
		"schedule_expression": "0 6 * * 1",
		"recipients": []gin.H{
			{"type": "EMAIL", "value": "board@hospital.test"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", w.Code, w.Body.String())
	}
	var created models.ScheduledReport
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode schedule: %v", err)
	}
	if created.NextRun == nil {
		t.Error("created schedule should have NextRun set")
	}
	if created.Format != models.FormatCSV {
		t.Errorf("default format = %s, want csv", created.Format)
	}

	path := fmt.Sprintf("/api/v1/reports/%d", created.ID)
	w = doJSON(t, server, token, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}

	w = doJSON(t, server, token, http.MethodPut, path, gin.H{
		"schedule_expression": "30 7 * * 1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", w.Code, w.Body.String())
	}
	var updated models.ScheduledReport
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to decode schedule: %v", err)
	}
	if updated.ScheduleExpression != "30 7 * * 1" {
		t.Errorf("expression = %q", updated.ScheduleExpression)
	}

	w = doJSON(t, server, token, http.MethodPut, path+"/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: status %d", w.Code)
	}

	w = doJSON(t, server, token, http.MethodDelete, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d", w.Code)
	}
	w = doJSON(t, server, token, http.MethodGet, path, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d, want 404", w.Code)
	}
}

func TestCreateScheduleInvalidCron(t *testing.T) {
	server, token := newTestServer(t)
	templateID := createTemplate(t, server, token)

	w := doJSON(t, server, token, http.MethodPost, "/api/v1/reports", gin.H{
		"template_id":         templateID,
		"name":                "broken",
		"schedule_expression": "every tuesday",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestCreateScheduleUnknownTemplate(t *testing.T) {
	server, token := newTestServer(t)

	w := doJSON(t, server, token, http.MethodPost, "/api/v1/reports", gin.H{
		"template_id":         999,
		"name":                "orphan",
		"schedule_expression": "0 6 * * *",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestExecuteNowReturnsResult(t *testing.T) {
	server, token := newTestServer(t)
	templateID := createTemplate(t, server, token)

	w := doJSON(t, server, token, http.MethodPost, "/api/v1/reports", gin.H{
		"template_id":         templateID,
		"name":                "on-demand",
		"schedule_expression": "0 6 * * *",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d", w.Code)
	}
	var created models.ScheduledReport
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode schedule: %v", err)
	}

	w = doJSON(t, server, token, http.MethodPost, fmt.Sprintf("/api/v1/reports/%d/execute", created.ID), gin.H{
		"parameters": gin.H{"stage": "IIA"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("execute: status %d, want 200: %s", w.Code, w.Body.String())
	}
	var result report.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if !result.Success || result.ExecutionID == 0 {
		t.Errorf("result = %+v, want the run's outcome", result)
	}

	// An empty body is valid: the schedule's own parameters apply.
	w = doJSON(t, server, token, http.MethodPost, fmt.Sprintf("/api/v1/reports/%d/execute", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("execute without body: status %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestCreateInactiveScheduleStaysInactive(t *testing.T) {
	server, token := newTestServer(t)
	templateID := createTemplate(t, server, token)

	w := doJSON(t, server, token, http.MethodPost, "/api/v1/reports", gin.H{
		"template_id":         templateID,
		"name":                "drafted",
		"schedule_expression": "0 6 * * *",
		"is_active":           false,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", w.Code, w.Body.String())
	}
	var created models.ScheduledReport
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode schedule: %v", err)
	}
	if created.IsActive {
		t.Error("schedule created with is_active=false must not come back active")
	}

	// The persisted row agrees, so reconciliation will not pick it up.
	w = doJSON(t, server, token, http.MethodGet, fmt.Sprintf("/api/v1/reports/%d", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	var fetched models.ScheduledReport
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode schedule: %v", err)
	}
	if fetched.IsActive {
		t.Error("persisted schedule must stay inactive")
	}
}

func TestThresholdRuleEnableFlag(t *testing.T) {
	server, token := newTestServer(t)
	templateID := createTemplate(t, server, token)

	// Omitting is_enabled defaults to an enabled rule.
	w := doJSON(t, server, token, http.MethodPost, fmt.Sprintf("/api/v1/templates/%d/rules", templateID), gin.H{
		"metric_name":     "Record Count",
		"condition":       "less_than",
		"threshold_value": 10,
		"severity":        "warning",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create rule: status %d: %s", w.Code, w.Body.String())
	}
	var enabled models.ThresholdRule
	if err := json.Unmarshal(w.Body.Bytes(), &enabled); err != nil {
		t.Fatalf("failed to decode rule: %v", err)
	}
	if !enabled.IsEnabled {
		t.Error("rule created without is_enabled should default to enabled")
	}

	// An explicit false survives the insert.
	w = doJSON(t, server, token, http.MethodPost, fmt.Sprintf("/api/v1/templates/%d/rules", templateID), gin.H{
		"metric_name":     "Record Count",
		"condition":       "greater_than",
		"threshold_value": 1000,
		"severity":        "info",
		"is_enabled":      false,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create disabled rule: status %d: %s", w.Code, w.Body.String())
	}
	var disabled models.ThresholdRule
	if err := json.Unmarshal(w.Body.Bytes(), &disabled); err != nil {
		t.Fatalf("failed to decode rule: %v", err)
	}
	if disabled.IsEnabled {
		t.Error("rule created with is_enabled=false must not come back enabled")
	}

	// Only the enabled rule participates in evaluation.
	w = doJSON(t, server, token, http.MethodGet, fmt.Sprintf("/api/v1/templates/%d/rules", templateID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list rules: status %d", w.Code)
	}
	var rules []models.ThresholdRule
	if err := json.Unmarshal(w.Body.Bytes(), &rules); err != nil {
		t.Fatalf("failed to decode rules: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != enabled.ID {
		t.Errorf("unexpected rules: %+v", rules)
	}
}

func TestPatientEndpoints(t *testing.T) {
	server, token := newTestServer(t)

	w := doJSON(t, server, token, http.MethodPost, "/api/v1/patients", gin.H{
		"mrn":        "MRN-1001",
		"first_name": "Ada",
		"last_name":  "Nguyen",
		"sex":        "F",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create patient: status %d: %s", w.Code, w.Body.String())
	}
	var patient models.Patient
	if err := json.Unmarshal(w.Body.Bytes(), &patient); err != nil {
		t.Fatalf("failed to decode patient: %v", err)
	}

	w = doJSON(t, server, token, http.MethodPost,
		fmt.Sprintf("/api/v1/patients/%d/diagnoses", patient.ID), gin.H{
			"primary_site": "C50.9",
			"histology":    "8500/3",
			"stage":        "IIA",
		})
	if w.Code != http.StatusCreated {
		t.Fatalf("add diagnosis: status %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, server, token, http.MethodGet,
		fmt.Sprintf("/api/v1/patients/%d/diagnoses", patient.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list diagnoses: status %d", w.Code)
	}
	var diagnoses []models.CancerDiagnosis
	if err := json.Unmarshal(w.Body.Bytes(), &diagnoses); err != nil {
		t.Fatalf("failed to decode diagnoses: %v", err)
	}
	if len(diagnoses) != 1 {
		t.Fatalf("expected 1 diagnosis, got %d", len(diagnoses))
	}

	// Duplicate MRN is rejected.
	w = doJSON(t, server, token, http.MethodPost, "/api/v1/patients", gin.H{
		"mrn":        "MRN-1001",
		"first_name": "Other",
		"last_name":  "Person",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate MRN: status %d, want 400", w.Code)
	}
}
