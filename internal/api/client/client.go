package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oncoregistry/internal/models"
	"github.com/oncoregistry/internal/report"
	"github.com/spf13/viper"
)

// APIClient talks to the registry's HTTP API. The auth token is read from
// the CLI's viper config.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *APIClient) doRequest(method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	token := viper.GetString("token")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(respBody))
	}

	return respBody, nil
}

func (c *APIClient) Login(username, password string) (string, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	resp, err := c.doRequest("POST", "/api/v1/auth/login", body)
	if err != nil {
		return "", err
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func (c *APIClient) ListSchedules() ([]models.ScheduledReport, error) {
	resp, err := c.doRequest("GET", "/api/v1/reports", nil)
	if err != nil {
		return nil, err
	}

	var schedules []models.ScheduledReport
	if err := json.Unmarshal(resp, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (c *APIClient) CreateSchedule(sr *models.ScheduledReport) (*models.ScheduledReport, error) {
	resp, err := c.doRequest("POST", "/api/v1/reports", sr)
	if err != nil {
		return nil, err
	}

	var created models.ScheduledReport
	if err := json.Unmarshal(resp, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *APIClient) ToggleSchedule(id uint) (*models.ScheduledReport, error) {
	resp, err := c.doRequest("PUT", fmt.Sprintf("/api/v1/reports/%d/toggle", id), nil)
	if err != nil {
		return nil, err
	}

	var sr models.ScheduledReport
	if err := json.Unmarshal(resp, &sr); err != nil {
		return nil, err
	}
	return &sr, nil
}

func (c *APIClient) DeleteSchedule(id uint) error {
	_, err := c.doRequest("DELETE", fmt.Sprintf("/api/v1/reports/%d", id), nil)
	return err
}

// RunSchedule triggers an immediate execution and returns its outcome.
// Params, when given, override the schedule's stored parameters for this run.
func (c *APIClient) RunSchedule(id uint, params map[string]string) (*report.Result, error) {
	var body interface{}
	if len(params) > 0 {
		body = map[string]interface{}{"parameters": params}
	}
	resp, err := c.doRequest("POST", fmt.Sprintf("/api/v1/reports/%d/execute", id), body)
	if err != nil {
		return nil, err
	}

	var result report.Result
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) ListExecutions(id uint, limit int) ([]models.ReportExecution, error) {
	path := fmt.Sprintf("/api/v1/reports/%d/executions", id)
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var executions []models.ReportExecution
	if err := json.Unmarshal(resp, &executions); err != nil {
		return nil, err
	}
	return executions, nil
}

func (c *APIClient) ListDistributions(executionID uint) ([]models.ReportDistribution, error) {
	resp, err := c.doRequest("GET", fmt.Sprintf("/api/v1/executions/%d/distributions", executionID), nil)
	if err != nil {
		return nil, err
	}

	var distributions []models.ReportDistribution
	if err := json.Unmarshal(resp, &distributions); err != nil {
		return nil, err
	}
	return distributions, nil
}

func (c *APIClient) ListPatients(limit int) ([]models.Patient, error) {
	path := "/api/v1/patients"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var patients []models.Patient
	if err := json.Unmarshal(resp, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

func (c *APIClient) ListTemplates() ([]models.ReportTemplate, error) {
	resp, err := c.doRequest("GET", "/api/v1/templates", nil)
	if err != nil {
		return nil, err
	}

	var templates []models.ReportTemplate
	if err := json.Unmarshal(resp, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}
