package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oncoregistry/internal/models"
	"github.com/oncoregistry/internal/schedule"
	"github.com/oncoregistry/internal/store"
)

func (s *Server) listSchedules(c *gin.Context) {
	var filter store.ScheduleFilter
	if active := c.Query("active"); active != "" {
		isActive := active == "true"
		filter.IsActive = &isActive
	}
	if tid := c.Query("template_id"); tid != "" {
		parsed, err := strconv.ParseUint(tid, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template_id"})
			return
		}
		filter.TemplateID = uint(parsed)
	}

	schedules, err := s.manager.FindAll(filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

func (s *Server) getSchedule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sr, err := s.manager.FindOne(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sr)
}

type createScheduleRequest struct {
	TemplateID         uint                   `json:"template_id" binding:"required"`
	Name               string                 `json:"name" binding:"required"`
	Description        string                 `json:"description"`
	ScheduleExpression string                 `json:"schedule_expression" binding:"required"`
	Recipients         []models.Recipient     `json:"recipients"`
	Parameters         map[string]string      `json:"parameters"`
	Format             models.ReportFormat    `json:"format"`
	DeliveryMethod     models.DeliveryMethod  `json:"delivery_method"`
	IsActive           *bool                  `json:"is_active"`
}

func (s *Server) createSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.store.GetTemplate(req.TemplateID); err != nil {
		fail(c, err)
		return
	}

	sr := &models.ScheduledReport{
		TemplateID:         req.TemplateID,
		Name:               req.Name,
		Description:        req.Description,
		ScheduleExpression: req.ScheduleExpression,
		Recipients:         req.Recipients,
		Parameters:         req.Parameters,
		Format:             req.Format,
		DeliveryMethod:     req.DeliveryMethod,
		IsActive:           true,
	}
	if sr.Format == "" {
		sr.Format = models.FormatCSV
	}
	if sr.DeliveryMethod == "" {
		sr.DeliveryMethod = models.DeliveryEmail
	}
	if req.IsActive != nil {
		sr.IsActive = *req.IsActive
	}

	if err := s.manager.Create(sr); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sr)
}

type updateScheduleRequest struct {
	Name               *string                `json:"name"`
	Description        *string                `json:"description"`
	ScheduleExpression *string                `json:"schedule_expression"`
	Recipients         []models.Recipient     `json:"recipients"`
	Parameters         map[string]string      `json:"parameters"`
	Format             *models.ReportFormat   `json:"format"`
	DeliveryMethod     *models.DeliveryMethod `json:"delivery_method"`
	IsActive           *bool                  `json:"is_active"`
	TemplateID         *uint                  `json:"template_id"`
}

func (s *Server) updateSchedule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TemplateID != nil {
		if _, err := s.store.GetTemplate(*req.TemplateID); err != nil {
			fail(c, err)
			return
		}
	}

	sr, err := s.manager.Update(id, schedule.UpdatePatch{
		Name:               req.Name,
		Description:        req.Description,
		ScheduleExpression: req.ScheduleExpression,
		Recipients:         req.Recipients,
		Parameters:         req.Parameters,
		Format:             req.Format,
		DeliveryMethod:     req.DeliveryMethod,
		IsActive:           req.IsActive,
		TemplateID:         req.TemplateID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sr)
}

func (s *Server) deleteSchedule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.manager.Remove(id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "schedule deleted"})
}

func (s *Server) toggleSchedule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sr, err := s.manager.ToggleActive(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sr)
}

type executeScheduleRequest struct {
	Parameters map[string]string `json:"parameters"`
}

// executeSchedule runs the report immediately and returns the outcome,
// including the error message of a failed run. The body is optional; when
// present its parameters override the schedule's stored ones for this run.
func (s *Server) executeSchedule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req executeScheduleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	result, err := s.manager.ExecuteNow(id, req.Parameters)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listExecutions(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := s.manager.FindOne(id); err != nil {
		fail(c, err)
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	executions, err := s.store.ListExecutions(id, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, executions)
}

func (s *Server) getExecution(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	execution, err := s.store.GetExecution(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, execution)
}

func (s *Server) listDistributions(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := s.store.GetExecution(id); err != nil {
		fail(c, err)
		return
	}
	distributions, err := s.store.ListDistributions(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, distributions)
}
