package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oncoregistry/internal/models"
)

func (s *Server) listTemplates(c *gin.Context) {
	templates, err := s.store.ListTemplates()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (s *Server) getTemplate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	template, err := s.store.GetTemplate(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (s *Server) createTemplate(c *gin.Context) {
	var template models.ReportTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.CreateTemplate(&template); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

func (s *Server) updateTemplate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	template, err := s.store.GetTemplate(id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := c.ShouldBindJSON(template); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	template.ID = id
	if err := s.store.UpdateTemplate(template); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (s *Server) deleteTemplate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.store.DeleteTemplate(id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "template deleted"})
}

func (s *Server) listThresholdRules(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	rules, err := s.store.ListThresholdRules(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

type createThresholdRuleRequest struct {
	MetricName     string                    `json:"metric_name" binding:"required"`
	Condition      models.ThresholdCondition `json:"condition" binding:"required"`
	ThresholdValue float64                   `json:"threshold_value"`
	Severity       models.AlertSeverity      `json:"severity" binding:"required"`
	Message        string                    `json:"message"`
	IsEnabled      *bool                     `json:"is_enabled"`
}

func (s *Server) createThresholdRule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := s.store.GetTemplate(id); err != nil {
		fail(c, err)
		return
	}

	var req createThresholdRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule := models.ThresholdRule{
		ReportTemplateID: id,
		MetricName:       req.MetricName,
		Condition:        req.Condition,
		ThresholdValue:   req.ThresholdValue,
		Severity:         req.Severity,
		Message:          req.Message,
		IsEnabled:        req.IsEnabled == nil || *req.IsEnabled,
	}
	if err := s.store.CreateThresholdRule(&rule); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) updateThresholdRule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var rule models.ThresholdRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule.ID = id
	if err := s.store.UpdateThresholdRule(&rule); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) deleteThresholdRule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.store.DeleteThresholdRule(id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rule deleted"})
}
