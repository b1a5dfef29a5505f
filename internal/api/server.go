package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oncoregistry/internal/auth"
	"github.com/oncoregistry/internal/models"
	"github.com/oncoregistry/internal/registry"
	"github.com/oncoregistry/internal/report"
	"github.com/oncoregistry/internal/schedule"
	"github.com/oncoregistry/internal/store"
	"gorm.io/gorm"
)

type Server struct {
	db       *gorm.DB
	auth     *auth.Authenticator
	store    *store.Store
	manager  *schedule.Manager
	registry *registry.Service
	router   *gin.Engine
}

func NewServer(db *gorm.DB, authenticator *auth.Authenticator, st *store.Store,
	manager *schedule.Manager, registryService *registry.Service) *Server {
	server := &Server{
		db:       db,
		auth:     authenticator,
		store:    st,
		manager:  manager,
		registry: registryService,
		router:   gin.Default(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	// Public routes
	s.router.POST("/api/v1/auth/login", s.login)
	s.router.POST("/api/v1/auth/register", s.register)

	// Protected routes (require authentication)
	api := s.router.Group("/api/v1")
	api.Use(s.auth.Middleware())

	clinical := auth.RequireRole(models.RoleAdmin, models.RoleClinician)

	// Patient registry endpoints
	patients := api.Group("/patients")
	{
		patients.GET("", s.listPatients)
		patients.GET("/:id", s.getPatient)
		patients.POST("", clinical, s.createPatient)
		patients.PUT("/:id", clinical, s.updatePatient)
		patients.DELETE("/:id", auth.RequireRole(models.RoleAdmin), s.deletePatient)
		patients.GET("/:id/diagnoses", s.listDiagnoses)
		patients.POST("/:id/diagnoses", clinical, s.addDiagnosis)
		patients.GET("/:id/treatments", s.listTreatments)
		patients.POST("/:id/treatments", clinical, s.addTreatment)
		patients.GET("/:id/radiology", s.listRadiologyExams)
		patients.POST("/:id/radiology", clinical, s.addRadiologyExam)
	}
	api.PUT("/diagnoses/:id/status", clinical, s.updateDiagnosisStatus)

	// Research request endpoints
	research := api.Group("/research")
	{
		research.GET("", s.listResearchRequests)
		research.POST("", auth.RequireRole(models.RoleAdmin, models.RoleResearcher), s.createResearchRequest)
		research.PUT("/:id/status", auth.RequireRole(models.RoleAdmin), s.setResearchStatus)
	}

	// Report template endpoints
	templates := api.Group("/templates")
	{
		templates.GET("", s.listTemplates)
		templates.GET("/:id", s.getTemplate)
		templates.POST("", auth.RequireRole(models.RoleAdmin), s.createTemplate)
		templates.PUT("/:id", auth.RequireRole(models.RoleAdmin), s.updateTemplate)
		templates.DELETE("/:id", auth.RequireRole(models.RoleAdmin), s.deleteTemplate)
		templates.GET("/:id/rules", s.listThresholdRules)
		templates.POST("/:id/rules", auth.RequireRole(models.RoleAdmin), s.createThresholdRule)
	}
	api.PUT("/rules/:id", auth.RequireRole(models.RoleAdmin), s.updateThresholdRule)
	api.DELETE("/rules/:id", auth.RequireRole(models.RoleAdmin), s.deleteThresholdRule)

	// Scheduled report endpoints
	reports := api.Group("/reports")
	{
		reports.GET("", s.listSchedules)
		reports.GET("/:id", s.getSchedule)
		reports.POST("", auth.RequireRole(models.RoleAdmin), s.createSchedule)
		reports.PUT("/:id", auth.RequireRole(models.RoleAdmin), s.updateSchedule)
		reports.DELETE("/:id", auth.RequireRole(models.RoleAdmin), s.deleteSchedule)
		reports.PUT("/:id/toggle", auth.RequireRole(models.RoleAdmin), s.toggleSchedule)
		reports.POST("/:id/execute", auth.RequireRole(models.RoleAdmin, models.RoleClinician), s.executeSchedule)
		reports.GET("/:id/executions", s.listExecutions)
	}
	api.GET("/executions/:id", s.getExecution)
	api.GET("/executions/:id/distributions", s.listDistributions)
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// fail maps domain errors to HTTP status codes.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, report.ErrScheduleNotFound),
		errors.Is(err, report.ErrTemplateNotFound),
		errors.Is(err, registry.ErrPatientNotFound),
		errors.Is(err, registry.ErrDiagnosisNotFound),
		errors.Is(err, registry.ErrRequestNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, schedule.ErrInvalidSchedule),
		errors.Is(err, registry.ErrDuplicateMRN):
		status = http.StatusBadRequest
	case errors.Is(err, schedule.ErrExecutionInFlight):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
