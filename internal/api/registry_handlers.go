package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oncoregistry/internal/models"
)

func (s *Server) listPatients(c *gin.Context) {
	limit := 100
	offset := 0
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil {
			offset = parsed
		}
	}

	patients, err := s.registry.ListPatients(limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

func (s *Server) getPatient(c *gin.Context) {
	if mrn := c.Query("mrn"); mrn != "" {
		patient, err := s.registry.GetPatientByMRN(mrn)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, patient)
		return
	}

	id, ok := idParam(c)
	if !ok {
		return
	}
	patient, err := s.registry.GetPatient(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (s *Server) createPatient(c *gin.Context) {
	var patient models.Patient
	if err := c.ShouldBindJSON(&patient); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.registry.CreatePatient(&patient); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (s *Server) updatePatient(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	patient, err := s.registry.GetPatient(id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := c.ShouldBindJSON(patient); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patient.ID = id
	if err := s.registry.UpdatePatient(patient); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (s *Server) deletePatient(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.registry.DeletePatient(id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "patient deleted"})
}

func (s *Server) listDiagnoses(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	diagnoses, err := s.registry.ListDiagnoses(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, diagnoses)
}

func (s *Server) addDiagnosis(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var diagnosis models.CancerDiagnosis
	if err := c.ShouldBindJSON(&diagnosis); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	diagnosis.PatientID = id
	if err := s.registry.AddDiagnosis(&diagnosis); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, diagnosis)
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) updateDiagnosisStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.registry.UpdateDiagnosisStatus(id, models.DiagnosisStatus(req.Status)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

func (s *Server) listTreatments(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	treatments, err := s.registry.ListTreatments(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, treatments)
}

func (s *Server) addTreatment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var treatment models.Treatment
	if err := c.ShouldBindJSON(&treatment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	treatment.PatientID = id
	if err := s.registry.AddTreatment(&treatment); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, treatment)
}

func (s *Server) listRadiologyExams(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	exams, err := s.registry.ListRadiologyExams(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exams)
}

func (s *Server) addRadiologyExam(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var exam models.RadiologyExam
	if err := c.ShouldBindJSON(&exam); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	exam.PatientID = id
	if err := s.registry.AddRadiologyExam(&exam); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, exam)
}

func (s *Server) listResearchRequests(c *gin.Context) {
	requests, err := s.registry.ListResearchRequests(models.ResearchRequestStatus(c.Query("status")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (s *Server) createResearchRequest(c *gin.Context) {
	var request models.ResearchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	request.RequesterID = c.GetUint("user_id")
	if err := s.registry.CreateResearchRequest(&request); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (s *Server) setResearchStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.registry.SetResearchStatus(id, models.ResearchRequestStatus(req.Status)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}
