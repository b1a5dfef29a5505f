package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/oncoregistry/internal/models"
	"gorm.io/gorm"
)

var (
	ErrPatientNotFound   = errors.New("patient not found")
	ErrDuplicateMRN      = errors.New("a patient with this MRN already exists")
	ErrDiagnosisNotFound = errors.New("diagnosis not found")
	ErrRequestNotFound   = errors.New("research request not found")
)

// Service owns the clinical registry data the reports are drawn from.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// -- patients --

func (s *Service) CreatePatient(p *models.Patient) error {
	var count int64
	if err := s.db.Model(&models.Patient{}).Where("mrn = ?", p.MRN).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateMRN
	}
	return s.db.Create(p).Error
}

func (s *Service) GetPatient(id uint) (*models.Patient, error) {
	var p models.Patient
	if err := s.db.Preload("Diagnoses").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetPatientByMRN(mrn string) (*models.Patient, error) {
	var p models.Patient
	if err := s.db.Preload("Diagnoses").Where("mrn = ?", mrn).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) ListPatients(limit, offset int) ([]models.Patient, error) {
	var patients []models.Patient
	query := s.db.Order("id")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

func (s *Service) UpdatePatient(p *models.Patient) error {
	return s.db.Save(p).Error
}

func (s *Service) DeletePatient(id uint) error {
	res := s.db.Delete(&models.Patient{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// -- diagnoses --

func (s *Service) AddDiagnosis(d *models.CancerDiagnosis) error {
	if _, err := s.GetPatient(d.PatientID); err != nil {
		return err
	}
	return s.db.Create(d).Error
}

func (s *Service) ListDiagnoses(patientID uint) ([]models.CancerDiagnosis, error) {
	var diagnoses []models.CancerDiagnosis
	if err := s.db.Where("patient_id = ?", patientID).
		Order("diagnosis_date desc").Find(&diagnoses).Error; err != nil {
		return nil, err
	}
	return diagnoses, nil
}

func (s *Service) UpdateDiagnosisStatus(id uint, status models.DiagnosisStatus) error {
	res := s.db.Model(&models.CancerDiagnosis{}).Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDiagnosisNotFound
	}
	return nil
}

// -- treatments --

func (s *Service) AddTreatment(t *models.Treatment) error {
	if _, err := s.GetPatient(t.PatientID); err != nil {
		return err
	}
	return s.db.Create(t).Error
}

func (s *Service) ListTreatments(patientID uint) ([]models.Treatment, error) {
	var treatments []models.Treatment
	if err := s.db.Where("patient_id = ?", patientID).Find(&treatments).Error; err != nil {
		return nil, err
	}
	return treatments, nil
}

func (s *Service) SetTreatmentStatus(id uint, status models.TreatmentStatus) error {
	return s.db.Model(&models.Treatment{}).Where("id = ?", id).
		Update("status", status).Error
}

// -- radiology --

func (s *Service) AddRadiologyExam(e *models.RadiologyExam) error {
	if _, err := s.GetPatient(e.PatientID); err != nil {
		return err
	}
	return s.db.Create(e).Error
}

func (s *Service) ListRadiologyExams(patientID uint) ([]models.RadiologyExam, error) {
	var exams []models.RadiologyExam
	if err := s.db.Where("patient_id = ?", patientID).
		Order("performed_at desc").Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}

func (s *Service) FinalizeRadiologyExam(id uint, impression string) error {
	return s.db.Model(&models.RadiologyExam{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"impression": impression,
			"finalized":  true,
		}).Error
}

// -- research requests --

func (s *Service) CreateResearchRequest(r *models.ResearchRequest) error {
	r.Status = models.ResearchStatusSubmitted
	return s.db.Create(r).Error
}

func (s *Service) SetResearchStatus(id uint, status models.ResearchRequestStatus) error {
	res := s.db.Model(&models.ResearchRequest{}).Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (s *Service) ListResearchRequests(status models.ResearchRequestStatus) ([]models.ResearchRequest, error) {
	var requests []models.ResearchRequest
	query := s.db.Order("id desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// -- notifications --

func (s *Service) CreateNotification(n *models.Notification) error {
	n.Status = models.NotificationPending
	return s.db.Create(n).Error
}

func (s *Service) MarkNotificationSent(id uint) error {
	now := time.Now()
	return s.db.Model(&models.Notification{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  models.NotificationSent,
			"sent_at": &now,
		}).Error
}

func (s *Service) ListNotifications(userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	if err := s.db.Where("user_id = ?", userID).
		Order("id desc").Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %v", err)
	}
	return notifications, nil
}
