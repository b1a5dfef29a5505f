package models

import (
	"time"

	"gorm.io/gorm"
)

type DiagnosisStatus string

const (
	DiagnosisStatusActive     DiagnosisStatus = "ACTIVE"
	DiagnosisStatusRemission  DiagnosisStatus = "REMISSION"
	DiagnosisStatusRecurrence DiagnosisStatus = "RECURRENCE"
	DiagnosisStatusResolved   DiagnosisStatus = "RESOLVED"
)

type CancerDiagnosis struct {
	gorm.Model
	PatientID     uint            `json:"patient_id" gorm:"index;not null"`
	PrimarySite   string          `json:"primary_site" gorm:"not null"` // ICD-O-3 topography
	Histology     string          `json:"histology"`                    // ICD-O-3 morphology
	Laterality    string          `json:"laterality"`
	Stage         string          `json:"stage"` // TNM summary stage
	Grade         string          `json:"grade"`
	DiagnosisDate time.Time       `json:"diagnosis_date"`
	Status        DiagnosisStatus `json:"status" gorm:"default:ACTIVE"`
	DiagnosedBy   string          `json:"diagnosed_by"`
	Notes         string          `json:"notes"`
}
