package models

import (
	"time"

	"gorm.io/gorm"
)

type RadiologyExam struct {
	gorm.Model
	PatientID   uint      `json:"patient_id" gorm:"index;not null"`
	DiagnosisID uint      `json:"diagnosis_id" gorm:"index"`
	Modality    string    `json:"modality"` // CT, MRI, PET, XR, US
	BodySite    string    `json:"body_site"`
	PerformedAt time.Time `json:"performed_at"`
	Impression  string    `json:"impression"`
	ReportedBy  string    `json:"reported_by"`
	Finalized   bool      `json:"finalized" gorm:"default:false"`
}
