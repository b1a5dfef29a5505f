package models

import (
	"time"

	"gorm.io/gorm"
)

type TreatmentType string

const (
	TreatmentSurgery       TreatmentType = "SURGERY"
	TreatmentChemotherapy  TreatmentType = "CHEMOTHERAPY"
	TreatmentRadiation     TreatmentType = "RADIATION"
	TreatmentImmunotherapy TreatmentType = "IMMUNOTHERAPY"
	TreatmentHormonal      TreatmentType = "HORMONAL"
	TreatmentPalliative    TreatmentType = "PALLIATIVE"
)

type TreatmentStatus string

const (
	TreatmentStatusPlanned    TreatmentStatus = "PLANNED"
	TreatmentStatusInProgress TreatmentStatus = "IN_PROGRESS"
	TreatmentStatusCompleted  TreatmentStatus = "COMPLETED"
	TreatmentStatusAborted    TreatmentStatus = "ABORTED"
)

type Treatment struct {
	gorm.Model
	PatientID   uint            `json:"patient_id" gorm:"index;not null"`
	DiagnosisID uint            `json:"diagnosis_id" gorm:"index"`
	Type        TreatmentType   `json:"type" gorm:"not null"`
	Protocol    string          `json:"protocol"` // e.g. FOLFOX, AC-T
	Intent      string          `json:"intent"`   // curative / palliative
	StartDate   time.Time       `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
	Status      TreatmentStatus `json:"status" gorm:"default:PLANNED"`
	Provider    string          `json:"provider"`
	Notes       string          `json:"notes"`
}
