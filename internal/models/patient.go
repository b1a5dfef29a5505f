package models

import (
	"time"

	"gorm.io/gorm"
)

type Sex string

const (
	SexFemale  Sex = "F"
	SexMale    Sex = "M"
	SexOther   Sex = "O"
	SexUnknown Sex = "U"
)

type VitalStatus string

const (
	VitalStatusAlive    VitalStatus = "ALIVE"
	VitalStatusDeceased VitalStatus = "DECEASED"
	VitalStatusUnknown  VitalStatus = "UNKNOWN"
)

// Patient is one registry case root. All clinical records hang off it.
type Patient struct {
	gorm.Model
	MRN         string      `json:"mrn" gorm:"uniqueIndex;not null"` // medical record number
	FirstName   string      `json:"first_name" gorm:"not null"`
	LastName    string      `json:"last_name" gorm:"not null"`
	DateOfBirth time.Time   `json:"date_of_birth"`
	Sex         Sex         `json:"sex"`
	VitalStatus VitalStatus `json:"vital_status" gorm:"default:ALIVE"`
	Phone       string      `json:"phone"`
	Email       string      `json:"email"`
	Address     string      `json:"address"`
	ConsentedAt *time.Time  `json:"consented_at"` // research consent, nullable

	Diagnoses []CancerDiagnosis `json:"diagnoses,omitempty"`
}
