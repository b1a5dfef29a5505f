package models

import (
	"time"

	"gorm.io/gorm"
)

type ResearchRequestStatus string

const (
	ResearchStatusSubmitted ResearchRequestStatus = "SUBMITTED"
	ResearchStatusApproved  ResearchRequestStatus = "APPROVED"
	ResearchStatusRejected  ResearchRequestStatus = "REJECTED"
	ResearchStatusClosed    ResearchRequestStatus = "CLOSED"
)

// ResearchRequest is a data-extract request from a researcher, reviewed by
// registry administrators before any cohort is released.
type ResearchRequest struct {
	gorm.Model
	RequesterID uint                  `json:"requester_id" gorm:"index;not null"`
	Title       string                `json:"title" gorm:"not null"`
	Protocol    string                `json:"protocol"` // IRB protocol number
	Criteria    map[string]string     `json:"criteria" gorm:"serializer:json"`
	Status      ResearchRequestStatus `json:"status" gorm:"default:SUBMITTED"`
	ReviewedBy  string                `json:"reviewed_by"`
	ReviewedAt  *time.Time            `json:"reviewed_at"`
	ReviewNotes string                `json:"review_notes"`
}
