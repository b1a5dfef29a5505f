package models

import (
	"gorm.io/gorm"
)

type ThresholdCondition string

const (
	ConditionGreaterThan ThresholdCondition = "greater_than"
	ConditionLessThan    ThresholdCondition = "less_than"
	ConditionEquals      ThresholdCondition = "equals"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// ThresholdRule is evaluated against a report's key metrics after each
// generation. Severity is taken verbatim from the rule, never computed.
type ThresholdRule struct {
	gorm.Model
	ReportTemplateID uint               `json:"report_template_id" gorm:"index;not null"`
	MetricName       string             `json:"metric_name" gorm:"not null"`
	Condition        ThresholdCondition `json:"condition" gorm:"not null"`
	ThresholdValue   float64            `json:"threshold_value" gorm:"not null"`
	Severity         AlertSeverity      `json:"severity" gorm:"not null"`
	Message          string             `json:"message"`
	IsEnabled        bool               `json:"is_enabled"`
}
