package models

import (
	"time"

	"gorm.io/gorm"
)

type ReportFormat string

const (
	FormatCSV  ReportFormat = "csv"
	FormatHTML ReportFormat = "html"
	FormatPDF  ReportFormat = "pdf"
)

type DeliveryMethod string

const (
	DeliveryEmail DeliveryMethod = "EMAIL"
	DeliveryNone  DeliveryMethod = "NONE" // generate and archive only
)

type RecipientType string

const (
	RecipientUser  RecipientType = "USER"
	RecipientRole  RecipientType = "ROLE"
	RecipientEmail RecipientType = "EMAIL"
	RecipientGroup RecipientType = "GROUP"
)

// Recipient is one entry of a schedule's recipient list. Value is a user ID,
// role name, raw email address or group key depending on Type.
type Recipient struct {
	Type            RecipientType `json:"type"`
	Value           string        `json:"value"`
	Personalization string        `json:"personalization,omitempty"`
}

// ReportTemplate describes what a report contains: which registry dataset it
// draws from, which columns it shows and how far back it looks.
type ReportTemplate struct {
	gorm.Model
	Name        string            `json:"name" gorm:"uniqueIndex;not null"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	DataSource  string            `json:"data_source" gorm:"not null"` // patients, diagnoses, treatments, radiology
	Columns     []string          `json:"columns" gorm:"serializer:json"`
	Filters     map[string]string `json:"filters" gorm:"serializer:json"`
	PeriodDays  int               `json:"period_days" gorm:"default:30"`
}

// ScheduledReport binds a template to a cron expression and a recipient list.
// NextRun always holds the next trigger computed from ScheduleExpression at
// the later of creation, last expression change and last firing.
type ScheduledReport struct {
	gorm.Model
	TemplateID         uint              `json:"template_id" gorm:"index;not null"`
	Name               string            `json:"name" gorm:"uniqueIndex;not null"`
	Description        string            `json:"description"`
	ScheduleExpression string            `json:"schedule_expression" gorm:"not null"` // cron
	Recipients         []Recipient       `json:"recipients" gorm:"serializer:json"`
	Parameters         map[string]string `json:"parameters" gorm:"serializer:json"`
	Format             ReportFormat      `json:"format" gorm:"default:csv"`
	DeliveryMethod     DeliveryMethod    `json:"delivery_method" gorm:"default:EMAIL"`
	// No column default: gorm omits zero values on insert, so a default
	// of true would silently overwrite an explicit false.
	IsActive           bool              `json:"is_active"`
	LastRun            *time.Time        `json:"last_run"`
	NextRun            *time.Time        `json:"next_run"`
	SuccessCount       int64             `json:"success_count" gorm:"default:0"`
	FailureCount       int64             `json:"failure_count" gorm:"default:0"`

	Template *ReportTemplate `json:"template,omitempty" gorm:"foreignKey:TemplateID"`
}

type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionCancelled ExecutionStatus = "CANCELLED"
)

// ReportExecution is one firing's outcome. Append-only except for the single
// RUNNING -> COMPLETED/FAILED transition.
type ReportExecution struct {
	gorm.Model
	ScheduledReportID uint            `json:"scheduled_report_id" gorm:"index;not null"`
	ExecutionTime     time.Time       `json:"execution_time"`
	Status            ExecutionStatus `json:"status" gorm:"index;default:RUNNING"`
	Duration          float64         `json:"duration"` // seconds
	FilePath          string          `json:"file_path,omitempty"`
	FileSize          int64           `json:"file_size,omitempty"`
	Success           bool            `json:"success"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	DeliveryStatus    DeliveryStatus  `json:"delivery_status,omitempty"`
}

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// ReportDistribution records one delivery attempt to one recipient of one
// execution. Recipients succeed or fail independently.
type ReportDistribution struct {
	gorm.Model
	ReportExecutionID uint           `json:"report_execution_id" gorm:"index;not null"`
	RecipientType     RecipientType  `json:"recipient_type"`
	RecipientID       string         `json:"recipient_id"` // the descriptor value
	RecipientEmail    string         `json:"recipient_email"`
	RecipientName     string         `json:"recipient_name"`
	DeliveryMethod    DeliveryMethod `json:"delivery_method"`
	DeliveryStatus    DeliveryStatus `json:"delivery_status" gorm:"default:PENDING"`
	ErrorMessage      string         `json:"error_message,omitempty"`
}
