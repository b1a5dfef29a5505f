package report

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/oncoregistry/internal/models"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

var (
	ErrScheduleNotFound = errors.New("scheduled report not found")
	ErrTemplateNotFound = errors.New("report template not found")
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetSchedule(id uint) (*models.ScheduledReport, error)
	GetTemplate(id uint) (*models.ReportTemplate, error)
	ListThresholdRules(templateID uint) ([]models.ThresholdRule, error)
	CreateExecution(e *models.ReportExecution) error
	FinalizeExecution(e *models.ReportExecution) error
	CreateDistribution(d *models.ReportDistribution) error
	RecordRun(scheduleID uint, lastRun, nextRun time.Time, success bool) error
}

// Cron computes a schedule's next firing time.
type Cron interface {
	Next(expr string, after time.Time) (time.Time, error)
}

// AlertDispatcher fans threshold alerts out to the configured channels.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, schedule *models.ScheduledReport, alerts []ThresholdAlert) error
}

// ResolvedRecipient is a recipient descriptor resolved to a deliverable
// contact.
type ResolvedRecipient struct {
	Type  models.RecipientType
	ID    string
	Email string
	Name  string
}

// Resolver turns a recipient descriptor into contact information.
type Resolver interface {
	Resolve(r models.Recipient) (*ResolvedRecipient, error)
}

// Deliverer sends one generated report to one resolved recipient.
type Deliverer interface {
	Deliver(ctx context.Context, rcpt *ResolvedRecipient, schedule *models.ScheduledReport, art *Artifact, summary *ExecutiveSummary) error
}

// Result is the outcome of one pipeline run.
type Result struct {
	Success      bool    `json:"success"`
	ExecutionID  uint    `json:"execution_id"`
	FilePath     string  `json:"file_path,omitempty"`
	FileSize     int64   `json:"file_size,omitempty"`
	Duration     float64 `json:"duration"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

const maxConcurrentDeliveries = 5

// Pipeline executes one scheduled report end to end: data-quality gate,
// artifact generation, executive summary, threshold alerts, distribution,
// and schedule bookkeeping.
type Pipeline struct {
	store      Store
	source     DataSource
	generator  Generator
	cron       Cron
	dispatcher AlertDispatcher
	resolver   Resolver
	deliverer  Deliverer
	sem        *semaphore.Weighted
}

func NewPipeline(store Store, source DataSource, generator Generator, cron Cron,
	dispatcher AlertDispatcher, resolver Resolver, deliverer Deliverer) *Pipeline {
	return &Pipeline{
		store:      store,
		source:     source,
		generator:  generator,
		cron:       cron,
		dispatcher: dispatcher,
		resolver:   resolver,
		deliverer:  deliverer,
		sem:        semaphore.NewWeighted(maxConcurrentDeliveries),
	}
}

// Execute runs the pipeline for one firing of a schedule. Generation,
// alerting or distribution failures never block the schedule's future
// firings: the schedule row always advances and the execution record is
// always finalized once it exists.
func (p *Pipeline) Execute(ctx context.Context, scheduleID uint, firingTime time.Time, params map[string]string) (*Result, error) {
	schedule, err := p.store.GetSchedule(scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	template := schedule.Template
	if template == nil {
		template, err = p.store.GetTemplate(schedule.TemplateID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTemplateNotFound
			}
			return nil, err
		}
	}
	if params == nil {
		params = schedule.Parameters
	}

	execution := &models.ReportExecution{
		ScheduledReportID: schedule.ID,
		ExecutionTime:     firingTime,
		Status:            models.ExecutionRunning,
		DeliveryStatus:    models.DeliveryPending,
	}
	if err := p.store.CreateExecution(execution); err != nil {
		return nil, err
	}

	result := p.run(ctx, schedule, template, execution, firingTime, params)

	// The schedule always advances, success or failure. A broken cron
	// expression at this point is logged rather than raised: the run itself
	// already has its outcome.
	nextRun := firingTime
	if next, err := p.cron.Next(schedule.ScheduleExpression, firingTime); err != nil {
		log.Printf("Failed to compute next run for schedule %d: %v", schedule.ID, err)
	} else {
		nextRun = next
	}
	if err := p.store.RecordRun(schedule.ID, firingTime, nextRun, result.Success); err != nil {
		log.Printf("Failed to record run for schedule %d: %v", schedule.ID, err)
	}

	result.Duration = time.Since(firingTime).Seconds()
	execution.Duration = result.Duration
	execution.Success = result.Success
	execution.FilePath = result.FilePath
	execution.FileSize = result.FileSize
	execution.ErrorMessage = result.ErrorMessage
	if result.Success {
		execution.Status = models.ExecutionCompleted
	} else {
		execution.Status = models.ExecutionFailed
	}
	if err := p.store.FinalizeExecution(execution); err != nil {
		log.Printf("Failed to finalize execution %d: %v", execution.ID, err)
	}
	result.ExecutionID = execution.ID

	return result, nil
}

// run performs the hard-gated middle of the pipeline. Any error it returns in
// the result short-circuits later steps; bookkeeping happens in Execute.
func (p *Pipeline) run(ctx context.Context, schedule *models.ScheduledReport, template *models.ReportTemplate,
	execution *models.ReportExecution, firingTime time.Time, params map[string]string) *Result {

	stats, err := p.source.Inspect(ctx, template, params)
	if err != nil {
		return &Result{ErrorMessage: err.Error()}
	}
	quality, err := assessQuality(stats, firingTime)
	if err != nil {
		return &Result{ErrorMessage: err.Error()}
	}
	for _, warning := range quality.Warnings {
		log.Printf("Schedule %d (%s): %s", schedule.ID, schedule.Name, warning)
	}

	artifact, err := p.generator.Generate(ctx, template, schedule.Format, params)
	if err != nil {
		return &Result{ErrorMessage: err.Error()}
	}

	summary := BuildSummary(template, artifact, firingTime)

	rules, err := p.store.ListThresholdRules(template.ID)
	if err != nil {
		log.Printf("Failed to load threshold rules for template %d: %v", template.ID, err)
	}
	if alerts := EvaluateThresholds(rules, Metrics(summary)); len(alerts) > 0 {
		if err := p.dispatcher.Dispatch(ctx, schedule, alerts); err != nil {
			log.Printf("Failed to dispatch %d alerts for schedule %d: %v", len(alerts), schedule.ID, err)
		}
	}

	execution.DeliveryStatus = p.distribute(ctx, schedule, execution, artifact, summary)

	return &Result{
		Success:  true,
		FilePath: artifact.FilePath,
		FileSize: artifact.FileSize,
	}
}

// distribute attempts delivery to every recipient and records one
// distribution row per descriptor, regardless of the outcome. Recipient
// failures are independent of each other and of the run.
func (p *Pipeline) distribute(ctx context.Context, schedule *models.ScheduledReport,
	execution *models.ReportExecution, artifact *Artifact, summary *ExecutiveSummary) models.DeliveryStatus {

	if len(schedule.Recipients) == 0 || schedule.DeliveryMethod == models.DeliveryNone {
		return models.DeliverySent
	}

	records := make([]*models.ReportDistribution, len(schedule.Recipients))
	var wg sync.WaitGroup
	for i, recipient := range schedule.Recipients {
		wg.Add(1)
		go func(i int, recipient models.Recipient) {
			defer wg.Done()
			// The semaphore bounds SMTP fan-out; acquisition itself must not
			// be cut short by the run deadline or the record would be lost.
			if err := p.sem.Acquire(context.Background(), 1); err != nil {
				return
			}
			defer p.sem.Release(1)
			records[i] = p.deliverOne(ctx, schedule, execution, recipient, artifact, summary)
		}(i, recipient)
	}
	wg.Wait()

	status := models.DeliverySent
	for _, record := range records {
		if record == nil {
			continue
		}
		if err := p.store.CreateDistribution(record); err != nil {
			log.Printf("Failed to record distribution for execution %d: %v", execution.ID, err)
		}
		if record.DeliveryStatus == models.DeliveryFailed {
			status = models.DeliveryFailed
		}
	}
	return status
}

func (p *Pipeline) deliverOne(ctx context.Context, schedule *models.ScheduledReport,
	execution *models.ReportExecution, recipient models.Recipient,
	artifact *Artifact, summary *ExecutiveSummary) *models.ReportDistribution {

	record := &models.ReportDistribution{
		ReportExecutionID: execution.ID,
		RecipientType:     recipient.Type,
		RecipientID:       recipient.Value,
		DeliveryMethod:    schedule.DeliveryMethod,
		DeliveryStatus:    models.DeliveryPending,
	}

	resolved, err := p.resolver.Resolve(recipient)
	if err != nil {
		record.DeliveryStatus = models.DeliveryFailed
		record.ErrorMessage = err.Error()
		return record
	}
	record.RecipientEmail = resolved.Email
	record.RecipientName = resolved.Name

	if err := p.deliverer.Deliver(ctx, resolved, schedule, artifact, summary); err != nil {
		record.DeliveryStatus = models.DeliveryFailed
		record.ErrorMessage = err.Error()
		return record
	}
	record.DeliveryStatus = models.DeliverySent
	return record
}
