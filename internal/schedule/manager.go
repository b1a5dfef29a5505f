package schedule

import (
	"errors"
	"log"
	"time"

	"github.com/oncoregistry/internal/models"
	"github.com/oncoregistry/internal/report"
	"github.com/oncoregistry/internal/store"
	"gorm.io/gorm"
)

// Store is the persistence surface the lifecycle manager needs.
type Store interface {
	CreateSchedule(sr *models.ScheduledReport) error
	UpdateSchedule(sr *models.ScheduledReport) error
	DeleteSchedule(id uint) error
	GetSchedule(id uint) (*models.ScheduledReport, error)
	ListSchedules(filter store.ScheduleFilter) ([]models.ScheduledReport, error)
	ListActiveSchedules() ([]models.ScheduledReport, error)
}

// JobRegistry is the live-timer side of the scheduler.
type JobRegistry interface {
	Register(s *models.ScheduledReport) error
	Unregister(scheduleID uint)
	RunNow(scheduleID uint, params map[string]string) (*report.Result, error)
}

// UpdatePatch carries the fields of a schedule update. Nil fields are left
// unchanged.
type UpdatePatch struct {
	Name               *string
	Description        *string
	ScheduleExpression *string
	Recipients         []models.Recipient
	Parameters         map[string]string
	Format             *models.ReportFormat
	DeliveryMethod     *models.DeliveryMethod
	IsActive           *bool
	TemplateID         *uint
}

// Manager owns the lifecycle of schedule definitions, keeping the persisted
// rows and the registry's live timers in lockstep.
type Manager struct {
	store    Store
	calc     *Calculator
	registry JobRegistry
}

func NewManager(store Store, calc *Calculator, registry JobRegistry) *Manager {
	return &Manager{store: store, calc: calc, registry: registry}
}

// Create validates the cron expression, computes the first firing time,
// persists the schedule and registers its timer if active.
func (m *Manager) Create(sr *models.ScheduledReport) error {
	next, err := m.calc.Next(sr.ScheduleExpression, time.Now())
	if err != nil {
		return err
	}
	sr.NextRun = &next

	if err := m.store.CreateSchedule(sr); err != nil {
		return err
	}
	if sr.IsActive {
		return m.registry.Register(sr)
	}
	return nil
}

// Update applies a patch to the schedule. The old timer is always dropped
// and a new one registered when the resulting schedule is active, which
// covers expression changes and activation changes in one code path.
func (m *Manager) Update(id uint, patch UpdatePatch) (*models.ScheduledReport, error) {
	sr, err := m.FindOne(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		sr.Name = *patch.Name
	}
	if patch.Description != nil {
		sr.Description = *patch.Description
	}
	if patch.Recipients != nil {
		sr.Recipients = patch.Recipients
	}
	if patch.Parameters != nil {
		sr.Parameters = patch.Parameters
	}
	if patch.Format != nil {
		sr.Format = *patch.Format
	}
	if patch.DeliveryMethod != nil {
		sr.DeliveryMethod = *patch.DeliveryMethod
	}
	if patch.TemplateID != nil {
		sr.TemplateID = *patch.TemplateID
	}
	if patch.IsActive != nil {
		sr.IsActive = *patch.IsActive
	}
	if patch.ScheduleExpression != nil && *patch.ScheduleExpression != sr.ScheduleExpression {
		next, err := m.calc.Next(*patch.ScheduleExpression, time.Now())
		if err != nil {
			return nil, err
		}
		sr.ScheduleExpression = *patch.ScheduleExpression
		sr.NextRun = &next
	}

	if err := m.store.UpdateSchedule(sr); err != nil {
		return nil, err
	}

	m.registry.Unregister(sr.ID)
	if sr.IsActive {
		if err := m.registry.Register(sr); err != nil {
			return nil, err
		}
	}
	return sr, nil
}

// ToggleActive flips the schedule's active flag. Activation recomputes the
// next firing time from now so a long-dormant schedule does not fire for
// every tick it missed.
func (m *Manager) ToggleActive(id uint) (*models.ScheduledReport, error) {
	sr, err := m.FindOne(id)
	if err != nil {
		return nil, err
	}

	sr.IsActive = !sr.IsActive
	if sr.IsActive {
		next, err := m.calc.Next(sr.ScheduleExpression, time.Now())
		if err != nil {
			return nil, err
		}
		sr.NextRun = &next
	}
	if err := m.store.UpdateSchedule(sr); err != nil {
		return nil, err
	}

	if sr.IsActive {
		if err := m.registry.Register(sr); err != nil {
			return nil, err
		}
	} else {
		m.registry.Unregister(sr.ID)
	}
	return sr, nil
}

// Remove unregisters the timer before deleting the row so no firing can
// land on a schedule that no longer exists.
func (m *Manager) Remove(id uint) error {
	if _, err := m.FindOne(id); err != nil {
		return err
	}
	m.registry.Unregister(id)
	return m.store.DeleteSchedule(id)
}

func (m *Manager) FindOne(id uint) (*models.ScheduledReport, error) {
	sr, err := m.store.GetSchedule(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, report.ErrScheduleNotFound
		}
		return nil, err
	}
	return sr, nil
}

func (m *Manager) FindAll(filter store.ScheduleFilter) ([]models.ScheduledReport, error) {
	return m.store.ListSchedules(filter)
}

// ExecuteNow runs the schedule immediately and returns the outcome, subject
// to the overlap guard and per-execution timeout. Params, when given,
// replace the schedule's stored parameters for this run only.
func (m *Manager) ExecuteNow(id uint, params map[string]string) (*report.Result, error) {
	if _, err := m.FindOne(id); err != nil {
		return nil, err
	}
	return m.registry.RunNow(id, params)
}

// ReconcileAtStartup registers every active schedule and recomputes its next
// firing from now. Ticks missed while the process was down are skipped, not
// replayed.
func (m *Manager) ReconcileAtStartup() error {
	schedules, err := m.store.ListActiveSchedules()
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range schedules {
		sr := &schedules[i]
		next, err := m.calc.Next(sr.ScheduleExpression, now)
		if err != nil {
			log.Printf("Skipping schedule %d (%s): %v", sr.ID, sr.Name, err)
			continue
		}
		sr.NextRun = &next
		if err := m.store.UpdateSchedule(sr); err != nil {
			log.Printf("Failed to update next run of schedule %d: %v", sr.ID, err)
		}
		if err := m.registry.Register(sr); err != nil {
			log.Printf("Failed to register schedule %d (%s): %v", sr.ID, sr.Name, err)
		}
	}
	log.Printf("Reconciled %d active schedules", len(schedules))
	return nil
}
