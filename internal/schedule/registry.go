package schedule

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/oncoregistry/internal/models"
	"github.com/oncoregistry/internal/report"
	"github.com/robfig/cron/v3"
)

// Executor runs one firing of a schedule end to end.
type Executor interface {
	Execute(ctx context.Context, scheduleID uint, firingTime time.Time, params map[string]string) (*report.Result, error)
}

const queueSize = 64

type request struct {
	scheduleID uint
	firingTime time.Time
}

// Registry owns the live cron entries for all active schedules. Each firing
// is pushed onto a bounded queue consumed by a worker pool; a per-schedule
// in-flight flag guarantees at most one running execution per schedule, and
// overlapping firings are dropped rather than queued.
type Registry struct {
	runner   *cron.Cron
	executor Executor
	workers  int
	timeout  time.Duration

	mu       sync.Mutex
	entries  map[uint]cron.EntryID
	inflight map[uint]bool

	requests chan request
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewRegistry(executor Executor, workers int, timeout time.Duration) *Registry {
	if workers <= 0 {
		workers = 2
	}
	return &Registry{
		runner:   cron.New(cron.WithParser(cron.NewParser(parserOptions))),
		executor: executor,
		workers:  workers,
		timeout:  timeout,
		entries:  make(map[uint]cron.EntryID),
		inflight: make(map[uint]bool),
		requests: make(chan request, queueSize),
		stop:     make(chan struct{}),
	}
}

// Start launches the cron runner and the worker pool.
func (r *Registry) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	r.runner.Start()
	log.Printf("Schedule registry started with %d workers", r.workers)
}

// Stop halts future firings and waits for the workers to drain. In-flight
// executions run to completion under their own timeout.
func (r *Registry) Stop() {
	r.runner.Stop()
	close(r.stop)
	r.wg.Wait()
	log.Println("Schedule registry stopped")
}

// Register adds a cron entry for the schedule. Registering an already
// registered schedule is a logged no-op.
func (r *Registry) Register(s *models.ScheduledReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[s.ID]; exists {
		log.Printf("Schedule %d (%s) already registered, skipping", s.ID, s.Name)
		return nil
	}

	id := s.ID
	entryID, err := r.runner.AddFunc(s.ScheduleExpression, func() {
		r.fire(id, time.Now())
	})
	if err != nil {
		return err
	}
	r.entries[s.ID] = entryID
	log.Printf("Registered schedule %d (%s): %s", s.ID, s.Name, s.ScheduleExpression)
	return nil
}

// Unregister removes the schedule's cron entry. Unknown IDs are a no-op so
// callers can unregister unconditionally before updates and deletes.
func (r *Registry) Unregister(scheduleID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entryID, exists := r.entries[scheduleID]
	if !exists {
		return
	}
	r.runner.Remove(entryID)
	delete(r.entries, scheduleID)
	log.Printf("Unregistered schedule %d", scheduleID)
}

// Registered reports whether the schedule currently has a live cron entry.
func (r *Registry) Registered(scheduleID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.entries[scheduleID]
	return exists
}

// RunNow executes the schedule on the caller's goroutine and returns the
// outcome. The run is subject to the same overlap guard and per-execution
// timeout as cron firings.
func (r *Registry) RunNow(scheduleID uint, params map[string]string) (*report.Result, error) {
	if !r.tryAcquire(scheduleID) {
		return nil, ErrExecutionInFlight
	}
	defer r.release(scheduleID)

	ctx, cancel := r.runContext()
	defer cancel()
	return r.executor.Execute(ctx, scheduleID, time.Now(), params)
}

func (r *Registry) runContext() (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(context.Background(), r.timeout)
	}
	return context.WithCancel(context.Background())
}

// fire is the cron callback: acquire the per-schedule guard and enqueue. A
// firing that overlaps a running execution is dropped, not queued.
func (r *Registry) fire(scheduleID uint, firingTime time.Time) {
	if !r.tryAcquire(scheduleID) {
		log.Printf("Schedule %d fired while an execution is in flight, dropping", scheduleID)
		return
	}
	select {
	case r.requests <- request{scheduleID: scheduleID, firingTime: firingTime}:
	default:
		r.release(scheduleID)
		log.Printf("Execution queue full, dropping firing of schedule %d", scheduleID)
	}
}

func (r *Registry) tryAcquire(scheduleID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[scheduleID] {
		return false
	}
	r.inflight[scheduleID] = true
	return true
}

func (r *Registry) release(scheduleID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, scheduleID)
}

func (r *Registry) worker() {
	defer r.wg.Done()
	for {
		select {
		case req := <-r.requests:
			r.execute(req)
		case <-r.stop:
			return
		}
	}
}

func (r *Registry) execute(req request) {
	defer r.release(req.scheduleID)

	ctx, cancel := r.runContext()
	defer cancel()

	result, err := r.executor.Execute(ctx, req.scheduleID, req.firingTime, nil)
	if err != nil {
		log.Printf("Execution of schedule %d failed: %v", req.scheduleID, err)
		return
	}
	if result.Success {
		log.Printf("Schedule %d completed in %.2fs: %s", req.scheduleID, result.Duration, result.FilePath)
	} else {
		log.Printf("Schedule %d failed in %.2fs: %s", req.scheduleID, result.Duration, result.ErrorMessage)
	}
}
