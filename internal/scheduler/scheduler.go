package scheduler

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dashboard/internal/kv"
	"dashboard/internal/types"
)

const (
	keyPrefix = "scheduler:task:"

	defaultBusyRetryDelay = time.Second
	defaultRunTimeout     = 30 * time.Second
	storeTimeout          = 5 * time.Second
	loadConcurrency       = 8
)

// Timer is the handle returned by AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

// Recorder receives task execution outcomes.
type Recorder interface {
	ObserveTaskRun(taskType string, success bool, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTaskRun(string, bool, time.Duration) {}

type entry struct {
	task  Task
	sched Schedule
	timer Timer
}

// Scheduler owns the in-memory timers of every registered task. A single
// process-wide guard prevents two tasks from running at the same time; a
// task that fires while another runs is retried after the busy delay.
type Scheduler struct {
	store     kv.Store
	logger    *slog.Logger
	handlers  map[TaskType]Handler
	loc       *time.Location
	now       func() time.Time
	afterFunc AfterFunc
	recorder  Recorder

	busyRetry  time.Duration
	runTimeout time.Duration

	mu      sync.Mutex
	tasks   map[string]*entry
	stopped bool
	busy    atomic.Bool
	wg      sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLocation sets the zone cron expressions are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

// WithAfterFunc replaces time.AfterFunc, letting tests fire timers by hand.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Scheduler) { s.afterFunc = fn }
}

// WithBusyRetryDelay sets how long a task that fired while another was
// running waits before trying again.
func WithBusyRetryDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.busyRetry = d }
}

// WithRunTimeout bounds a single task execution.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.runTimeout = d }
}

// WithRecorder reports task outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// New creates a Scheduler. handlers maps each accepted task type to the code
// that runs it.
func New(store kv.Store, handlers map[TaskType]Handler, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		store:      store,
		logger:     logger.With("component", "scheduler"),
		handlers:   handlers,
		loc:        time.UTC,
		now:        time.Now,
		afterFunc:  func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		recorder:   nopRecorder{},
		busyRetry:  defaultBusyRetryDelay,
		runTimeout: defaultRunTimeout,
		tasks:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

func taskKey(id string) string { return keyPrefix + id }

// Schedule validates req, persists the new task and arms its timer.
func (s *Scheduler) Schedule(ctx context.Context, req ScheduleRequest) (Task, error) {
	h, ok := s.handlers[req.TaskType]
	if !ok {
		return Task{}, types.NewAppErrorWithDetails(types.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown task type %q", req.TaskType), nil,
			map[string]any{"supportedTaskTypes": s.TaskTypes()})
	}
	if h.Validate != nil {
		if err := h.Validate(req.Payload); err != nil {
			return Task{}, types.NewAppError(types.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid %s payload: %v", req.TaskType, err), err)
		}
	}
	sched, err := ParseExpression(req.ScheduleExpression)
	if err != nil {
		return Task{}, types.NewAppError(types.ErrCodeInvalidRequest, err.Error(), err)
	}

	now := s.now()
	next, ok := sched.Next(now.In(s.loc))
	if !ok {
		return Task{}, types.NewAppError(types.ErrCodeInvalidRequest,
			"schedule expression has no future run time", nil)
	}

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return Task{}, types.NewAppError(types.ErrCodeInvalidRequest, "scheduler is not running", nil)
	}

	task := Task{
		EventID:            uuid.NewString(),
		TaskType:           req.TaskType,
		ScheduleExpression: strings.TrimSpace(req.ScheduleExpression),
		Payload:            req.Payload,
		IsRecurring:        sched.Recurring(),
		NextRunAt:          types.FormatISO(next),
		CreatedAt:          types.FormatISO(now),
	}
	if err := s.persist(ctx, task); err != nil {
		return Task{}, types.NewAppError(types.ErrCodeInternal, "failed to store scheduled task", err)
	}

	s.mu.Lock()
	e := &entry{task: task, sched: sched}
	s.tasks[task.EventID] = e
	s.arm(e, next.Sub(now))
	s.mu.Unlock()

	types.LoggerFromContext(ctx, s.logger).Info("Task scheduled",
		"event_id", task.EventID,
		"task_type", task.TaskType,
		"next_run_at", task.NextRunAt,
	)
	return task, nil
}

// Cancel stops the task's timer and deletes its record.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	e, inMemory := s.tasks[id]
	if inMemory {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	n, err := s.store.Del(ctx, taskKey(id))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternal, "failed to delete scheduled task", err)
	}
	if !inMemory && n == 0 {
		return types.NewAppError(types.ErrCodeNotFound, fmt.Sprintf("scheduled task %q not found", id), nil)
	}

	types.LoggerFromContext(ctx, s.logger).Info("Task cancelled", "event_id", id)
	return nil
}

// Get returns one task.
func (s *Scheduler) Get(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		return Task{}, types.NewAppError(types.ErrCodeNotFound, fmt.Sprintf("scheduled task %q not found", id), nil)
	}
	return e.task, nil
}

// List returns every task ordered by next run time.
func (s *Scheduler) List() []Task {
	s.mu.Lock()
	out := make([]Task, 0, len(s.tasks))
	for _, e := range s.tasks {
		out = append(out, e.task)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Task) int {
		return cmp.Or(cmp.Compare(a.NextRunAt, b.NextRunAt), cmp.Compare(a.EventID, b.EventID))
	})
	return out
}

// Status summarizes the registry.
func (s *Scheduler) Status() Status {
	tasks := s.List()

	s.mu.Lock()
	running := !s.stopped
	s.mu.Unlock()

	st := Status{
		Running:    running,
		Busy:       s.busy.Load(),
		TaskCount:  len(tasks),
		ServerTime: types.FormatISO(s.now()),
	}
	if len(tasks) > 0 {
		st.NextEventID = tasks[0].EventID
		next := tasks[0].NextRunAt
		st.NextRunAt = &next
	}
	return st
}

// TaskTypes lists the registered task types in sorted order.
func (s *Scheduler) TaskTypes() []string {
	out := make([]string, 0, len(s.handlers))
	for t := range s.handlers {
		out = append(out, string(t))
	}
	slices.Sort(out)
	return out
}

// Load rebuilds timers from persisted tasks. Tasks already due run right
// away; recurring ones are then re-armed from the current time. Records that
// cannot be decoded, or whose task type or expression is no longer accepted,
// are skipped with a warning. It returns the number of tasks armed.
func (s *Scheduler) Load(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("listing scheduled tasks: %w", err)
	}

	raws := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			raw, ok, err := s.store.Get(gctx, key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", key, err)
			}
			if ok {
				raws[i] = raw
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	now := s.now()
	loaded := 0
	for i, raw := range raws {
		if raw == "" {
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil || task.EventID == "" {
			s.logger.Warn("Skipping undecodable scheduled task", "key", keys[i], "error", err)
			continue
		}
		if _, ok := s.handlers[task.TaskType]; !ok {
			s.logger.Warn("Skipping task with unknown type", "event_id", task.EventID, "task_type", task.TaskType)
			continue
		}
		sched, err := ParseExpression(task.ScheduleExpression)
		if err != nil {
			s.logger.Warn("Skipping task with invalid expression", "event_id", task.EventID, "error", err)
			continue
		}

		var delay time.Duration
		if next, err := types.ParseISO(task.NextRunAt); err == nil {
			delay = max(next.Sub(now), 0)
		} else if next, ok := sched.Next(now.In(s.loc)); ok {
			task.NextRunAt = types.FormatISO(next)
			delay = next.Sub(now)
		} else {
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			break
		}
		if old, exists := s.tasks[task.EventID]; exists && old.timer != nil {
			old.timer.Stop()
		}
		e := &entry{task: task, sched: sched}
		s.tasks[task.EventID] = e
		s.arm(e, delay)
		s.mu.Unlock()
		loaded++
	}

	s.logger.Info("Scheduled tasks loaded", "count", loaded, "records", len(keys))
	return loaded, nil
}

// Stop cancels every timer and waits for a running task to return. Records
// stay persisted for the next Load.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, e := range s.tasks {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// arm must be called with s.mu held.
func (s *Scheduler) arm(e *entry, delay time.Duration) {
	id := e.task.EventID
	e.timer = s.afterFunc(delay, func() { s.fire(id) })
}

func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	e, ok := s.tasks[id]
	if !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Debug("Another task is running, deferring", "event_id", id, "retry_in", s.busyRetry)
		s.arm(e, s.busyRetry)
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	task := e.task
	s.mu.Unlock()

	defer s.wg.Done()
	defer s.busy.Store(false)

	runErr := s.execute(task)
	s.afterRun(id, runErr)
}

func (s *Scheduler) execute(task Task) (err error) {
	logger := s.logger.With("event_id", task.EventID, "task_type", task.TaskType)
	ctx, cancel := context.WithTimeout(types.WithLogger(s.baseCtx, logger), s.runTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	start := time.Now()
	err = s.handlers[task.TaskType].Run(ctx, task.Payload)
	elapsed := time.Since(start)
	s.recorder.ObserveTaskRun(string(task.TaskType), err == nil, elapsed)

	if err != nil {
		logger.Warn("Task failed", "error", err, "duration_ms", elapsed.Milliseconds())
	} else {
		logger.Info("Task completed", "duration_ms", elapsed.Milliseconds())
	}
	return err
}

// afterRun re-arms a recurring task from the current time, or removes it when
// it was a one-shot or has no further run.
func (s *Scheduler) afterRun(id string, runErr error) {
	now := s.now()

	s.mu.Lock()
	e, ok := s.tasks[id]
	if !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	ranAt := types.FormatISO(now)
	e.task.LastRunAt = &ranAt
	e.task.RunCount++
	e.task.LastError = ""
	if runErr != nil {
		e.task.LastError = runErr.Error()
	}

	var next time.Time
	rearm := e.task.IsRecurring
	if rearm {
		next, rearm = e.sched.Next(now.In(s.loc))
	}
	if !rearm {
		delete(s.tasks, id)
		s.mu.Unlock()
		s.remove(id)
		return
	}
	e.task.NextRunAt = types.FormatISO(next)
	s.arm(e, next.Sub(now))
	task := e.task
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.baseCtx, storeTimeout)
	defer cancel()
	if err := s.persist(ctx, task); err != nil {
		s.logger.Warn("Failed to persist re-armed task", "event_id", id, "error", err)
	}
}

func (s *Scheduler) remove(id string) {
	ctx, cancel := context.WithTimeout(s.baseCtx, storeTimeout)
	defer cancel()
	if _, err := s.store.Del(ctx, taskKey(id)); err != nil {
		s.logger.Warn("Failed to delete finished task", "event_id", id, "error", err)
		return
	}
	s.logger.Info("Task finished and removed", "event_id", id)
}

func (s *Scheduler) persist(ctx context.Context, task Task) error {
	b, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, taskKey(task.EventID), string(b), 0)
}
