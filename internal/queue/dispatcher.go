// Package queue decouples job submission from execution. A fixed-size
// worker pool consumes submitted jobs and runs them through the executor;
// callers poll task handles for asynchronous status.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/morphcv/cvgen/internal/executor"
	"github.com/morphcv/cvgen/internal/types"
)

// TaskState enumerates the dispatch-side view of a task.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	// TaskUnknown is returned for handles this dispatcher has never seen,
	// such as handles from a previous process.
	TaskUnknown TaskState = "unknown"
)

// TaskStatus is one point-in-time observation of a task.
type TaskStatus struct {
	State    TaskState
	Progress int
	Message  string
	Error    string
}

// Runner executes one claimed job. Implemented by executor.Executor.
type Runner interface {
	Execute(ctx context.Context, jobID int64, mode executor.Mode, report executor.Reporter) error
}

// JobClaimer performs the conditional Pending to Processing transition.
type JobClaimer interface {
	ClaimJob(ctx context.Context, id int64, expected types.JobStatus, taskID string) (bool, error)
}

// ErrQueueFull is returned when the submission buffer is at capacity.
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned for submissions after Stop.
var ErrStopped = errors.New("dispatcher is stopped")

// defaultTerminalRetention caps how many finished task entries the
// registry keeps. Evicted handles answer StatusOf as TaskUnknown; the job
// record remains the durable source of truth.
const defaultTerminalRetention = 1024

type task struct {
	handle uuid.UUID
	jobID  int64
	mode   executor.Mode
}

// Dispatcher owns the worker pool and the task registry. The submission
// path never blocks on execution.
type Dispatcher struct {
	runner  Runner
	claimer JobClaimer
	log     zerolog.Logger

	queue  chan task
	stopCh chan struct{}
	group  *errgroup.Group

	mu          sync.RWMutex
	tasks       map[uuid.UUID]*TaskStatus
	terminal    []uuid.UUID
	maxTerminal int
	stopped     bool
}

// New builds a Dispatcher with the given pool size and starts its workers.
func New(runner Runner, claimer JobClaimer, workers int, log zerolog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	d := &Dispatcher{
		runner:      runner,
		claimer:     claimer,
		log:         log.With().Str("component", "queue").Logger(),
		queue:       make(chan task, 256),
		stopCh:      make(chan struct{}),
		tasks:       make(map[uuid.UUID]*TaskStatus),
		maxTerminal: defaultTerminalRetention,
		group:       &errgroup.Group{},
	}
	for i := 0; i < workers; i++ {
		d.group.Go(d.workerLoop)
	}
	d.log.Info().Int("workers", workers).Msg("dispatcher started")
	return d
}

// Submit enqueues a job for execution and returns its task handle. The
// caller stores the handle on the job record for cross-referencing.
func (d *Dispatcher) Submit(jobID int64, mode executor.Mode) (uuid.UUID, error) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return uuid.Nil, ErrStopped
	}
	handle := uuid.New()
	d.tasks[handle] = &TaskStatus{State: TaskPending, Message: "queued"}
	d.mu.Unlock()

	select {
	case d.queue <- task{handle: handle, jobID: jobID, mode: mode}:
		return handle, nil
	default:
		d.setStatus(handle, TaskStatus{State: TaskFailed, Error: ErrQueueFull.Error()})
		return uuid.Nil, ErrQueueFull
	}
}

// StatusOf reports the current state of a task handle. Handles the
// dispatcher has never seen come back as TaskUnknown.
func (d *Dispatcher) StatusOf(handle uuid.UUID) TaskStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if st, ok := d.tasks[handle]; ok {
		return *st
	}
	return TaskStatus{State: TaskUnknown}
}

// Stop signals workers to finish their current job and waits for them.
// Queued but unstarted tasks stay Pending on the dispatch side; their job
// records remain Pending in the store for a later worker process.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.stopCh)
	_ = d.group.Wait()
	d.log.Info().Msg("dispatcher stopped")
}

func (d *Dispatcher) workerLoop() error {
	for {
		select {
		case <-d.stopCh:
			return nil
		case t := <-d.queue:
			d.runTask(t)
		}
	}
}

func (d *Dispatcher) runTask(t task) {
	ctx := context.Background()

	claimed, err := d.claimer.ClaimJob(ctx, t.jobID, types.StatusPending, t.handle.String())
	if err != nil {
		d.setStatus(t.handle, TaskStatus{State: TaskFailed, Error: err.Error()})
		d.log.Error().Err(err).Int64("job_id", t.jobID).Msg("failed to claim job")
		return
	}
	if !claimed {
		d.setStatus(t.handle, TaskStatus{State: TaskFailed, Error: "job is not pending"})
		d.log.Warn().Int64("job_id", t.jobID).Msg("job not claimable, skipping")
		return
	}

	d.setStatus(t.handle, TaskStatus{State: TaskRunning, Message: "starting"})
	report := func(progress int, message string) {
		d.setStatus(t.handle, TaskStatus{State: TaskRunning, Progress: progress, Message: message})
	}

	if err := d.runner.Execute(ctx, t.jobID, t.mode, report); err != nil {
		d.setStatus(t.handle, TaskStatus{State: TaskFailed, Progress: 100, Error: err.Error()})
		return
	}
	d.setStatus(t.handle, TaskStatus{State: TaskSucceeded, Progress: 100, Message: "done"})
}

func (d *Dispatcher) setStatus(handle uuid.UUID, st TaskStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks[handle] = &st

	// Finished entries are kept for a while for status polling, then
	// evicted oldest-first so a long-lived process does not accumulate
	// them without bound.
	if st.State == TaskSucceeded || st.State == TaskFailed {
		d.terminal = append(d.terminal, handle)
		for len(d.terminal) > d.maxTerminal {
			delete(d.tasks, d.terminal[0])
			d.terminal = d.terminal[1:]
		}
	}
}

// String implements fmt.Stringer for log-friendly task status output.
func (s TaskStatus) String() string {
	if s.Error != "" {
		return fmt.Sprintf("%s (%s)", s.State, s.Error)
	}
	if s.Message != "" {
		return fmt.Sprintf("%s %d%% (%s)", s.State, s.Progress, s.Message)
	}
	return string(s.State)
}
