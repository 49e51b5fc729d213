package engine

import (
	"fmt"
	"runtime/debug"
)

// TaskFunc is the signature of a task callable. The same run context is
// passed to setup, callback and teardown; an error return fails the task.
type TaskFunc func(*RunContext) error

// TaskPhase names the lifecycle phase a callable runs in.
type TaskPhase string

const (
	PhaseSetup    TaskPhase = "setup"
	PhaseCallback TaskPhase = "callback"
	PhaseTeardown TaskPhase = "teardown"
)

// TeardownPolicy decides what happens to errors raised by teardown.
type TeardownPolicy string

const (
	// TeardownRecord fails the task on a teardown error when nothing
	// failed earlier; when setup or callback already failed, the earlier
	// error wins and the teardown error is appended to its trace.
	TeardownRecord TeardownPolicy = "record"

	// TeardownSuppress ignores teardown errors entirely; only setup and
	// callback failures are captured.
	TeardownSuppress TeardownPolicy = "suppress"
)

// TaskError is the structured description of a captured task failure.
type TaskError struct {
	// Phase is the lifecycle phase the failure was raised in.
	Phase TaskPhase `json:"phase"`

	// Kind is the dynamic type of the raised error, or "panic".
	Kind string `json:"kind"`

	// Message is the error or panic message.
	Message string `json:"message"`

	// Stack is the rendered call stack at the point of capture.
	Stack string `json:"stack"`
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Phase, e.Kind, e.Message)
}

// Trace returns the full captured description including the call stack.
func (e *TaskError) Trace() string {
	return fmt.Sprintf("%s: %s: %s\n%s", e.Phase, e.Kind, e.Message, e.Stack)
}

// Task is the atomic executable unit. It carries an optional setup and
// teardown around its callback, a skip flag that may be flipped any time
// before the task runs, and a state machine enforcing that a task executes
// at most once.
//
// Task names must be unique within their owning job. The execution graph
// identifies tasks by object identity, so duplicate names across jobs are
// tolerated.
type Task struct {
	name     string
	job      *Job
	callback TaskFunc
	setup    TaskFunc
	teardown TaskFunc
	skip     bool
	state    TaskState
	err      *TaskError
}

// NewTask creates a pending task with the given callback.
func NewTask(name string, callback TaskFunc) *Task {
	return &Task{
		name:     name,
		callback: callback,
		state:    TaskPending,
	}
}

// WithSetup attaches a setup callable. If setup fails, the callback is
// never invoked.
func (t *Task) WithSetup(fn TaskFunc) *Task {
	t.setup = fn
	return t
}

// WithTeardown attaches a teardown callable. Teardown runs on every exit
// path, including after a setup or callback failure.
func (t *Task) WithTeardown(fn TaskFunc) *Task {
	t.teardown = fn
	return t
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// Job returns the job owning this task, or nil before the task is added
// to one.
func (t *Task) Job() *Job {
	return t.job
}

// QualifiedName returns "job/task", or just the task name for an unowned
// task.
func (t *Task) QualifiedName() string {
	if t.job == nil {
		return t.name
	}
	return t.job.Name() + "/" + t.name
}

// State returns the current task state.
func (t *Task) State() TaskState {
	return t.state
}

// Err returns the captured failure, or nil.
func (t *Task) Err() *TaskError {
	return t.err
}

// Skip returns the skip flag.
func (t *Task) Skip() bool {
	return t.skip
}

// SetSkip sets the skip flag. It may be changed any time before the task
// runs; a skipped task transitions straight to SKIPPED without invoking
// any callable.
func (t *Task) SetSkip(skip bool) {
	t.skip = skip
}

// IsPending returns true while the task has not started.
func (t *Task) IsPending() bool {
	return t.state == TaskPending
}

// IsCompleted returns true once the task reached a terminal state.
func (t *Task) IsCompleted() bool {
	return t.state.IsTerminal()
}

// transition moves the task to the given state. An illegal move per the
// state machine is a contract violation and leaves the state untouched.
func (t *Task) transition(to TaskState) error {
	if !canTransition(t.state, to) {
		return NewContractError(
			fmt.Sprintf("illegal task state transition: %s -> %s", t.state, to), nil).
			WithCode(ErrCodeNotPending).
			WithTask(t.name)
	}
	t.state = to
	return nil
}

// run executes the task lifecycle against the given context.
//
// Only a PENDING task may run; anything else is a contract violation and
// returns an error without touching the provenance history. Task failures
// are not returned: they are captured on the task and reflected in its
// state. In every executed case (skipped, failed or succeeded) the task's
// name is appended to the shared data's history exactly once, after the
// lifecycle completes.
func (t *Task) run(rc *RunContext, policy TeardownPolicy) error {
	if t.skip {
		if err := t.transition(TaskSkipped); err != nil {
			return err
		}
		rc.Data.appendHistory(t.name)
		return nil
	}

	if err := t.transition(TaskInProgress); err != nil {
		return err
	}

	// Panics in any phase are recovered by invokePhase, so teardown is
	// reached on every exit path.
	primary := invokePhase(PhaseSetup, t.setup, rc)
	if primary == nil {
		primary = invokePhase(PhaseCallback, t.callback, rc)
	}
	tdErr := invokePhase(PhaseTeardown, t.teardown, rc)

	if tdErr != nil && policy != TeardownSuppress {
		if primary == nil {
			primary = tdErr
		} else {
			primary.Stack += "\nteardown also failed: " + tdErr.Trace()
		}
	}

	final := TaskSuccess
	if primary != nil {
		t.err = primary
		final = TaskFailure
	}
	if err := t.transition(final); err != nil {
		return err
	}

	rc.Data.appendHistory(t.name)
	return nil
}

// invokePhase runs a single lifecycle callable, converting an error return
// or a panic into a TaskError. A nil callable is a no-op.
func invokePhase(phase TaskPhase, fn TaskFunc, rc *RunContext) (terr *TaskError) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			terr = &TaskError{
				Phase:   phase,
				Kind:    "panic",
				Message: fmt.Sprint(r),
				Stack:   string(debug.Stack()),
			}
		}
	}()
	if err := fn(rc); err != nil {
		return &TaskError{
			Phase:   phase,
			Kind:    fmt.Sprintf("%T", err),
			Message: err.Error(),
			Stack:   string(debug.Stack()),
		}
	}
	return nil
}
