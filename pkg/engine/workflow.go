package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lightflow/lightflow/pkg/telemetry"
)

// WorkflowOption configures a workflow at construction time.
type WorkflowOption func(*Workflow)

// WithLogger injects a structured logger. The default discards everything.
func WithLogger(log *telemetry.Logger) WorkflowOption {
	return func(w *Workflow) {
		w.log = log
	}
}

// WithMetrics injects a metrics collector. The default records nothing.
func WithMetrics(m *telemetry.Metrics) WorkflowOption {
	return func(w *Workflow) {
		w.metrics = m
	}
}

// WithEvents injects an event publisher. The default publishes nothing.
func WithEvents(ep *telemetry.EventPublisher) WorkflowOption {
	return func(w *Workflow) {
		w.events = ep
	}
}

// WithEnvironment injects the environment record the run reports through.
// The default is the process-wide environment.
func WithEnvironment(env *telemetry.Environment) WorkflowOption {
	return func(w *Workflow) {
		w.env = env
	}
}

// WithTeardownPolicy selects how teardown errors are handled. The default
// is TeardownRecord.
func WithTeardownPolicy(policy TeardownPolicy) WorkflowOption {
	return func(w *Workflow) {
		w.policy = policy
	}
}

// Workflow is the root execution unit: a set of jobs plus an explicit
// dependency map across them. Running a workflow builds the merged
// execution graph, derives the deterministic order and executes every
// task sequentially, aborting on the first failure.
//
// A workflow runs at most once. Workflows are not safe for concurrent
// use; a run owns the workflow and everything reachable from it.
type Workflow struct {
	name  string
	jobs  []*Job
	deps  Dependencies
	state WorkflowState

	runID  string
	data   *TaskData
	policy TeardownPolicy

	log     *telemetry.Logger
	metrics *telemetry.Metrics
	events  *telemetry.EventPublisher
	env     *telemetry.Environment
}

// NewWorkflow creates a pending workflow with no jobs.
func NewWorkflow(name string, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		name:   name,
		deps:   make(Dependencies),
		state:  WorkflowPending,
		policy: TeardownRecord,
		log:    telemetry.NewNopLogger(),
		env:    telemetry.DefaultEnvironment(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the workflow name.
func (w *Workflow) Name() string {
	return w.name
}

// State returns the current workflow state.
func (w *Workflow) State() WorkflowState {
	return w.state
}

// RunID returns the unique identifier of the run, or "" before Run is
// called.
func (w *Workflow) RunID() string {
	return w.runID
}

// Data returns the shared payload of the run, or nil before Run is called.
func (w *Workflow) Data() *TaskData {
	return w.data
}

// Jobs returns a copy of the job list in declaration order.
func (w *Workflow) Jobs() []*Job {
	out := make([]*Job, len(w.jobs))
	copy(out, w.jobs)
	return out
}

// Job returns the named job, or nil.
func (w *Workflow) Job(name string) *Job {
	for _, j := range w.jobs {
		if j.name == name {
			return j
		}
	}
	return nil
}

// AddJob appends jobs to the workflow. Declaration order matters: it is
// the tie-break for scheduling. Jobs can only be added while the workflow
// is pending.
func (w *Workflow) AddJob(jobs ...*Job) error {
	if w.state != WorkflowPending {
		return NewContractError("jobs can only be added to a pending workflow", nil).
			WithCode(ErrCodeNotPending)
	}
	w.jobs = append(w.jobs, jobs...)
	return nil
}

// AddDependency declares that every task in prereqs must complete before
// dependent may run. Referenced tasks are validated when the graph is
// built, not here.
func (w *Workflow) AddDependency(dependent *Task, prereqs ...*Task) {
	w.deps[dependent] = append(w.deps[dependent], prereqs...)
}

// SetDependencies replaces the entire dependency map.
func (w *Workflow) SetDependencies(deps Dependencies) {
	if deps == nil {
		deps = make(Dependencies)
	}
	w.deps = deps
}

// BuildGraph merges the implicit job edges with the explicit dependency
// map and returns the validated execution graph.
func (w *Workflow) BuildGraph() (*Graph, error) {
	return NewGraphBuilder(w.jobs, w.deps).Build()
}

// Run executes the workflow to completion.
//
// Only a pending workflow can run; a second call is a contract violation.
// A definition error (no jobs, empty job, unknown dependency, cycle) is
// returned and marks the workflow failed without executing anything.
//
// Task failures are not returned as errors: the run aborts immediately,
// the failure stays captured on the task, and the workflow state reports
// FAILURE. A nil return therefore means "the run finished"; consult
// State() for the outcome.
func (w *Workflow) Run(ctx context.Context) error {
	if w.state != WorkflowPending {
		return NewContractError(
			fmt.Sprintf("only a pending workflow can run, current state: %s", w.state), nil).
			WithCode(ErrCodeNotPending)
	}

	w.state = WorkflowInProgress

	graph, err := w.BuildGraph()
	if err != nil {
		w.state = WorkflowFailure
		return err
	}

	w.runID = uuid.New().String()
	w.data = NewTaskData()

	order := graph.Order()
	total := len(order)
	start := time.Now()

	log := w.log.WithRunID(w.runID).WithWorkflow(w.name)
	log.Infof("run started with %d tasks", total)

	w.metrics.RunStarted()
	w.events.PublishRunStarted(w.runID, w.name, total)

	rc := NewRunContext(ctx, w.data, w.env)
	rc.WorkflowName = w.name

	for i, t := range order {
		jobName := t.job.Name()
		rc.TaskName = t.name
		rc.JobName = jobName
		w.env.SetCurrent(t.name, jobName, w.name)

		taskStart := time.Now()
		if runErr := t.run(rc, w.policy); runErr != nil {
			// A task refusing to run means the workflow's own
			// bookkeeping is broken; abort hard.
			w.state = WorkflowFailure
			w.metrics.RecordRunCompleted(string(WorkflowFailure), time.Since(start))
			w.events.PublishRunFailed(w.runID, w.name, runErr.Error())
			return runErr
		}
		taskDuration := time.Since(taskStart)

		level := telemetry.LevelInfo
		if t.state == TaskFailure {
			level = telemetry.LevelError
		}
		if emitErr := rc.Emit(
			fmt.Sprintf("[Task %d/%d] %s/%s/%s: %s", i+1, total, w.name, jobName, t.name, t.state),
			level,
		); emitErr != nil {
			log.WithError(emitErr).Warn("failed to write progress")
		}

		w.metrics.RecordTaskExecuted(jobName, string(t.state), taskDuration)
		w.events.PublishTaskFinished(w.runID, w.name, jobName, t.name, string(t.state), i+1, total)

		if t.state == TaskFailure {
			if emitErr := rc.Emit(t.err.Trace(), telemetry.LevelError); emitErr != nil {
				log.WithError(emitErr).Warn("failed to write failure trace")
			}
			log.WithJob(jobName).WithTask(t.name).WithError(t.err).
				Error("task failed, aborting run")

			w.state = WorkflowFailure
			duration := time.Since(start)
			w.metrics.RecordRunCompleted(string(WorkflowFailure), duration)
			w.events.PublishRunFailed(w.runID, w.name, t.err.Error())
			return nil
		}
	}

	w.state = WorkflowSuccess
	duration := time.Since(start)
	w.metrics.RecordRunCompleted(string(WorkflowSuccess), duration)
	w.events.PublishRunCompleted(w.runID, w.name, string(WorkflowSuccess), duration)
	log.Infof("run completed in %s", duration)
	return nil
}
