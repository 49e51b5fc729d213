package engine

import (
	"fmt"

	"github.com/lightflow/lightflow/pkg/params"
)

// Job is an ordered sequence of tasks sharing a namespace. Consecutive
// tasks of a job are implicitly ordered: task i always runs before task
// i+1. The task list is append-only and freezes once the job starts
// running.
//
// A job's state is derived from its tasks' states on every read; it is
// never stored.
type Job struct {
	name   string
	tasks  []*Task
	params params.Values
}

// NewJob creates a job with no tasks.
func NewJob(name string) *Job {
	return &Job{name: name}
}

// Name returns the job name.
func (j *Job) Name() string {
	return j.name
}

// BindParams validates the supplied values against the declared parameter
// specs and attaches them to the job. It fails with a single error listing
// every missing or invalid parameter.
func (j *Job) BindParams(specs params.Specs, supplied map[string]interface{}) error {
	values, err := params.Bind(specs, supplied)
	if err != nil {
		return fmt.Errorf("job %s: %w", j.name, err)
	}
	j.params = values
	return nil
}

// Params returns the validated parameter values of the job.
func (j *Job) Params() params.Values {
	return j.params
}

// Param returns a single validated parameter value.
func (j *Job) Param(name string) (interface{}, bool) {
	v, ok := j.params[name]
	return v, ok
}

// started reports whether any task of the job has left PENDING.
func (j *Job) started() bool {
	for _, t := range j.tasks {
		if t.state != TaskPending {
			return true
		}
	}
	return false
}

// AddTask appends a task to the job and takes ownership of it. Appending
// is rejected once the job started running, and a task can belong to only
// one job.
func (j *Job) AddTask(t *Task) error {
	if j.started() {
		return NewContractError("tasks can only be added before the job starts running", nil).
			WithCode(ErrCodeJobLocked).
			WithJob(j.name)
	}
	if t.job != nil && t.job != j {
		return NewContractError(
			fmt.Sprintf("task %s already belongs to job %s", t.name, t.job.name), nil).
			WithCode(ErrCodeDuplicateTask).
			WithJob(j.name).
			WithTask(t.name)
	}
	for _, existing := range j.tasks {
		if existing.name == t.name {
			return NewContractError(
				fmt.Sprintf("task name %s is already used in this job", t.name), nil).
				WithCode(ErrCodeDuplicateTask).
				WithJob(j.name).
				WithTask(t.name)
		}
	}
	t.job = j
	j.tasks = append(j.tasks, t)
	return nil
}

// SetTasks replaces the task list. Subject to the same locking rules as
// AddTask.
func (j *Job) SetTasks(tasks ...*Task) error {
	if j.started() {
		return NewContractError("tasks can only be set before the job starts running", nil).
			WithCode(ErrCodeJobLocked).
			WithJob(j.name)
	}
	old := j.tasks
	j.tasks = nil
	for _, t := range tasks {
		if err := j.AddTask(t); err != nil {
			j.tasks = old
			return err
		}
	}
	return nil
}

// Tasks returns a copy of the task list in declaration order.
func (j *Job) Tasks() []*Task {
	out := make([]*Task, len(j.tasks))
	copy(out, j.tasks)
	return out
}

// Task returns the i-th task of the job.
func (j *Job) Task(i int) *Task {
	return j.tasks[i]
}

// Len returns the number of tasks in the job.
func (j *Job) Len() int {
	return len(j.tasks)
}

// SkipAll sets the skip flag on every task of the job.
func (j *Job) SkipAll() {
	for _, t := range j.tasks {
		t.skip = true
	}
}

// State derives the job state from its tasks' states. The checks form a
// priority list evaluated top to bottom, first match wins:
// no tasks or all PENDING; any INPROGRESS; any FAILURE; all SKIPPED;
// any PENDING mixed with completed ones (PAUSED); otherwise SUCCESS.
func (j *Job) State() JobState {
	if len(j.tasks) == 0 {
		return JobPending
	}

	var pending, inprogress, failure, skipped int
	for _, t := range j.tasks {
		switch t.state {
		case TaskPending:
			pending++
		case TaskInProgress:
			inprogress++
		case TaskFailure:
			failure++
		case TaskSkipped:
			skipped++
		}
	}

	switch {
	case pending == len(j.tasks):
		return JobPending
	case inprogress > 0:
		return JobInProgress
	case failure > 0:
		return JobFailure
	case skipped == len(j.tasks):
		return JobSkipped
	case pending > 0:
		return JobPaused
	default:
		return JobSuccess
	}
}
