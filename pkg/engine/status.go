package engine

import (
	"encoding/json"
	"fmt"
)

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	// TaskPending indicates the task has not started yet.
	TaskPending TaskState = "pending"

	// TaskInProgress indicates the task is currently executing.
	TaskInProgress TaskState = "inprogress"

	// TaskSuccess indicates the task completed without error.
	TaskSuccess TaskState = "success"

	// TaskFailure indicates a task callable raised an error.
	TaskFailure TaskState = "failure"

	// TaskSkipped indicates the task was skipped via its skip flag.
	TaskSkipped TaskState = "skipped"
)

// IsTerminal returns true if the task state represents a final state.
func (s TaskState) IsTerminal() bool {
	return s == TaskSuccess || s == TaskFailure || s == TaskSkipped
}

// Validate checks if the task state is valid.
func (s TaskState) Validate() error {
	switch s {
	case TaskPending, TaskInProgress, TaskSuccess, TaskFailure, TaskSkipped:
		return nil
	default:
		return fmt.Errorf("invalid task state: %s", s)
	}
}

// canTransition reports whether the state machine permits from -> to.
// PENDING -> {SKIPPED, INPROGRESS}; INPROGRESS -> {SUCCESS, FAILURE};
// terminal states permit nothing.
func canTransition(from, to TaskState) bool {
	switch from {
	case TaskPending:
		return to == TaskSkipped || to == TaskInProgress
	case TaskInProgress:
		return to == TaskSuccess || to == TaskFailure
	default:
		return false
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s TaskState) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *TaskState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = TaskState(str)
	return s.Validate()
}

// JobState represents the state of a job, derived from its tasks' states.
// It is computed on read and never stored.
type JobState string

const (
	// JobPending indicates no task of the job has started.
	JobPending JobState = "pending"

	// JobInProgress indicates a task of the job is currently executing.
	JobInProgress JobState = "inprogress"

	// JobFailure indicates at least one task of the job failed.
	JobFailure JobState = "failure"

	// JobSkipped indicates every task of the job was skipped.
	JobSkipped JobState = "skipped"

	// JobPaused indicates some tasks completed while others are still
	// pending (an aborted or partially executed run).
	JobPaused JobState = "paused"

	// JobSuccess indicates every task completed, none failed, and not
	// all were skipped.
	JobSuccess JobState = "success"
)

// IsTerminal returns true if the job state represents a final state.
func (s JobState) IsTerminal() bool {
	return s == JobFailure || s == JobSkipped || s == JobSuccess
}

// Validate checks if the job state is valid.
func (s JobState) Validate() error {
	switch s {
	case JobPending, JobInProgress, JobFailure, JobSkipped, JobPaused, JobSuccess:
		return nil
	default:
		return fmt.Errorf("invalid job state: %s", s)
	}
}

// WorkflowState represents the lifecycle state of a workflow run.
type WorkflowState string

const (
	// WorkflowPending indicates the workflow has not run yet.
	WorkflowPending WorkflowState = "pending"

	// WorkflowInProgress indicates Run is executing.
	WorkflowInProgress WorkflowState = "inprogress"

	// WorkflowSuccess indicates every scheduled task completed without
	// a failure.
	WorkflowSuccess WorkflowState = "success"

	// WorkflowFailure indicates a task failed and the run aborted.
	WorkflowFailure WorkflowState = "failure"
)

// IsTerminal returns true if the workflow state represents a final state.
func (s WorkflowState) IsTerminal() bool {
	return s == WorkflowSuccess || s == WorkflowFailure
}

// Validate checks if the workflow state is valid.
func (s WorkflowState) Validate() error {
	switch s {
	case WorkflowPending, WorkflowInProgress, WorkflowSuccess, WorkflowFailure:
		return nil
	default:
		return fmt.Errorf("invalid workflow state: %s", s)
	}
}
