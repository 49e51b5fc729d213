package engine

import (
	"context"

	"github.com/lightflow/lightflow/pkg/telemetry"
)

// RunContext bundles the shared TaskData with the identity of the currently
// executing task, job and workflow. The executor creates one RunContext per
// run and mutates the identity fields immediately before each task executes;
// Data always points at the single live TaskData of the run.
type RunContext struct {
	ctx context.Context

	// Data is the shared payload of the run.
	Data *TaskData

	// TaskName is the name of the task currently executing.
	TaskName string

	// JobName is the name of the job owning the current task.
	JobName string

	// WorkflowName is the name of the running workflow.
	WorkflowName string

	// Env is the environment record of the run.
	Env *telemetry.Environment
}

// NewRunContext creates a run context over the given data and environment.
// A nil environment defaults to the process-wide one.
func NewRunContext(ctx context.Context, data *TaskData, env *telemetry.Environment) *RunContext {
	if env == nil {
		env = telemetry.DefaultEnvironment()
	}
	return &RunContext{
		ctx:  ctx,
		Data: data,
		Env:  env,
	}
}

// Context returns the context the run was started with. Task callables
// should honor it for anything blocking.
func (c *RunContext) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Emit writes a message through the run's output sink.
func (c *RunContext) Emit(msg string, level telemetry.Level) error {
	return c.Env.Emit(msg, level)
}
