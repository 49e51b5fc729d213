package config

// Definition is the root of a YAML workflow definition file.
type Definition struct {
	// Workflow is the single workflow described by the file.
	Workflow WorkflowDef `yaml:"workflow" validate:"required"`
}

// WorkflowDef describes a workflow: its jobs in declaration order and the
// explicit dependency map across them.
type WorkflowDef struct {
	// Name is the workflow name.
	Name string `yaml:"name" validate:"required"`

	// TeardownPolicy selects how teardown command failures are handled
	// (record, suppress). Empty means record.
	TeardownPolicy string `yaml:"teardown_policy,omitempty" validate:"omitempty,oneof=record suppress"`

	// Jobs lists the jobs in declaration order. Order matters: it is the
	// scheduling tie-break.
	Jobs []JobDef `yaml:"jobs" validate:"required,min=1,dive"`

	// Dependencies lists the explicit cross-job orderings.
	Dependencies []DependencyDef `yaml:"dependencies,omitempty" validate:"omitempty,dive"`
}

// JobDef describes one job and its ordered tasks.
type JobDef struct {
	// Name is the job name, unique within the workflow.
	Name string `yaml:"name" validate:"required"`

	// Params declares and supplies the typed parameters of the job.
	Params map[string]ParamDef `yaml:"params,omitempty" validate:"omitempty,dive"`

	// Tasks lists the tasks in declaration order.
	Tasks []TaskDef `yaml:"tasks" validate:"required,min=1,dive"`
}

// TaskDef describes one task. Commands run through "sh -c" with the run
// identity and the owning job's parameters exposed in the environment.
type TaskDef struct {
	// Name is the task name, unique within the job.
	Name string `yaml:"name" validate:"required"`

	// Command is the shell command of the callback phase. Its combined
	// output is stored in the run data under "job/task".
	Command string `yaml:"command,omitempty"`

	// Setup is an optional shell command run before the callback.
	Setup string `yaml:"setup,omitempty"`

	// Teardown is an optional shell command run on every exit path.
	Teardown string `yaml:"teardown,omitempty"`

	// Skip marks the task to be skipped without running any command.
	Skip bool `yaml:"skip,omitempty"`
}

// DependencyDef declares that a task runs only after other tasks. Tasks
// are referenced by their qualified "job/task" names.
type DependencyDef struct {
	// Task is the qualified name of the dependent task.
	Task string `yaml:"task" validate:"required"`

	// After lists the qualified names of its prerequisites.
	After []string `yaml:"after" validate:"required,min=1,dive,required"`
}

// ParamDef declares a typed parameter together with its supplied value.
type ParamDef struct {
	// Type is the parameter type (int, float, string, options).
	Type string `yaml:"type" validate:"required,oneof=int float string options"`

	// Min and Max bound int and float parameters. Absent bounds leave
	// that side unconstrained.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// MinLen and MaxLen bound string parameters. MaxLen zero means
	// unbounded.
	MinLen int `yaml:"min_len,omitempty"`
	MaxLen int `yaml:"max_len,omitempty"`

	// Options enumerates the allowed values of an options parameter.
	Options []string `yaml:"options,omitempty"`

	// Value is the supplied value, validated against the declaration.
	Value interface{} `yaml:"value" validate:"required"`
}
