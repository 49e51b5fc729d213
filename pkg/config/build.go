package config

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/lightflow/lightflow/pkg/engine"
	"github.com/lightflow/lightflow/pkg/params"
)

// Build constructs an executable workflow from a parsed definition. The
// returned workflow is pending; additional engine options (environment,
// logger, metrics, events) are passed through.
func Build(def *Definition, opts ...engine.WorkflowOption) (*engine.Workflow, error) {
	if def.Workflow.TeardownPolicy == "suppress" {
		opts = append(opts, engine.WithTeardownPolicy(engine.TeardownSuppress))
	}
	w := engine.NewWorkflow(def.Workflow.Name, opts...)

	// Index of qualified "job/task" names for dependency resolution.
	tasks := make(map[string]*engine.Task)

	for _, jobDef := range def.Workflow.Jobs {
		job := engine.NewJob(jobDef.Name)

		if len(jobDef.Params) > 0 {
			specs, supplied, err := paramSpecs(jobDef.Params)
			if err != nil {
				return nil, fmt.Errorf("job %s: %w", jobDef.Name, err)
			}
			if err := job.BindParams(specs, supplied); err != nil {
				return nil, err
			}
		}

		for _, taskDef := range jobDef.Tasks {
			task := buildTask(job, taskDef)
			if err := job.AddTask(task); err != nil {
				return nil, err
			}
			tasks[task.QualifiedName()] = task
		}

		if err := w.AddJob(job); err != nil {
			return nil, err
		}
	}

	for _, depDef := range def.Workflow.Dependencies {
		dependent, ok := tasks[depDef.Task]
		if !ok {
			return nil, fmt.Errorf("dependency references unknown task: %s", depDef.Task)
		}
		for _, name := range depDef.After {
			prereq, ok := tasks[name]
			if !ok {
				return nil, fmt.Errorf("dependency references unknown task: %s", name)
			}
			w.AddDependency(dependent, prereq)
		}
	}

	return w, nil
}

// buildTask converts a task definition into an engine task with shell
// command callables.
func buildTask(job *engine.Job, def TaskDef) *engine.Task {
	task := engine.NewTask(def.Name, commandFunc(def.Command, job, true))
	if def.Setup != "" {
		task.WithSetup(commandFunc(def.Setup, job, false))
	}
	if def.Teardown != "" {
		task.WithTeardown(commandFunc(def.Teardown, job, false))
	}
	task.SetSkip(def.Skip)
	return task
}

// commandFunc returns a task callable running command through "sh -c".
// When capture is set, the combined output is stored in the run data under
// the task's qualified name. An empty command is a no-op.
func commandFunc(command string, job *engine.Job, capture bool) engine.TaskFunc {
	if command == "" {
		return nil
	}
	return func(rc *engine.RunContext) error {
		cmd := exec.CommandContext(rc.Context(), "sh", "-c", command)
		cmd.Env = commandEnv(rc, job)

		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("command %q: %w: %s", command, err, strings.TrimSpace(string(out)))
		}
		if capture {
			rc.Data.Set(rc.JobName+"/"+rc.TaskName, strings.TrimRight(string(out), "\n"))
		}
		return nil
	}
}

// commandEnv builds the environment of a task command: the process
// environment plus the run identity and the owning job's parameters.
func commandEnv(rc *engine.RunContext, job *engine.Job) []string {
	env := append(os.Environ(),
		"LIGHTFLOW_WORKFLOW="+rc.WorkflowName,
		"LIGHTFLOW_JOB="+rc.JobName,
		"LIGHTFLOW_TASK="+rc.TaskName,
	)
	for name, value := range job.Params() {
		key := "LIGHTFLOW_PARAM_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		env = append(env, fmt.Sprintf("%s=%v", key, value))
	}
	return env
}

// paramSpecs converts parameter definitions into specs plus supplied
// values for binding.
func paramSpecs(defs map[string]ParamDef) (params.Specs, map[string]interface{}, error) {
	specs := make(params.Specs, len(defs))
	supplied := make(map[string]interface{}, len(defs))

	for name, def := range defs {
		switch def.Type {
		case "int":
			spec := params.Int{}
			if def.Min != nil {
				spec.Min = params.Int64(int64(*def.Min))
			}
			if def.Max != nil {
				spec.Max = params.Int64(int64(*def.Max))
			}
			specs[name] = spec
		case "float":
			specs[name] = params.Float{Min: def.Min, Max: def.Max}
		case "string":
			specs[name] = params.String{MinLen: def.MinLen, MaxLen: def.MaxLen}
		case "options":
			if len(def.Options) == 0 {
				return nil, nil, fmt.Errorf("parameter %s: options type requires an option list", name)
			}
			specs[name] = params.Options{Options: def.Options}
		default:
			return nil, nil, fmt.Errorf("parameter %s: unknown type %q", name, def.Type)
		}
		supplied[name] = def.Value
	}
	return specs, supplied, nil
}
