package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Load reads and parses a workflow definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing definition %s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a workflow definition. Unknown fields are
// rejected so typos surface as parse errors instead of silently dropped
// configuration.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if err := validate.Struct(&def); err != nil {
		return nil, fmt.Errorf("validating definition: %w", err)
	}
	if err := checkNames(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// checkNames enforces the uniqueness rules the struct tags cannot express:
// job names unique in the workflow, task names unique in their job.
func checkNames(def *Definition) error {
	jobs := make(map[string]bool)
	for _, job := range def.Workflow.Jobs {
		if jobs[job.Name] {
			return fmt.Errorf("duplicate job name: %s", job.Name)
		}
		jobs[job.Name] = true

		tasks := make(map[string]bool)
		for _, task := range job.Tasks {
			if tasks[task.Name] {
				return fmt.Errorf("duplicate task name %s in job %s", task.Name, job.Name)
			}
			tasks[task.Name] = true
		}
	}
	return nil
}
