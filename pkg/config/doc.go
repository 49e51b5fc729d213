// Package config loads YAML workflow definitions and builds executable
// workflows from them.
//
// A definition file describes one workflow: its jobs, the ordered tasks
// of each job with their shell commands, optional typed parameters, and
// an explicit dependency map across jobs. Definitions are validated
// structurally on load and semantically when the workflow graph is built.
//
// # Usage Example
//
//	def, err := config.Load("deploy.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w, err := config.Build(def)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = w.Run(ctx)
package config
