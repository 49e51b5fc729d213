// Package engine implements the lightflow execution core.
//
// A workflow is an ordered list of jobs; a job is an ordered list of tasks;
// a task is the atomic executable unit with a setup/callback/teardown
// lifecycle. The engine merges the implicit sequential order of tasks inside
// each job with an explicit cross-job dependency map into a single directed
// acyclic graph, computes a deterministic execution order over it, and runs
// every task exactly once in that order, threading one shared TaskData
// through all of them and recording a provenance history of every task that
// executed.
//
// Execution is synchronous and single-threaded: one task runs to completion
// before the next starts, and the first task failure aborts the run.
package engine
