package engine

import "sort"

// TaskData is the mutable payload threaded through every task of a run,
// together with a provenance history of the tasks that executed against it.
//
// The history grows by exactly one entry per task execution, including
// skipped and failed runs, and records the executing task's name. The
// executor creates one TaskData per run and passes it by reference; it is
// never replaced mid-run.
type TaskData struct {
	values  map[string]interface{}
	history []string
}

// NewTaskData creates an empty TaskData.
func NewTaskData() *TaskData {
	return &TaskData{
		values: make(map[string]interface{}),
	}
}

// Get returns the value stored under key.
func (d *TaskData) Get(key string) (interface{}, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Set stores value under key, replacing any existing value.
func (d *TaskData) Set(key string, value interface{}) {
	d.values[key] = value
}

// Delete removes key from the payload.
func (d *TaskData) Delete(key string) {
	delete(d.values, key)
}

// Len returns the number of stored keys.
func (d *TaskData) Len() int {
	return len(d.values)
}

// Keys returns the stored keys in sorted order.
func (d *TaskData) Keys() []string {
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// History returns a copy of the provenance history, in execution order.
func (d *TaskData) History() []string {
	out := make([]string, len(d.history))
	copy(out, d.history)
	return out
}

// appendHistory records that a task executed against this data. Called by
// the task unit exactly once per execution.
func (d *TaskData) appendHistory(taskName string) {
	d.history = append(d.history, taskName)
}

// Clone returns an independent copy: the payload is deep-copied and the
// history is element-copied, so mutations of the clone never reach the
// original.
func (d *TaskData) Clone() *TaskData {
	values := make(map[string]interface{}, len(d.values))
	for k, v := range d.values {
		values[k] = deepCopyValue(v)
	}
	history := make([]string, len(d.history))
	copy(history, d.history)
	return &TaskData{
		values:  values,
		history: history,
	}
}

// deepCopyValue copies nested maps and slices; scalar values are returned
// as-is.
func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = deepCopyValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
