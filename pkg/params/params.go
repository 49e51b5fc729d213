// Package params implements typed, validated configuration parameters for
// jobs and workflows. A parameter is declared as a Spec (type plus
// constraints) and bound to a supplied value at construction time; binding
// fails with a single error listing every missing or invalid parameter.
package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Spec declares the type and constraints of a single parameter.
type Spec interface {
	// Validate checks the supplied value against the declared constraints
	// and returns the converted value.
	Validate(value interface{}) (interface{}, error)
}

// Specs maps parameter names to their declarations.
type Specs map[string]Spec

// Values holds the validated parameter values of a job or workflow.
type Values map[string]interface{}

// Get returns the value for name.
func (v Values) Get(name string) (interface{}, bool) {
	val, ok := v[name]
	return val, ok
}

// Int returns the value for name as an int64.
func (v Values) Int(name string) (int64, bool) {
	n, ok := v[name].(int64)
	return n, ok
}

// Float returns the value for name as a float64.
func (v Values) Float(name string) (float64, bool) {
	f, ok := v[name].(float64)
	return f, ok
}

// String returns the value for name as a string.
func (v Values) String(name string) (string, bool) {
	s, ok := v[name].(string)
	return s, ok
}

// FieldError describes a single missing or invalid parameter.
type FieldError struct {
	Name   string
	Reason string
}

// ValidationError aggregates every parameter violation found during Bind.
type ValidationError struct {
	Fields []FieldError
}

// Error lists all violations at once.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Reason))
	}
	return "invalid parameters: " + strings.Join(parts, "; ")
}

// Bind validates the supplied values against the declared specs and returns
// the validated set. Supplied keys without a matching spec are ignored.
// Every missing or invalid parameter is reported in one ValidationError.
func Bind(specs Specs, supplied map[string]interface{}) (Values, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(Values, len(specs))
	var fields []FieldError

	for _, name := range names {
		raw, ok := supplied[name]
		if !ok {
			fields = append(fields, FieldError{Name: name, Reason: "missing"})
			continue
		}
		val, err := specs[name].Validate(raw)
		if err != nil {
			fields = append(fields, FieldError{Name: name, Reason: err.Error()})
			continue
		}
		values[name] = val
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return values, nil
}

// Int64 returns a pointer to n, for use as a numeric bound.
func Int64(n int64) *int64 {
	return &n
}

// Float64 returns a pointer to f, for use as a numeric bound.
func Float64(f float64) *float64 {
	return &f
}

// Int declares an integer parameter. Nil bounds are unconstrained, so the
// zero value accepts any integer.
type Int struct {
	Min *int64
	Max *int64
}

// Validate implements Spec.
func (p Int) Validate(value interface{}) (interface{}, error) {
	n, ok := toInt64(value)
	if !ok {
		return nil, fmt.Errorf("value %v is not an integer", value)
	}
	var parts []string
	if p.Min != nil {
		parts = append(parts, fmt.Sprintf("min=%d", *p.Min))
	}
	if p.Max != nil {
		parts = append(parts, fmt.Sprintf("max=%d", *p.Max))
	}
	if len(parts) == 0 {
		return n, nil
	}
	tag := strings.Join(parts, ",")
	if err := validate.Var(n, tag); err != nil {
		return nil, fmt.Errorf("value %d violates %s", n, tag)
	}
	return n, nil
}

// Float declares a floating point parameter. Nil bounds are unconstrained,
// so the zero value accepts any number.
type Float struct {
	Min *float64
	Max *float64
}

// Validate implements Spec.
func (p Float) Validate(value interface{}) (interface{}, error) {
	f, ok := toFloat64(value)
	if !ok {
		return nil, fmt.Errorf("value %v is not a number", value)
	}
	var parts []string
	if p.Min != nil {
		parts = append(parts, fmt.Sprintf("min=%v", *p.Min))
	}
	if p.Max != nil {
		parts = append(parts, fmt.Sprintf("max=%v", *p.Max))
	}
	if len(parts) == 0 {
		return f, nil
	}
	tag := strings.Join(parts, ",")
	if err := validate.Var(f, tag); err != nil {
		return nil, fmt.Errorf("value %v violates %s", f, tag)
	}
	return f, nil
}

// String declares a string parameter with optional length bounds.
// MaxLen of zero means unbounded.
type String struct {
	MinLen int
	MaxLen int
}

// Validate implements Spec.
func (p String) Validate(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value %v is not a string", value)
	}
	tag := fmt.Sprintf("min=%d", p.MinLen)
	if p.MaxLen > 0 {
		tag = fmt.Sprintf("min=%d,max=%d", p.MinLen, p.MaxLen)
	}
	if err := validate.Var(s, tag); err != nil {
		return nil, fmt.Errorf("length of %q violates %s", s, tag)
	}
	return s, nil
}

// Options declares a parameter restricted to an enumerated set of strings.
type Options struct {
	Options []string
}

// Validate implements Spec.
func (p Options) Validate(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value %v is not a string", value)
	}
	for _, opt := range p.Options {
		if s == opt {
			return s, nil
		}
	}
	return nil, fmt.Errorf("value %q is not one of [%s]", s, strings.Join(p.Options, ", "))
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		if n, ok := toInt64(value); ok {
			return float64(n), true
		}
		return 0, false
	}
}
