package scope

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/expression"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/configbinder"
)

// BindTagName is the struct tag Values.Bind and Values.Decode read.
const BindTagName = "batch"

// Values holds the bound placeholder values of one component build. Every value
// has already been coerced to its declared type, so the typed getters do not fail.
type Values struct {
	component string
	values    map[string]any
	je        *model.JobExecution
	se        *model.StepExecution
	resolver  expression.Resolver
}

// Has reports whether the placeholder has a value.
func (v Values) Has(name string) bool {
	_, ok := v.values[name]
	return ok
}

// Raw returns the coerced value.
func (v Values) Raw(name string) any {
	return v.values[name]
}

func (v Values) String(name string) string {
	s, _ := v.values[name].(string)
	return s
}

func (v Values) Int(name string) int {
	n, _ := v.values[name].(int)
	return n
}

func (v Values) Long(name string) int64 {
	n, _ := v.values[name].(int64)
	return n
}

func (v Values) Float(name string) float64 {
	f, _ := v.values[name].(float64)
	return f
}

func (v Values) Date(name string) time.Time {
	t, _ := v.values[name].(time.Time)
	return t
}

func (v Values) DateTime(name string) time.Time {
	t, _ := v.values[name].(time.Time)
	return t
}

func (v Values) Enum(name string) string {
	return v.String(name)
}

// Decode decodes a Structured value into target, a pointer to a struct or map.
func (v Values) Decode(name string, target any) error {
	raw, ok := v.values[name]
	if !ok {
		return fmt.Errorf("[%s] no value bound for '%s'", v.component, name)
	}
	if m, ok := raw.(map[string]any); ok {
		return configbinder.Bind(m, target, BindTagName)
	}
	return fmt.Errorf("[%s] value '%s' is not a structured value", v.component, name)
}

// Bind decodes every bound value into target using `batch` struct tags.
func (v Values) Bind(target any) error {
	return configbinder.Bind(v.values, target, BindTagName)
}

// Expand resolves #{...} expressions in template against the current execution.
func (v Values) Expand(ctx context.Context, template string) (string, error) {
	if v.resolver == nil {
		v.resolver = expression.NewDefaultResolver()
	}
	return v.resolver.Resolve(ctx, template, v.je, v.se)
}

// JobExecution is the execution the component is bound to.
func (v Values) JobExecution() *model.JobExecution { return v.je }

// StepExecution is nil for job-scoped components.
func (v Values) StepExecution() *model.StepExecution { return v.se }

// lookup finds the raw value of p in its source.
func lookup(p Placeholder, je *model.JobExecution, se *model.StepExecution) (any, bool) {
	switch p.Source {
	case JobParameters:
		if je == nil {
			return nil, false
		}
		jp, ok := je.Parameters.Get(p.Name)
		if !ok {
			return nil, false
		}
		return jp.Value, true
	case JobExecutionContext:
		if je == nil {
			return nil, false
		}
		return je.ExecutionContext.Get(p.Name)
	case StepExecutionContext:
		if se == nil {
			return nil, false
		}
		return se.ExecutionContext.Get(p.Name)
	}
	return nil, false
}

// coerce converts raw to the declared type of p.
func coerce(p Placeholder, raw any) (any, error) {
	switch p.Type {
	case String:
		return asString(raw), nil
	case Int:
		n, err := asInt64(raw)
		if err != nil {
			return nil, err
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return nil, fmt.Errorf("value %d overflows int", n)
		}
		return int(n), nil
	case Long:
		return asInt64(raw)
	case Float:
		return asFloat64(raw)
	case Date:
		return asTime(raw, model.DateLayout)
	case DateTime:
		return asTime(raw, model.DateTimeLayout)
	case Enum:
		s := asString(raw)
		for _, allowed := range p.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("'%s' is not one of [%s]", s, strings.Join(p.Enum, ", "))
	case Structured:
		return asStructured(raw)
	}
	return nil, fmt.Errorf("unsupported placeholder type %s", p.Type)
}

func asString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(model.DateTimeLayout)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to a number", raw)
}

func asFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("cannot convert %T to a float", raw)
}

func asTime(raw any, layout string) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return time.ParseInLocation(layout, strings.TrimSpace(v), time.Local)
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to a time", raw)
}

func asStructured(raw any) (any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("invalid structured value: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert %T to a structured value", raw)
}
