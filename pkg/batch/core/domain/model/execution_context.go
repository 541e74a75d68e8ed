package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/kangwooc/spring-batch/pkg/batch/support/util/serialization"
)

// ExecutionContext is the persisted key/value state of a job or step execution.
type ExecutionContext map[string]any

func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

func (ec ExecutionContext) Put(key string, value any) {
	ec[key] = value
}

func (ec ExecutionContext) Get(key string) (any, bool) {
	v, ok := ec[key]
	return v, ok
}

func (ec ExecutionContext) ContainsKey(key string) bool {
	_, ok := ec[key]
	return ok
}

func (ec ExecutionContext) Remove(key string) {
	delete(ec, key)
}

func (ec ExecutionContext) GetString(key string) (string, bool) {
	v, ok := ec[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt accepts any numeric representation that survives a JSON round trip.
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	v, ok := ec.GetInt64(key)
	return int(v), ok
}

func (ec ExecutionContext) GetInt64(key string) (int64, bool) {
	v, ok := ec[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func (ec ExecutionContext) GetFloat64(key string) (float64, bool) {
	v, ok := ec[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func (ec ExecutionContext) GetBool(key string) (bool, bool) {
	v, ok := ec[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Copy returns an independent snapshot. Nested maps and slices are copied too.
func (ec ExecutionContext) Copy() ExecutionContext {
	out := make(ExecutionContext, len(ec))
	for k, v := range ec {
		out[k] = deepCopyValue(v)
	}
	return out
}

// Merge copies all entries of other into ec, overwriting existing keys.
func (ec ExecutionContext) Merge(other ExecutionContext) {
	for k, v := range other {
		ec[k] = deepCopyValue(v)
	}
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = deepCopyValue(e)
		}
		return m
	case ExecutionContext:
		return t.Copy()
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = deepCopyValue(e)
		}
		return s
	default:
		return v
	}
}

// Value implements driver.Valuer.
func (ec ExecutionContext) Value() (driver.Value, error) {
	data, err := serialization.MarshalMap(ec)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (ec *ExecutionContext) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*ec = NewExecutionContext()
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for ExecutionContext: %T", value)
	}
	m, err := serialization.UnmarshalMap(b)
	if err != nil {
		return err
	}
	*ec = m
	return nil
}
