// Package serialization holds the JSON encoding helpers shared by the model and the repositories.
package serialization

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

// MaskedValue replaces sensitive parameter values in logs and string renderings.
const MaskedValue = "********"

var (
	maskMu     sync.RWMutex
	maskedKeys = map[string]struct{}{"password": {}, "secret": {}, "token": {}}
)

// SetMaskedParameterKeys replaces the set of parameter names whose values are masked.
func SetMaskedParameterKeys(keys []string) {
	maskMu.Lock()
	defer maskMu.Unlock()
	maskedKeys = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		maskedKeys[strings.ToLower(k)] = struct{}{}
	}
}

// IsMaskedKey reports whether values stored under key must be masked.
func IsMaskedKey(key string) bool {
	maskMu.RLock()
	defer maskMu.RUnlock()
	_, ok := maskedKeys[strings.ToLower(key)]
	return ok
}

// MaskValues returns a copy of values with masked keys replaced by MaskedValue.
func MaskValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if IsMaskedKey(k) {
			v = MaskedValue
		}
		out[k] = v
	}
	return out
}

// CanonicalJSON encodes v with map keys sorted at every level, so equal values
// always produce identical bytes.
func CanonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, exception.NewBatchError("serialization", "failed to encode canonical JSON", err, false, false)
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch m := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, m[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, e := range m {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

// MarshalMap encodes a context-like map. A nil map encodes as "{}".
func MarshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, exception.NewBatchError("serialization", "failed to serialize map", err, false, false)
	}
	return data, nil
}

// UnmarshalMap decodes data produced by MarshalMap. Numbers decode as json.Number
// converted to int64 when integral, float64 otherwise.
func UnmarshalMap(data []byte) (map[string]any, error) {
	out := make(map[string]any)
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, exception.NewBatchError("serialization", "failed to deserialize map", err, false, false)
	}
	for k, v := range out {
		out[k] = normalizeNumbers(v)
	}
	return out, nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}
