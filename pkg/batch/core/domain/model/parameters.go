package model

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kangwooc/spring-batch/pkg/batch/support/util/serialization"
)

// ParameterType is the declared type of a JobParameter.
type ParameterType string

const (
	ParameterTypeString   ParameterType = "STRING"
	ParameterTypeLong     ParameterType = "LONG"
	ParameterTypeDouble   ParameterType = "DOUBLE"
	ParameterTypeDate     ParameterType = "DATE"
	ParameterTypeDateTime ParameterType = "DATETIME"
	// ParameterTypeJSON carries a structured value as its encoded string.
	ParameterTypeJSON ParameterType = "JSON"
)

// Text layouts of date and datetime parameters.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// ParseParameterType accepts the lower or upper case type names.
func ParseParameterType(s string) (ParameterType, bool) {
	switch t := ParameterType(strings.ToUpper(strings.TrimSpace(s))); t {
	case ParameterTypeString, ParameterTypeLong, ParameterTypeDouble, ParameterTypeDate, ParameterTypeDateTime, ParameterTypeJSON:
		return t, true
	case "INT", "INTEGER":
		return ParameterTypeLong, true
	case "FLOAT":
		return ParameterTypeDouble, true
	default:
		return "", false
	}
}

// JobParameter is one typed value. Value holds a string, int64, float64 or
// time.Time depending on Type; JSON parameters keep the encoded string.
type JobParameter struct {
	Value       any
	Type        ParameterType
	Identifying bool
}

// NewJobParameter parses raw text as typ.
func NewJobParameter(typ ParameterType, raw string, identifying bool) (JobParameter, error) {
	p := JobParameter{Type: typ, Identifying: identifying}
	switch typ {
	case ParameterTypeString:
		p.Value = raw
	case ParameterTypeLong:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return p, fmt.Errorf("invalid long value '%s': %w", raw, err)
		}
		p.Value = v
	case ParameterTypeDouble:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return p, fmt.Errorf("invalid double value '%s': %w", raw, err)
		}
		p.Value = v
	case ParameterTypeDate:
		v, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.Local)
		if err != nil {
			return p, fmt.Errorf("invalid date value '%s' (want %s): %w", raw, "yyyy-MM-dd", err)
		}
		p.Value = v
	case ParameterTypeDateTime:
		v, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(raw), time.Local)
		if err != nil {
			return p, fmt.Errorf("invalid datetime value '%s' (want %s): %w", raw, "yyyy-MM-dd HH:mm:ss", err)
		}
		p.Value = v
	case ParameterTypeJSON:
		if !json.Valid([]byte(raw)) {
			return p, fmt.Errorf("invalid json value '%s'", raw)
		}
		p.Value = raw
	default:
		return p, fmt.Errorf("unsupported parameter type '%s'", typ)
	}
	return p, nil
}

// Text renders the value in the same form NewJobParameter accepts.
func (p JobParameter) Text() string {
	switch v := p.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		if p.Type == ParameterTypeDate {
			return v.Format(DateLayout)
		}
		return v.Format(DateTimeLayout)
	default:
		return fmt.Sprintf("%v", v)
	}
}

type jobParameterJSON struct {
	Value       string        `json:"value"`
	Type        ParameterType `json:"type"`
	Identifying bool          `json:"identifying"`
}

// JobParameters is an immutable set of named parameters. Build one with JobParametersBuilder.
type JobParameters struct {
	params map[string]JobParameter
}

// NewJobParameters returns an empty parameter set.
func NewJobParameters() JobParameters {
	return JobParameters{params: map[string]JobParameter{}}
}

// Get returns the named parameter.
func (jp JobParameters) Get(name string) (JobParameter, bool) {
	p, ok := jp.params[name]
	return p, ok
}

// GetString returns a STRING or JSON parameter.
func (jp JobParameters) GetString(name string) (string, bool) {
	p, ok := jp.params[name]
	if !ok {
		return "", false
	}
	s, ok := p.Value.(string)
	return s, ok
}

// GetLong returns a LONG parameter.
func (jp JobParameters) GetLong(name string) (int64, bool) {
	p, ok := jp.params[name]
	if !ok {
		return 0, false
	}
	v, ok := p.Value.(int64)
	return v, ok
}

// GetDouble returns a DOUBLE parameter.
func (jp JobParameters) GetDouble(name string) (float64, bool) {
	p, ok := jp.params[name]
	if !ok {
		return 0, false
	}
	v, ok := p.Value.(float64)
	return v, ok
}

// GetTime returns a DATE or DATETIME parameter.
func (jp JobParameters) GetTime(name string) (time.Time, bool) {
	p, ok := jp.params[name]
	if !ok {
		return time.Time{}, false
	}
	v, ok := p.Value.(time.Time)
	return v, ok
}

// Names returns the parameter names in sorted order.
func (jp JobParameters) Names() []string {
	names := make([]string, 0, len(jp.params))
	for k := range jp.params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (jp JobParameters) Len() int { return len(jp.params) }

func (jp JobParameters) IsEmpty() bool { return len(jp.params) == 0 }

// Identifying returns the subset that identifies a job instance.
func (jp JobParameters) Identifying() JobParameters {
	out := NewJobParameters()
	for k, p := range jp.params {
		if p.Identifying {
			out.params[k] = p
		}
	}
	return out
}

// Equal compares names, types, values and identifying flags.
func (jp JobParameters) Equal(other JobParameters) bool {
	if len(jp.params) != len(other.params) {
		return false
	}
	for k, p := range jp.params {
		o, ok := other.params[k]
		if !ok || o.Type != p.Type || o.Identifying != p.Identifying || o.Text() != p.Text() {
			return false
		}
	}
	return true
}

// Hash digests the identifying parameters. Equal identifying sets hash equally,
// regardless of insertion order.
func (jp JobParameters) Hash() string {
	canonical := make(map[string]any)
	for k, p := range jp.params {
		if !p.Identifying {
			continue
		}
		canonical[k] = map[string]any{"type": string(p.Type), "value": p.Text()}
	}
	data, err := serialization.CanonicalJSON(canonical)
	if err != nil {
		// only string values reach the encoder
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// String renders the parameters with sensitive values masked.
func (jp JobParameters) String() string {
	parts := make([]string, 0, len(jp.params))
	for _, name := range jp.Names() {
		p := jp.params[name]
		text := p.Text()
		if serialization.IsMaskedKey(name) {
			text = serialization.MaskedValue
		}
		parts = append(parts, fmt.Sprintf("%s=%s(%s)", name, text, strings.ToLower(string(p.Type))))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON encodes each parameter as {"value","type","identifying"} with the value in text form.
func (jp JobParameters) MarshalJSON() ([]byte, error) {
	out := make(map[string]jobParameterJSON, len(jp.params))
	for k, p := range jp.params {
		out[k] = jobParameterJSON{Value: p.Text(), Type: p.Type, Identifying: p.Identifying}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the MarshalJSON form.
func (jp *JobParameters) UnmarshalJSON(data []byte) error {
	var in map[string]jobParameterJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	jp.params = make(map[string]JobParameter, len(in))
	for k, raw := range in {
		p, err := NewJobParameter(raw.Type, raw.Value, raw.Identifying)
		if err != nil {
			return fmt.Errorf("parameter '%s': %w", k, err)
		}
		jp.params[k] = p
	}
	return nil
}

// Value implements driver.Valuer.
func (jp JobParameters) Value() (driver.Value, error) {
	data, err := jp.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (jp *JobParameters) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*jp = NewJobParameters()
		return nil
	case []byte:
		return jp.unmarshalOrEmpty(v)
	case string:
		return jp.unmarshalOrEmpty([]byte(v))
	default:
		return fmt.Errorf("unsupported Scan type for JobParameters: %T", value)
	}
}

func (jp *JobParameters) unmarshalOrEmpty(b []byte) error {
	if len(b) == 0 {
		*jp = NewJobParameters()
		return nil
	}
	return jp.UnmarshalJSON(b)
}

// JobParametersBuilder accumulates parameters. Add methods register identifying parameters.
type JobParametersBuilder struct {
	params map[string]JobParameter
}

// NewJobParametersBuilder starts an empty builder, or a copy of base when given.
func NewJobParametersBuilder(base ...JobParameters) *JobParametersBuilder {
	b := &JobParametersBuilder{params: map[string]JobParameter{}}
	for _, jp := range base {
		for k, p := range jp.params {
			b.params[k] = p
		}
	}
	return b
}

func (b *JobParametersBuilder) AddString(name, value string) *JobParametersBuilder {
	return b.AddParameter(name, JobParameter{Value: value, Type: ParameterTypeString, Identifying: true})
}

func (b *JobParametersBuilder) AddLong(name string, value int64) *JobParametersBuilder {
	return b.AddParameter(name, JobParameter{Value: value, Type: ParameterTypeLong, Identifying: true})
}

func (b *JobParametersBuilder) AddDouble(name string, value float64) *JobParametersBuilder {
	return b.AddParameter(name, JobParameter{Value: value, Type: ParameterTypeDouble, Identifying: true})
}

// AddDate drops the clock part of value.
func (b *JobParametersBuilder) AddDate(name string, value time.Time) *JobParametersBuilder {
	y, m, d := value.Date()
	return b.AddParameter(name, JobParameter{Value: time.Date(y, m, d, 0, 0, 0, 0, value.Location()), Type: ParameterTypeDate, Identifying: true})
}

// AddDateTime truncates value to whole seconds.
func (b *JobParametersBuilder) AddDateTime(name string, value time.Time) *JobParametersBuilder {
	return b.AddParameter(name, JobParameter{Value: value.Truncate(time.Second), Type: ParameterTypeDateTime, Identifying: true})
}

// AddJSON stores value encoded as JSON.
func (b *JobParametersBuilder) AddJSON(name string, value any) (*JobParametersBuilder, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return b, fmt.Errorf("parameter '%s': %w", name, err)
	}
	return b.AddParameter(name, JobParameter{Value: string(data), Type: ParameterTypeJSON, Identifying: true}), nil
}

func (b *JobParametersBuilder) AddParameter(name string, p JobParameter) *JobParametersBuilder {
	b.params[name] = p
	return b
}

// ToJobParameters returns an immutable snapshot of the builder.
func (b *JobParametersBuilder) ToJobParameters() JobParameters {
	out := make(map[string]JobParameter, len(b.params))
	for k, p := range b.params {
		out[k] = p
	}
	return JobParameters{params: out}
}
