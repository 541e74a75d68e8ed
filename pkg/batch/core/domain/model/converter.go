package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseJobParameters converts launch arguments of the form
// name=value[,type[,identifying]] into JobParameters. The type defaults to
// string and identifying defaults to true. Values may contain commas; only
// trailing tokens that parse as a type and a boolean are treated as modifiers.
func ParseJobParameters(args []string) (JobParameters, error) {
	b := NewJobParametersBuilder()
	for _, arg := range args {
		name, rest, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return JobParameters{}, fmt.Errorf("invalid job parameter '%s': expected name=value", arg)
		}

		value, typ, identifying := splitModifiers(rest)
		p, err := NewJobParameter(typ, value, identifying)
		if err != nil {
			return JobParameters{}, fmt.Errorf("job parameter '%s': %w", name, err)
		}
		b.AddParameter(name, p)
	}
	return b.ToJobParameters(), nil
}

func splitModifiers(rest string) (string, ParameterType, bool) {
	tokens := strings.Split(rest, ",")
	n := len(tokens)
	if n >= 3 {
		if ident, err := strconv.ParseBool(strings.TrimSpace(tokens[n-1])); err == nil {
			if typ, ok := ParseParameterType(tokens[n-2]); ok {
				return strings.Join(tokens[:n-2], ","), typ, ident
			}
		}
	}
	if n >= 2 {
		if typ, ok := ParseParameterType(tokens[n-1]); ok {
			return strings.Join(tokens[:n-1], ","), typ, true
		}
	}
	return rest, ParameterTypeString, true
}

type jsonLaunchParameter struct {
	Value       json.RawMessage `json:"value"`
	Type        string          `json:"type"`
	Identifying any             `json:"identifying"`
}

// ParseJSONJobParameters converts arguments of the form
// name={"value":"...","type":"long","identifying":"true"}. Surrounding single
// quotes are stripped. A non-string value is kept as a JSON parameter.
func ParseJSONJobParameters(args []string) (JobParameters, error) {
	b := NewJobParametersBuilder()
	for _, arg := range args {
		name, rest, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return JobParameters{}, fmt.Errorf("invalid job parameter '%s': expected name=json", arg)
		}
		rest = strings.Trim(strings.TrimSpace(rest), "'")

		var in jsonLaunchParameter
		if err := json.Unmarshal([]byte(rest), &in); err != nil {
			return JobParameters{}, fmt.Errorf("job parameter '%s': invalid json: %w", name, err)
		}

		identifying := true
		switch v := in.Identifying.(type) {
		case bool:
			identifying = v
		case string:
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return JobParameters{}, fmt.Errorf("job parameter '%s': invalid identifying flag '%s'", name, v)
			}
			identifying = parsed
		}

		var raw string
		if err := json.Unmarshal(in.Value, &raw); err != nil {
			// structured value given inline
			raw = string(in.Value)
			in.Type = string(ParameterTypeJSON)
		}

		typ := ParameterTypeString
		if in.Type != "" {
			t, ok := ParseParameterType(in.Type)
			if !ok {
				return JobParameters{}, fmt.Errorf("job parameter '%s': unknown type '%s'", name, in.Type)
			}
			typ = t
		}
		p, err := NewJobParameter(typ, raw, identifying)
		if err != nil {
			return JobParameters{}, fmt.Errorf("job parameter '%s': %w", name, err)
		}
		b.AddParameter(name, p)
	}
	return b.ToJobParameters(), nil
}
