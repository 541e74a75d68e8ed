// Package configbinder binds loosely typed key/value maps onto structs with mapstructure.
package configbinder

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DefaultTagName is the struct tag consulted when none is given.
const DefaultTagName = "yaml"

// Bind decodes input into target, which must be a pointer to a struct.
// String input is weakly converted to numbers, booleans and time.Duration.
// Fields of type time.Time accept RFC 3339 strings.
func Bind(input map[string]any, target any, tagName string) error {
	if tagName == "" {
		tagName = DefaultTagName
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          tagName,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("failed to bind properties to %s: %w", typeName(target), err)
	}
	return nil
}

// BindProperties binds string properties, e.g. component settings read from YAML.
func BindProperties(props map[string]string, target any) error {
	if len(props) == 0 {
		return nil
	}
	input := make(map[string]any, len(props))
	for k, v := range props {
		input[k] = v
	}
	return Bind(input, target, DefaultTagName)
}

func typeName(target any) string {
	t := reflect.TypeOf(target)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}
