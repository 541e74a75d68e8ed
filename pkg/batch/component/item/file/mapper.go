package file

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag that names the field a struct field is mapped from or to.
const TagName = "batch"

// FieldConverter turns the text of one field into a typed value.
type FieldConverter func(text string) (any, error)

// DateTimeConverter parses text with a time layout.
func DateTimeConverter(layout string) FieldConverter {
	return func(text string) (any, error) {
		return time.Parse(layout, strings.TrimSpace(text))
	}
}

// DateTimeInLocationConverter parses text with a time layout in loc.
func DateTimeInLocationConverter(layout string, loc *time.Location) FieldConverter {
	return func(text string) (any, error) {
		return time.ParseInLocation(layout, strings.TrimSpace(text), loc)
	}
}

// FieldSetMapper maps a FieldSet onto an item.
type FieldSetMapper[T any] interface {
	MapFieldSet(fs FieldSet) (T, error)
}

// FieldSetMapperFunc adapts a function to FieldSetMapper.
type FieldSetMapperFunc[T any] func(fs FieldSet) (T, error)

func (f FieldSetMapperFunc[T]) MapFieldSet(fs FieldSet) (T, error) { return f(fs) }

// MapperOption configures a BeanFieldSetMapper.
type MapperOption func(*mapperConfig)

type mapperConfig struct {
	converters map[string]FieldConverter
}

// WithFieldConverter converts the named field before it is assigned.
// Date and datetime fields need one; other fields are converted with weak typing.
func WithFieldConverter(name string, fn FieldConverter) MapperOption {
	return func(c *mapperConfig) { c.converters[name] = fn }
}

// BeanFieldSetMapper assigns fields to the struct fields of T by `batch` tag,
// falling back to a case-insensitive match on the field name.
type BeanFieldSetMapper[T any] struct {
	converters map[string]FieldConverter
}

func NewBeanFieldSetMapper[T any](opts ...MapperOption) *BeanFieldSetMapper[T] {
	cfg := mapperConfig{converters: map[string]FieldConverter{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &BeanFieldSetMapper[T]{converters: cfg.converters}
}

func (m *BeanFieldSetMapper[T]) MapFieldSet(fs FieldSet) (T, error) {
	var item T
	input := make(map[string]any, fs.Len())
	for name, text := range fs.Map() {
		conv, ok := m.converters[name]
		if !ok {
			input[name] = text
			continue
		}
		v, err := conv(text)
		if err != nil {
			return item, fmt.Errorf("field '%s': %w", name, err)
		}
		input[name] = v
	}

	target := any(&item)
	if reflect.TypeOf(item) != nil && reflect.TypeOf(item).Kind() == reflect.Ptr {
		elem := reflect.New(reflect.TypeOf(item).Elem())
		item = elem.Interface().(T)
		target = item
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          TagName,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return item, err
	}
	if err := decoder.Decode(input); err != nil {
		return item, fmt.Errorf("failed to map %s: %w", fs, err)
	}
	return item, nil
}
