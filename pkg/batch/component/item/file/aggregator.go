package file

import (
	"fmt"
	"reflect"
	"strings"
)

// LineAggregator renders an item as one output line, without the line separator.
type LineAggregator[T any] interface {
	Aggregate(item T) (string, error)
}

// LineAggregatorFunc adapts a function to LineAggregator.
type LineAggregatorFunc[T any] func(item T) (string, error)

func (f LineAggregatorFunc[T]) Aggregate(item T) (string, error) { return f(item) }

// FieldExtractor returns the values of the named fields of an item, in order.
type FieldExtractor[T any] func(item T, names []string) ([]any, error)

// BeanFieldExtractor reads exported struct fields by `batch` tag, falling back to a
// case-insensitive match on the Go field name. Field values keep their type, so a
// time.Time field is formatted by its own String or Format verb handling.
func BeanFieldExtractor[T any](item T, names []string) ([]any, error) {
	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot extract fields of a nil %T", item)
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Map {
		return mapFields(rv, names)
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot extract fields of %T", item)
	}

	values := make([]any, len(names))
	for i, name := range names {
		f, ok := structField(rv, name)
		if !ok {
			return nil, fmt.Errorf("%T has no field '%s'", item, name)
		}
		values[i] = f.Interface()
	}
	return values, nil
}

func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(sf.Tag.Get(TagName), ","); tag == name {
			return rv.Field(i), true
		}
	}
	for i := 0; i < rt.NumField(); i++ {
		if sf := rt.Field(i); sf.IsExported() && strings.EqualFold(sf.Name, name) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func mapFields(rv reflect.Value, names []string) ([]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("cannot extract fields of %s", rv.Type())
	}
	values := make([]any, len(names))
	for i, name := range names {
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, fmt.Errorf("map has no key '%s'", name)
		}
		values[i] = v.Interface()
	}
	return values, nil
}

// FormattedLineAggregator substitutes the named fields of an item into Format
// positionally, as fmt.Sprintf does.
type FormattedLineAggregator[T any] struct {
	Format    string
	Names     []string
	Extractor FieldExtractor[T]
}

func NewFormattedLineAggregator[T any](format string, names ...string) *FormattedLineAggregator[T] {
	return &FormattedLineAggregator[T]{Format: format, Names: names, Extractor: BeanFieldExtractor[T]}
}

func (a *FormattedLineAggregator[T]) Aggregate(item T) (string, error) {
	values, err := a.Extractor(item, a.Names)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(a.Format, values...), nil
}

// DelimitedLineAggregator joins the named fields of an item with Delimiter.
type DelimitedLineAggregator[T any] struct {
	Delimiter string
	Names     []string
	Extractor FieldExtractor[T]
}

func NewDelimitedLineAggregator[T any](delimiter string, names ...string) *DelimitedLineAggregator[T] {
	return &DelimitedLineAggregator[T]{Delimiter: delimiter, Names: names, Extractor: BeanFieldExtractor[T]}
}

func (a *DelimitedLineAggregator[T]) Aggregate(item T) (string, error) {
	values, err := a.Extractor(item, a.Names)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, a.Delimiter), nil
}

// PassThroughLineAggregator renders an item with fmt.Sprint.
type PassThroughLineAggregator[T any] struct{}

func (PassThroughLineAggregator[T]) Aggregate(item T) (string, error) {
	if s, ok := any(item).(fmt.Stringer); ok && !isNilPointer(item) {
		return s.String(), nil
	}
	return fmt.Sprint(item), nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
