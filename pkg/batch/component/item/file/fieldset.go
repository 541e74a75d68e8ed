// Package file provides flat file item readers and writers: delimited and fixed-width
// tokenizers, field set mapping onto structs, and formatted line output.
package file

import (
	"fmt"
	"strconv"
)

// FieldSet is one tokenized line: values in column order, optionally named.
type FieldSet struct {
	names  []string
	values []string
}

// NewFieldSet pairs values with names positionally. Without names the column
// index, starting at 0, is used as the name.
func NewFieldSet(names, values []string) FieldSet {
	return FieldSet{names: names, values: values}
}

func (fs FieldSet) Len() int { return len(fs.values) }

func (fs FieldSet) Values() []string { return append([]string(nil), fs.values...) }

// Names returns the field names, or the column indexes when the set is unnamed.
func (fs FieldSet) Names() []string {
	if len(fs.names) > 0 {
		return append([]string(nil), fs.names...)
	}
	names := make([]string, len(fs.values))
	for i := range fs.values {
		names[i] = strconv.Itoa(i)
	}
	return names
}

// Get returns the value of the named field.
func (fs FieldSet) Get(name string) (string, bool) {
	for i, n := range fs.Names() {
		if n == name && i < len(fs.values) {
			return fs.values[i], true
		}
	}
	return "", false
}

// Map returns the fields keyed by name.
func (fs FieldSet) Map() map[string]string {
	names := fs.Names()
	m := make(map[string]string, len(names))
	for i, n := range names {
		if i < len(fs.values) {
			m[n] = fs.values[i]
		}
	}
	return m
}

func (fs FieldSet) String() string {
	return fmt.Sprintf("FieldSet%v", fs.Map())
}
