package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrIncorrectTokenCount is wrapped by tokenizer errors for a line with the wrong number of fields.
var ErrIncorrectTokenCount = errors.New("incorrect token count")

// LineTokenizer splits a line into a FieldSet.
type LineTokenizer interface {
	Tokenize(line string) (FieldSet, error)
}

// DelimitedLineTokenizer splits on a delimiter. Fields may be quoted with Quote,
// and a doubled quote inside a quoted field is a literal quote.
type DelimitedLineTokenizer struct {
	Delimiter string
	Quote     rune
	Names     []string
	// Strict requires exactly len(Names) fields. When false, missing fields are
	// empty and extra fields are dropped.
	Strict bool
}

// NewDelimitedLineTokenizer returns a strict comma-delimited tokenizer.
func NewDelimitedLineTokenizer(names ...string) *DelimitedLineTokenizer {
	return &DelimitedLineTokenizer{Delimiter: ",", Quote: '"', Names: names, Strict: true}
}

func (t *DelimitedLineTokenizer) Tokenize(line string) (FieldSet, error) {
	values, err := t.split(line)
	if err != nil {
		return FieldSet{}, err
	}
	return fit(t.Names, values, t.Strict)
}

func (t *DelimitedLineTokenizer) split(line string) ([]string, error) {
	delim := t.Delimiter
	if delim == "" {
		delim = ","
	}
	r, size := utf8.DecodeRuneInString(delim)
	if size == len(delim) && (t.Quote == '"' || t.Quote == 0) {
		cr := csv.NewReader(strings.NewReader(line))
		cr.Comma = r
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = t.Quote == 0
		record, err := cr.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to split line: %w", err)
		}
		return record, nil
	}
	// multi-character delimiters and custom quotes
	return splitQuoted(line, delim, t.Quote), nil
}

func splitQuoted(line, delim string, quote rune) []string {
	var (
		fields []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		switch {
		case quote != 0 && r == quote:
			if quoted && strings.HasPrefix(line[i+size:], string(quote)) {
				cur.WriteRune(quote)
				i += 2 * size
				continue
			}
			quoted = !quoted
		case !quoted && strings.HasPrefix(line[i:], delim):
			fields = append(fields, cur.String())
			cur.Reset()
			i += len(delim)
			continue
		default:
			cur.WriteRune(r)
		}
		i += size
	}
	return append(fields, cur.String())
}

// Range is a 1-indexed, inclusive column range. Max 0 means to the end of the line.
type Range struct {
	Min int
	Max int
}

func (r Range) String() string {
	if r.Max == 0 {
		return fmt.Sprintf("%d-", r.Min)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// FixedLengthTokenizer cuts a line into column ranges and trims each value.
type FixedLengthTokenizer struct {
	Columns []Range
	Names   []string
	// Strict rejects lines shorter than the last range. When false the missing
	// part of a range is treated as empty.
	Strict bool
}

// NewFixedLengthTokenizer returns a strict tokenizer. names map to columns positionally.
func NewFixedLengthTokenizer(columns []Range, names ...string) *FixedLengthTokenizer {
	return &FixedLengthTokenizer{Columns: columns, Names: names, Strict: true}
}

func (t *FixedLengthTokenizer) Tokenize(line string) (FieldSet, error) {
	runes := []rune(line)
	values := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		if col.Min < 1 || (col.Max != 0 && col.Max < col.Min) {
			return FieldSet{}, fmt.Errorf("invalid column range %s", col)
		}
		end := col.Max
		if end == 0 || end > len(runes) {
			if t.Strict && col.Max != 0 && col.Max > len(runes) {
				return FieldSet{}, fmt.Errorf("line is shorter than range %s (length %d): %w", col, len(runes), ErrIncorrectTokenCount)
			}
			end = len(runes)
		}
		if col.Min > len(runes) {
			values = append(values, "")
			continue
		}
		values = append(values, strings.TrimSpace(string(runes[col.Min-1:end])))
	}
	return fit(t.Names, values, t.Strict)
}

func fit(names, values []string, strict bool) (FieldSet, error) {
	if len(names) == 0 {
		return NewFieldSet(nil, values), nil
	}
	if len(values) != len(names) {
		if strict {
			return FieldSet{}, fmt.Errorf("expected %d fields but found %d: %w", len(names), len(values), ErrIncorrectTokenCount)
		}
		fitted := make([]string, len(names))
		copy(fitted, values)
		values = fitted
	}
	return NewFieldSet(names, values), nil
}
