// Package frame holds a small column-oriented table of loosely typed values.
//
// Cell values are one of nil (missing), string, int64, float64 or bool.
// Use Normalize to bring other Go scalar types into that set.
package frame

import (
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/housepipe/internal/domain"
)

// Kind describes the values found in a column.
type Kind int

// Column kinds.
const (
	KindEmpty Kind = iota // no non-nil values
	KindBool
	KindInt
	KindFloat
	KindString
	KindMixed // strings mixed with other kinds
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Frame is an ordered set of equally sized named columns.
type Frame struct {
	names []string
	cols  map[string][]any
	n     int
}

// New creates an empty frame with the given columns.
func New(names ...string) (*Frame, error) {
	f := &Frame{cols: make(map[string][]any, len(names))}
	for _, name := range names {
		if _, dup := f.cols[name]; dup {
			return nil, fmt.Errorf("duplicate column %q: %w", name, domain.ErrInvalidInput)
		}
		f.names = append(f.names, name)
		f.cols[name] = nil
	}
	return f, nil
}

// FromColumns builds a frame from column data. All columns must have the same length.
func FromColumns(names []string, data map[string][]any) (*Frame, error) {
	f, err := New(names...)
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		vals, ok := data[name]
		if !ok {
			return nil, domain.NewMissingColumn(name)
		}
		if i == 0 {
			f.n = len(vals)
		}
		if len(vals) != f.n {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w", name, len(vals), f.n, domain.ErrInvalidInput)
		}
		norm := make([]any, len(vals))
		for j, v := range vals {
			norm[j] = Normalize(v)
		}
		f.cols[name] = norm
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the values of a column. The slice must not be modified.
func (f *Frame) Column(name string) ([]any, bool) {
	vals, ok := f.cols[name]
	return vals, ok
}

// Row returns a copy of row i in column order.
func (f *Frame) Row(i int) []any {
	row := make([]any, len(f.names))
	for j, name := range f.names {
		row[j] = f.cols[name][i]
	}
	return row
}

// AppendRow appends a row given in column order.
func (f *Frame) AppendRow(vals ...any) error {
	if len(vals) != len(f.names) {
		return fmt.Errorf("row has %d values, want %d: %w", len(vals), len(f.names), domain.ErrInvalidInput)
	}
	for j, name := range f.names {
		f.cols[name] = append(f.cols[name], Normalize(vals[j]))
	}
	f.n++
	return nil
}

// SetColumn adds or replaces a column. A new column is appended at the end.
func (f *Frame) SetColumn(name string, vals []any) error {
	if len(f.names) > 0 && len(vals) != f.n {
		return fmt.Errorf("column %q has %d rows, want %d: %w", name, len(vals), f.n, domain.ErrInvalidInput)
	}
	norm := make([]any, len(vals))
	for i, v := range vals {
		norm[i] = Normalize(v)
	}
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = norm
	f.n = len(vals)
	return nil
}

// Drop returns a copy of the frame without the named columns.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := &Frame{cols: make(map[string][]any, len(f.names)), n: f.n}
	for _, name := range f.names {
		if skip[name] {
			continue
		}
		out.names = append(out.names, name)
		out.cols[name] = cloneValues(f.cols[name])
	}
	return out
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	return f.Drop()
}

// Slice returns a copy of rows [start, end).
func (f *Frame) Slice(start, end int) *Frame {
	if start < 0 {
		start = 0
	}
	if end > f.n {
		end = f.n
	}
	if start > end {
		start = end
	}
	out := &Frame{cols: make(map[string][]any, len(f.names)), n: end - start}
	for _, name := range f.names {
		out.names = append(out.names, name)
		out.cols[name] = cloneValues(f.cols[name][start:end])
	}
	return out
}

// Take returns a copy holding the given rows in the given order.
func (f *Frame) Take(rows []int) *Frame {
	out := &Frame{cols: make(map[string][]any, len(f.names)), n: len(rows)}
	for _, name := range f.names {
		src := f.cols[name]
		dst := make([]any, len(rows))
		for i, r := range rows {
			dst[i] = src[r]
		}
		out.names = append(out.names, name)
		out.cols[name] = dst
	}
	return out
}

// ReplaceTokens sets every string cell equal to one of tokens to nil.
func (f *Frame) ReplaceTokens(tokens ...string) {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, name := range f.names {
		for i, v := range f.cols[name] {
			if s, ok := v.(string); ok && set[s] {
				f.cols[name][i] = nil
			}
		}
	}
}

// Kind infers the kind of a column from its non-nil values.
func (f *Frame) Kind(name string) Kind {
	return kindOf(f.cols[name])
}

// StringifyObjects converts string and mixed columns to uniform strings.
// Missing values stay nil.
func (f *Frame) StringifyObjects() []string {
	var changed []string
	for _, name := range f.names {
		vals := f.cols[name]
		if k := kindOf(vals); k != KindString && k != KindMixed {
			continue
		}
		for i, v := range vals {
			if v != nil {
				vals[i] = Format(v)
			}
		}
		changed = append(changed, name)
	}
	return changed
}

func kindOf(vals []any) Kind {
	kind := KindEmpty
	for _, v := range vals {
		var k Kind
		switch v.(type) {
		case nil:
			continue
		case bool:
			k = KindBool
		case int64:
			k = KindInt
		case float64:
			k = KindFloat
		default:
			k = KindString
		}
		switch {
		case kind == KindEmpty || kind == k:
			kind = k
		case (kind == KindInt && k == KindFloat) || (kind == KindFloat && k == KindInt):
			kind = KindFloat
		default:
			return KindMixed
		}
	}
	return kind
}

func cloneValues(vals []any) []any {
	out := make([]any, len(vals))
	copy(out, vals)
	return out
}

// Normalize maps Go scalar values onto the cell value set.
// NaN floats become nil.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, int64, bool:
		return x
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case float32:
		return Normalize(float64(x))
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Format renders a cell value as a string. Missing values render as "".
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// ToFloat coerces a cell to a number. Unparseable or missing values report false.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		return ParseDecimal(x)
	default:
		return 0, false
	}
}

// ParseDecimal parses plain decimal notation: an optional sign, digits with at
// most one point, and an optional exponent. Hex floats, digit separators,
// Inf, NaN and out-of-range values report false.
func ParseDecimal(s string) (float64, bool) {
	if !isDecimal(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isDecimal(s string) bool {
	i := skipSign(s, 0)
	start, point := i, false
	for i < len(s) && (isDigit(s[i]) || (s[i] == '.' && !point)) {
		if s[i] == '.' {
			point = true
		}
		i++
	}
	digits := i - start
	if point {
		digits--
	}
	if digits == 0 {
		return false
	}
	if i == len(s) {
		return true
	}
	if s[i] != 'e' && s[i] != 'E' {
		return false
	}
	i = skipSign(s, i+1)
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func skipSign(s string, i int) int {
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		return i + 1
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
