// Package tabular reads and writes frames as CSV and Parquet files.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kailas-cloud/housepipe/internal/domain/frame"
)

// NullTokens are the CSV cell values read as missing.
var NullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

var nullSet = func() map[string]bool {
	m := make(map[string]bool, len(NullTokens))
	for _, t := range NullTokens {
		m[t] = true
	}
	return m
}()

// ReadCSV parses a CSV document with a header row. Each column is typed as
// a whole: int64 if every present cell is an integer, then float64, then
// bool, otherwise string.
func ReadCSV(r io.Reader) (*frame.Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read csv header: empty document")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	names := make([]string, len(header))
	copy(names, header)
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\ufeff")
	}

	raw := make([][]string, len(names))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		for j := range names {
			raw[j] = append(raw[j], rec[j])
		}
	}

	data := make(map[string][]any, len(names))
	for j, name := range names {
		data[name] = parseColumn(raw[j])
	}
	f, err := frame.FromColumns(names, data)
	if err != nil {
		return nil, fmt.Errorf("build frame: %w", err)
	}
	return f, nil
}

// WriteCSV renders f with a header row. Missing values are written empty.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(f.Columns()))
	for i := 0; i < f.Len(); i++ {
		for j, v := range f.Row(i) {
			rec[j] = frame.Format(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func parseColumn(cells []string) []any {
	out := make([]any, len(cells))

	if parseAll(cells, out, func(s string) (any, bool) {
		v, err := strconv.ParseInt(s, 10, 64)
		return v, err == nil
	}) {
		return out
	}
	if parseAll(cells, out, func(s string) (any, bool) {
		return frame.ParseDecimal(s)
	}) {
		return out
	}
	if parseAll(cells, out, parseBool) {
		return out
	}
	for i, s := range cells {
		if !nullSet[s] {
			out[i] = s
		}
	}
	return out
}

// parseAll fills out using parse and reports whether every present cell parsed.
func parseAll(cells []string, out []any, parse func(string) (any, bool)) bool {
	for i, s := range cells {
		if nullSet[s] {
			out[i] = nil
			continue
		}
		v, ok := parse(strings.TrimSpace(s))
		if !ok {
			return false
		}
		out[i] = v
	}
	return true
}

func parseBool(s string) (any, bool) {
	switch s {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return nil, false
}
