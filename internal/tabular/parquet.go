package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/housepipe/internal/domain/frame"
)

const parquetBatch = 1000

// ReadParquet loads every row group of a Parquet file into a frame.
// Nested columns are named by their dotted path.
func ReadParquet(path string) (*frame.Frame, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	paths := pf.Schema().Columns()
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = strings.Join(p, ".")
	}
	out, err := frame.New(names...)
	if err != nil {
		return nil, fmt.Errorf("parquet schema: %w", err)
	}

	buf := make([]parquet.Row, parquetBatch)
	cells := make([]any, len(names))
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				clear(cells)
				for _, v := range buf[i] {
					if c := v.Column(); c >= 0 && c < len(cells) {
						cells[c] = parquetValue(v)
					}
				}
				if err := out.AppendRow(cells...); err != nil {
					return nil, fmt.Errorf("append row: %w", err)
				}
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return out, nil
}

func parquetValue(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return v.String()
	}
}
