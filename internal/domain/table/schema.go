package table

import "github.com/kailas-cloud/housepipe/internal/domain/frame"

// Field is one column of a destination table.
type Field struct {
	Name string
	Kind frame.Kind
}

// SchemaOf derives the destination schema from a frame's column kinds.
// Columns without values, and mixed columns, are stored as strings.
func SchemaOf(f *frame.Frame) []Field {
	out := make([]Field, 0, len(f.Columns()))
	for _, name := range f.Columns() {
		k := f.Kind(name)
		if k == frame.KindEmpty || k == frame.KindMixed {
			k = frame.KindString
		}
		out = append(out, Field{Name: name, Kind: k})
	}
	return out
}
