package batch

import (
	"fmt"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/table"
)

// DefaultMaxRowsPerChunk is the default warehouse load chunk size.
const DefaultMaxRowsPerChunk = 1_000_000

// Chunk is one sequential warehouse load covering rows [Start, End).
type Chunk struct {
	Index       int
	Start       int
	End         int
	Disposition table.WriteDisposition
}

// Rows returns the number of rows in the chunk.
func (c Chunk) Rows() int { return c.End - c.Start }

// Plan splits total rows into ceil(total/maxRows) chunks.
// The first chunk uses the caller's disposition; the rest append so earlier
// chunks are not truncated again.
func Plan(total, maxRows int, disposition table.WriteDisposition) ([]Chunk, error) {
	if maxRows <= 0 {
		return nil, fmt.Errorf("max rows per chunk must be positive, got %d: %w", maxRows, domain.ErrInvalidInput)
	}
	if total <= 0 {
		return nil, nil
	}
	if maxRows > total {
		maxRows = total
	}
	parts := total / maxRows
	if total%maxRows != 0 {
		parts++
	}
	chunks := make([]Chunk, parts)
	for i := range chunks {
		start := i * maxRows
		end := total
		if total-start > maxRows {
			end = start + maxRows
		}
		d := table.WriteAppend
		if i == 0 {
			d = disposition
		}
		chunks[i] = Chunk{Index: i, Start: start, End: end, Disposition: d}
	}
	return chunks, nil
}
