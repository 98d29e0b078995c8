package batch

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/table"
)

func TestPlan_ChunkCount(t *testing.T) {
	tests := []struct {
		total, max int
		want       int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{3_000_001, DefaultMaxRowsPerChunk, 4},
		{10, math.MaxInt, 1},
		{math.MaxInt, math.MaxInt - 1, 2},
	}
	for _, tc := range tests {
		chunks, err := Plan(tc.total, tc.max, table.WriteTruncate)
		if err != nil {
			t.Fatalf("Plan(%d, %d): %v", tc.total, tc.max, err)
		}
		if len(chunks) != tc.want {
			t.Errorf("Plan(%d, %d) = %d chunks, want %d", tc.total, tc.max, len(chunks), tc.want)
		}
		sum := 0
		for i, c := range chunks {
			if c.Index != i {
				t.Errorf("chunk %d has Index %d", i, c.Index)
			}
			if c.Rows() <= 0 || c.Rows() > tc.max {
				t.Errorf("chunk %d has %d rows", i, c.Rows())
			}
			if i > 0 && c.Start != chunks[i-1].End {
				t.Errorf("chunk %d starts at %d, previous ended at %d", i, c.Start, chunks[i-1].End)
			}
			sum += c.Rows()
		}
		if sum != tc.total {
			t.Errorf("Plan(%d, %d) covers %d rows", tc.total, tc.max, sum)
		}
	}
}

func TestPlan_OnlyFirstChunkHonoursDisposition(t *testing.T) {
	chunks, err := Plan(25, 10, table.WriteTruncate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].Disposition != table.WriteTruncate {
		t.Errorf("first chunk disposition = %q", chunks[0].Disposition)
	}
	for _, c := range chunks[1:] {
		if c.Disposition != table.WriteAppend {
			t.Errorf("chunk %d disposition = %q, want append", c.Index, c.Disposition)
		}
	}
}

func TestPlan_InvalidChunkSize(t *testing.T) {
	for _, m := range []int{0, -1} {
		if _, err := Plan(10, m, table.WriteAppend); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Plan(10, %d) err = %v, want ErrInvalidInput", m, err)
		}
	}
}
