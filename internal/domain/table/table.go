// Package table holds warehouse table identifiers and write dispositions.
package table

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/housepipe/internal/domain"
)

// ID is a fully-qualified warehouse table name: project.dataset.table.
type ID struct {
	project string
	dataset string
	table   string
}

// ParseID parses a three-part table identifier.
func ParseID(s string) (ID, error) {
	parts := strings.Split(strings.Trim(s, "`"), ".")
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("table id %q must be project.dataset.table: %w", s, domain.ErrInvalidInput)
	}
	for _, p := range parts {
		if p == "" {
			return ID{}, fmt.Errorf("table id %q has an empty part: %w", s, domain.ErrInvalidInput)
		}
	}
	return ID{project: parts[0], dataset: parts[1], table: parts[2]}, nil
}

// Project returns the project part.
func (id ID) Project() string { return id.project }

// Dataset returns the dataset part.
func (id ID) Dataset() string { return id.dataset }

// Table returns the table part.
func (id ID) Table() string { return id.table }

// DatasetID returns "project.dataset".
func (id ID) DatasetID() string { return id.project + "." + id.dataset }

func (id ID) String() string {
	return id.project + "." + id.dataset + "." + id.table
}

// WriteDisposition governs whether a load overwrites or appends to a table.
type WriteDisposition string

// Supported write dispositions.
const (
	WriteTruncate WriteDisposition = "WRITE_TRUNCATE"
	WriteAppend   WriteDisposition = "WRITE_APPEND"
)

// ParseWriteDisposition validates a disposition string.
func ParseWriteDisposition(s string) (WriteDisposition, error) {
	switch d := WriteDisposition(strings.ToUpper(strings.TrimSpace(s))); d {
	case WriteTruncate, WriteAppend:
		return d, nil
	default:
		return "", fmt.Errorf(
			"write disposition must be %q or %q, got %q: %w",
			WriteTruncate, WriteAppend, s, domain.ErrInvalidInput,
		)
	}
}
