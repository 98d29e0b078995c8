package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCategory signals a categorical value not seen during fit.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNotFitted signals predict on an untrained estimator.
	ErrNotFitted = errors.New("estimator not fitted")
	// ErrMissingColumn signals a required column absent from the input frame.
	ErrMissingColumn = errors.New("missing column")
	// ErrArtifactLoad signals a corrupt or incompatible model artifact.
	ErrArtifactLoad = errors.New("artifact load failed")
	// ErrEmptyInput signals an input dataset with zero rows.
	ErrEmptyInput = errors.New("empty input")
	// ErrDestinationProvisioning signals a failure to create the destination dataset or table.
	ErrDestinationProvisioning = errors.New("destination provisioning failed")
	// ErrInvalidInput signals malformed arguments or data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)

// UnknownCategoryError wraps ErrUnknownCategory with the offending column and value.
type UnknownCategoryError struct {
	Column string
	Value  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("%s: column %s: %q", ErrUnknownCategory.Error(), e.Column, e.Value)
}

func (e *UnknownCategoryError) Unwrap() error { return ErrUnknownCategory }

// NewUnknownCategory creates an unknown category error.
func NewUnknownCategory(column, value string) error {
	return &UnknownCategoryError{Column: column, Value: value}
}

// MissingColumnError wraps ErrMissingColumn with the column name.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumn.Error(), e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// NewMissingColumn creates a missing column error.
func NewMissingColumn(column string) error {
	return &MissingColumnError{Column: column}
}
