package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for session state.
var (
	// ErrNoTable is returned when an operation requires a loaded table.
	ErrNoTable = errors.New("no table loaded")

	// ErrNoIDColumn is returned when an operation requires the identifier
	// column to be selected first.
	ErrNoIDColumn = errors.New("no identifier column selected")

	// ErrSuperseded is returned when a parse completion arrives after a
	// newer upload has already replaced it.
	ErrSuperseded = errors.New("upload superseded by a newer request")
)

// UnsupportedFormatError is returned when an uploaded table file has an
// extension other than csv, xlsx, or xls.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q (expected csv, xlsx, or xls)", e.Ext)
}

// MalformedGeoJSONError is returned when a GeoJSON upload fails to parse or
// lacks a features array.
type MalformedGeoJSONError struct {
	Reason string
	Err    error
}

func (e *MalformedGeoJSONError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed GeoJSON: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed GeoJSON: %s", e.Reason)
}

func (e *MalformedGeoJSONError) Unwrap() error { return e.Err }

// InvalidGeometryError is returned during linking when a Point feature has
// fewer than two coordinate components.
type InvalidGeometryError struct {
	FeatureIndex int
	Components   int
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid Point geometry in feature %d: %d coordinate components",
		e.FeatureIndex, e.Components)
}

// UnknownColumnError is returned when a referenced column key does not
// exist in the current table.
type UnknownColumnError struct {
	Key string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Key)
}

// RecordNotFoundError is returned when no record matches an identifier.
type RecordNotFoundError struct {
	ID string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("no record with identifier %q", e.ID)
}

// StyleRangeError is returned when a style value is outside its valid range.
type StyleRangeError struct {
	Field string
	Value float64
}

func (e *StyleRangeError) Error() string {
	return fmt.Sprintf("style value %s=%g out of range", e.Field, e.Value)
}
