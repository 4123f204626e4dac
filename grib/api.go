// Package grib provides random-access reading of GRIB meteorological grid
// files: a concatenation of self-describing binary messages, each holding one
// gridded field plus metadata.
//
// The package delimits message byte ranges itself (editions 1 and 2), caches
// the derived index in a sidecar file, and hands decoding of message contents
// to an external Decoder. Fields are lazy: nothing is decoded until a
// metadata accessor is called.
package grib

import (
	"io"
	"os"
)

// -----------------------------------------------------------------------------
// Core types
// -----------------------------------------------------------------------------

// Message is one contiguous byte range [Offset, Offset+Length) in a GRIB
// file, covering exactly one self-contained message.
type Message struct {
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// MissingValue is the integer the decoder returns for fields that do not
// apply to a message ("value not applicable", distinct from zero).
const MissingValue = 2147483647

// Shape is the grid extent of one field. Either dimension may be absent when
// the decoder reports the missing-value sentinel for it.
type Shape struct {
	Rows *int64
	Cols *int64
}

// Known reports whether both dimensions are present.
func (s Shape) Known() bool {
	return s.Rows != nil && s.Cols != nil
}

// Grid is a field's decoded values, reshaped to Rows x Cols in row-major
// order. Rows and Cols are zero when the shape is unknown, in which case
// Values is the flat, unshaped sequence.
type Grid struct {
	Rows   int
	Cols   int
	Values []float64
}

// GridDefinition describes the bounding coordinates and per-axis increments
// of a field's grid, in degrees. Fields the decoder does not carry are nil.
type GridDefinition struct {
	North               *float64
	South               *float64
	West                *float64
	East                *float64
	SouthNorthIncrement *float64
	WestEastIncrement   *float64
}

// BoundingBox is the four-corner extent of one or more fields, in degrees.
type BoundingBox struct {
	North float64
	South float64
	West  float64
	East  float64
}

// merge extends the box to cover other.
func (b BoundingBox) merge(other BoundingBox) BoundingBox {
	if other.North > b.North {
		b.North = other.North
	}
	if other.South < b.South {
		b.South = other.South
	}
	if other.West < b.West {
		b.West = other.West
	}
	if other.East > b.East {
		b.East = other.East
	}
	return b
}

// -----------------------------------------------------------------------------
// Decoder interface
// -----------------------------------------------------------------------------

// DecodedMessage is one live decode result owned by the external codec
// backend, bound to a single message.
//
// Implementations hold a native resource; Release must be called exactly once
// when the result is no longer needed. All other methods are undefined after
// Release.
type DecodedMessage interface {
	// Scalar returns the value of a scalar key. Returns ErrKeyNotFound when
	// the key does not apply to this message.
	Scalar(key string) (any, error)

	// Float64s returns the value of an array-valued key, such as "values",
	// "distinctLatitudes" or "distinctLongitudes".
	Float64s(key string) ([]float64, error)

	// Release frees the underlying codec resource.
	Release() error
}

// Decoder turns raw message bytes into queryable decode results.
//
// Decode reads the message at the file's current position and leaves the
// position just past it. Returns ErrNoMessage when no further message is
// decodable.
type Decoder interface {
	Decode(f *os.File) (DecodedMessage, error)
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrKeyNotFound indicates a key the decoder does not apply to a message.
	// Handle.Get translates it into an absent result; decoders must return it
	// (or wrap it) rather than a generic lookup failure.
	ErrKeyNotFound = errKeyNotFound{}

	// ErrNoMessage indicates no further message is decodable at the current
	// position.
	ErrNoMessage = errNoMessage{}

	// ErrFieldRange indicates a message index outside [0, Reader.Len()).
	ErrFieldRange = errFieldRange{}

	// ErrStatisticsNaN indicates a not-a-number cell in the aggregated
	// values. Statistics over fields with missing values are not implemented;
	// the computation fails rather than silently degrading.
	ErrStatisticsNaN = errStatisticsNaN{}

	// ErrNoDecoder indicates a Reader operation that needs field decoding was
	// called on a Reader constructed without WithDecoder.
	ErrNoDecoder = errNoDecoder{}
)

type errKeyNotFound struct{}

func (errKeyNotFound) Error() string { return "key not found" }

type errNoMessage struct{}

func (errNoMessage) Error() string { return "no message" }

type errFieldRange struct{}

func (errFieldRange) Error() string { return "field index out of range" }

type errStatisticsNaN struct{}

func (errStatisticsNaN) Error() string {
	return "statistics with missing values not implemented"
}

type errNoDecoder struct{}

func (errNoDecoder) Error() string { return "no decoder configured" }

// closer returns a function that closes c, discarding the error.
// Use with defer for cleanup-only io.Closer values where the
// error is intentionally ignored (e.g., read-only files).
func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}
