package grib

import (
	"errors"
	"fmt"
	"time"
)

// Field is one decoded message, viewed lazily. It is built either around an
// already-materialized Handle or around a (cursor, offset) pair; in the
// latter case the first metadata accessor decodes the message, and every
// later access reuses the cached Handle.
//
// Fields are read-only views. Discarding a Field has no side effect beyond
// releasing its materialized Handle via Close.
type Field struct {
	cursor *Cursor
	offset int64
	handle *Handle
}

// newField builds a Field from a ready handle, or from (cursor, offset) for
// lazy materialization when handle is nil.
func newField(handle *Handle, cursor *Cursor, offset int64) *Field {
	return &Field{cursor: cursor, offset: offset, handle: handle}
}

// Offset returns the byte offset of this field's message.
func (f *Field) Offset() int64 {
	return f.offset
}

// Handle returns the decode handle, materializing it on first use. The
// handle is cached for the Field's lifetime and never re-seeked.
func (f *Field) Handle() (*Handle, error) {
	if f.handle != nil {
		return f.handle, nil
	}
	h, err := f.cursor.AtOffset(f.offset)
	if err != nil {
		return nil, fmt.Errorf("grib: decode at offset %d: %w", f.offset, err)
	}
	f.handle = h
	return h, nil
}

// Close releases the materialized handle, if any. A never-materialized Field
// closes without decoding.
func (f *Field) Close() error {
	if f.handle == nil {
		return nil
	}
	return f.handle.Release()
}

// Values returns the full decoded numeric grid as a flat sequence.
func (f *Field) Values() ([]float64, error) {
	h, err := f.Handle()
	if err != nil {
		return nil, err
	}
	return h.Values()
}

// Shape returns the grid dimensions (rows, cols). Either dimension is absent
// when the decoder reports the missing-value sentinel for it; no other
// integer accessor applies this mapping.
func (f *Field) Shape() (Shape, error) {
	h, err := f.Handle()
	if err != nil {
		return Shape{}, err
	}

	rows, err := intOrMissing(h, "Nj")
	if err != nil {
		return Shape{}, err
	}
	cols, err := intOrMissing(h, "Ni")
	if err != nil {
		return Shape{}, err
	}
	return Shape{Rows: rows, Cols: cols}, nil
}

// Grid returns the field values reshaped to the grid's extent. When either
// dimension is absent the flat, unshaped sequence is returned with zero
// Rows/Cols; this is a degraded result, not an error.
func (f *Field) Grid() (Grid, error) {
	values, err := f.Values()
	if err != nil {
		return Grid{}, err
	}
	shape, err := f.Shape()
	if err != nil {
		return Grid{}, err
	}
	if !shape.Known() {
		return Grid{Values: values}, nil
	}

	rows, cols := int(*shape.Rows), int(*shape.Cols)
	if rows*cols != len(values) {
		return Grid{}, fmt.Errorf("grib: cannot reshape %d values to %dx%d", len(values), rows, cols)
	}
	return Grid{Rows: rows, Cols: cols, Values: values}, nil
}

// GridDefinition returns the bounding coordinates and per-axis increments.
func (f *Field) GridDefinition() (GridDefinition, error) {
	h, err := f.Handle()
	if err != nil {
		return GridDefinition{}, err
	}

	def := GridDefinition{}
	for _, entry := range []struct {
		key string
		dst **float64
	}{
		{"latitudeOfFirstGridPointInDegrees", &def.North},
		{"latitudeOfLastGridPointInDegrees", &def.South},
		{"longitudeOfFirstGridPointInDegrees", &def.West},
		{"longitudeOfLastGridPointInDegrees", &def.East},
		{"jDirectionIncrementInDegrees", &def.SouthNorthIncrement},
		{"iDirectionIncrementInDegrees", &def.WestEastIncrement},
	} {
		v, err := floatKey(h, entry.key)
		if err != nil {
			return GridDefinition{}, err
		}
		*entry.dst = v
	}
	return def, nil
}

// BoundingBox returns the four-corner extent of the field.
func (f *Field) BoundingBox() (BoundingBox, error) {
	def, err := f.GridDefinition()
	if err != nil {
		return BoundingBox{}, err
	}
	if def.North == nil || def.South == nil || def.West == nil || def.East == nil {
		return BoundingBox{}, errors.New("grib: message carries no corner coordinates")
	}
	return BoundingBox{
		North: *def.North,
		South: *def.South,
		West:  *def.West,
		East:  *def.East,
	}, nil
}

// DateTime combines the date (YYYYMMDD) and time (HHMM) keys into a
// calendar timestamp.
func (f *Field) DateTime() (time.Time, error) {
	h, err := f.Handle()
	if err != nil {
		return time.Time{}, err
	}

	date, err := requiredInt(h, "date")
	if err != nil {
		return time.Time{}, err
	}
	hhmm, err := requiredInt(h, "time")
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(
		int(date/10000), time.Month(date%10000/100), int(date%100),
		int(hhmm/100), int(hhmm%100), 0, 0, time.UTC,
	), nil
}

// ValidDateTime returns DateTime advanced by the forecast step (the endStep
// key, in hours).
func (f *Field) ValidDateTime() (time.Time, error) {
	base, err := f.DateTime()
	if err != nil {
		return time.Time{}, err
	}
	h, err := f.Handle()
	if err != nil {
		return time.Time{}, err
	}
	step, err := requiredInt(h, "endStep")
	if err != nil {
		return time.Time{}, err
	}
	return base.Add(time.Duration(step) * time.Hour), nil
}

// ShortName returns the parameter short name, nil when absent.
func (f *Field) ShortName() (*string, error) {
	h, err := f.Handle()
	if err != nil {
		return nil, err
	}
	return stringKey(h, "shortName")
}

// ParamID returns the numeric parameter identifier, nil when absent.
func (f *Field) ParamID() (*int64, error) {
	h, err := f.Handle()
	if err != nil {
		return nil, err
	}
	return intKey(h, "paramId")
}

// Metadata returns the field's descriptive keys: grid definition, shape and,
// when present, shortName, units and paramId.
func (f *Field) Metadata() (map[string]any, error) {
	def, err := f.GridDefinition()
	if err != nil {
		return nil, err
	}
	shape, err := f.Shape()
	if err != nil {
		return nil, err
	}
	h, err := f.Handle()
	if err != nil {
		return nil, err
	}

	m := map[string]any{
		"north":                 def.North,
		"south":                 def.South,
		"west":                  def.West,
		"east":                  def.East,
		"south_north_increment": def.SouthNorthIncrement,
		"west_east_increment":   def.WestEastIncrement,
		"shape":                 shape,
	}
	for _, key := range []string{"shortName", "units", "paramId"} {
		v, err := h.Get(key)
		if err != nil {
			return nil, err
		}
		if v != nil {
			m[key] = fmt.Sprint(v)
		}
	}
	return m, nil
}

// -----------------------------------------------------------------------------
// Scalar coercion helpers
// -----------------------------------------------------------------------------

// intOrMissing reads an integer key, mapping both an absent key and the
// missing-value sentinel to nil.
func intOrMissing(h *Handle, key string) (*int64, error) {
	v, err := h.Get(key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	n, ok := asInt(v)
	if !ok {
		return nil, fmt.Errorf("grib: key %s: unexpected type %T", key, v)
	}
	if n == MissingValue {
		return nil, nil
	}
	return &n, nil
}

// requiredInt reads an integer key that must be present.
func requiredInt(h *Handle, key string) (int64, error) {
	v, err := h.Get(key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("grib: message carries no %s key", key)
	}
	n, ok := asInt(v)
	if !ok {
		return 0, fmt.Errorf("grib: key %s: unexpected type %T", key, v)
	}
	return n, nil
}

// floatKey reads a float key, nil when absent.
func floatKey(h *Handle, key string) (*float64, error) {
	v, err := h.Get(key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	x, ok := asFloat(v)
	if !ok {
		return nil, fmt.Errorf("grib: key %s: unexpected type %T", key, v)
	}
	return &x, nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
