package grib

import (
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// CatalogEntry is the per-message row of a file's metadata catalog: where
// the message lives plus the descriptive keys used to look fields up without
// re-decoding the whole file.
type CatalogEntry struct {
	Offset    int64   `parquet:"offset"`
	Length    int64   `parquet:"length"`
	ShortName *string `parquet:"short_name,optional"`
	ParamID   *int64  `parquet:"param_id,optional"`
	Units     *string `parquet:"units,optional"`
	Level     *int64  `parquet:"level,optional"`
	Date      *int64  `parquet:"date,optional"`
	Time      *int64  `parquet:"time,optional"`
	Step      *int64  `parquet:"step,optional"`
	Rows      *int64  `parquet:"rows,optional"`
	Cols      *int64  `parquet:"cols,optional"`
}

// Catalog decodes every message once and returns one entry per message, in
// file order.
func (r *Reader) Catalog() ([]CatalogEntry, error) {
	it, err := r.Fields()
	if err != nil {
		return nil, err
	}
	defer closer(it)()

	entries := make([]CatalogEntry, 0, r.Len())
	for i := 0; ; i++ {
		field, err := it.Next()
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				break
			}
			return nil, err
		}
		entry, err := catalogEntry(field)
		if cerr := field.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("grib: catalog entry %d: %w", i, err)
		}
		if i < r.Len() {
			entry.Length = r.index.Lengths[i]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// WriteCatalog writes the catalog to w as a Parquet file and returns the
// number of rows written.
func (r *Reader) WriteCatalog(w io.Writer) (int, error) {
	entries, err := r.Catalog()
	if err != nil {
		return 0, err
	}

	pw := parquet.NewGenericWriter[CatalogEntry](w, parquet.Compression(&parquet.Snappy))
	n, err := pw.Write(entries)
	if err != nil {
		_ = pw.Close()
		return n, fmt.Errorf("grib: write catalog: %w", err)
	}
	if err := pw.Close(); err != nil {
		return n, fmt.Errorf("grib: close catalog: %w", err)
	}
	return n, nil
}

// ReadCatalog reads a catalog previously written by WriteCatalog.
func ReadCatalog(r io.ReaderAt, size int64) ([]CatalogEntry, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("grib: open catalog: %w", err)
	}
	pr := parquet.NewGenericReader[CatalogEntry](pf)
	defer closer(pr)()

	entries := make([]CatalogEntry, 0, pf.NumRows())
	buf := make([]CatalogEntry, 64)
	for {
		n, err := pr.Read(buf)
		entries = append(entries, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("grib: read catalog: %w", err)
		}
	}
	return entries, nil
}

func catalogEntry(field *Field) (CatalogEntry, error) {
	h, err := field.Handle()
	if err != nil {
		return CatalogEntry{}, err
	}

	entry := CatalogEntry{Offset: field.Offset()}

	shortName, err := field.ShortName()
	if err != nil {
		return CatalogEntry{}, err
	}
	entry.ShortName = shortName

	paramID, err := field.ParamID()
	if err != nil {
		return CatalogEntry{}, err
	}
	entry.ParamID = paramID

	units, err := stringKey(h, "units")
	if err != nil {
		return CatalogEntry{}, err
	}
	entry.Units = units

	for _, scalar := range []struct {
		key string
		dst **int64
	}{
		{"level", &entry.Level},
		{"date", &entry.Date},
		{"time", &entry.Time},
		{"endStep", &entry.Step},
	} {
		v, err := intKey(h, scalar.key)
		if err != nil {
			return CatalogEntry{}, err
		}
		*scalar.dst = v
	}

	shape, err := field.Shape()
	if err != nil {
		return CatalogEntry{}, err
	}
	entry.Rows = shape.Rows
	entry.Cols = shape.Cols

	return entry, nil
}

// stringKey reads a string key, nil when absent.
func stringKey(h *Handle, key string) (*string, error) {
	v, err := h.Get(key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	s := fmt.Sprint(v)
	return &s, nil
}

// intKey reads an integer key raw, nil when absent. Unlike the shape
// accessors this does not map the missing-value sentinel.
func intKey(h *Handle, key string) (*int64, error) {
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
	return &n, nil
}
