package grib

import "errors"

// Iterator walks one Reader's fields in message order. It owns a dedicated
// Cursor, independent of the Reader's random-access cursor, so iteration and
// indexed access never interleave seek state.
//
// An exhausted Iterator cannot be rewound; obtain a fresh one from
// Reader.Fields.
type Iterator struct {
	cursor *Cursor
	done   bool
}

// Next returns the next Field, or ErrNoMessage when the file is exhausted.
// The returned Field is already materialized (the decode just happened); the
// caller releases it with Close.
func (it *Iterator) Next() (*Field, error) {
	if it.done {
		return nil, ErrNoMessage
	}

	offset, err := it.cursor.Offset()
	if err != nil {
		return nil, err
	}
	handle, err := it.cursor.Next()
	if err != nil {
		if errors.Is(err, ErrNoMessage) {
			it.done = true
		}
		return nil, err
	}
	return newField(handle, it.cursor, offset), nil
}

// Close releases the iterator's cursor.
func (it *Iterator) Close() error {
	return it.cursor.Close()
}
