package grib

import (
	"fmt"
	"io"
	"os"
)

// Cursor owns one open file descriptor and drives the decoder over it,
// either sequentially or by explicit offset.
//
// A Cursor is stateful: sequential decode and seek share one file position.
// It is not safe for concurrent use; callers that parallelize must use one
// Cursor per goroutine or serialize access themselves.
type Cursor struct {
	f    *os.File
	dec  Decoder
	path string
}

// NewCursor opens path for reading with the given decoder.
func NewCursor(path string, dec Decoder) (*Cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grib: open %s: %w", path, err)
	}
	return &Cursor{f: f, dec: dec, path: path}, nil
}

// Offset returns the current file position, i.e. where the next sequential
// decode will start.
func (c *Cursor) Offset() (int64, error) {
	return c.f.Seek(0, io.SeekCurrent)
}

// Next decodes the message at the current position and advances past it.
// Returns ErrNoMessage when no further message is decodable.
func (c *Cursor) Next() (*Handle, error) {
	offset, err := c.Offset()
	if err != nil {
		return nil, err
	}
	msg, err := c.dec.Decode(c.f)
	if err != nil {
		return nil, err
	}
	return newHandle(msg, c.path, offset), nil
}

// AtOffset seeks to offset and decodes the message there.
func (c *Cursor) AtOffset(offset int64) (*Handle, error) {
	if _, err := c.f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	return c.Next()
}

// Close releases the file descriptor.
func (c *Cursor) Close() error {
	return c.f.Close()
}
