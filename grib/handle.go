package grib

import (
	"errors"
	"fmt"
)

// Keys that request array-valued results from the decoder.
const (
	keyValues             = "values"
	keyDistinctLatitudes  = "distinctLatitudes"
	keyDistinctLongitudes = "distinctLongitudes"
)

// Handle owns one decoder resource bound to the message at a specific offset
// of a specific file. Exactly one owner; the owning Field releases it when
// closed.
type Handle struct {
	msg      DecodedMessage
	path     string
	offset   int64
	released bool
}

func newHandle(msg DecodedMessage, path string, offset int64) *Handle {
	return &Handle{msg: msg, path: path, offset: offset}
}

// Path returns the source file this handle was decoded from.
func (h *Handle) Path() string {
	return h.path
}

// Offset returns the byte offset this handle was decoded from.
func (h *Handle) Offset() int64 {
	return h.offset
}

// Get returns the decoded value of key, or nil when the key does not apply
// to this message. The array-valued keys "values", "distinctLatitudes" and
// "distinctLongitudes" yield []float64; everything else is a scalar.
//
// Integer keys that use the missing-value convention return MissingValue
// raw; mapping it to an absent value is the caller's job (see Field.Shape).
func (h *Handle) Get(key string) (any, error) {
	switch key {
	case keyValues, keyDistinctLatitudes, keyDistinctLongitudes:
		v, err := h.msg.Float64s(key)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("grib: get %s: %w", key, err)
		}
		return v, nil
	}

	v, err := h.msg.Scalar(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("grib: get %s: %w", key, err)
	}
	return v, nil
}

// Values returns the full decoded numeric grid as a flat sequence.
func (h *Handle) Values() ([]float64, error) {
	v, err := h.msg.Float64s(keyValues)
	if err != nil {
		return nil, fmt.Errorf("grib: get values: %w", err)
	}
	return v, nil
}

// Release frees the underlying decoder resource. Safe to call more than
// once; only the first call releases.
func (h *Handle) Release() error {
	if h.released {
		return nil
	}
	h.released = true
	return h.msg.Release()
}
