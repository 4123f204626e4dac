package grib

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------
// Reader Configuration
// -----------------------------------------------------------------------------

// readerConfig holds the resolved configuration for a Reader.
type readerConfig struct {
	decoder     Decoder
	cache       CacheStore
	cacheDir    string
	compression SidecarCompression
	log         zerolog.Logger
}

// Option configures Reader construction.
type Option func(*readerConfig)

// WithDecoder sets the external message decoder. Required for any operation
// that reads field contents; index-only use (Len, Index) works without one.
func WithDecoder(dec Decoder) Option {
	return func(cfg *readerConfig) { cfg.decoder = dec }
}

// WithCacheDir roots the sidecar cache at dir.
// Default: <user cache dir>/grib.
func WithCacheDir(dir string) Option {
	return func(cfg *readerConfig) { cfg.cacheDir = dir }
}

// WithCacheStore sets the sidecar cache store directly, overriding
// WithCacheDir. Useful for tests and for in-memory reuse.
func WithCacheStore(store CacheStore) Option {
	return func(cfg *readerConfig) { cfg.cache = store }
}

// WithSidecarCompression selects the sidecar payload encoding.
// Default: SidecarCompressionNone.
func WithSidecarCompression(c SidecarCompression) Option {
	return func(cfg *readerConfig) { cfg.compression = c }
}

// WithLogger sets the logger for cache diagnostics.
// Default: a disabled logger.
func WithLogger(log zerolog.Logger) Option {
	return func(cfg *readerConfig) { cfg.log = log }
}

// -----------------------------------------------------------------------------
// Reader
// -----------------------------------------------------------------------------

// Reader binds one GRIB file to its message Index and provides random access
// by message number, whole-file iteration, and cached aggregate statistics.
//
// A Reader owns its own file descriptor and shares no mutable state with
// other Readers; independent Readers may be used from different goroutines.
// Within one Reader, calls are not synchronized: the random-access cursor is
// shared across At calls, so concurrent use requires external locking.
type Reader struct {
	path    string
	decoder Decoder
	sc      *sidecars
	index   *Index
	cursor  *Cursor // lazy; shared by At/First
	stats   *Statistics

	// scan builds the index on a cache miss. Replaceable in tests.
	scan func(string) (*Index, error)
}

// OpenReader opens the GRIB file at path, loading its message index from the
// sidecar cache or building it by scanning.
func OpenReader(path string, opts ...Option) (*Reader, error) {
	cfg := &readerConfig{
		compression: SidecarCompressionNone,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("grib: %w", err)
	}

	cache := cfg.cache
	if cache == nil {
		dir := cfg.cacheDir
		if dir == "" {
			base, err := os.UserCacheDir()
			if err != nil {
				return nil, fmt.Errorf("grib: resolve cache dir: %w", err)
			}
			dir = filepath.Join(base, "grib")
		}
		var err error
		cache, err = NewFSCache(dir)
		if err != nil {
			return nil, fmt.Errorf("grib: cache dir: %w", err)
		}
	}

	r := &Reader{
		path:    path,
		decoder: cfg.decoder,
		sc: &sidecars{
			store:       cache,
			compression: cfg.compression,
			log:         cfg.log.With().Str("path", path).Logger(),
		},
		scan: buildIndex,
	}

	ix, err := loadOrBuildIndex(r.sc, path, r.scan)
	if err != nil {
		return nil, err
	}
	r.index = ix
	return r, nil
}

// Path returns the source file path.
func (r *Reader) Path() string {
	return r.path
}

// Len returns the number of messages in the file.
func (r *Reader) Len() int {
	return r.index.Len()
}

// Index returns the message index. It is immutable for the Reader's
// lifetime.
func (r *Reader) Index() *Index {
	return r.index
}

// At returns the n-th field of the file. The field is lazy: nothing is
// decoded until a metadata accessor is called.
func (r *Reader) At(n int) (*Field, error) {
	if n < 0 || n >= r.index.Len() {
		return nil, fmt.Errorf("grib: field %d of %d: %w", n, r.index.Len(), ErrFieldRange)
	}
	cursor, err := r.randomCursor()
	if err != nil {
		return nil, err
	}
	return newField(nil, cursor, r.index.Offsets[n]), nil
}

// First returns the first field, typically used to probe shape and grid
// definition without touching the rest of the file.
func (r *Reader) First() (*Field, error) {
	return r.At(0)
}

// Fields returns an iterator over every field in message order. The
// iterator uses its own cursor; close it when done.
func (r *Reader) Fields() (*Iterator, error) {
	if r.decoder == nil {
		return nil, fmt.Errorf("grib: iterate %s: %w", r.path, ErrNoDecoder)
	}
	cursor, err := NewCursor(r.path, r.decoder)
	if err != nil {
		return nil, err
	}
	return &Iterator{cursor: cursor}, nil
}

// DateTimes returns the sorted distinct valid datetimes over every field.
func (r *Reader) DateTimes() ([]time.Time, error) {
	it, err := r.Fields()
	if err != nil {
		return nil, err
	}
	defer closer(it)()

	seen := make(map[time.Time]bool)
	var times []time.Time
	for {
		field, err := it.Next()
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				break
			}
			return nil, err
		}
		t, err := field.ValidDateTime()
		if cerr := field.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			times = append(times, t)
		}
	}

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times, nil
}

// BoundingBox returns the merged four-corner extent over every field.
func (r *Reader) BoundingBox() (BoundingBox, error) {
	it, err := r.Fields()
	if err != nil {
		return BoundingBox{}, err
	}
	defer closer(it)()

	var box BoundingBox
	first := true
	for {
		field, err := it.Next()
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				break
			}
			return BoundingBox{}, err
		}
		b, err := field.BoundingBox()
		if cerr := field.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return BoundingBox{}, err
		}
		if first {
			box = b
			first = false
		} else {
			box = box.merge(b)
		}
	}
	if first {
		return BoundingBox{}, errors.New("grib: empty file has no bounding box")
	}
	return box, nil
}

// Close releases the Reader's random-access cursor. Fields obtained from
// this Reader must not be materialized afterwards.
func (r *Reader) Close() error {
	if r.cursor == nil {
		return nil
	}
	cursor := r.cursor
	r.cursor = nil
	return cursor.Close()
}

// randomCursor lazily opens the cursor shared by indexed access.
func (r *Reader) randomCursor() (*Cursor, error) {
	if r.decoder == nil {
		return nil, fmt.Errorf("grib: read %s: %w", r.path, ErrNoDecoder)
	}
	if r.cursor != nil {
		return r.cursor, nil
	}
	cursor, err := NewCursor(r.path, r.decoder)
	if err != nil {
		return nil, err
	}
	r.cursor = cursor
	return cursor, nil
}
