package grib

// indexVersion is the sidecar schema version. Bumping it invalidates every
// previously written index sidecar.
const indexVersion = 1

// -----------------------------------------------------------------------------
// Index
// -----------------------------------------------------------------------------

// Index maps message positions within one source file: entry i describes
// message i. Offsets and Lengths always have the same length.
//
// An Index is built once per distinct source file by scanning, cached to a
// sidecar, and immutable for the lifetime of the owning Reader.
type Index struct {
	Version int     `json:"version"`
	Offsets []int64 `json:"offsets"`
	Lengths []int64 `json:"lengths"`
}

// Len returns the number of indexed messages.
func (ix *Index) Len() int {
	return len(ix.Offsets)
}

// Message returns the byte range of message n.
func (ix *Index) Message(n int) Message {
	return Message{Offset: ix.Offsets[n], Length: ix.Lengths[n]}
}

// valid reports whether a loaded sidecar record matches the current schema.
// Anything else is a cache miss, never a failure.
func (ix *Index) valid() bool {
	return ix.Version == indexVersion && len(ix.Offsets) == len(ix.Lengths)
}

// buildIndex scans the file at path to completion.
func buildIndex(path string) (*Index, error) {
	msgs, err := ScanMessages(path)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		Version: indexVersion,
		Offsets: make([]int64, 0, len(msgs)),
		Lengths: make([]int64, 0, len(msgs)),
	}
	for _, m := range msgs {
		ix.Offsets = append(ix.Offsets, m.Offset)
		ix.Lengths = append(ix.Lengths, m.Length)
	}
	return ix, nil
}

// loadOrBuildIndex returns the cached index for path, or scans and persists a
// fresh one. scan is the build function (injected for tests); sc handles the
// sidecar round-trip.
func loadOrBuildIndex(sc *sidecars, path string, scan func(string) (*Index, error)) (*Index, error) {
	var cached Index
	if err := sc.load(indexNamespace, path, &cached); err == nil {
		if cached.valid() {
			return &cached, nil
		}
		// Parsed but stale or malformed: same as absent.
		sc.log.Debug().Str("path", path).Int("version", cached.Version).
			Msg("index sidecar stale, rebuilding")
	}

	ix, err := scan(path)
	if err != nil {
		return nil, err
	}
	sc.save(indexNamespace, path, ix)
	return ix, nil
}
