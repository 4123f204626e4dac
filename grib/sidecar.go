package grib

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Sidecar namespaces. Each derived artifact of a source file gets its own
// namespace so the cache keys never collide.
const (
	indexNamespace      = "grib-index"
	statisticsNamespace = "grib-statistics"
)

// SidecarCompression selects how sidecar payloads are stored.
type SidecarCompression int

// Sidecar compression options.
const (
	// SidecarCompressionNone stores sidecars as plain JSON.
	SidecarCompressionNone SidecarCompression = iota

	// SidecarCompressionZstd stores sidecars as zstd-compressed JSON. Useful
	// for files with very many messages, where the index grows large.
	SidecarCompressionZstd
)

// sidecars reads and writes derived sidecar records for source files.
//
// Loads are tolerant by contract: a missing, unreadable or malformed sidecar
// is a cache miss (ErrCacheMiss), never a propagated failure. Writes are
// best-effort: a failed persist is logged and the in-memory result stays
// valid for the process run.
type sidecars struct {
	store       CacheStore
	compression SidecarCompression
	log         zerolog.Logger
}

// key derives a stable cache key for one namespace + source file. The key is
// a flat file name: namespace, short hash of the absolute source path, and an
// extension reflecting the payload encoding.
func (s *sidecars) key(namespace, srcPath string) string {
	abs, err := filepath.Abs(srcPath)
	if err != nil {
		abs = srcPath
	}
	sum := sha256.Sum256([]byte(abs))
	name := fmt.Sprintf("%s-%s.json", namespace, hex.EncodeToString(sum[:8]))
	if s.compression == SidecarCompressionZstd {
		name += ".zst"
	}
	return name
}

// load reads the sidecar for namespace+srcPath into v. Returns ErrCacheMiss
// for any absent, undecodable or undecompressable payload.
func (s *sidecars) load(namespace, srcPath string, v any) error {
	key := s.key(namespace, srcPath)

	data, err := s.store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Debug().Err(err).Str("sidecar", key).Msg("sidecar read failed")
		}
		return ErrCacheMiss
	}

	if s.compression == SidecarCompressionZstd {
		data, err = zstdDecode(data)
		if err != nil {
			s.log.Debug().Err(err).Str("sidecar", key).Msg("sidecar decompress failed")
			return ErrCacheMiss
		}
	}

	if err := jsonCodec.Unmarshal(data, v); err != nil {
		s.log.Debug().Err(err).Str("sidecar", key).Msg("sidecar decode failed")
		return ErrCacheMiss
	}
	return nil
}

// save persists v as the sidecar for namespace+srcPath. Failures are logged
// and swallowed; the caller's in-memory copy remains authoritative.
func (s *sidecars) save(namespace, srcPath string, v any) {
	key := s.key(namespace, srcPath)

	data, err := jsonCodec.Marshal(v)
	if err != nil {
		s.log.Warn().Err(err).Str("sidecar", key).Msg("sidecar encode failed")
		return
	}

	if s.compression == SidecarCompressionZstd {
		data, err = zstdEncode(data)
		if err != nil {
			s.log.Warn().Err(err).Str("sidecar", key).Msg("sidecar compress failed")
			return
		}
	}

	if err := s.store.Put(key, data); err != nil {
		s.log.Warn().Err(err).Str("sidecar", key).Msg("sidecar write failed")
	}
}

func zstdEncode(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	out := enc.EncodeAll(data, nil)
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func zstdDecode(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
