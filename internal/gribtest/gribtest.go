// Package gribtest provides synthetic GRIB message builders and a counting
// in-memory decoder for tests and examples.
//
// The builders assemble byte-faithful message framing (editions 1 and 2,
// including the edition-1 length-correction quirk) without real meteorological
// payloads; the decoder serves scripted keys and values per message offset.
package gribtest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/justapithecus/grib/grib"
)

// -----------------------------------------------------------------------------
// Message builders
// -----------------------------------------------------------------------------

// Edition2Message builds one edition-2 message of exactly totalLen bytes.
// Minimum length is 16 (marker through the 8-byte total length field).
func Edition2Message(totalLen int) []byte {
	if totalLen < 16 {
		panic("gribtest: edition-2 message needs at least 16 bytes")
	}
	b := make([]byte, totalLen)
	copy(b, "GRIB")
	// Bytes 4-6 are reserved/discipline; only byte 7 (edition) and the
	// 8-byte length matter to the framing scan.
	b[7] = 2
	binary.BigEndian.PutUint64(b[8:16], uint64(totalLen))
	return b
}

// Edition1Message builds one plain edition-1 message of exactly totalLen
// bytes (24-bit length field, no correction quirk).
func Edition1Message(totalLen int) []byte {
	if totalLen < 8 || totalLen >= 1<<23 {
		panic("gribtest: edition-1 message length out of range")
	}
	b := make([]byte, totalLen)
	copy(b, "GRIB")
	b[4] = byte(totalLen >> 16)
	b[5] = byte(totalLen >> 8)
	b[6] = byte(totalLen)
	b[7] = 1
	return b
}

// Edition1QuirkMessage builds an edition-1 message whose 24-bit length field
// has the high flag bit set, exercising the large-message correction: the
// true length is maskedLen*120 - sec4Len + 4. sec4Len must be below 120 for
// the correction to apply. withOptionalSections adds sections 2 and 3.
//
// The returned slice has exactly the corrected length, so concatenated
// messages tile without gaps.
func Edition1QuirkMessage(maskedLen, sec4Len int, withOptionalSections bool) []byte {
	if sec4Len >= 120 {
		panic("gribtest: section-4 length must be below 120 for the quirk")
	}
	total := maskedLen*120 - sec4Len + 4
	const sec1Len = 12
	need := 8 + sec1Len + 3 // header + section 1 + section-4 length field
	if withOptionalSections {
		need += 3 + 3 // minimal sections 2 and 3 (length fields only)
	}
	if total < need {
		panic("gribtest: corrected length too small for the section walk")
	}

	b := make([]byte, total)
	copy(b, "GRIB")
	raw := 0x800000 | maskedLen
	b[4] = byte(raw >> 16)
	b[5] = byte(raw >> 8)
	b[6] = byte(raw)
	b[7] = 1

	// Section 1: 3-byte length, 4 skipped bytes, flags byte, padding.
	pos := 8
	b[pos] = byte(sec1Len >> 16)
	b[pos+1] = byte(sec1Len >> 8)
	b[pos+2] = byte(sec1Len)
	flags := byte(0)
	if withOptionalSections {
		flags = 1<<7 | 1<<6
	}
	b[pos+7] = flags
	pos += sec1Len

	if withOptionalSections {
		for i := 0; i < 2; i++ {
			b[pos] = 0
			b[pos+1] = 0
			b[pos+2] = 3
			pos += 3
		}
	}

	// Section 4 length field; the remainder of the message is padding.
	b[pos] = byte(sec4Len >> 16)
	b[pos+1] = byte(sec4Len >> 8)
	b[pos+2] = byte(sec4Len)

	return b
}

// BuildFile concatenates message byte slices into one file image.
func BuildFile(msgs ...[]byte) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m...)
	}
	return out
}

// WriteFile writes data to a fresh temp file and returns its path.
func WriteFile(t testing.TB, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.grib")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// -----------------------------------------------------------------------------
// Scripted decoder
// -----------------------------------------------------------------------------

// MessageSpec scripts one decodable message: its byte range plus the keys
// the decoder should answer for it.
type MessageSpec struct {
	Offset  int64
	Length  int64
	Scalars map[string]any
	Arrays  map[string][]float64
}

// Decoder implements grib.Decoder over scripted messages, keyed by offset.
// Decode matches the first scripted message at or after the file's current
// position, mimicking a codec that skips inter-message padding.
//
// DecodeCalls and ReleaseCalls count invocations for laziness and resource
// assertions.
type Decoder struct {
	specs []MessageSpec

	DecodeCalls  int
	ReleaseCalls int
}

// NewDecoder creates a scripted decoder. Specs may be given in any order.
func NewDecoder(specs ...MessageSpec) *Decoder {
	sorted := append([]MessageSpec(nil), specs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	return &Decoder{specs: sorted}
}

// Decode implements grib.Decoder.
func (d *Decoder) Decode(f *os.File) (grib.DecodedMessage, error) {
	d.DecodeCalls++

	pos, err := f.Seek(0, 1)
	if err != nil {
		return nil, err
	}
	for _, spec := range d.specs {
		if spec.Offset >= pos {
			if _, err := f.Seek(spec.Offset+spec.Length, 0); err != nil {
				return nil, err
			}
			return &decoded{dec: d, spec: spec}, nil
		}
	}
	return nil, grib.ErrNoMessage
}

// decoded implements grib.DecodedMessage for one scripted message.
type decoded struct {
	dec      *Decoder
	spec     MessageSpec
	released bool
}

func (m *decoded) Scalar(key string) (any, error) {
	v, ok := m.spec.Scalars[key]
	if !ok {
		return nil, grib.ErrKeyNotFound
	}
	return v, nil
}

func (m *decoded) Float64s(key string) ([]float64, error) {
	v, ok := m.spec.Arrays[key]
	if !ok {
		return nil, grib.ErrKeyNotFound
	}
	return append([]float64(nil), v...), nil
}

func (m *decoded) Release() error {
	if !m.released {
		m.released = true
		m.dec.ReleaseCalls++
	}
	return nil
}
