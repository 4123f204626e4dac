package grib

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// gribMarker is the 4-byte pattern that begins every message.
var gribMarker = [4]byte{'G', 'R', 'I', 'B'}

// -----------------------------------------------------------------------------
// Message Scanner
// -----------------------------------------------------------------------------

// Scanner yields (offset, length) pairs for each message in a GRIB byte
// stream, in file order. It delimits byte ranges only; it does not decode
// message contents, and malformed interior bytes do not fail the scan.
//
// A Scanner makes a single forward pass. To rescan, create a new Scanner.
type Scanner struct {
	r      io.ReadSeeker
	offset int64
	done   bool
	err    error
}

// NewScanner creates a Scanner reading from the start of r.
func NewScanner(r io.ReadSeeker) *Scanner {
	return &Scanner{r: r}
}

// Next returns the next message range. It reports false when the scan is
// exhausted; check Err afterwards for I/O failures.
//
// The search tolerates leading garbage and inter-message padding: on a marker
// mismatch it advances exactly one byte and retries. A truncated length or
// section read terminates the scan at the end of readable bytes.
func (s *Scanner) Next() (Message, bool) {
	if s.done {
		return Message{}, false
	}

	if s.offset == 0 {
		if _, err := s.r.Seek(0, io.SeekStart); err != nil {
			s.fail(err)
			return Message{}, false
		}
	}

	for {
		var code [4]byte
		if _, err := io.ReadFull(s.r, code[:]); err != nil {
			// Fewer than 4 bytes left: end of scan.
			s.finish(err)
			return Message{}, false
		}

		if code != gribMarker {
			s.offset++
			if _, err := s.r.Seek(s.offset, io.SeekStart); err != nil {
				s.fail(err)
				return Message{}, false
			}
			continue
		}

		length, err := s.readUint(3)
		if err != nil {
			s.finish(err)
			return Message{}, false
		}
		edition, err := s.readUint(1)
		if err != nil {
			s.finish(err)
			return Message{}, false
		}

		switch edition {
		case 1:
			if length&0x800000 != 0 {
				length, err = s.correctedLength(length)
				if err != nil {
					s.finish(err)
					return Message{}, false
				}
			}
		case 2:
			// The 24-bit field read above is framing detection only; the
			// authoritative total length is the 8-byte field that follows.
			length, err = s.readUint(8)
			if err != nil {
				s.finish(err)
				return Message{}, false
			}
		}

		msg := Message{Offset: s.offset, Length: length}
		s.offset += length
		if _, err := s.r.Seek(s.offset, io.SeekStart); err != nil {
			s.fail(err)
			return msg, true
		}
		return msg, true
	}
}

// correctedLength walks the edition-1 inner sections to reach section 4's
// length and applies the large-message length correction. Certain historical
// encoders undercount the 24-bit outer length field; when section 4's length
// is below 120 the real total is (length & 0x7FFFFF)*120 - sec4len + 4. The
// arithmetic is bug-compatible with those encoders and must not be
// "corrected" further.
func (s *Scanner) correctedLength(length int64) (int64, error) {
	sec1len, err := s.readUint(3)
	if err != nil {
		return 0, err
	}
	if _, err := s.r.Seek(4, io.SeekCurrent); err != nil {
		return 0, err
	}
	flags, err := s.readUint(1)
	if err != nil {
		return 0, err
	}
	if _, err := s.r.Seek(sec1len-8, io.SeekCurrent); err != nil {
		return 0, err
	}

	// Sections 2 and 3 are optional, announced by flag bits 7 and 6.
	if flags&(1<<7) != 0 {
		sec2len, err := s.readUint(3)
		if err != nil {
			return 0, err
		}
		if _, err := s.r.Seek(sec2len-3, io.SeekCurrent); err != nil {
			return 0, err
		}
	}
	if flags&(1<<6) != 0 {
		sec3len, err := s.readUint(3)
		if err != nil {
			return 0, err
		}
		if _, err := s.r.Seek(sec3len-3, io.SeekCurrent); err != nil {
			return 0, err
		}
	}

	sec4len, err := s.readUint(3)
	if err != nil {
		return 0, err
	}

	if sec4len < 120 {
		length &= 0x7FFFFF
		length *= 120
		length -= sec4len
		length += 4
	}
	return length, nil
}

// readUint reads n big-endian bytes as an unsigned integer.
func (s *Scanner) readUint(n int) (int64, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return 0, err
	}
	var v int64
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v, nil
}

// finish ends the scan. Truncation mid-read is treated as end of readable
// bytes, not an error; anything else is surfaced through Err.
func (s *Scanner) finish(err error) {
	s.done = true
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.err = err
	}
}

func (s *Scanner) fail(err error) {
	s.done = true
	s.err = err
}

// Err returns the first I/O failure encountered, if any. A scan that simply
// ran out of bytes returns nil.
func (s *Scanner) Err() error {
	return s.err
}

// ScanMessages scans the file at path to completion and returns every
// message range in file order.
func ScanMessages(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grib: open %s: %w", path, err)
	}
	defer closer(f)()

	var msgs []Message
	sc := NewScanner(f)
	for {
		msg, ok := sc.Next()
		if !ok {
			break
		}
		msgs = append(msgs, msg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("grib: scan %s: %w", path, err)
	}
	return msgs, nil
}
