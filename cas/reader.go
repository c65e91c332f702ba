// Package cas reads cassette image files: a sequence of records, each an
// eight byte header followed by its payload.
package cas

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const headerLen = 8

// Record tags.
var (
	TagFUJI = [4]byte{'F', 'U', 'J', 'I'} // Description, first record of every image
	TagBaud = [4]byte{'b', 'a', 'u', 'd'} // Aux holds the baud rate
	TagData = [4]byte{'d', 'a', 't', 'a'} // Aux holds the gap before the record in ms
)

// ErrMalformed is returned for input that is not a valid cassette image.
var ErrMalformed = errors.New("malformed cassette image")

// Record is one record of the image.
type Record struct {
	Tag    [4]byte
	Length uint16
	Aux1   byte
	Aux2   byte
	Data   []byte
}

// Aux returns the two aux bytes as a little endian value.
func (r *Record) Aux() uint16 {
	return uint16(r.Aux2)<<8 | uint16(r.Aux1)
}

// TagString returns the tag as text.
func (r *Record) TagString() string {
	return string(r.Tag[:])
}

// Reader returns the records of an image in order.
type Reader struct {
	r      io.Reader
	hdr    [headerLen]byte
	rec    Record
	buf    []byte
	count  int
	offset int64
}

// NewReader creates a reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next reads the next record. It returns io.EOF once the image ends on a
// record boundary. The returned record and its payload are overwritten by
// the following call.
func (cr *Reader) Next() (*Record, error) {
	n, err := io.ReadFull(cr.r, cr.hdr[:])
	switch {
	case err == io.EOF:
		if cr.count == 0 {
			return nil, fmt.Errorf("%w: empty file", ErrMalformed)
		}
		return nil, io.EOF
	case err == io.ErrUnexpectedEOF:
		return nil, fmt.Errorf("%w: record header damaged at offset %d, %d of %d bytes",
			ErrMalformed, cr.offset, n, headerLen)
	case err != nil:
		return nil, err
	}

	rec := &cr.rec
	copy(rec.Tag[:], cr.hdr[0:4])
	rec.Length = binary.LittleEndian.Uint16(cr.hdr[4:6])
	rec.Aux1 = cr.hdr[6]
	rec.Aux2 = cr.hdr[7]

	if cr.count == 0 && rec.Tag != TagFUJI {
		return nil, fmt.Errorf("%w: does not begin with \"FUJI\"", ErrMalformed)
	}

	size := int(rec.Length)
	if cap(cr.buf) < size {
		cr.buf = make([]byte, size)
	}
	rec.Data = cr.buf[:size]
	if n, err := io.ReadFull(cr.r, rec.Data); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: record %q at offset %d damaged, %d of %d bytes",
				ErrMalformed, rec.TagString(), cr.offset, n, size)
		}
		return nil, err
	}

	cr.count++
	cr.offset += int64(headerLen + size)
	return rec, nil
}

// Count returns the number of records read.
func (cr *Reader) Count() int {
	return cr.count
}

// Check makes sure r starts with a description record header, then rewinds
// it to the start.
func Check(r io.ReadSeeker) error {
	var hdr [headerLen]byte
	n, err := io.ReadFull(r, hdr[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	if n < 4 || [4]byte(hdr[0:4]) != TagFUJI {
		return fmt.Errorf("%w: does not begin with \"FUJI\"", ErrMalformed)
	}
	if n < headerLen {
		return fmt.Errorf("%w: description length missing", ErrMalformed)
	}
	_, err = r.Seek(0, io.SeekStart)
	return err
}
