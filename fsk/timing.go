package fsk

import "fmt"

const (
	DefaultBaud = 600

	bitsPerFrame = 10 // start bit, eight data bits, stop bit
)

// Timing holds the sample counts derived from the current baud rate.
type Timing struct {
	Baud           int
	SamplesPerBit  int
	SamplesPerByte int
	Stretch        int // Samples moved from each mark run to the space run before it
}

// NewTiming computes the bit and byte lengths for baud.
func NewTiming(baud int, stretch int) (Timing, error) {
	t := Timing{Stretch: stretch}
	if err := t.SetBaud(baud); err != nil {
		return Timing{}, err
	}
	return t, nil
}

// SetBaud recomputes the sample counts. The byte length is computed on its
// own so it keeps the precision lost when dividing down to a single bit.
func (t *Timing) SetBaud(baud int) error {
	if baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", baud)
	}
	t.Baud = baud
	t.SamplesPerByte = SampleRate * bitsPerFrame / baud
	t.SamplesPerBit = SampleRate / baud
	return nil
}

// Segment is a run of identical bits rendered as one tone.
type Segment struct {
	Level   Level
	Samples int
}

// EncodeByte appends the segments for one framed byte to dst and returns the
// extended slice. The runs alternate starting with space and ending with mark,
// and their lengths always add up to t.SamplesPerByte.
func EncodeByte(b byte, t Timing, dst []Segment) []Segment {
	// Run lengths are summed in tenths of a sample, one bit being a whole
	// byte length, and only divided down once the runs are known.
	var runs [bitsPerFrame]int
	var bits [bitsPerFrame]int

	level := Space
	runs[0] = t.SamplesPerByte
	bits[0] = 1
	last := 0

	for i := 0; i < 8; i++ {
		bit := Level(b & 0x01)
		if bit != level {
			level = bit
			last++
			runs[last] = t.SamplesPerByte
			bits[last] = 1
		} else {
			runs[last] += t.SamplesPerByte
			bits[last]++
		}
		b >>= 1
	}

	if level == Mark {
		runs[last] += t.SamplesPerByte
		bits[last]++
	} else {
		last++
		runs[last] = t.SamplesPerByte
		bits[last] = 1
	}

	// Spread the truncation so the running total always matches where the
	// byte should be after the bits seen so far.
	total := 0
	totalBits := 0
	for i := 0; i <= last; i++ {
		runs[i] /= bitsPerFrame
		total += runs[i]
		totalBits += bits[i]
		remainder := totalBits*t.SamplesPerByte/bitsPerFrame - total
		runs[i] += remainder
		total += remainder
	}

	// Even entries are space, odd entries are mark.
	for i := 0; i+1 <= last; i += 2 {
		stretch := t.Stretch
		if stretch > runs[i+1] {
			stretch = runs[i+1]
		}
		if stretch < -runs[i] {
			stretch = -runs[i]
		}
		runs[i] += stretch
		runs[i+1] -= stretch
	}

	for i := 0; i <= last; i++ {
		lvl := Space
		if i%2 == 1 {
			lvl = Mark
		}
		dst = append(dst, Segment{Level: lvl, Samples: runs[i]})
	}
	return dst
}
