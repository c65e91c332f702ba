package fsk

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	SampleRate = 44100      // Output sample rate in Hz
	TableLen   = SampleRate // One second of tone per table
	ZeroLevel  = 128        // Center value of an unsigned 8 bit sample

	DefaultMarkTone  = 5327
	DefaultSpaceTone = 3995

	squareHigh      = 192
	squareLow       = 64
	legacySpaceHigh = ZeroLevel
	amplitude       = 127
)

// ErrToneTable is returned when a tone table cannot be built.
var ErrToneTable = errors.New("tone table")

// Level is one of the two FSK tones.
type Level int

const (
	Space Level = iota // A 0 bit, also the start bit
	Mark               // A 1 bit, the stop bit and the pre-record tone
)

func (l Level) String() string {
	if l == Mark {
		return "mark"
	}
	return "space"
}

// Shape selects the waveform drawn into the tone tables.
type Shape int

const (
	Sine Shape = iota
	Square
	Pure
)

var shapeNames = map[Shape]string{
	Sine:   "sine",
	Square: "square",
	Pure:   "pure",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape accepts the shape names and the legacy single letters s, b and p.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "s", "sine":
		return Sine, nil
	case "b", "block", "square":
		return Square, nil
	case "p", "pure":
		return Pure, nil
	}
	return Sine, fmt.Errorf("unknown wave shape %q", name)
}

// ToneTable holds one second of a single tone. It is never modified once built.
type ToneTable struct {
	Freq    int
	Level   Level
	Samples []byte
}

// NewToneTable renders the table for freq. With legacySquare the space table
// quantizes its upper half to the center level, matching older converters.
func NewToneTable(freq int, shape Shape, level Level, legacySquare bool) (*ToneTable, error) {
	if freq <= 0 || freq >= SampleRate/2 {
		return nil, fmt.Errorf("%w: %s frequency %d Hz out of range", ErrToneTable, level, freq)
	}

	high := byte(squareHigh)
	if legacySquare && level == Space {
		high = legacySpaceHigh
	}

	rad := float64(freq) * 2.0 * math.Pi / TableLen
	samples := make([]byte, TableLen)
	for i := range samples {
		v := byte(math.Round(math.Sin(rad*float64(i))*amplitude) + ZeroLevel)
		if shape == Square {
			if v >= ZeroLevel {
				v = high
			} else {
				v = squareLow
			}
		}
		samples[i] = v
	}
	return &ToneTable{Freq: freq, Level: level, Samples: samples}, nil
}

// Len returns the number of samples in the table.
func (t *ToneTable) Len() int {
	return len(t.Samples)
}
