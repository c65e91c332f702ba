package verify

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const framesToRead = 8192 // Frames read from the decoder each time

// Target describes what a produced file should hold.
type Target struct {
	Frames int64
	Demodulator
}

// Report is the outcome of a verification.
type Report struct {
	Info    Info
	MarkHz  float64 // Tone measured over the first 100 ms, the pre-record tone
	Decoded []byte
}

// ReadSamples decodes the samples of a wave file, stopping after frames of
// them so a trailing pad byte is not returned as a sample.
func ReadSamples(r io.ReadSeeker, frames int64) ([]int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		if err := decoder.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		return nil, fmt.Errorf("%w: invalid wav file", ErrFormat)
	}

	samples := make([]int, 0, frames)
	buf := &audio.IntBuffer{Data: make([]int, framesToRead), Format: &audio.Format{}}
	for int64(len(samples)) < frames {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		samples = append(samples, buf.Data[:n]...)
	}
	if int64(len(samples)) > frames {
		samples = samples[:frames]
	}
	if int64(len(samples)) != frames {
		return nil, fmt.Errorf("%w: read %d of %d samples", ErrFormat, len(samples), frames)
	}
	return samples, nil
}

// File checks the header of the wave file at path against want and
// demodulates its content.
func File(path string, want Target) (Report, error) {
	var rep Report

	f, err := os.Open(path)
	if err != nil {
		return rep, err
	}
	defer f.Close()

	if rep.Info, err = Inspect(f); err != nil {
		return rep, err
	}
	if err := rep.Info.Expect(want.SampleRate, want.Frames); err != nil {
		return rep, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return rep, err
	}
	samples, err := ReadSamples(f, rep.Info.Frames)
	if err != nil {
		return rep, err
	}

	changes, err := SignChanges(samples, int(rep.Info.BitDepth))
	if err != nil {
		return rep, err
	}
	head := len(changes)
	if limit := want.SampleRate / 10; head > limit {
		head = limit
	}
	rep.MarkHz = EstimateFrequency(changes[:head], want.SampleRate)

	if rep.Decoded, err = want.Decode(changes); err != nil {
		return rep, err
	}
	return rep, nil
}
