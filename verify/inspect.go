// Package verify reads back a produced wave file and demodulates it, as a
// check that the converter wrote what the cassette interface expects.
package verify

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

// ErrFormat is returned when a wave file does not have the expected layout.
var ErrFormat = errors.New("unexpected wave format")

// Info is the header information of a wave file. Frames comes from the data
// chunk size as written, so a trailing pad byte is not counted.
type Info struct {
	AudioFormat uint16
	Channels    uint16
	SampleRate  uint32
	ByteRate    uint32
	BlockAlign  uint16
	BitDepth    uint16
	RIFFSize    uint32
	Frames      int64
}

// Inspect walks the chunks of a wave file up to its data chunk. r is left
// at the first sample.
func Inspect(r io.ReadSeeker) (Info, error) {
	var info Info

	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil {
		return info, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if p.Format != riff.WavFormatID {
		return info, fmt.Errorf("%w: container format %q", ErrFormat, p.Format[:])
	}
	info.RIFFSize = p.Size

	haveFmt := false
	for {
		id, size, err := p.IDnSize()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return info, fmt.Errorf("%w: no data chunk", ErrFormat)
			}
			return info, err
		}

		switch id {
		case riff.FmtID:
			ch := &riff.Chunk{ID: id, Size: int(size), R: io.LimitReader(r, int64(size))}
			if err := ch.DecodeWavHeader(p); err != nil {
				return info, fmt.Errorf("%w: fmt chunk: %w", ErrFormat, err)
			}
			info.AudioFormat = p.WavAudioFormat
			info.Channels = p.NumChannels
			info.SampleRate = p.SampleRate
			info.ByteRate = p.AvgBytesPerSec
			info.BlockAlign = p.BlockAlign
			info.BitDepth = p.BitsPerSample
			haveFmt = true

		case riff.DataFormatID:
			if !haveFmt {
				return info, fmt.Errorf("%w: data chunk before fmt chunk", ErrFormat)
			}
			if info.BlockAlign == 0 {
				return info, fmt.Errorf("%w: zero block align", ErrFormat)
			}
			info.Frames = int64(size) / int64(info.BlockAlign)
			return info, nil

		default:
			// Chunks are word aligned.
			skip := int64(size) + int64(size%2)
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return info, err
			}
		}
	}
}

// Expect checks that info describes 8 bit mono PCM at sampleRate holding
// frames samples.
func (info Info) Expect(sampleRate int, frames int64) error {
	switch {
	case info.AudioFormat != 1:
		return fmt.Errorf("%w: audio format %d", ErrFormat, info.AudioFormat)
	case info.Channels != 1:
		return fmt.Errorf("%w: %d channels", ErrFormat, info.Channels)
	case info.BitDepth != 8:
		return fmt.Errorf("%w: %d bits per sample", ErrFormat, info.BitDepth)
	case int(info.SampleRate) != sampleRate:
		return fmt.Errorf("%w: sample rate %d", ErrFormat, info.SampleRate)
	case int(info.ByteRate) != sampleRate:
		return fmt.Errorf("%w: byte rate %d", ErrFormat, info.ByteRate)
	case info.Frames != frames:
		return fmt.Errorf("%w: %d samples, expected %d", ErrFormat, info.Frames, frames)
	}
	return nil
}
