// Package wavout writes the 8 bit mono PCM wave files produced by the
// converter.
package wavout

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	SampleRate  = 44100
	BitDepth    = 8
	NumChannels = 1

	formatPCM = 1
)

// ErrWrite is returned when the output rejects or truncates a write.
var ErrWrite = errors.New("write failure")

// Writer streams samples into a wave file. The header goes out with the first
// write or on Start, and the length fields are patched by Close.
type Writer struct {
	ws      io.WriteSeeker
	file    *os.File // Set when the writer owns the file
	enc     *wav.Encoder
	buf     *audio.IntBuffer
	frames  int64
	started bool
	closed  bool
}

// Create creates or truncates the file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	w := New(f)
	w.file = f
	return w, nil
}

// New creates a writer on ws. Close does not close ws.
func New(ws io.WriteSeeker) *Writer {
	return &Writer{
		ws:  ws,
		enc: wav.NewEncoder(ws, SampleRate, BitDepth, NumChannels, formatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: NumChannels, SampleRate: SampleRate},
			SourceBitDepth: BitDepth,
		},
	}
}

// Start writes the header and opens the data chunk. Calling it again does
// nothing.
func (w *Writer) Start() error {
	if w.started {
		return nil
	}
	return w.write(nil)
}

// WriteSamples appends unsigned 8 bit samples.
func (w *Writer) WriteSamples(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return w.write(p)
}

func (w *Writer) write(p []byte) error {
	if w.closed {
		return fmt.Errorf("%w: writer closed", ErrWrite)
	}
	if cap(w.buf.Data) < len(p) {
		w.buf.Data = make([]int, len(p))
	}
	w.buf.Data = w.buf.Data[:len(p)]
	for i, v := range p {
		w.buf.Data[i] = int(v)
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	w.started = true
	w.frames += int64(len(p))
	return nil
}

// Frames returns the number of samples written.
func (w *Writer) Frames() int64 {
	return w.frames
}

// Close patches the length fields and adds a pad byte after an odd number of
// samples. The pad byte is not counted in the RIFF size. A file opened by
// Create is closed as well.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.finish()
	w.closed = true
	if w.file != nil {
		if cerr := w.file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrWrite, cerr)
		}
	}
	return err
}

func (w *Writer) finish() error {
	if err := w.Start(); err != nil {
		return err
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if w.frames%2 == 1 {
		if _, err := w.ws.Write([]byte{0}); err != nil {
			return fmt.Errorf("%w: pad byte: %w", ErrWrite, err)
		}
	}
	return nil
}
