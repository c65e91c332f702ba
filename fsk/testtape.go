package fsk

import "fmt"

// TestTapeSamples is the number of samples asked for by a test tape of ms
// milliseconds. The pattern is never cut short, so the tape may run longer.
func TestTapeSamples(ms int) int {
	return ms * 441 / 10
}

// WriteTestTape renders a fixed scope pattern to out: six bits of mark
// followed by three space and mark pairs, each pattern starting again from
// the beginning of the mark table. It returns the number of samples written.
func WriteTestTape(cfg Config, ms int, out Output) (int64, error) {
	timing, err := NewTiming(cfg.Baud, 0)
	if err != nil {
		return 0, err
	}
	if timing.SamplesPerBit == 0 {
		return 0, fmt.Errorf("baud rate %d too high for a test tape", cfg.Baud)
	}
	mark, space, err := NewTables(cfg)
	if err != nil {
		return 0, err
	}
	e := NewEngine(mark, space, ModeFor(cfg.Shape, cfg.ZeroTransition), out)

	if err := out.Start(); err != nil {
		return 0, err
	}

	bit := timing.SamplesPerBit
	pattern := []Segment{
		{Mark, bit * 3},
		{Mark, bit * 3},
		{Space, bit},
		{Mark, bit},
		{Space, bit},
		{Mark, bit},
		{Space, bit},
		{Mark, bit},
	}

	want := int64(TestTapeSamples(ms))
	for e.Written() < want {
		e.Reset()
		for _, s := range pattern {
			if err := e.Emit(s.Level, s.Samples); err != nil {
				return e.Written(), err
			}
		}
	}
	return e.Written(), nil
}
