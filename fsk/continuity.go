package fsk

// Sink receives rendered samples. The slice passed to WriteSamples points into
// a tone table and is only valid for the duration of the call.
type Sink interface {
	WriteSamples(p []byte) error
}

// Mode is the policy used to splice the waveform when the tone changes.
type Mode int

const (
	ContinuousSine     Mode = iota // Resume at the same value and slope in the other table
	ContinuousPureTone             // Finish the half period, then change tone at the zero level
	SquareWave                     // Make sure the first half period after a change is whole
	ZeroCrossingAnchor             // Mark ends at its table end, space starts at its table start
)

func (m Mode) String() string {
	switch m {
	case ContinuousSine:
		return "continuous sine"
	case ContinuousPureTone:
		return "continuous pure tone"
	case SquareWave:
		return "square wave"
	case ZeroCrossingAnchor:
		return "zero crossing anchor"
	}
	return "unknown"
}

// ModeFor picks the splice policy. A transition at the zero level overrides
// the wave shape.
func ModeFor(shape Shape, zeroTransition bool) Mode {
	switch {
	case zeroTransition:
		return ZeroCrossingAnchor
	case shape == Pure:
		return ContinuousPureTone
	case shape == Square:
		return SquareWave
	}
	return ContinuousSine
}

// Engine renders tone runs from the mark and space tables. The cursor is kept
// between calls, across segments and records, which is what keeps the
// waveform continuous.
type Engine struct {
	mode   Mode
	tables [2]*ToneTable // indexed by Level
	sink   Sink

	level   Level // Table the cursor is in
	pos     int   // Next sample to emit from the table
	prev    Level // Level of the last run emitted
	written int64 // Samples sent to the sink
}

// NewEngine creates an engine with the cursor at the start of the mark table.
func NewEngine(mark, space *ToneTable, mode Mode, sink Sink) *Engine {
	e := &Engine{
		mode: mode,
		sink: sink,
	}
	e.tables[Mark] = mark
	e.tables[Space] = space
	e.Reset()
	return e
}

// Reset moves the cursor to the start of the mark table.
func (e *Engine) Reset() {
	e.level = Mark
	e.pos = 0
	e.prev = Mark
}

// Mode returns the splice policy in use.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Cursor returns the active table and the index of the next sample.
func (e *Engine) Cursor() (Level, int) {
	return e.level, e.pos
}

// Remaining returns the samples left in the active table before it wraps.
func (e *Engine) Remaining() int {
	return e.tables[e.level].Len() - e.pos
}

// Written returns the number of samples emitted so far.
func (e *Engine) Written() int64 {
	return e.written
}

// Emit writes n samples of the given tone. A zero count leaves the engine
// untouched.
func (e *Engine) Emit(level Level, n int) error {
	if n <= 0 {
		return nil
	}

	switch e.mode {
	case ZeroCrossingAnchor:
		e.anchor(level, n)

	case ContinuousPureTone:
		if level != e.prev {
			done, err := e.finishHalfPeriod(level, n)
			if err != nil {
				return err
			}
			if done == n {
				return nil
			}
			n -= done
		}

	case ContinuousSine:
		if level != e.prev {
			e.matchSlope(level)
		}

	case SquareWave:
		if level != e.prev {
			e.squareUp(level)
		}
	}

	if err := e.render(n); err != nil {
		return err
	}
	e.prev = level
	return nil
}

// seek places the cursor in the table for level.
func (e *Engine) seek(level Level, pos int) {
	e.level = level
	e.pos = pos
}

// anchor positions mark so its last sample is the last entry of the table.
// Space always starts at the beginning, so each mark to space change happens
// at the zero level.
func (e *Engine) anchor(level Level, n int) {
	if level == Space {
		e.seek(Space, 0)
		return
	}
	size := e.tables[Mark].Len()
	e.seek(Mark, size-n%size)
}

// finishHalfPeriod writes samples of the current tone until the signal crosses
// the zero level, then moves to the new table heading the same direction. It
// returns the number of samples written, which never exceeds n. If n runs out
// first the cursor stays in the old table.
func (e *Engine) finishHalfPeriod(level Level, n int) (int, error) {
	if e.pos == 0 {
		// Tables start rising from the zero level.
		e.seek(level, 0)
		return 0, nil
	}

	t := e.tables[e.level].Samples
	last, cur := t[e.pos-1], t[e.pos]
	falling := false
	done := 0
	var err error

	switch {
	case last >= ZeroLevel && cur <= ZeroLevel:
		falling = true
	case last <= ZeroLevel && cur >= ZeroLevel:
		falling = false
	case last > ZeroLevel:
		falling = true
		done, err = e.renderWhile(n, func(v byte) bool { return v > ZeroLevel })
	default:
		done, err = e.renderWhile(n, func(v byte) bool { return v < ZeroLevel })
	}
	if err != nil || done == n {
		return done, err
	}

	start := 0
	if falling {
		start = indexAtOrBelow(e.tables[level].Samples, 1)
	}
	e.seek(level, start)
	return done, nil
}

// matchSlope resumes in the other table at the value written last, heading
// in the same direction.
func (e *Engine) matchSlope(level Level) {
	if e.pos == 0 {
		e.seek(level, 0)
		return
	}

	t := e.tables[e.level].Samples
	last, cur := t[e.pos-1], t[e.pos]
	var falling bool
	switch {
	case last > cur:
		falling = true
	case last < cur:
		falling = false
	default:
		// At a peak or trough, moving away from it.
		falling = cur > ZeroLevel
	}

	e.seek(level, indexAfterMatch(e.tables[level].Samples, last, falling))
}

// squareUp starts the new tone on its low half when the current sample is
// high, so the first half period after the change has its full length.
func (e *Engine) squareUp(level Level) {
	start := 0
	if e.pos < e.tables[e.level].Len() && e.tables[e.level].Samples[e.pos] > ZeroLevel {
		start = indexAtOrBelow(e.tables[level].Samples, 0)
	}
	e.seek(level, start)
}

// render copies n samples from the active table, wrapping at its end.
func (e *Engine) render(n int) error {
	t := e.tables[e.level].Samples
	for n > 0 {
		if e.pos >= len(t) {
			e.pos = 0
		}
		k := len(t) - e.pos
		if k > n {
			k = n
		}
		if err := e.write(t[e.pos : e.pos+k]); err != nil {
			return err
		}
		e.pos += k
		n -= k
	}
	// Never leave the cursor on the end of the table.
	if e.pos >= len(t) {
		e.pos = 0
	}
	return nil
}

// renderWhile copies samples while keep holds, stopping at the end of the
// table or after limit samples.
func (e *Engine) renderWhile(limit int, keep func(byte) bool) (int, error) {
	t := e.tables[e.level].Samples
	start := e.pos
	for e.pos < len(t) && e.pos-start < limit && keep(t[e.pos]) {
		e.pos++
	}
	done := e.pos - start
	if done == 0 {
		return 0, nil
	}
	err := e.write(t[start:e.pos])
	if e.pos >= len(t) {
		e.pos = 0
	}
	return done, err
}

func (e *Engine) write(p []byte) error {
	if err := e.sink.WriteSamples(p); err != nil {
		return err
	}
	e.written += int64(len(p))
	return nil
}

// indexAtOrBelow returns the first index from start holding a value at or
// below the zero level, or 0 if there is none.
func indexAtOrBelow(t []byte, start int) int {
	for i := start; i < len(t); i++ {
		if t[i] <= ZeroLevel {
			return i
		}
	}
	return 0
}

// indexAfterMatch searches t, skipping its first entry, for v followed by a
// sample heading the requested direction and returns the index of that
// following sample. It returns 0 if no such spot exists.
func indexAfterMatch(t []byte, v byte, falling bool) int {
	for i := 1; i+1 < len(t); i++ {
		if t[i] != v {
			continue
		}
		next := t[i+1]
		if (falling && next < v) || (!falling && next > v) {
			return i + 1
		}
	}
	return 0
}
