package fsk

import (
	"fmt"
	"log/slog"

	"github.com/alexwilkerson/cas2wav/cas"
)

// Gaps below this many milliseconds are inter-record gaps, longer ones are
// treated as real leaders.
const irgThreshold = 3000

// Config holds the values the modulator uses for one run.
type Config struct {
	Baud           int  // Initial baud rate
	FixedBaud      bool // Ignore baud records
	MarkTone       int  // Hz
	SpaceTone      int  // Hz
	Shape          Shape
	ZeroTransition bool
	LegacySquare   bool
	Leader         int // Milliseconds of tone before the first data record, 0 keeps the recorded gap
	IRG            int // Milliseconds used for gaps below three seconds, 0 keeps the recorded gap
	Stretch        int
}

// Output is the sink of a full conversion. Start writes the stream header.
type Output interface {
	Sink
	Start() error
}

// Stats counts what a run has processed.
type Stats struct {
	Records     int   // All records seen
	DataRecords int   // Data records modulated
	Bytes       int64 // Payload bytes modulated
	Samples     int64 // Samples emitted
	Skipped     int   // Records with an unknown tag
}

// Modulator turns container records into samples. It owns all state of one
// conversion run.
type Modulator struct {
	cfg     Config
	timing  Timing
	engine  *Engine
	out     Output
	log     *slog.Logger
	leader  int // Pending leader, cleared once used
	started bool
	segs    []Segment
	stats   Stats
}

// NewTables builds the mark and space tables for cfg.
func NewTables(cfg Config) (mark, space *ToneTable, err error) {
	mark, err = NewToneTable(cfg.MarkTone, cfg.Shape, Mark, cfg.LegacySquare)
	if err != nil {
		return nil, nil, err
	}
	space, err = NewToneTable(cfg.SpaceTone, cfg.Shape, Space, cfg.LegacySquare)
	if err != nil {
		return nil, nil, err
	}
	return mark, space, nil
}

// NewModulator builds the tone tables and the cursor for a run writing to out.
// A nil logger uses the default one.
func NewModulator(cfg Config, out Output, log *slog.Logger) (*Modulator, error) {
	if log == nil {
		log = slog.Default()
	}
	timing, err := NewTiming(cfg.Baud, cfg.Stretch)
	if err != nil {
		return nil, err
	}
	mark, space, err := NewTables(cfg)
	if err != nil {
		return nil, err
	}
	return &Modulator{
		cfg:    cfg,
		timing: timing,
		engine: NewEngine(mark, space, ModeFor(cfg.Shape, cfg.ZeroTransition), out),
		out:    out,
		log:    log,
		leader: cfg.Leader,
		segs:   make([]Segment, 0, bitsPerFrame),
	}, nil
}

// Timing returns the current bit timing.
func (m *Modulator) Timing() Timing {
	return m.timing
}

// Mode returns the splice policy chosen from the configuration.
func (m *Modulator) Mode() Mode {
	return m.engine.Mode()
}

// Stats returns the counters so far.
func (m *Modulator) Stats() Stats {
	s := m.stats
	s.Samples = m.engine.Written()
	return s
}

// Process handles one record.
func (m *Modulator) Process(rec *cas.Record) error {
	m.stats.Records++
	switch rec.Tag {
	case cas.TagFUJI:
		return m.description(rec)
	case cas.TagBaud:
		m.baud(rec)
		return nil
	case cas.TagData:
		return m.data(rec)
	}
	m.stats.Skipped++
	m.log.Debug("unknown record type", "tag", rec.TagString(), "bytes", rec.Length)
	return nil
}

func (m *Modulator) description(rec *cas.Record) error {
	m.log.Debug("description", "text", string(rec.Data))
	if m.started {
		return nil
	}
	if err := m.out.Start(); err != nil {
		return err
	}
	m.started = true
	return nil
}

func (m *Modulator) baud(rec *cas.Record) {
	if m.cfg.FixedBaud {
		m.log.Debug("baud record ignored", "fixed", m.timing.Baud, "recorded", rec.Aux())
		return
	}
	baud := int(rec.Aux())
	if err := m.timing.SetBaud(baud); err != nil {
		m.log.Warn("baud record ignored", "error", err)
		return
	}
	m.log.Debug("baud rate set", "baud", baud)
}

// PreRecordSamples converts a gap in milliseconds to samples at 44.1 per ms.
func PreRecordSamples(ms int) int {
	return ms*44 + ms/10
}

func (m *Modulator) data(rec *cas.Record) error {
	if !m.started {
		return fmt.Errorf("%w: data record before description", cas.ErrMalformed)
	}

	gap := int(rec.Aux())
	switch {
	case m.leader != 0:
		gap = m.leader
		m.leader = 0
	case m.cfg.IRG != 0 && gap < irgThreshold:
		gap = m.cfg.IRG
	}

	offset := m.engine.Written()
	if err := m.engine.Emit(Mark, PreRecordSamples(gap)); err != nil {
		return err
	}
	m.stats.DataRecords++
	m.log.Debug("record",
		"number", m.stats.DataRecords,
		"offset", offset,
		"prwt", gap,
		"bytes", len(rec.Data))

	for _, b := range rec.Data {
		m.segs = EncodeByte(b, m.timing, m.segs[:0])
		for _, s := range m.segs {
			if err := m.engine.Emit(s.Level, s.Samples); err != nil {
				return err
			}
		}
	}
	m.stats.Bytes += int64(len(rec.Data))
	return nil
}
