// Package config holds the converter settings and loads them from a TOML
// file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/alexwilkerson/cas2wav/fsk"
)

// ErrInvalid is returned for settings the converter cannot use.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full set of converter settings. Zero values for Baud,
// Leader and IRG mean the values recorded in the image are used.
type Config struct {
	Baud         int    `toml:"baud"`
	MarkTone     int    `toml:"mark"`
	SpaceTone    int    `toml:"space"`
	Wave         string `toml:"wave"`
	Zero         bool   `toml:"zero"`
	Leader       int    `toml:"leader"`
	IRG          int    `toml:"irg"`
	Stretch      int    `toml:"stretch"`
	LegacySquare bool   `toml:"legacy_square"`

	Output      string `toml:"output"`
	LogFile     string `toml:"log"`
	Diagnostics bool   `toml:"diagnostics"`
	KeepPartial bool   `toml:"keep_partial"`
	Verify      bool   `toml:"verify"`
}

// Defaults returns the settings used when nothing else is given.
func Defaults() Config {
	return Config{
		MarkTone:  fsk.DefaultMarkTone,
		SpaceTone: fsk.DefaultSpaceTone,
		Wave:      fsk.Sine.String(),
	}
}

// Load reads the TOML file at path over cfg. Keys not present in the file
// keep their current value.
func Load(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if _, err := fsk.ParseShape(c.Wave); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch {
	case c.Baud < 0 || c.Baud > fsk.SampleRate:
		return fmt.Errorf("%w: baud rate %d", ErrInvalid, c.Baud)
	case c.MarkTone <= 0 || c.MarkTone >= fsk.SampleRate/2:
		return fmt.Errorf("%w: mark tone %d Hz", ErrInvalid, c.MarkTone)
	case c.SpaceTone <= 0 || c.SpaceTone >= fsk.SampleRate/2:
		return fmt.Errorf("%w: space tone %d Hz", ErrInvalid, c.SpaceTone)
	case c.Leader < 0:
		return fmt.Errorf("%w: leader %d ms", ErrInvalid, c.Leader)
	case c.IRG < 0:
		return fmt.Errorf("%w: inter-record gap %d ms", ErrInvalid, c.IRG)
	}
	return nil
}

// Shape returns the wave shape. Call Validate first.
func (c *Config) Shape() fsk.Shape {
	shape, _ := fsk.ParseShape(c.Wave)
	return shape
}

// Modulator returns the settings used by the modulator.
func (c *Config) Modulator() fsk.Config {
	baud := c.Baud
	if baud == 0 {
		baud = fsk.DefaultBaud
	}
	return fsk.Config{
		Baud:           baud,
		FixedBaud:      c.Baud != 0,
		MarkTone:       c.MarkTone,
		SpaceTone:      c.SpaceTone,
		Shape:          c.Shape(),
		ZeroTransition: c.Zero,
		LegacySquare:   c.LegacySquare,
		Leader:         c.Leader,
		IRG:            c.IRG,
		Stretch:        c.Stretch,
	}
}

// Mode returns the splice policy the settings select.
func (c *Config) Mode() fsk.Mode {
	return fsk.ModeFor(c.Shape(), c.Zero)
}
