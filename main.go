package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/term"

	"github.com/alexwilkerson/cas2wav/cas"
	"github.com/alexwilkerson/cas2wav/config"
	"github.com/alexwilkerson/cas2wav/fsk"
	"github.com/alexwilkerson/cas2wav/util/logger"
	"github.com/alexwilkerson/cas2wav/verify"
	"github.com/alexwilkerson/cas2wav/wavout"
)

const testTapeFile = "testtape.wav"

// options holds the parsed command line.
type options struct {
	set *getopt.Set

	config      *string
	logFile     *string
	diagnostics *bool
	wave        *string
	zero        *bool
	testTape    *int
	mark        *int
	space       *int
	baud        *int
	leader      *int
	irg         *int
	stretch     *int
	legacy      *bool
	keepPartial *bool
	output      *string
	verify      *bool
	help        *bool
}

func newOptions() *options {
	set := getopt.New()
	set.SetParameters("[file.cas]")
	return &options{
		set:         set,
		config:      set.StringLong("config", 'c', "", "Configuration file", "file"),
		logFile:     set.StringLong("log", 'l', "", "Log file", "file"),
		diagnostics: set.BoolLong("diagnostics", 'd', "Print diagnostic information"),
		wave:        set.StringLong("wave", 'w', "sine", "Wave shape: sine, square or pure", "shape"),
		zero:        set.BoolLong("zero", 'z', "Change from mark to space at the zero level"),
		testTape:    set.IntLong("test-tape", 't', 0, "Write a test tape of this many ms to "+testTapeFile, "ms"),
		mark:        set.IntLong("mark", 'm', fsk.DefaultMarkTone, "Mark tone", "Hz"),
		space:       set.IntLong("space", 's', fsk.DefaultSpaceTone, "Space tone", "Hz"),
		baud:        set.IntLong("baud", 'b', 0, "Fixed baud rate, ignoring baud records", "baud"),
		leader:      set.IntLong("leader", 'L', 0, "Fixed length of the first leader", "ms"),
		irg:         set.IntLong("irg", 'i', 0, "Fixed length of inter-record gaps", "ms"),
		stretch:     set.IntLong("stretch", 0, 0, "Samples moved from each mark run to the space run before it", "n"),
		legacy:      set.BoolLong("legacy-square", 0, "Square space tone with its high level at center, as older converters wrote it"),
		keepPartial: set.BoolLong("keep-partial", 0, "Keep the output file when conversion fails"),
		output:      set.StringLong("output", 'o', "", "Output file", "file"),
		verify:      set.BoolLong("verify", 'V', "Read back and demodulate the output"),
		help:        set.BoolLong("help", 'h', "Help"),
	}
}

// apply copies options given on the command line over cfg.
func (o *options) apply(cfg *config.Config) {
	if o.set.IsSet("diagnostics") {
		cfg.Diagnostics = *o.diagnostics
	}
	if o.set.IsSet("log") {
		cfg.LogFile = *o.logFile
	}
	if o.set.IsSet("wave") {
		cfg.Wave = *o.wave
	}
	if o.set.IsSet("zero") {
		cfg.Zero = *o.zero
	}
	if o.set.IsSet("mark") {
		cfg.MarkTone = *o.mark
	}
	if o.set.IsSet("space") {
		cfg.SpaceTone = *o.space
	}
	if o.set.IsSet("baud") {
		cfg.Baud = *o.baud
	}
	if o.set.IsSet("leader") {
		cfg.Leader = *o.leader
	}
	if o.set.IsSet("irg") {
		cfg.IRG = *o.irg
	}
	if o.set.IsSet("stretch") {
		cfg.Stretch = *o.stretch
	}
	if o.set.IsSet("legacy-square") {
		cfg.LegacySquare = *o.legacy
	}
	if o.set.IsSet("keep-partial") {
		cfg.KeepPartial = *o.keepPartial
	}
	if o.set.IsSet("output") {
		cfg.Output = *o.output
	}
	if o.set.IsSet("verify") {
		cfg.Verify = *o.verify
	}
}

// loadConfig builds the settings: defaults, then the config file, then the
// command line.
func loadConfig(o *options) (config.Config, error) {
	cfg := config.Defaults()
	if *o.config != "" {
		if err := config.Load(*o.config, &cfg); err != nil {
			return cfg, err
		}
	}
	o.apply(&cfg)
	return cfg, nil
}

// wavPath replaces the extension of path by .wav, or adds it.
func wavPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".wav"
}

// convert modulates the image at in into the wave file at out. A failed
// conversion discards the output file.
func convert(in, out string, cfg config.Config, log *slog.Logger) (*fsk.Modulator, error) {
	f, err := os.Open(in)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := cas.Check(f); err != nil {
		return nil, err
	}

	w, err := wavout.Create(out)
	if err != nil {
		return nil, err
	}
	fail := func(err error) error {
		w.Close()
		discard(out, cfg, log)
		return err
	}

	mod, err := fsk.NewModulator(cfg.Modulator(), w, log)
	if err != nil {
		return nil, fail(err)
	}

	r := cas.NewReader(f)
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return mod, fail(err)
		}
		if err := mod.Process(rec); err != nil {
			return mod, fail(err)
		}
	}
	if err := w.Close(); err != nil {
		discard(out, cfg, log)
		return mod, err
	}
	return mod, nil
}

// writeTestTape writes the scope pattern to out.
func writeTestTape(out string, ms int, cfg config.Config, log *slog.Logger) (int64, error) {
	w, err := wavout.Create(out)
	if err != nil {
		return 0, err
	}
	n, err := fsk.WriteTestTape(cfg.Modulator(), ms, w)
	if err == nil {
		err = w.Close()
	} else {
		w.Close()
	}
	if err != nil {
		discard(out, cfg, log)
	}
	return n, err
}

// discard removes a partial output file unless asked to keep it.
func discard(path string, cfg config.Config, log *slog.Logger) {
	if cfg.KeepPartial {
		log.Warn("partial output kept", "file", path)
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("could not remove partial output", "file", path, "error", err)
	}
}

// check reads back the output and demodulates it.
func check(path string, frames int64, payload int64, baud int, cfg config.Config, log *slog.Logger) error {
	rep, err := verify.File(path, verify.Target{
		Frames: frames,
		Demodulator: verify.Demodulator{
			SampleRate: fsk.SampleRate,
			Baud:       baud,
			MarkTone:   cfg.MarkTone,
			SpaceTone:  cfg.SpaceTone,
		},
	})
	if err != nil {
		return err
	}
	log.Info("verified",
		"file", path,
		"samples", rep.Info.Frames,
		"tone", fmt.Sprintf("%.0f Hz", rep.MarkHz),
		"decoded", len(rep.Decoded),
		"bytes", payload)
	if payload > 0 && int64(len(rep.Decoded)) != payload {
		log.Warn("demodulated byte count differs", "decoded", len(rep.Decoded), "bytes", payload)
	}
	return nil
}

func run(args []string) int {
	o := newOptions()
	if len(args) > 0 {
		o.set.SetProgram(filepath.Base(args[0]))
	}
	if err := o.set.Getopt(args, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		o.set.PrintUsage(os.Stderr)
		return 2
	}
	if *o.help {
		o.set.PrintUsage(os.Stdout)
		return 0
	}

	cfg, cfgErr := loadConfig(o)

	var logOut io.Writer
	if cfg.LogFile != "" {
		file, err := os.Create(cfg.LogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer file.Close()
		logOut = file
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	handler := logger.NewHandler(logOut, &slog.HandlerOptions{Level: programLevel}, cfg.Diagnostics)
	log := slog.New(handler)
	slog.SetDefault(log)

	if cfgErr != nil {
		log.Error(cfgErr.Error())
		return 1
	}

	var in string
	switch {
	case *o.testTape > 0:
	case o.set.NArgs() > 0:
		in = o.set.Arg(0)
	case term.IsTerminal(int(os.Stdin.Fd())):
		path, err := promptSettings(&cfg)
		if err != nil {
			log.Error("prompt", "error", err)
			return 1
		}
		in = path
		handler.SetDebug(cfg.Diagnostics)
	default:
		o.set.PrintUsage(os.Stderr)
		return 2
	}

	if err := cfg.Validate(); err != nil {
		log.Error(err.Error())
		return 1
	}
	if *o.testTape > 0 {
		out := cfg.Output
		if out == "" {
			out = testTapeFile
		}
		log.Info("writing test tape", "file", out, "ms", *o.testTape, "mode", cfg.Mode().String())
		n, err := writeTestTape(out, *o.testTape, cfg, log)
		if err != nil {
			log.Error("test tape failed", "error", err)
			return 1
		}
		if cfg.Verify {
			if err := check(out, n, 0, cfg.Modulator().Baud, cfg, log); err != nil {
				log.Error("verify failed", "error", err)
				return 1
			}
		}
		return 0
	}

	out := cfg.Output
	if out == "" {
		out = wavPath(in)
	}
	log.Debug("file", "input", in, "output", out, "mode", cfg.Mode().String())
	log.Info("processing", "file", in)

	mod, err := convert(in, out, cfg, log)
	if err != nil {
		log.Error("conversion failed", "file", in, "error", err)
		return 1
	}

	stats := mod.Stats()
	log.Info("done",
		"file", out,
		"records", stats.Records,
		"data", stats.DataRecords,
		"bytes", stats.Bytes,
		"samples", stats.Samples,
		"skipped", stats.Skipped)

	if cfg.Verify {
		if err := check(out, stats.Samples, stats.Bytes, mod.Timing().Baud, cfg, log); err != nil {
			log.Error("verify failed", "error", err)
			return 1
		}
	}
	return 0
}

func main() {
	os.Exit(run(os.Args))
}
