package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterh/liner"

	"github.com/alexwilkerson/cas2wav/config"
	"github.com/alexwilkerson/cas2wav/fsk"
	"github.com/alexwilkerson/cas2wav/util/logger"
	"github.com/alexwilkerson/cas2wav/verify"
)

func testLogger() *slog.Logger {
	h := logger.NewHandler(nil, nil, false)
	h.SetConsole(io.Discard)
	return slog.New(h)
}

func casRecord(tag string, aux uint16, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString(tag)
	binary.Write(&b, binary.LittleEndian, uint16(len(data)))
	binary.Write(&b, binary.LittleEndian, aux)
	b.Write(data)
	return b.Bytes()
}

func writeImage(t *testing.T, records ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.cas")
	if err := os.WriteFile(path, bytes.Join(records, nil), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWavPath(t *testing.T) {
	tests := map[string]string{
		"game.cas":        "game.wav",
		"dir/game.CAS":    "dir/game.wav",
		"game":            "game.wav",
		"my.tapes/game":   "my.tapes/game.wav",
		"archive.tar.cas": "archive.tar.wav",
	}
	for in, want := range tests {
		if got := wavPath(in); got != want {
			t.Errorf("wavPath(%q) = %q expected %q", in, got, want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cas2wav.toml")
	if err := os.WriteFile(path, []byte("baud = 875\nwave = \"pure\"\nirg = 250\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	o := newOptions()
	args := []string{"cas2wav", "-c", path, "-b", "425", "--wave=sine", "-z", "game.cas"}
	if err := o.set.Getopt(args, nil); err != nil {
		t.Fatalf("Getopt returned %v", err)
	}
	cfg, err := loadConfig(o)
	if err != nil {
		t.Fatalf("loadConfig returned %v", err)
	}

	want := config.Defaults()
	want.Baud = 425
	want.Wave = "sine"
	want.Zero = true
	want.IRG = 250
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
	if o.set.NArgs() != 1 || o.set.Arg(0) != "game.cas" {
		t.Errorf("Arguments %v", o.set.Args())
	}
}

// script answers prompts from a list, then reports end of input.
type script struct {
	answers []string
	asked   []string
}

func (s *script) Prompt(prompt string) (string, error) {
	s.asked = append(s.asked, prompt)
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func TestPromptSettings(t *testing.T) {
	in := &script{answers: []string{
		"",          // file, asked again
		"wrong.cas", // file
		"n",         // not correct
		"game.cas",  // file
		"",          // correct
		"no",        // diagnostics
		"x",         // wave, asked again
		"p",         // wave
		"y",         // zero
		"",          // mark
		"4000",      // space
		"abc",       // baud, asked again
		"875",       // baud
		"",          // leader
		"300",       // gap
	}}
	cfg := config.Defaults()
	cfg.Diagnostics = true

	p := &prompter{in: in}
	path, err := p.settings(&cfg)
	if err != nil {
		t.Fatalf("settings returned %v", err)
	}
	if path != "game.cas" {
		t.Errorf("Path %q expected game.cas", path)
	}

	want := config.Defaults()
	want.Wave = "pure"
	want.Zero = true
	want.SpaceTone = 4000
	want.Baud = 875
	want.IRG = 300
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
	if len(in.answers) != 0 {
		t.Errorf("%d answers left", len(in.answers))
	}
}

type abortReader struct{}

func (abortReader) Prompt(string) (string, error) {
	return "", liner.ErrPromptAborted
}

func TestPromptAborted(t *testing.T) {
	cfg := config.Defaults()

	p := &prompter{in: &script{answers: []string{"game.cas", "y", "y"}}}
	if _, err := p.settings(&cfg); !errors.Is(err, errAborted) {
		t.Errorf("End of input got %v expected errAborted", err)
	}

	p = &prompter{in: abortReader{}}
	if _, err := p.settings(&cfg); !errors.Is(err, errAborted) {
		t.Errorf("Ctrl-C got %v expected errAborted", err)
	}
}

func TestConvert(t *testing.T) {
	payload := []byte("10 PRINT \"HELLO\"\n20 GOTO 10\n")
	in := writeImage(t,
		casRecord("FUJI", 0, []byte("hello")),
		casRecord("baud", 600, nil),
		casRecord("data", 250, payload),
		casRecord("pwms", 0, []byte{1, 2}),
		casRecord("data", 100, payload[:4]),
	)
	out := wavPath(in)
	cfg := config.Defaults()
	log := testLogger()

	mod, err := convert(in, out, cfg, log)
	if err != nil {
		t.Fatalf("convert returned %v", err)
	}
	stats := mod.Stats()
	want := fsk.Stats{
		Records:     5,
		DataRecords: 2,
		Bytes:       int64(len(payload) + 4),
		Samples:     int64(fsk.PreRecordSamples(250) + fsk.PreRecordSamples(100) + (len(payload)+4)*735),
		Skipped:     1,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}

	rep, err := verify.File(out, verify.Target{
		Frames: stats.Samples,
		Demodulator: verify.Demodulator{
			SampleRate: fsk.SampleRate,
			Baud:       mod.Timing().Baud,
			MarkTone:   cfg.MarkTone,
			SpaceTone:  cfg.SpaceTone,
		},
	})
	if err != nil {
		t.Fatalf("verify.File returned %v", err)
	}
	if diff := cmp.Diff(append(append([]byte{}, payload...), payload[:4]...), rep.Decoded); diff != "" {
		t.Errorf("Decoded bytes mismatch (-want +got):\n%s", diff)
	}

	if err := check(out, stats.Samples, stats.Bytes, mod.Timing().Baud, cfg, log); err != nil {
		t.Errorf("check returned %v", err)
	}
}

func TestConvertFailure(t *testing.T) {
	// The second data record is cut short.
	image := bytes.Join([][]byte{
		casRecord("FUJI", 0, nil),
		casRecord("data", 100, []byte{1, 2, 3}),
		casRecord("data", 100, []byte{1, 2, 3, 4, 5, 6}),
	}, nil)
	in := writeImage(t, image[:len(image)-2])

	for _, keep := range []bool{false, true} {
		out := filepath.Join(t.TempDir(), "out.wav")
		cfg := config.Defaults()
		cfg.KeepPartial = keep

		if _, err := convert(in, out, cfg, testLogger()); err == nil {
			t.Fatalf("convert accepted a truncated image")
		}
		_, err := os.Stat(out)
		if keep && err != nil {
			t.Errorf("Partial output removed with keep partial set: %v", err)
		}
		if !keep && !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Partial output left behind: %v", err)
		}
	}
}

func TestConvertNotAnImage(t *testing.T) {
	in := writeImage(t, []byte("RIFF....WAVEfmt "))
	out := filepath.Join(t.TempDir(), "out.wav")
	if err := os.WriteFile(out, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := convert(in, out, config.Defaults(), testLogger()); err == nil {
		t.Fatalf("convert accepted a wave file")
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "keep me" {
		t.Errorf("Existing output touched: %q, %v", data, err)
	}
}

func TestDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.wav")
	if err := os.WriteFile(path, []byte{1}, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.KeepPartial = true
	discard(path, cfg, testLogger())
	if _, err := os.Stat(path); err != nil {
		t.Errorf("File removed with keep partial set: %v", err)
	}

	cfg.KeepPartial = false
	discard(path, cfg, testLogger())
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("File not removed: %v", err)
	}

	// Nothing to remove.
	discard(path, cfg, testLogger())
}

func TestWriteTestTape(t *testing.T) {
	out := filepath.Join(t.TempDir(), "scope.wav")
	n, err := writeTestTape(out, 50, config.Defaults(), testLogger())
	if err != nil {
		t.Fatalf("writeTestTape returned %v", err)
	}
	if n < int64(fsk.TestTapeSamples(50)) {
		t.Errorf("Wrote %d samples expected at least %d", n, fsk.TestTapeSamples(50))
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	info, err := verify.Inspect(f)
	if err != nil {
		t.Fatalf("Inspect returned %v", err)
	}
	if err := info.Expect(fsk.SampleRate, n); err != nil {
		t.Errorf("Expect returned %v", err)
	}
}

func TestRun(t *testing.T) {
	in := writeImage(t,
		casRecord("FUJI", 0, nil),
		casRecord("data", 200, []byte{0x55, 0xaa, 0x00, 0xff}),
	)
	dir := t.TempDir()
	logFile := filepath.Join(dir, "cas2wav.log")

	if code := run([]string{"cas2wav", "-V", "-l", logFile, in}); code != 0 {
		t.Fatalf("run returned %d", code)
	}
	if _, err := os.Stat(wavPath(in)); err != nil {
		t.Errorf("No output: %v", err)
	}
	log, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(log, []byte("INFO: verified")) {
		t.Errorf("Log file lacks the verification: %s", log)
	}

	tape := filepath.Join(dir, "tape.wav")
	if code := run([]string{"cas2wav", "-t", "20", "-o", tape, "--wave=square"}); code != 0 {
		t.Errorf("Test tape run returned %d", code)
	}
	if _, err := os.Stat(tape); err != nil {
		t.Errorf("No test tape: %v", err)
	}

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"help", []string{"cas2wav", "-h"}, 0},
		{"unknown option", []string{"cas2wav", "--nope"}, 2},
		{"bad wave", []string{"cas2wav", "-w", "saw", in}, 1},
		{"missing input", []string{"cas2wav", filepath.Join(dir, "none.cas")}, 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if code := run(test.args); code != test.code {
				t.Errorf("run returned %d expected %d", code, test.code)
			}
		})
	}
}
