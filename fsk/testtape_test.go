package fsk

import (
	"bytes"
	"testing"
)

func TestTestTapeSamples(t *testing.T) {
	if got := TestTapeSamples(1000); got != 44100 {
		t.Errorf("TestTapeSamples(1000) got %d", got)
	}
	if got := TestTapeSamples(100); got != 4410 {
		t.Errorf("TestTapeSamples(100) got %d", got)
	}
}

func TestWriteTestTape(t *testing.T) {
	rec := &recorder{}
	n, err := WriteTestTape(testConfig(), 100, rec)
	if err != nil {
		t.Fatalf("WriteTestTape returned %v", err)
	}

	// Twelve bits of 73 samples per pattern, six patterns to reach 4410.
	const pattern = 12 * 73
	if n != 6*pattern {
		t.Errorf("Test tape has %d samples expected %d", n, 6*pattern)
	}
	if int64(len(rec.samples)) != n {
		t.Errorf("Sink got %d samples expected %d", len(rec.samples), n)
	}
	if rec.starts != 1 {
		t.Errorf("Output started %d times", rec.starts)
	}

	mark := mustTable(t, DefaultMarkTone, Sine, Mark, false)
	for i := 0; i < 6; i++ {
		got := rec.samples[i*pattern : i*pattern+6*73]
		if !bytes.Equal(got, mark.Samples[:6*73]) {
			t.Errorf("Pattern %d does not start with the mark table", i)
		}
	}
}

func TestWriteTestTapeBadBaud(t *testing.T) {
	cfg := testConfig()
	cfg.Baud = SampleRate + 1
	if _, err := WriteTestTape(cfg, 100, &recorder{}); err == nil {
		t.Error("Baud rate above the sample rate did not fail")
	}
}
