package verify

import "fmt"

// SignChanges returns, for every sample, 1 if its sign differs from the
// sample before and 0 otherwise. 8 bit samples are unsigned around 128.
func SignChanges(samples []int, bitDepth int) ([]int, error) {
	bits := make([]int, len(samples))
	if len(samples) == 0 {
		return bits, nil
	}

	var msb func(v int) byte
	switch bitDepth {
	case 8:
		msb = func(v int) byte { return byte(v) }
	case 16:
		msb = func(v int) byte { return byte(v >> 8) }
	case 24:
		msb = func(v int) byte { return byte(v >> 16) }
	case 32:
		msb = func(v int) byte { return byte(v >> 24) }
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	previous := msb(samples[0]) & 0x80
	for i, v := range samples {
		signBit := msb(v) & 0x80
		if signBit^previous != 0 {
			bits[i] = 1
		}
		previous = signBit
	}
	return bits, nil
}

// sum returns the sum of the elements in the slice.
func sum(slice []int) int {
	total := 0
	for _, v := range slice {
		total += v
	}
	return total
}

// EstimateFrequency returns the tone frequency of a stretch of sign changes,
// two changes making one period.
func EstimateFrequency(changes []int, sampleRate int) float64 {
	if len(changes) == 0 || sampleRate <= 0 {
		return 0
	}
	seconds := float64(len(changes)) / float64(sampleRate)
	return float64(sum(changes)) / 2 / seconds
}

// Demodulator recovers framed bytes from an FSK signal: a space start bit,
// eight data bits LSB first and a mark stop bit.
type Demodulator struct {
	SampleRate int
	Baud       int
	MarkTone   int
	SpaceTone  int
}

// Levels classifies every sample as mark (1) or space (0) by the length of
// the last full period seen. Samples before the second full period count as
// mark.
func (d Demodulator) Levels(changes []int) []int {
	levels := make([]int, len(changes))
	markPeriod := float64(d.SampleRate) / float64(d.MarkTone)
	spacePeriod := float64(d.SampleRate) / float64(d.SpaceTone)
	threshold := (markPeriod + spacePeriod) / 2
	spaceIsLonger := spacePeriod > markPeriod

	// Last three crossings, newest first.
	crossings := [3]int{-1, -1, -1}
	level := 1
	for i, c := range changes {
		if c != 0 {
			crossings[2], crossings[1], crossings[0] = crossings[1], crossings[0], i
			if crossings[2] >= 0 {
				long := float64(crossings[0]-crossings[2]) >= threshold
				if long == spaceIsLonger {
					level = 0
				} else {
					level = 1
				}
			}
		}
		levels[i] = level
	}
	return levels
}

// Decode demodulates the sign changes of a signal into bytes. Frames whose
// stop bit is not a mark are dropped.
func (d Demodulator) Decode(changes []int) ([]byte, error) {
	if d.SampleRate <= 0 || d.Baud <= 0 || d.MarkTone <= 0 || d.SpaceTone <= 0 {
		return nil, fmt.Errorf("invalid demodulator settings %+v", d)
	}
	bitLen := float64(d.SampleRate) / float64(d.Baud)
	levels := d.Levels(changes)

	at := func(start int, bits float64) (int, bool) {
		i := start + int(bits*bitLen)
		if i >= len(levels) {
			return 0, false
		}
		return levels[i], true
	}

	var result []byte
	i := 1
	for i < len(levels) {
		// Look for the leading edge of a start bit.
		if levels[i] != 0 || levels[i-1] != 1 {
			i++
			continue
		}
		start := i

		if v, ok := at(start, 0.5); !ok {
			break
		} else if v != 0 {
			i++
			continue
		}

		byteVal := 0
		complete := true
		for k := 0; k < 8; k++ {
			v, ok := at(start, float64(k)+1.5)
			if !ok {
				complete = false
				break
			}
			byteVal |= v << k
		}
		if !complete {
			break
		}

		stop, ok := at(start, 9.5)
		if !ok {
			break
		}
		if stop != 1 {
			i++
			continue
		}
		result = append(result, byte(byteVal))
		i = start + int(9.5*bitLen)
	}
	return result, nil
}
