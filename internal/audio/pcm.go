package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Utterance is mono 16-bit PCM at SampleRate.
type Utterance struct {
	Samples    []int16
	SampleRate int
}

// Duration reports the playback length of u.
func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(u.Samples)) * time.Second / time.Duration(u.SampleRate)
}

// Empty reports whether u carries no samples.
func (u Utterance) Empty() bool {
	return len(u.Samples) == 0
}

func decodeS16LE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// rms is the root-mean-square amplitude of a frame on the raw 16-bit scale.
func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func clampSample(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(math.Round(v))
	}
}
