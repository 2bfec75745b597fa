package audio

import (
	"errors"
	"math"
	"slices"
)

var (
	ErrNoSignal      = errors.New("utterance has no signal")
	ErrBadSampleRate = errors.New("utterance sample rate must be > 0")
)

// NoiseGate removes DC offset and attenuates frames whose energy stays near
// the estimated noise floor.
type NoiseGate struct {
	// FloorPercentile picks the frame energy treated as the noise floor.
	FloorPercentile float64
	// OpenRatio is how far above the floor a frame must be to pass untouched.
	OpenRatio float64
	// Attenuation is the gain applied to gated frames.
	Attenuation float64
}

// DefaultNoiseGate returns the gate used by the listening pipeline.
func DefaultNoiseGate() NoiseGate {
	return NoiseGate{FloorPercentile: 0.1, OpenRatio: 2, Attenuation: 0.1}
}

// Reduce returns a denoised copy of u.
func (g NoiseGate) Reduce(u Utterance) (Utterance, error) {
	if u.SampleRate <= 0 {
		return Utterance{}, ErrBadSampleRate
	}
	if u.Empty() {
		return Utterance{}, ErrNoSignal
	}

	var mean float64
	for _, s := range u.Samples {
		mean += float64(s)
	}
	mean /= float64(len(u.Samples))

	centered := make([]float64, len(u.Samples))
	for i, s := range u.Samples {
		centered[i] = float64(s) - mean
	}

	frameLen := max(u.SampleRate/50, 1)
	energies := make([]float64, 0, len(centered)/frameLen+1)
	for start := 0; start < len(centered); start += frameLen {
		end := min(start+frameLen, len(centered))
		energies = append(energies, rmsFloat(centered[start:end]))
	}

	sorted := slices.Clone(energies)
	slices.Sort(sorted)
	if sorted[len(sorted)-1] == 0 {
		return Utterance{}, ErrNoSignal
	}
	floor := sorted[int(g.FloorPercentile*float64(len(sorted)-1))]
	gate := floor * g.OpenRatio

	out := make([]int16, len(centered))
	for i, energy := range energies {
		gain := 1.0
		if energy <= gate {
			gain = g.Attenuation
		}
		start := i * frameLen
		end := min(start+frameLen, len(centered))
		for j := start; j < end; j++ {
			out[j] = clampSample(centered[j] * gain)
		}
	}
	return Utterance{Samples: out, SampleRate: u.SampleRate}, nil
}

func rmsFloat(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}
