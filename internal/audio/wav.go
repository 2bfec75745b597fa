package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrInvalidWAV = errors.New("invalid wav data")

// EncodeWAV writes u as a 16-bit mono PCM WAV stream.
func EncodeWAV(w io.WriteSeeker, u Utterance) error {
	if u.SampleRate <= 0 {
		return ErrBadSampleRate
	}

	data := make([]int, len(u.Samples))
	for i, s := range u.Samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(w, u.SampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: u.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WriteTempWAV writes u to a new temporary file and returns its path. The
// caller owns removal.
func WriteTempWAV(dir string, pattern string, u Utterance) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	path := f.Name()

	if err := EncodeWAV(f, u); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp wav: %w", err)
	}
	return path, nil
}

// DecodeWAV reads a PCM WAV stream, downmixing to mono and rescaling to
// 16-bit samples.
func DecodeWAV(r io.ReadSeeker) (Utterance, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Utterance{}, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Utterance{}, fmt.Errorf("decode wav: %w", err)
	}

	channels := int(dec.NumChans)
	if channels <= 0 {
		channels = 1
	}
	shift := int(dec.BitDepth) - 16

	samples := make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i+c]
		}
		v := sum / channels
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		samples = append(samples, clampSample(float64(v)))
	}
	return Utterance{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

// DecodeWAVBytes decodes an in-memory WAV payload.
func DecodeWAVBytes(data []byte) (Utterance, error) {
	return DecodeWAV(bytes.NewReader(data))
}
