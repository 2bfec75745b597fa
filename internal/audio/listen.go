package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

var (
	ErrListenTimeout = errors.New("no speech before listen timeout")
	ErrCaptureClosed = errors.New("capture stream closed")
)

const (
	dampingPerSecond = 0.15
	ambientRatio     = 1.5
	minPhrase        = 300 * time.Millisecond
	preRoll          = 500 * time.Millisecond
)

// ListenOptions bounds one Listen call.
type ListenOptions struct {
	Timeout     time.Duration
	PhraseLimit time.Duration
	Pause       time.Duration
	Dynamic     bool
}

// Endpointer tracks the energy threshold that separates speech from
// background noise and cuts phrases out of a frame stream.
type Endpointer struct {
	threshold float64
}

// NewEndpointer starts from an initial energy threshold.
func NewEndpointer(threshold float64) *Endpointer {
	return &Endpointer{threshold: threshold}
}

// Threshold returns the current energy threshold.
func (e *Endpointer) Threshold() float64 {
	return e.threshold
}

// adapt moves the threshold toward ambientRatio times the frame energy,
// damped by how much audio the frame covers.
func (e *Endpointer) adapt(energy float64, frameSeconds float64) {
	damping := math.Pow(dampingPerSecond, frameSeconds)
	target := energy * ambientRatio
	e.threshold = e.threshold*damping + target*(1-damping)
}

// Calibrate consumes d worth of frames as ambient noise.
func (e *Endpointer) Calibrate(ctx context.Context, frames <-chan []int16, d time.Duration) error {
	var elapsed time.Duration
	for elapsed < d {
		frame, err := nextFrame(ctx, frames)
		if err != nil {
			return err
		}
		frameDur := frameDuration(frame)
		e.adapt(rms(frame), frameDur.Seconds())
		elapsed += frameDur
	}
	return nil
}

// Listen waits for a frame louder than the threshold, then records until
// opts.Pause of quiet audio or opts.PhraseLimit. Elapsed time is measured
// in captured audio, not wall clock.
func (e *Endpointer) Listen(ctx context.Context, frames <-chan []int16, opts ListenOptions) (Utterance, error) {
	var (
		waited time.Duration
		ring   [][]int16
		ringD  time.Duration
	)

	for {
		var first []int16
		for first == nil {
			frame, err := nextFrame(ctx, frames)
			if err != nil {
				return Utterance{}, err
			}
			frameDur := frameDuration(frame)
			waited += frameDur
			if opts.Timeout > 0 && waited > opts.Timeout {
				return Utterance{}, ErrListenTimeout
			}

			energy := rms(frame)
			if energy > e.threshold {
				first = frame
				break
			}
			if opts.Dynamic {
				e.adapt(energy, frameDur.Seconds())
			}

			ring = append(ring, frame)
			ringD += frameDur
			for ringD > preRoll && len(ring) > 0 {
				ringD -= frameDuration(ring[0])
				ring = ring[1:]
			}
		}

		phrase := make([]int16, 0, SampleRate*2)
		for _, f := range ring {
			phrase = append(phrase, f...)
		}
		phrase = append(phrase, first...)

		var (
			spoken = frameDuration(first)
			quiet  time.Duration
			closed bool
		)
		for {
			if opts.PhraseLimit > 0 && spoken >= opts.PhraseLimit {
				break
			}
			frame, err := nextFrame(ctx, frames)
			if errors.Is(err, ErrCaptureClosed) {
				closed = true
				break
			}
			if err != nil {
				return Utterance{}, err
			}

			frameDur := frameDuration(frame)
			phrase = append(phrase, frame...)
			spoken += frameDur
			if rms(frame) > e.threshold {
				quiet = 0
				continue
			}
			quiet += frameDur
			if quiet >= opts.Pause {
				break
			}
		}

		if spoken-quiet >= minPhrase || closed {
			return Utterance{Samples: phrase, SampleRate: SampleRate}, nil
		}

		// Too short to be speech: resume waiting.
		waited += spoken
		ring, ringD = nil, 0
	}
}

// Record captures exactly d of audio regardless of energy.
func Record(ctx context.Context, frames <-chan []int16, d time.Duration) (Utterance, error) {
	out := make([]int16, 0, int(d.Seconds()*SampleRate))
	var elapsed time.Duration
	for elapsed < d {
		frame, err := nextFrame(ctx, frames)
		if err != nil {
			return Utterance{}, err
		}
		out = append(out, frame...)
		elapsed += frameDuration(frame)
	}
	return Utterance{Samples: out, SampleRate: SampleRate}, nil
}

func nextFrame(ctx context.Context, frames <-chan []int16) ([]int16, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-frames:
		if !ok {
			return nil, ErrCaptureClosed
		}
		return frame, nil
	}
}

func frameDuration(frame []int16) time.Duration {
	return time.Duration(len(frame)) * time.Second / SampleRate
}

// Microphone opens endpointed capture streams on the configured source.
type Microphone struct {
	Input    string
	Fallback string
	Pause    time.Duration
	Logger   *slog.Logger
}

// Stream is one open microphone with its endpointer.
type Stream struct {
	capture  *Capture
	endpoint *Endpointer
	pause    time.Duration
}

// Open selects the input device and starts capture with threshold as the
// starting energy threshold.
func (m Microphone) Open(ctx context.Context, threshold float64) (*Stream, error) {
	selection, err := SelectDevice(ctx, m.Input, m.Fallback)
	if err != nil {
		return nil, fmt.Errorf("select audio device: %w", err)
	}
	if selection.Warning != "" && m.Logger != nil {
		m.Logger.Warn(selection.Warning)
	}

	capture, err := StartCapture(ctx, selection.Device)
	if err != nil {
		return nil, err
	}
	pause := m.Pause
	if pause <= 0 {
		pause = 800 * time.Millisecond
	}
	return &Stream{capture: capture, endpoint: NewEndpointer(threshold), pause: pause}, nil
}

// Calibrate adjusts the threshold to d of ambient noise.
func (s *Stream) Calibrate(ctx context.Context, d time.Duration) error {
	return s.endpoint.Calibrate(ctx, s.capture.Frames(), d)
}

// Listen blocks until one phrase is captured or timeout elapses.
func (s *Stream) Listen(ctx context.Context, timeout time.Duration, phraseLimit time.Duration) (Utterance, error) {
	return s.endpoint.Listen(ctx, s.capture.Frames(), ListenOptions{
		Timeout:     timeout,
		PhraseLimit: phraseLimit,
		Pause:       s.pause,
		Dynamic:     true,
	})
}

// Record captures a fixed span of audio.
func (s *Stream) Record(ctx context.Context, d time.Duration) (Utterance, error) {
	return Record(ctx, s.capture.Frames(), d)
}

// Threshold returns the current energy threshold.
func (s *Stream) Threshold() float64 {
	return s.endpoint.Threshold()
}

// Close stops capture.
func (s *Stream) Close() error {
	return s.capture.Stop()
}
