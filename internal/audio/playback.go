package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
)

// Speakers plays utterances on the default Pulse sink. Stop cuts off the
// utterance currently playing.
type Speakers struct {
	mu      sync.Mutex
	current chan struct{}
}

// Play blocks until u has drained, ctx is cancelled, or Stop is called.
func (s *Speakers) Play(ctx context.Context, u Utterance) error {
	if u.Empty() {
		return nil
	}
	if u.SampleRate <= 0 {
		return ErrBadSampleRate
	}

	client, err := newPulseClient("audio-speakers")
	if err != nil {
		return err
	}
	defer client.Close()

	stop := make(chan struct{})
	s.mu.Lock()
	s.current = stop
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.current == stop {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		select {
		case <-stop:
			return 0, pulse.EndOfData
		case <-ctx.Done():
			return 0, pulse.EndOfData
		default:
		}
		if cursor >= len(u.Samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, u.Samples[cursor:])
		cursor += n
		if cursor >= len(u.Samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(u.SampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName("alkaris speech"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return ctx.Err()
}

// Stop interrupts the current Play call, if any.
func (s *Speakers) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		close(s.current)
		s.current = nil
	}
}
