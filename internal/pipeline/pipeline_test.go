package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roimerbautista/alkaris/internal/audio"
	"github.com/roimerbautista/alkaris/internal/identity"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	utterance audio.Utterance
	listenErr error
	closed    atomic.Int32
	threshold float64
}

func (s *fakeStream) Calibrate(context.Context, time.Duration) error { return nil }

func (s *fakeStream) Listen(context.Context, time.Duration, time.Duration) (audio.Utterance, error) {
	return s.utterance, s.listenErr
}

func (s *fakeStream) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeDenoiser struct {
	err   error
	calls atomic.Int32
}

func (d *fakeDenoiser) Reduce(u audio.Utterance) (audio.Utterance, error) {
	d.calls.Add(1)
	if d.err != nil {
		return audio.Utterance{}, d.err
	}
	return u, nil
}

type fakeTranscriber struct {
	text   string
	err    error
	calls  atomic.Int32
	path   string
	locale string
	exists bool
}

func (t *fakeTranscriber) Transcribe(_ context.Context, path string, locale string) (string, error) {
	t.calls.Add(1)
	t.path = path
	t.locale = locale
	_, statErr := os.Stat(path)
	t.exists = statErr == nil
	return t.text, t.err
}

type fakeIdentity struct{ id identity.Identity }

func (f fakeIdentity) Snapshot() identity.Identity { return f.id }

type fakeMetrics struct {
	outcomes []string
}

func (m *fakeMetrics) ObserveOutcome(stage string)        { m.outcomes = append(m.outcomes, stage) }
func (m *fakeMetrics) ObserveTranscription(time.Duration) {}

func speech() audio.Utterance {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = 2000
	}
	return audio.Utterance{Samples: samples, SampleRate: audio.SampleRate}
}

func newTestPipeline(t *testing.T, stream *fakeStream, denoiser Denoiser, tr *fakeTranscriber, metrics Metrics) *Pipeline {
	t.Helper()
	mic := MicrophoneFunc(func(_ context.Context, threshold float64) (Stream, error) {
		stream.threshold = threshold
		return stream, nil
	})
	opts := DefaultOptions()
	opts.Calibration = 0
	opts.TempDir = t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	id := fakeIdentity{id: identity.Identity{Name: "Alkaris", Accent: "es", EnergyThreshold: 4200}}
	return New(logger, mic, denoiser, tr, id, nil, metrics, opts)
}

func TestListenOnceMatchesWakeWordAndCleansTranscript(t *testing.T) {
	stream := &fakeStream{utterance: speech()}
	tr := &fakeTranscriber{text: "Ok Alkaris play play jazz"}
	metrics := &fakeMetrics{}
	p := newTestPipeline(t, stream, &fakeDenoiser{}, tr, metrics)

	outcome, err := p.ListenOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, StageMatched, outcome.Stage)
	require.True(t, outcome.Recognized)
	require.Equal(t, "play jazz", outcome.Command)
	require.Equal(t, "ok alkaris play jazz", outcome.Transcript)
	require.Equal(t, "alkaris", outcome.Variant)
	require.Equal(t, "es-ES", tr.locale)
	require.Equal(t, 4200.0, stream.threshold)
	require.Equal(t, int32(1), stream.closed.Load())
	require.Equal(t, []string{"matched"}, metrics.outcomes)
}

func TestListenOnceRemovesTempWAV(t *testing.T) {
	tr := &fakeTranscriber{text: "alkaris detener"}
	p := newTestPipeline(t, &fakeStream{utterance: speech()}, &fakeDenoiser{}, tr, nil)

	_, err := p.ListenOnce(context.Background())
	require.NoError(t, err)
	require.True(t, tr.exists)
	require.NoFileExists(t, tr.path)
}

func TestListenOnceAppliesMisTranscriptionFix(t *testing.T) {
	tr := &fakeTranscriber{text: "alkaris de tener"}
	p := newTestPipeline(t, &fakeStream{utterance: speech()}, &fakeDenoiser{}, tr, nil)

	outcome, err := p.ListenOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, "detener", outcome.Command)
}

func TestListenOnceWithoutWakeWord(t *testing.T) {
	tr := &fakeTranscriber{text: "pon algo de musica"}
	p := newTestPipeline(t, &fakeStream{utterance: speech()}, &fakeDenoiser{}, tr, nil)

	outcome, err := p.ListenOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, StageNoWakeWord, outcome.Stage)
	require.False(t, outcome.Recognized)
	require.Empty(t, outcome.Command)
}

func TestListenOnceTimeoutIsSilent(t *testing.T) {
	stream := &fakeStream{listenErr: audio.ErrListenTimeout}
	tr := &fakeTranscriber{}
	p := newTestPipeline(t, stream, &fakeDenoiser{}, tr, nil)

	outcome, err := p.ListenOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, StageFailed, outcome.Stage)
	require.False(t, outcome.Recognized)
	require.Equal(t, int32(0), tr.calls.Load())
	require.Equal(t, int32(1), stream.closed.Load())
}

func TestListenOnceDenoiserFailureSkipsTranscription(t *testing.T) {
	denoiser := &fakeDenoiser{err: audio.ErrNoSignal}
	tr := &fakeTranscriber{text: "alkaris detener"}
	p := newTestPipeline(t, &fakeStream{utterance: speech()}, denoiser, tr, nil)

	outcome, err := p.ListenOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, StageFailed, outcome.Stage)
	require.Equal(t, int32(1), denoiser.calls.Load())
	require.Equal(t, int32(0), tr.calls.Load())
}

func TestListenOnceTranscriptionErrors(t *testing.T) {
	t.Run("unintelligible", func(t *testing.T) {
		tr := &fakeTranscriber{err: ErrUnintelligible}
		p := newTestPipeline(t, &fakeStream{utterance: speech()}, &fakeDenoiser{}, tr, nil)

		outcome, err := p.ListenOnce(context.Background())
		require.NoError(t, err)
		require.Equal(t, StageFailed, outcome.Stage)
		require.NoFileExists(t, tr.path)
	})

	t.Run("service unavailable", func(t *testing.T) {
		tr := &fakeTranscriber{err: errors.Join(ErrServiceUnavailable, errors.New("dial tcp"))}
		p := newTestPipeline(t, &fakeStream{utterance: speech()}, &fakeDenoiser{}, tr, nil)

		outcome, err := p.ListenOnce(context.Background())
		require.ErrorIs(t, err, ErrServiceUnavailable)
		require.Equal(t, StageFailed, outcome.Stage)
		require.NoFileExists(t, tr.path)
	})

	t.Run("unexpected", func(t *testing.T) {
		tr := &fakeTranscriber{err: errors.New("boom")}
		p := newTestPipeline(t, &fakeStream{utterance: speech()}, &fakeDenoiser{}, tr, nil)

		_, err := p.ListenOnce(context.Background())
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrServiceUnavailable)
		require.Contains(t, err.Error(), "transcribe utterance")
	})
}

func TestListenOnceMicrophoneFailure(t *testing.T) {
	mic := MicrophoneFunc(func(context.Context, float64) (Stream, error) {
		return nil, errors.New("no device")
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	id := fakeIdentity{id: identity.Identity{Name: "Alkaris", Accent: "es", EnergyThreshold: 5000}}
	p := New(logger, mic, nil, &fakeTranscriber{}, id, nil, nil, DefaultOptions())

	outcome, err := p.ListenOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "open microphone")
	require.Equal(t, StageFailed, outcome.Stage)
}

func TestPromptSkipsWakeWord(t *testing.T) {
	tr := &fakeTranscriber{text: "Luna"}
	p := newTestPipeline(t, &fakeStream{utterance: speech()}, &fakeDenoiser{}, tr, nil)

	text, err := p.Prompt(context.Background())
	require.NoError(t, err)
	require.Equal(t, "luna", text)
}

func TestPromptReturnsEmptyOnTimeout(t *testing.T) {
	p := newTestPipeline(t, &fakeStream{listenErr: audio.ErrListenTimeout}, &fakeDenoiser{}, &fakeTranscriber{}, nil)

	text, err := p.Prompt(context.Background())
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestVariantsFollowIdentityName(t *testing.T) {
	p := newTestPipeline(t, &fakeStream{}, &fakeDenoiser{}, &fakeTranscriber{}, nil)
	variants := p.Variants()
	require.Equal(t, "alkaris", variants[0])
	require.Contains(t, variants, "al karis")
}
