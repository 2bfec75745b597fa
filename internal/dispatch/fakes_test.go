package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/roimerbautista/alkaris/internal/genai"
	"github.com/roimerbautista/alkaris/internal/media"
	"github.com/roimerbautista/alkaris/internal/weather"
)

type recordingSpeaker struct {
	mu     sync.Mutex
	said   []string
	stops  atomic.Int32
	sayErr error
}

func (s *recordingSpeaker) Say(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
	return s.sayErr
}

func (s *recordingSpeaker) Stop() { s.stops.Add(1) }

func (s *recordingSpeaker) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.said...)
}

type fakeBackend struct {
	mu         sync.Mutex
	volume     int
	volumeSets []int
	state      media.State
	devices    []media.Device
	selected   string
	playlists  []media.Playlist
	track      media.Track
	repeat     media.RepeatMode
	shuffle    bool

	searches atomic.Int32
	plays    atomic.Int32
	pauses   atomic.Int32
	nexts    atomic.Int32

	searchErr error
	nextPanic bool
}

func (b *fakeBackend) Volume(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume, nil
}

func (b *fakeBackend) SetVolume(_ context.Context, percent int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = percent
	b.volumeSets = append(b.volumeSets, percent)
	return nil
}

func (b *fakeBackend) sets() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.volumeSets...)
}

func (b *fakeBackend) Authenticate(context.Context) error { return nil }

func (b *fakeBackend) PlaybackState(context.Context) (media.State, error) {
	if b.state == "" {
		return media.StateStopped, nil
	}
	return b.state, nil
}

func (b *fakeBackend) Play(context.Context) error {
	b.plays.Add(1)
	b.state = media.StatePlaying
	return nil
}

func (b *fakeBackend) Pause(context.Context) error {
	b.pauses.Add(1)
	b.state = media.StatePaused
	return nil
}

func (b *fakeBackend) Next(context.Context) error {
	if b.nextPanic {
		panic("next exploded")
	}
	b.nexts.Add(1)
	return nil
}

func (b *fakeBackend) Previous(context.Context) error { return nil }

func (b *fakeBackend) SearchAndPlay(_ context.Context, query string) (media.Track, error) {
	b.searches.Add(1)
	if b.searchErr != nil {
		return media.Track{}, b.searchErr
	}
	return media.Track{Title: query + " (remaster)"}, nil
}

func (b *fakeBackend) PlayAlbum(_ context.Context, name string) (media.Track, error) {
	return media.Track{Album: name, Artist: "Michael Jackson"}, nil
}

func (b *fakeBackend) Devices(context.Context) ([]media.Device, error) { return b.devices, nil }

func (b *fakeBackend) SelectDevice(_ context.Context, id string) error {
	b.selected = id
	return nil
}

func (b *fakeBackend) AddFavorite(context.Context) (media.Track, error) {
	return media.Track{}, media.ErrUnsupported
}

func (b *fakeBackend) RemoveFavorite(context.Context) (media.Track, error) {
	return media.Track{}, media.ErrUnsupported
}

func (b *fakeBackend) PlayFavorites(context.Context) error { return media.ErrUnsupported }

func (b *fakeBackend) SetShuffle(_ context.Context, on bool) error {
	b.shuffle = on
	return nil
}

func (b *fakeBackend) ToggleShuffle(context.Context) (bool, error) {
	b.shuffle = !b.shuffle
	return b.shuffle, nil
}

func (b *fakeBackend) SetRepeat(_ context.Context, mode media.RepeatMode) error {
	b.repeat = mode
	return nil
}

func (b *fakeBackend) CycleRepeat(context.Context) (media.RepeatMode, error) {
	b.repeat = media.NextRepeat(b.repeat)
	return b.repeat, nil
}

func (b *fakeBackend) PlayRecommendations(context.Context, media.Seed) (string, error) {
	return "", media.ErrUnsupported
}

func (b *fakeBackend) Playlists(context.Context) ([]media.Playlist, error) { return b.playlists, nil }

func (b *fakeBackend) PlayPlaylist(context.Context, media.Playlist) error { return nil }

func (b *fakeBackend) CurrentTrack(context.Context) (media.Track, error) { return b.track, nil }

type scriptedPrompter struct {
	answers []string
	calls   atomic.Int32
}

func (p *scriptedPrompter) Prompt(context.Context) (string, error) {
	i := int(p.calls.Add(1)) - 1
	if i >= len(p.answers) {
		return "", nil
	}
	return p.answers[i], nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []genai.Request
	answer   string
	err      error
}

func (g *fakeGenerator) Generate(_ context.Context, req genai.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.answer, g.err
}

// tempSnapshots writes real files so tests can check removal.
type tempSnapshots struct {
	dir   string
	mu    sync.Mutex
	paths []string
}

func (s *tempSnapshots) create(name string) (string, error) {
	f, err := os.CreateTemp(s.dir, name)
	if err != nil {
		return "", err
	}
	_ = f.Close()
	s.mu.Lock()
	s.paths = append(s.paths, f.Name())
	s.mu.Unlock()
	return f.Name(), nil
}

func (s *tempSnapshots) Screen(context.Context) (string, error) {
	return s.create("screen-*.png")
}

func (s *tempSnapshots) Audio(context.Context) (string, error) {
	return s.create("audio-*.wav")
}

func (s *tempSnapshots) remaining() []string {
	matches, _ := filepath.Glob(filepath.Join(s.dir, "*"))
	return matches
}

type fakeWeather struct {
	report weather.Report
	err    error
	cities []string
}

func (w *fakeWeather) Current(_ context.Context, city string) (weather.Report, error) {
	w.cities = append(w.cities, city)
	return w.report, w.err
}

type fakeGestures struct {
	enabled atomic.Bool
}

func (g *fakeGestures) Enable()  { g.enabled.Store(true) }
func (g *fakeGestures) Disable() { g.enabled.Store(false) }
