package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Playerctl drives an MPRIS player through the playerctl CLI.
type Playerctl struct {
	// SearchURI is a URI template with a {query} placeholder handed to the
	// player's OpenUri method, e.g. "spotify:search:{query}". Empty disables
	// search playback.
	SearchURI string

	mu     sync.RWMutex
	player string
}

// NewPlayerctl targets the named player, e.g. "spotify".
func NewPlayerctl(player string, searchURI string) *Playerctl {
	return &Playerctl{player: strings.TrimSpace(player), SearchURI: strings.TrimSpace(searchURI)}
}

// Player returns the currently targeted player name.
func (p *Playerctl) Player() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.player
}

// Authenticate verifies playerctl can talk to the session bus.
func (p *Playerctl) Authenticate(ctx context.Context) error {
	if _, err := exec.LookPath("playerctl"); err != nil {
		return fmt.Errorf("playerctl not found: %w", err)
	}
	if _, err := runPlayerctl(ctx, "--version"); err != nil {
		return err
	}
	return nil
}

// PlaybackState reports whether the player is playing, paused or stopped.
func (p *Playerctl) PlaybackState(ctx context.Context) (State, error) {
	out, err := p.run(ctx, "status")
	if err != nil {
		return "", err
	}
	switch strings.ToLower(out) {
	case "playing":
		return StatePlaying, nil
	case "paused":
		return StatePaused, nil
	default:
		return StateStopped, nil
	}
}

// Volume returns the player volume in percent.
func (p *Playerctl) Volume(ctx context.Context) (int, error) {
	out, err := p.run(ctx, "volume")
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("parse playerctl volume %q: %w", out, err)
	}
	return ClampVolume(int(math.Round(v * 100))), nil
}

// SetVolume sets the player volume in percent.
func (p *Playerctl) SetVolume(ctx context.Context, percent int) error {
	level := float64(ClampVolume(percent)) / 100
	_, err := p.run(ctx, "volume", strconv.FormatFloat(level, 'f', 2, 64))
	return err
}

func (p *Playerctl) Play(ctx context.Context) error {
	_, err := p.run(ctx, "play")
	return err
}

func (p *Playerctl) Pause(ctx context.Context) error {
	_, err := p.run(ctx, "pause")
	return err
}

func (p *Playerctl) Next(ctx context.Context) error {
	_, err := p.run(ctx, "next")
	return err
}

func (p *Playerctl) Previous(ctx context.Context) error {
	_, err := p.run(ctx, "previous")
	return err
}

// SearchAndPlay opens the search URI for query and reports what loaded.
func (p *Playerctl) SearchAndPlay(ctx context.Context, query string) (Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Track{}, ErrNotFound
	}
	if p.SearchURI == "" {
		return Track{}, ErrUnsupported
	}
	uri := strings.ReplaceAll(p.SearchURI, "{query}", query)
	if _, err := p.run(ctx, "open", uri); err != nil {
		return Track{}, err
	}
	track, err := p.CurrentTrack(ctx)
	if err != nil || track.Title == "" {
		return Track{Title: query}, nil
	}
	return track, nil
}

// PlayAlbum searches for an album by name.
func (p *Playerctl) PlayAlbum(ctx context.Context, name string) (Track, error) {
	return p.SearchAndPlay(ctx, name)
}

// Devices lists MPRIS players. The targeted player is marked active.
func (p *Playerctl) Devices(ctx context.Context) ([]Device, error) {
	out, err := runPlayerctl(ctx, "--list-all")
	if err != nil {
		if errors.Is(err, ErrNoActiveDevice) {
			return nil, nil
		}
		return nil, err
	}

	current := p.Player()
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		devices = append(devices, Device{
			ID:     name,
			Name:   name,
			Active: name == current || strings.HasPrefix(name, current+"."),
		})
	}
	return devices, nil
}

// SelectDevice retargets subsequent commands at the player id.
func (p *Playerctl) SelectDevice(_ context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("player id must not be empty")
	}
	p.mu.Lock()
	p.player = id
	p.mu.Unlock()
	return nil
}

func (p *Playerctl) AddFavorite(context.Context) (Track, error)    { return Track{}, ErrUnsupported }
func (p *Playerctl) RemoveFavorite(context.Context) (Track, error) { return Track{}, ErrUnsupported }
func (p *Playerctl) PlayFavorites(context.Context) error           { return ErrUnsupported }
func (p *Playerctl) Playlists(context.Context) ([]Playlist, error) { return nil, ErrUnsupported }
func (p *Playerctl) PlayPlaylist(context.Context, Playlist) error  { return ErrUnsupported }

func (p *Playerctl) PlayRecommendations(context.Context, Seed) (string, error) {
	return "", ErrUnsupported
}

func (p *Playerctl) SetShuffle(ctx context.Context, on bool) error {
	value := "Off"
	if on {
		value = "On"
	}
	_, err := p.run(ctx, "shuffle", value)
	return err
}

// ToggleShuffle flips shuffle and returns the new setting.
func (p *Playerctl) ToggleShuffle(ctx context.Context) (bool, error) {
	out, err := p.run(ctx, "shuffle")
	if err != nil {
		return false, err
	}
	on := !strings.EqualFold(out, "on")
	return on, p.SetShuffle(ctx, on)
}

func (p *Playerctl) SetRepeat(ctx context.Context, mode RepeatMode) error {
	_, err := p.run(ctx, "loop", loopStatus(mode))
	return err
}

// CycleRepeat advances the loop setting and returns the new mode.
func (p *Playerctl) CycleRepeat(ctx context.Context) (RepeatMode, error) {
	out, err := p.run(ctx, "loop")
	if err != nil {
		return "", err
	}
	next := NextRepeat(repeatMode(out))
	return next, p.SetRepeat(ctx, next)
}

// CurrentTrack reads title, artist and album metadata.
func (p *Playerctl) CurrentTrack(ctx context.Context) (Track, error) {
	out, err := p.run(ctx, "metadata", "--format", "{{title}}\t{{artist}}\t{{album}}")
	if err != nil {
		return Track{}, err
	}
	fields := strings.Split(out, "\t")
	for len(fields) < 3 {
		fields = append(fields, "")
	}
	return Track{
		Title:  strings.TrimSpace(fields[0]),
		Artist: strings.TrimSpace(fields[1]),
		Album:  strings.TrimSpace(fields[2]),
	}, nil
}

func loopStatus(mode RepeatMode) string {
	switch mode {
	case RepeatTrack:
		return "Track"
	case RepeatContext:
		return "Playlist"
	default:
		return "None"
	}
}

func repeatMode(status string) RepeatMode {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "track":
		return RepeatTrack
	case "playlist":
		return RepeatContext
	default:
		return RepeatOff
	}
}

func (p *Playerctl) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"--player", p.Player()}, args...)
	return runPlayerctl(ctx, full...)
}

func runPlayerctl(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "playerctl", args...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if strings.Contains(trimmed, "No players found") || strings.Contains(trimmed, "No player could handle") {
			return "", fmt.Errorf("%w: %s", ErrNoActiveDevice, trimmed)
		}
		if trimmed == "" {
			return "", fmt.Errorf("playerctl %v failed: %w", args, err)
		}
		return "", fmt.Errorf("playerctl %v failed: %w (%s)", args, err, trimmed)
	}
	return trimmed, nil
}
