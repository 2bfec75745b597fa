// Package media controls music playback, volume ducking and the external
// video and stream players.
package media

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported indicates the backend has no equivalent for the operation.
	ErrUnsupported = errors.New("operation not supported by media backend")
	// ErrNoActiveDevice indicates no player is available to control.
	ErrNoActiveDevice = errors.New("no active playback device")
	// ErrNotFound indicates a search returned nothing playable.
	ErrNotFound = errors.New("no matching media found")
)

// State is the playback state of the active player.
type State string

const (
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// RepeatMode is the player loop setting.
type RepeatMode string

const (
	RepeatOff     RepeatMode = "off"
	RepeatTrack   RepeatMode = "track"
	RepeatContext RepeatMode = "context"
)

// NextRepeat cycles off -> context -> track -> off.
func NextRepeat(current RepeatMode) RepeatMode {
	switch current {
	case RepeatOff:
		return RepeatContext
	case RepeatContext:
		return RepeatTrack
	default:
		return RepeatOff
	}
}

// Track describes the item currently loaded in the player.
type Track struct {
	Title  string
	Artist string
	Album  string
}

// Device is one controllable player.
type Device struct {
	ID     string
	Name   string
	Active bool
}

// Playlist is a named collection the backend can start.
type Playlist struct {
	ID   string
	Name string
}

// Seed selects what recommendations are based on.
type Seed string

const (
	SeedTrack  Seed = "track"
	SeedArtist Seed = "artist"
)

// VolumeControl is the subset of Backend used for ducking.
type VolumeControl interface {
	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, percent int) error
}

// Backend is the music service the assistant controls.
type Backend interface {
	VolumeControl

	Authenticate(ctx context.Context) error
	PlaybackState(ctx context.Context) (State, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SearchAndPlay(ctx context.Context, query string) (Track, error)
	PlayAlbum(ctx context.Context, name string) (Track, error)
	Devices(ctx context.Context) ([]Device, error)
	SelectDevice(ctx context.Context, id string) error
	AddFavorite(ctx context.Context) (Track, error)
	RemoveFavorite(ctx context.Context) (Track, error)
	PlayFavorites(ctx context.Context) error
	SetShuffle(ctx context.Context, on bool) error
	ToggleShuffle(ctx context.Context) (bool, error)
	SetRepeat(ctx context.Context, mode RepeatMode) error
	CycleRepeat(ctx context.Context) (RepeatMode, error)
	PlayRecommendations(ctx context.Context, seed Seed) (string, error)
	Playlists(ctx context.Context) ([]Playlist, error)
	PlayPlaylist(ctx context.Context, playlist Playlist) error
	CurrentTrack(ctx context.Context) (Track, error)
}
