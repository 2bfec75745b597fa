package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roimerbautista/alkaris/internal/command"
	"github.com/roimerbautista/alkaris/internal/media"
	"github.com/roimerbautista/alkaris/internal/transcript"
)

const (
	msgEmptyQuery     = "La consulta de búsqueda está vacía."
	msgVolumeNumber   = "Por favor, indica un número después de 'volumen' para establecer el volumen."
	msgNoDevices      = "No se encontraron dispositivos disponibles para reproducir."
	msgNothingPlaying = "Actualmente no hay ninguna canción reproduciéndose."
)

func (d *Dispatcher) routes() map[command.Command]handler {
	withMedia := func(h handler) handler {
		return func(ctx context.Context, dec Decision) (string, error) {
			if d.deps.Media == nil {
				return "", ErrNotConfigured
			}
			return h(ctx, dec)
		}
	}

	return map[command.Command]handler{
		command.Play:             withMedia(d.play),
		command.Stop:             withMedia(d.stop),
		command.Next:             withMedia(d.next),
		command.Previous:         withMedia(d.previous),
		command.Resume:           withMedia(d.resume),
		command.ChooseDevice:     withMedia(d.chooseDevice),
		command.ValidateAccount:  withMedia(d.validateAccount),
		command.ShuffleOn:        withMedia(d.shuffle(true)),
		command.ShuffleOff:       withMedia(d.shuffle(false)),
		command.ToggleShuffle:    withMedia(d.toggleShuffle),
		command.RepeatTrack:      withMedia(d.repeat(media.RepeatTrack)),
		command.RepeatContext:    withMedia(d.repeat(media.RepeatContext)),
		command.RepeatOff:        withMedia(d.repeat(media.RepeatOff)),
		command.SetRepeatMode:    withMedia(d.cycleRepeat),
		command.PlayAlbum:        withMedia(d.playAlbum),
		command.PlayFavorites:    withMedia(d.playFavorites),
		command.AddFavorite:      withMedia(d.addFavorite),
		command.RemoveFavorite:   withMedia(d.removeFavorite),
		command.RecommendTracks:  withMedia(d.recommend(media.SeedTrack)),
		command.RecommendArtists: withMedia(d.recommend(media.SeedArtist)),
		command.ShowPlaylists:    withMedia(d.showPlaylists),
		command.CurrentTrackName: withMedia(d.currentTrack),
		command.VolumeUp:         withMedia(d.stepVolume(media.VolumeStep)),
		command.VolumeDown:       withMedia(d.stepVolume(-media.VolumeStep)),
		command.VolumeSet:        withMedia(d.setVolume),

		command.SearchYouTube: d.searchYouTube,
		command.VideoPlay:     d.video(func(ctx context.Context, p StreamPlayer) error { return p.Resume(ctx) }),
		command.VideoPause:    d.video(func(ctx context.Context, p StreamPlayer) error { return p.Pause(ctx) }),
		command.VideoVolume:   d.videoVolume,
		command.VideoSeek:     d.videoSeek,
		command.VLCPlay:       d.streamPlay,
		command.VLCToggle:     d.streamToggle,
		command.VLCVolume:     d.streamVolume,

		command.TellJoke:              d.tellJoke,
		command.Weather:               d.weather,
		command.ChangeAssistantName:   d.changeName,
		command.ChangeAccent:          d.changeAccent,
		command.ChangeVoice:           d.changeVoice,
		command.ResetConfig:           d.resetConfig,
		command.Silence:               d.silence,
		command.GesturesOn:            d.gestures(true),
		command.GesturesOff:           d.gestures(false),
		command.DescribeScreen:        d.describeScreen,
		command.AnalyzeAudio:          d.analyzeAudio,
		command.IdentifySongFromAudio: d.identifySong,
		command.FreeformQuery:         d.freeform,
	}
}

func (d *Dispatcher) play(ctx context.Context, dec Decision) (string, error) {
	query := strings.TrimSpace(dec.Query)
	if query == "" {
		return msgEmptyQuery, nil
	}

	track, err := d.deps.Media.SearchAndPlay(ctx, query)
	if errors.Is(err, media.ErrNotFound) {
		return "No se encontraron resultados para tu búsqueda.", nil
	}
	if err != nil {
		return "", err
	}
	if track.Title == "" {
		return "Reproduciendo " + query, nil
	}
	return "Reproduciendo " + track.Title, nil
}

func (d *Dispatcher) playing(ctx context.Context) (bool, error) {
	state, err := d.deps.Media.PlaybackState(ctx)
	if errors.Is(err, media.ErrNoActiveDevice) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return state == media.StatePlaying, nil
}

func (d *Dispatcher) stop(ctx context.Context, _ Decision) (string, error) {
	playing, err := d.playing(ctx)
	if err != nil {
		return "", err
	}
	if !playing {
		return "No se puede detener la reproducción porque ya está detenida.", nil
	}
	if err := d.deps.Media.Pause(ctx); err != nil {
		return "", err
	}
	return "Reproducción detenida.", nil
}

func (d *Dispatcher) next(ctx context.Context, _ Decision) (string, error) {
	if err := d.deps.Media.Next(ctx); err != nil {
		return "", err
	}
	return "Reproduciendo la siguiente canción.", nil
}

func (d *Dispatcher) previous(ctx context.Context, _ Decision) (string, error) {
	if err := d.deps.Media.Previous(ctx); err != nil {
		return "", err
	}
	return "Reproduciendo la canción anterior.", nil
}

// resume starts playback on the only device, or asks which one to use when
// several are available.
func (d *Dispatcher) resume(ctx context.Context, dec Decision) (string, error) {
	playing, err := d.playing(ctx)
	if err != nil {
		return "", err
	}
	if playing {
		return "No se puede reproducir la canción porque ya hay una canción reproduciéndose.", nil
	}

	devices, err := d.deps.Media.Devices(ctx)
	if err != nil {
		return "", err
	}
	switch {
	case len(devices) == 0:
		return msgNoDevices, nil
	case len(devices) == 1:
		if err := d.deps.Media.SelectDevice(ctx, devices[0].ID); err != nil {
			return "", err
		}
		if err := d.deps.Media.Play(ctx); err != nil {
			return "", err
		}
		return "Reproducción iniciada.", nil
	}

	const several = "Tienes más de un dispositivo disponible. Por favor, elige uno."
	if !dec.Interactive {
		return several, nil
	}
	d.say(ctx, several)
	return d.pickDevice(ctx, devices)
}

func (d *Dispatcher) chooseDevice(ctx context.Context, _ Decision) (string, error) {
	devices, err := d.deps.Media.Devices(ctx)
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return msgNoDevices, nil
	}
	return d.pickDevice(ctx, devices)
}

func (d *Dispatcher) pickDevice(ctx context.Context, devices []media.Device) (string, error) {
	names := make([]string, len(devices))
	for i, dev := range devices {
		names[i] = dev.Name
	}

	answer, err := d.ask(ctx, "Por favor, elige el dispositivo donde deseas reproducir. "+numbered(names))
	if err != nil {
		return "", err
	}
	i, ok := pickIndex(answer, names)
	if !ok {
		return "Número de dispositivo inválido.", nil
	}

	if err := d.deps.Media.SelectDevice(ctx, devices[i].ID); err != nil {
		return "", err
	}
	if err := d.deps.Media.Play(ctx); err != nil {
		return "", err
	}
	return "Reproducción forzada en el dispositivo elegido.", nil
}

func (d *Dispatcher) validateAccount(ctx context.Context, _ Decision) (string, error) {
	if err := d.deps.Media.Authenticate(ctx); err != nil {
		return "", err
	}
	return "La conexión con el reproductor ha sido validada.", nil
}

func shuffleMessage(on bool) string {
	if on {
		return "Modo aleatorio activado."
	}
	return "Modo aleatorio desactivado."
}

func (d *Dispatcher) shuffle(on bool) handler {
	return func(ctx context.Context, _ Decision) (string, error) {
		if err := d.deps.Media.SetShuffle(ctx, on); err != nil {
			return "", err
		}
		return shuffleMessage(on), nil
	}
}

func (d *Dispatcher) toggleShuffle(ctx context.Context, _ Decision) (string, error) {
	on, err := d.deps.Media.ToggleShuffle(ctx)
	if err != nil {
		return "", err
	}
	return shuffleMessage(on), nil
}

func repeatMessage(mode media.RepeatMode) string {
	switch mode {
	case media.RepeatTrack:
		return "Modo de repetición: repetir canción actual."
	case media.RepeatContext:
		return "Modo de repetición: repetir lista o álbum."
	default:
		return "Modo de repetición desactivado."
	}
}

func (d *Dispatcher) repeat(mode media.RepeatMode) handler {
	return func(ctx context.Context, _ Decision) (string, error) {
		if err := d.deps.Media.SetRepeat(ctx, mode); err != nil {
			return "", err
		}
		return repeatMessage(mode), nil
	}
}

func (d *Dispatcher) cycleRepeat(ctx context.Context, _ Decision) (string, error) {
	mode, err := d.deps.Media.CycleRepeat(ctx)
	if err != nil {
		return "", err
	}
	return repeatMessage(mode), nil
}

func (d *Dispatcher) playAlbum(ctx context.Context, dec Decision) (string, error) {
	name := strings.TrimSpace(dec.Query)
	if name == "" {
		return "Por favor, especifica qué álbum quieres reproducir.", nil
	}

	track, err := d.deps.Media.PlayAlbum(ctx, name)
	if errors.Is(err, media.ErrNotFound) {
		return "No encontré ningún álbum con el nombre " + name + ".", nil
	}
	if err != nil {
		return "", err
	}

	album := track.Album
	if album == "" {
		album = name
	}
	if track.Artist == "" {
		return "Reproduciendo el álbum " + album + ".", nil
	}
	return fmt.Sprintf("Reproduciendo el álbum %s de %s.", album, track.Artist), nil
}

func (d *Dispatcher) playFavorites(ctx context.Context, _ Decision) (string, error) {
	err := d.deps.Media.PlayFavorites(ctx)
	if errors.Is(err, media.ErrNotFound) {
		return "No tienes canciones guardadas en tus favoritos.", nil
	}
	if err != nil {
		return "", err
	}
	return "Reproduciendo tus canciones favoritas.", nil
}

func (d *Dispatcher) addFavorite(ctx context.Context, _ Decision) (string, error) {
	_, err := d.deps.Media.AddFavorite(ctx)
	if errors.Is(err, media.ErrNotFound) {
		return "No hay una canción reproducida actualmente.", nil
	}
	if err != nil {
		return "", err
	}
	return "Canción agregada a tus favoritos.", nil
}

func (d *Dispatcher) removeFavorite(ctx context.Context, _ Decision) (string, error) {
	track, err := d.deps.Media.RemoveFavorite(ctx)
	if errors.Is(err, media.ErrNotFound) {
		return "No hay ninguna canción reproduciéndose actualmente.", nil
	}
	if err != nil {
		return "", err
	}
	return "Canción " + track.Title + " eliminada de favoritos.", nil
}

func (d *Dispatcher) recommend(seed media.Seed) handler {
	return func(ctx context.Context, _ Decision) (string, error) {
		basis, err := d.deps.Media.PlayRecommendations(ctx, seed)
		if errors.Is(err, media.ErrNotFound) {
			return "No se pudieron generar recomendaciones con la información disponible.", nil
		}
		if err != nil {
			return "", err
		}
		return "Reproduciendo recomendaciones basadas en " + basis + ".", nil
	}
}

func (d *Dispatcher) showPlaylists(ctx context.Context, dec Decision) (string, error) {
	playlists, err := d.deps.Media.Playlists(ctx)
	if err != nil {
		return "", err
	}
	if len(playlists) == 0 {
		return "No tienes playlists guardadas.", nil
	}

	names := make([]string, len(playlists))
	for i, p := range playlists {
		names[i] = p.Name
	}
	listing := "Estas son tus playlists disponibles. " + numbered(names)
	if !dec.Interactive {
		return listing, nil
	}

	answer, err := d.ask(ctx, listing)
	if err != nil {
		return "", err
	}
	i, ok := pickIndex(answer, names)
	if !ok {
		return "Número de playlist inválido.", nil
	}
	if err := d.deps.Media.PlayPlaylist(ctx, playlists[i]); err != nil {
		return "", err
	}
	return "Reproduciendo la playlist " + playlists[i].Name + ".", nil
}

func (d *Dispatcher) currentTrack(ctx context.Context, _ Decision) (string, error) {
	track, err := d.deps.Media.CurrentTrack(ctx)
	if errors.Is(err, media.ErrNotFound) || errors.Is(err, media.ErrNoActiveDevice) {
		return msgNothingPlaying, nil
	}
	if err != nil {
		return "", err
	}
	if track.Title == "" {
		return msgNothingPlaying, nil
	}
	if track.Artist == "" {
		return "Estás escuchando " + track.Title + ".", nil
	}
	return fmt.Sprintf("Estás escuchando %s de %s.", track.Title, track.Artist), nil
}

func (d *Dispatcher) stepVolume(delta int) handler {
	return func(ctx context.Context, _ Decision) (string, error) {
		level, err := media.StepVolume(ctx, d.deps.Media, delta)
		if err != nil {
			return "", err
		}
		if delta > 0 {
			return fmt.Sprintf("Volumen subido a %d por ciento.", level), nil
		}
		return fmt.Sprintf("Volumen bajado a %d por ciento.", level), nil
	}
}

func (d *Dispatcher) setVolume(ctx context.Context, dec Decision) (string, error) {
	if !dec.HasNumber {
		return msgVolumeNumber, nil
	}
	level, err := media.SetVolume(ctx, d.deps.Media, dec.Number)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Volumen ajustado a %d por ciento.", level), nil
}

// pauseMusic pauses the music backend before a video starts. Failures only
// mean there was nothing to pause.
func (d *Dispatcher) pauseMusic(ctx context.Context) {
	if d.deps.Media == nil {
		return
	}
	if playing, err := d.playing(ctx); err == nil && playing {
		if err := d.deps.Media.Pause(ctx); err != nil {
			d.logger.Debug("pause music before video", "error", err.Error())
		}
	}
}

func (d *Dispatcher) searchYouTube(ctx context.Context, dec Decision) (string, error) {
	if d.deps.Video == nil {
		return "", ErrNotConfigured
	}
	query := strings.TrimSpace(dec.Query)
	if query == "" {
		return msgEmptyQuery, nil
	}
	d.pauseMusic(ctx)
	if err := d.deps.Video.Play(ctx, media.SearchTarget(query)); err != nil {
		return "", err
	}
	return "Reproduciendo " + query + " en YouTube.", nil
}

func (d *Dispatcher) video(op func(context.Context, StreamPlayer) error) handler {
	return func(ctx context.Context, _ Decision) (string, error) {
		if d.deps.Video == nil {
			return "", ErrNotConfigured
		}
		return "", op(ctx, d.deps.Video)
	}
}

func (d *Dispatcher) videoVolume(ctx context.Context, dec Decision) (string, error) {
	if d.deps.Video == nil {
		return "", ErrNotConfigured
	}
	if !dec.HasNumber {
		return msgVolumeNumber, nil
	}
	level := media.ClampVolume(dec.Number)
	if err := d.deps.Video.SetVolume(ctx, level); err != nil {
		return "", err
	}
	return fmt.Sprintf("Volumen del video ajustado a %d por ciento.", level), nil
}

func (d *Dispatcher) videoSeek(ctx context.Context, dec Decision) (string, error) {
	if d.deps.Video == nil {
		return "", ErrNotConfigured
	}
	if !dec.HasNumber {
		return "Por favor, indica cuántos segundos quieres avanzar.", nil
	}
	return "", d.deps.Video.Seek(ctx, dec.Number)
}

func (d *Dispatcher) streamPlay(ctx context.Context, dec Decision) (string, error) {
	if d.deps.Stream == nil {
		return "", ErrNotConfigured
	}
	query := strings.TrimSpace(dec.Query)
	if query == "" {
		return msgEmptyQuery, nil
	}
	d.pauseMusic(ctx)
	if err := d.deps.Stream.Play(ctx, media.SearchTarget(query)); err != nil {
		return "", err
	}
	return "Reproduciendo el audio de " + query + ".", nil
}

func (d *Dispatcher) streamToggle(ctx context.Context, _ Decision) (string, error) {
	if d.deps.Stream == nil {
		return "", ErrNotConfigured
	}
	return "", d.deps.Stream.TogglePause(ctx)
}

func (d *Dispatcher) streamVolume(ctx context.Context, dec Decision) (string, error) {
	if d.deps.Stream == nil {
		return "", ErrNotConfigured
	}
	if !dec.HasNumber {
		return msgVolumeNumber, nil
	}
	return "", d.deps.Stream.SetVolume(ctx, media.ClampVolume(dec.Number))
}

var spokenNumbers = map[string]int{
	"uno": 1, "una": 1, "primero": 1, "primera": 1,
	"dos": 2, "segundo": 2, "segunda": 2,
	"tres": 3, "tercero": 3, "tercera": 3,
	"cuatro": 4, "cinco": 5, "seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

// numbered renders "1, a. 2, b." for speech.
func numbered(names []string) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = strconv.Itoa(i+1) + ", " + name + "."
	}
	return strings.Join(parts, " ")
}

// pickIndex resolves a spoken choice by number, ordinal word, or name.
func pickIndex(answer string, names []string) (int, bool) {
	answer = transcript.Normalize(answer)
	if answer == "" {
		return 0, false
	}

	n, ok := ExtractNumber(answer)
	if !ok {
		for _, word := range strings.Fields(answer) {
			if v, found := spokenNumbers[word]; found {
				n, ok = v, true
				break
			}
		}
	}
	if ok {
		if n < 1 || n > len(names) {
			return 0, false
		}
		return n - 1, true
	}

	for i, name := range names {
		if strings.Contains(answer, transcript.Normalize(name)) {
			return i, true
		}
	}
	return 0, false
}
