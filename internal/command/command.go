// Package command defines the canonical assistant commands and matches
// spoken text against their synonym table.
package command

// Command identifies one canonical assistant action.
type Command string

const (
	Play                  Command = "play"
	Stop                  Command = "stop"
	Next                  Command = "next"
	Previous              Command = "previous"
	Resume                Command = "resume"
	ChooseDevice          Command = "choose_device"
	ValidateAccount       Command = "validate_account"
	TellJoke              Command = "tell_joke"
	SearchYouTube         Command = "search_youtube"
	VideoPlay             Command = "video_play"
	VideoPause            Command = "video_pause"
	VideoVolume           Command = "video_volume"
	VideoSeek             Command = "video_seek"
	VLCPlay               Command = "vlc_play"
	VLCToggle             Command = "vlc_toggle"
	VLCVolume             Command = "vlc_volume"
	ShuffleOn             Command = "shuffle_on"
	ShuffleOff            Command = "shuffle_off"
	ToggleShuffle         Command = "toggle_shuffle"
	RepeatTrack           Command = "repeat_track"
	RepeatContext         Command = "repeat_context"
	RepeatOff             Command = "repeat_off"
	SetRepeatMode         Command = "set_repeat_mode"
	PlayAlbum             Command = "play_album"
	PlayFavorites         Command = "play_favorites"
	RecommendTracks       Command = "recommend_tracks"
	RecommendArtists      Command = "recommend_artists"
	ShowPlaylists         Command = "show_playlists"
	CurrentTrackName      Command = "current_track_name"
	AddFavorite           Command = "add_favorite"
	RemoveFavorite        Command = "remove_favorite"
	ChangeAssistantName   Command = "change_assistant_name"
	ChangeAccent          Command = "change_accent"
	ChangeVoice           Command = "change_voice"
	ResetConfig           Command = "reset_config"
	Exit                  Command = "exit"
	GesturesOn            Command = "gestures_on"
	GesturesOff           Command = "gestures_off"
	DescribeScreen        Command = "describe_screen"
	AnalyzeAudio          Command = "analyze_audio"
	IdentifySongFromAudio Command = "identify_song_from_audio"
	Weather               Command = "weather"
	VolumeUp              Command = "volume_up"
	VolumeDown            Command = "volume_down"
	VolumeSet             Command = "volume_set"
	Silence               Command = "silence"
	FreeformQuery         Command = "freeform_query"
	Unknown               Command = "unknown"
)

var known = map[Command]struct{}{
	Play: {}, Stop: {}, Next: {}, Previous: {}, Resume: {}, ChooseDevice: {},
	ValidateAccount: {}, TellJoke: {}, SearchYouTube: {}, VideoPlay: {},
	VideoPause: {}, VideoVolume: {}, VideoSeek: {}, VLCPlay: {}, VLCToggle: {},
	VLCVolume: {}, ShuffleOn: {}, ShuffleOff: {}, ToggleShuffle: {},
	RepeatTrack: {}, RepeatContext: {}, RepeatOff: {}, SetRepeatMode: {},
	PlayAlbum: {}, PlayFavorites: {}, RecommendTracks: {}, RecommendArtists: {},
	ShowPlaylists: {}, CurrentTrackName: {}, AddFavorite: {}, RemoveFavorite: {},
	ChangeAssistantName: {}, ChangeAccent: {}, ChangeVoice: {}, ResetConfig: {},
	Exit: {}, GesturesOn: {}, GesturesOff: {}, DescribeScreen: {},
	AnalyzeAudio: {}, IdentifySongFromAudio: {}, Weather: {}, VolumeUp: {},
	VolumeDown: {}, VolumeSet: {}, Silence: {}, FreeformQuery: {}, Unknown: {},
}

// Known reports whether c is one of the canonical commands.
func Known(c Command) bool {
	_, ok := known[c]
	return ok
}
