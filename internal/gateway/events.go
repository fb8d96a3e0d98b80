package gateway

import "encoding/json"

// Client event names, sent by the mobile app over the websocket.
const (
	ClientFocusGained   = "focus_gained"
	ClientFocusLost     = "focus_lost"
	ClientBackgrounded  = "app_backgrounded"
	ClientMicPressed    = "mic_pressed"
	ClientMicReleased   = "mic_released"
	ClientAudioFinished = "audio_finished"
	ClientModeSwitch    = "mode_switch"
	ClientGameSelected  = "game_selected"
	ClientVoiceRate     = "voice_rate_changed"
	ClientAvatarChanged = "avatar_changed"
	ClientUtterance     = "utterance"
)

// ClientEvent is the envelope for text frames from the client. Binary
// frames carry raw audio and bypass it.
type ClientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerEvent is the envelope for events pushed to the client.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type ModeSwitchPayload struct {
	Mode string `json:"mode"`
}

type GameSelectedPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type VoiceRatePayload struct {
	Rate float64 `json:"rate"`
}

type AvatarChangedPayload struct {
	AvatarID string `json:"avatarId"`
}

type UtterancePayload struct {
	Text string `json:"text"`
}
