package conversation

// Server event names pushed to the client over the gateway connection.
const (
	EventTurnState         = "turn_state"
	EventTranscript        = "transcript_entry"
	EventSessionStarted    = "session_started"
	EventSessionStopped    = "session_stopped"
	EventModeChanged       = "mode_changed"
	EventShowGameSelection = "show_game_selection"
	EventAudio             = "audio"
	EventError             = "error"
)

// Emitter delivers server events to the connected client. The gateway
// connection implements it.
type Emitter interface {
	Emit(event string, payload any)
}

type SessionStartedPayload struct {
	SessionID   string `json:"sessionId"`
	URL         string `json:"url"`
	AccessToken string `json:"accessToken"`
	AvatarID    string `json:"avatarId"`
}

type ModeChangedPayload struct {
	Mode Mode         `json:"mode"`
	Game *GameContext `json:"game,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
