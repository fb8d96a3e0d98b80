package heygen

type SessionStatus string

const (
	StatusCreated SessionStatus = "created"
	StatusStarted SessionStatus = "started"
	StatusClosed  SessionStatus = "closed"
)

// Session is the handle for one live avatar stream. At most one per
// conversation is live at a time; creating a new one implies the previous
// handle has been (or will be) stopped.
type Session struct {
	ID          string        `json:"session_id"`
	AvatarID    string        `json:"avatar_id"`
	URL         string        `json:"url"`
	AccessToken string        `json:"access_token"`
	Status      SessionStatus `json:"status"`
}

type VoiceSettings struct {
	VoiceID string  `json:"voice_id,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
}

type SessionRequest struct {
	AvatarID            string
	Version             string
	Voice               *VoiceSettings
	DisableIdleTimeout  bool
	ActivityIdleTimeout int
}

type TaskResult struct {
	DurationMs int64  `json:"duration_ms"`
	TaskID     string `json:"task_id"`
}

type Avatar struct {
	ID              string `json:"avatar_id"`
	Gender          string `json:"gender"`
	PreviewImageURL string `json:"preview_image_url"`
	DefaultVoice    string `json:"default_voice,omitempty"`
}

type Config struct {
	BaseURL string
	APIKey  string
}
