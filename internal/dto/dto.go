package dto

import "time"

type MeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type HistoryMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"createdAt"`
}

type HistoryPageResponse struct {
	Messages []HistoryMessage `json:"messages"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int64            `json:"total"`
}

type StreamTokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// UpdatePreferencesRequest carries a partial preferences update; nil
// fields stay unchanged.
type UpdatePreferencesRequest struct {
	VoiceRate *float64 `json:"voiceRate,omitempty"`
	AvatarID  *string  `json:"avatarId,omitempty"`
	AutoStart *bool    `json:"autoStart,omitempty"`
	Language  *string  `json:"language,omitempty"`
}

// SessionStatusResponse describes the user's live conversation, if any.
type SessionStatusResponse struct {
	Connected  bool   `json:"connected"`
	Mode       string `json:"mode,omitempty"`
	Phase      string `json:"phase,omitempty"`
	MicEnabled bool   `json:"micEnabled"`
	Speaking   bool   `json:"speaking"`
}
