package gateway

import (
	"time"

	"github.com/livekit/protocol/auth"
)

// TokenService mints viewer tokens so the client can join the avatar
// video room as a subscriber.
type TokenService struct {
	apiKey    string
	apiSecret string
	url       string
}

func NewTokenService(apiKey, apiSecret, url string) *TokenService {
	return &TokenService{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		url:       url,
	}
}

func (s *TokenService) URL() string {
	return s.url
}

// GenerateViewerToken grants subscribe-only access to the room carrying
// the avatar stream.
func (s *TokenService) GenerateViewerToken(identity, room string) (string, error) {
	at := auth.NewAccessToken(s.apiKey, s.apiSecret)

	canPublish := false
	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         room,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}

	at.SetIdentity(identity).
		SetValidFor(24 * time.Hour).
		SetVideoGrant(grant)

	return at.ToJWT()
}
