package heygen

import "context"

// SessionClient is the remote avatar session capability consumed by the
// conversation orchestrator.
type SessionClient interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	StartSession(ctx context.Context, sessionID string) error
	StopSession(ctx context.Context, sessionID string) error
	SendTask(ctx context.Context, sessionID, text string) (*TaskResult, error)
}

type AvatarLister interface {
	ListAvatars(ctx context.Context) ([]Avatar, error)
	AvatarDetails(ctx context.Context, avatarID string) (*Avatar, error)
}
