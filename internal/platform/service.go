package platform

import (
	"context"
	"fmt"
	"time"

	"snorq/internal/domain/connection"
)

// RemotePage is a page the authorizing user manages, as reported by the
// platform during the connect flow.
type RemotePage struct {
	ID          string
	Name        string
	AccessToken string
}

// RemoteParticipant is one side of a remote thread.
type RemoteParticipant struct {
	ID   string
	Name string
}

// RemoteThread is a conversation as listed by the platform REST API.
type RemoteThread struct {
	ID           string
	Participants []RemoteParticipant
	UpdatedTime  time.Time
}

// RemoteMessage is one message from a thread's history.
type RemoteMessage struct {
	ID          string
	Text        string
	FromID      string
	CreatedTime time.Time
}

// Service is the platform REST collaborator: everything the pipeline needs
// from the external messaging platform. Implementations must bound every
// call with a timeout and surface platform error payloads as *GraphError.
type Service interface {
	SendMessage(ctx context.Context, conn connection.PlatformConnection, recipientID, text string) (externalID string, err error)
	ListConversations(ctx context.Context, conn connection.PlatformConnection) ([]RemoteThread, error)
	GetMessageHistory(ctx context.Context, conn connection.PlatformConnection, threadID string) ([]RemoteMessage, error)
	ListPages(ctx context.Context, userAccessToken string) ([]RemotePage, error)
	SubscribePage(ctx context.Context, conn connection.PlatformConnection) error
}

// GraphError is a typed upstream failure carrying the platform's own
// human-readable message.
type GraphError struct {
	Message    string
	Type       string
	Code       int
	HTTPStatus int
}

func (e *GraphError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("platform error (code %d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("platform error: http status %d", e.HTTPStatus)
}
