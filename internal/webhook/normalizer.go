package webhook

import (
	"encoding/json"
	"errors"
	"time"

	"snorq/internal/domain/connection"
	"snorq/internal/ingest"
)

// ErrNotPageObject marks a delivery whose top-level object is not a
// messaging page: a misrouted request, answered with 404 rather than
// treated as an ingestion failure.
var ErrNotPageObject = errors.New("webhook object is not a messaging page")

// Payload mirrors the Meta webhook delivery envelope. One delivery bundles
// multiple entries, each with multiple messaging events.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

type MessagingEvent struct {
	Sender    Party            `json:"sender"`
	Recipient Party            `json:"recipient"`
	Timestamp int64            `json:"timestamp"`
	Message   *MessageContent  `json:"message,omitempty"`
	Postback  *json.RawMessage `json:"postback,omitempty"`
}

type Party struct {
	ID string `json:"id"`
}

type MessageContent struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}

// Normalize flattens a webhook delivery into canonical inbound events, one
// per message. Events without a message payload (delivery receipts, read
// receipts, postbacks) and echoes of the page's own messages are skipped,
// not errors: they exist but create no inbox message.
func Normalize(p Payload) ([]ingest.InboundEvent, error) {
	platform, err := platformForObject(p.Object)
	if err != nil {
		return nil, err
	}

	var events []ingest.InboundEvent
	for _, entry := range p.Entry {
		for _, m := range entry.Messaging {
			if m.Message == nil || m.Message.IsEcho {
				continue
			}
			if m.Sender.ID == "" || m.Recipient.ID == "" || m.Message.MID == "" {
				continue
			}
			events = append(events, ingest.InboundEvent{
				Platform:  platform,
				PageID:    m.Recipient.ID,
				SenderID:  m.Sender.ID,
				MessageID: m.Message.MID,
				Text:      m.Message.Text,
				Timestamp: time.UnixMilli(m.Timestamp).UTC(),
			})
		}
	}
	return events, nil
}

func platformForObject(object string) (connection.Platform, error) {
	switch object {
	case "page":
		return connection.PlatformFacebook, nil
	case "instagram":
		return connection.PlatformInstagram, nil
	default:
		return "", ErrNotPageObject
	}
}
