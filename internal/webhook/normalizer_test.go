package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snorq/internal/domain/connection"
)

func messagingEvent(sender, recipient, mid, text string, ts int64) MessagingEvent {
	return MessagingEvent{
		Sender:    Party{ID: sender},
		Recipient: Party{ID: recipient},
		Timestamp: ts,
		Message:   &MessageContent{MID: mid, Text: text},
	}
}

func TestNormalizePageDelivery(t *testing.T) {
	p := Payload{
		Object: "page",
		Entry: []Entry{{
			ID:   "page-1",
			Time: 1767260000000,
			Messaging: []MessagingEvent{
				messagingEvent("contact-42", "page-1", "mid.1", "hi there", 1767260000000),
			},
		}},
	}

	events, err := Normalize(p)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, connection.PlatformFacebook, ev.Platform)
	assert.Equal(t, "page-1", ev.PageID)
	assert.Equal(t, "contact-42", ev.SenderID)
	assert.Equal(t, "mid.1", ev.MessageID)
	assert.Equal(t, "hi there", ev.Text)
	assert.Equal(t, time.UnixMilli(1767260000000).UTC(), ev.Timestamp)
}

func TestNormalizeInstagramObject(t *testing.T) {
	p := Payload{
		Object: "instagram",
		Entry: []Entry{{
			Messaging: []MessagingEvent{
				messagingEvent("ig-user", "ig-account", "mid.ig", "dm", 1767260000000),
			},
		}},
	}

	events, err := Normalize(p)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, connection.PlatformInstagram, events[0].Platform)
}

func TestNormalizeNonPageObject(t *testing.T) {
	_, err := Normalize(Payload{Object: "user"})
	assert.ErrorIs(t, err, ErrNotPageObject)
}

func TestNormalizeSkipsNonMessageEvents(t *testing.T) {
	echo := messagingEvent("page-1", "contact-42", "mid.echo", "our own reply", 1767260000000)
	echo.Message.IsEcho = true

	p := Payload{
		Object: "page",
		Entry: []Entry{{
			Messaging: []MessagingEvent{
				// Delivery receipt: no message payload at all.
				{Sender: Party{ID: "contact-42"}, Recipient: Party{ID: "page-1"}, Timestamp: 1767260000000},
				echo,
				messagingEvent("contact-42", "page-1", "mid.real", "actual message", 1767260001000),
			},
		}},
	}

	events, err := Normalize(p)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "mid.real", events[0].MessageID)
}

func TestNormalizeSkipsIncompleteEvents(t *testing.T) {
	missingMID := messagingEvent("contact-42", "page-1", "", "no mid", 1767260000000)
	missingSender := messagingEvent("", "page-1", "mid.x", "no sender", 1767260000000)

	p := Payload{
		Object: "page",
		Entry:  []Entry{{Messaging: []MessagingEvent{missingMID, missingSender}}},
	}

	events, err := Normalize(p)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNormalizeFlattensEntries(t *testing.T) {
	p := Payload{
		Object: "page",
		Entry: []Entry{
			{Messaging: []MessagingEvent{messagingEvent("c1", "page-1", "mid.1", "a", 1)}},
			{Messaging: []MessagingEvent{
				messagingEvent("c2", "page-2", "mid.2", "b", 2),
				messagingEvent("c3", "page-2", "mid.3", "c", 3),
			}},
		},
	}

	events, err := Normalize(p)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
