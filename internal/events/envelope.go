package events

import (
	"encoding/json"
	"time"
)

type Envelope struct {
	Event          string          `json:"event"`
	OrganizationID string          `json:"organization_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload"`
}
