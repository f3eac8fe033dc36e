package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"snorq/pkg/logger"
)

// Publisher pushes a raw payload onto a named channel. Implemented by the
// redis package.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscriber consumes payloads from channel patterns. Implemented by the
// redis package; consumed by the websocket bridge.
type Subscriber interface {
	Subscribe(ctx context.Context, channels []string, handler func(channel string, payload []byte)) error
}

// Emitter is the fan-out trigger the ingestion pipeline fires after a commit.
// Delivery is best-effort and at-most-once: failures are logged, never
// returned, so a broken pub/sub transport cannot fail a webhook response or
// roll back an upsert.
type Emitter struct {
	pub Publisher
	log *logger.Logger
}

func NewEmitter(pub Publisher, log *logger.Logger) *Emitter {
	return &Emitter{pub: pub, log: log}
}

func (e *Emitter) EmitToOrganization(ctx context.Context, organizationID uuid.UUID, event string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		if e.log != nil {
			e.log.Errorf("emit %s: marshal payload: %v", event, err)
		}
		return
	}

	env := Envelope{
		Event:          event,
		OrganizationID: organizationID.String(),
		OccurredAt:     time.Now().UTC(),
		Payload:        body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		if e.log != nil {
			e.log.Errorf("emit %s: marshal envelope: %v", event, err)
		}
		return
	}

	if err := e.pub.Publish(ctx, OrganizationChannel(organizationID.String()), data); err != nil {
		if e.log != nil {
			e.log.Errorf("emit %s to org %s: %v", event, organizationID, err)
		}
	}
}
