package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"snorq/internal/ingest"
	"snorq/pkg/logger"
)

// Processor consumes normalized inbound events. Implemented by the upsert
// engine; swapped for a fake in tests.
type Processor interface {
	ProcessBatch(ctx context.Context, events []ingest.InboundEvent)
}

// Handler terminates the platform's webhook: the GET verification handshake
// and POST deliveries.
type Handler struct {
	verifyToken string
	processor   Processor
	log         *logger.Logger
}

func NewHandler(verifyToken string, processor Processor, log *logger.Logger) *Handler {
	return &Handler{verifyToken: verifyToken, processor: processor, log: log}
}

// Verify answers the subscription handshake: echo hub.challenge iff the mode
// is "subscribe" and the token matches the configured secret.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) == 1 {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

// Receive ingests one webhook delivery. Per-event failures are contained by
// the processor; the response is 200 EVENT_RECEIVED for any page-object
// delivery, because the platform backs off endpoints that report errors.
// A non-page object is a misrouted request and gets 404.
func (h *Handler) Receive(c *gin.Context) {
	var payload Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	events, err := Normalize(payload)
	if err != nil {
		if errors.Is(err, ErrNotPageObject) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	if len(events) > 0 {
		h.processor.ProcessBatch(c.Request.Context(), events)
	}
	c.String(http.StatusOK, "EVENT_RECEIVED")
}
