package notification

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"

	enginesync "mailboard-backend/internal/sync"

	"github.com/gin-gonic/gin"
)

// PushStrategy is the variant where Pub/Sub delivers notifications to a
// webhook on this service instead of being pulled. The HTTP server owns the
// listening socket; this type only supplies the handler.
type PushStrategy struct {
	orchestrator *enginesync.Orchestrator
}

// NewPushStrategy creates the webhook variant.
func NewPushStrategy(orchestrator *enginesync.Orchestrator) *PushStrategy {
	return &PushStrategy{orchestrator: orchestrator}
}

// Start blocks until the context is canceled. Delivery happens through the
// webhook handler mounted on the API router.
func (s *PushStrategy) Start(ctx context.Context) error {
	log.Println("[Notification] Push strategy active, waiting on webhook deliveries")
	<-ctx.Done()
	return ctx.Err()
}

// pushEnvelope is the Pub/Sub push wrapping: the original message body is
// base64 in message.data.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// Webhook handles one Pub/Sub push delivery. Status codes drive redelivery:
// 2xx acknowledges, anything else makes Pub/Sub try again later. Malformed
// payloads fail closed and are redelivered, same as the pull strategy;
// unknown mailboxes are acknowledged since a retry can never fix them.
func (s *PushStrategy) Webhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		var env pushEnvelope
		if err := c.ShouldBindJSON(&env); err != nil {
			log.Printf("[Notification] Malformed push envelope: %v", err)
			c.Status(http.StatusBadRequest)
			return
		}

		data, err := base64.StdEncoding.DecodeString(env.Message.Data)
		if err != nil {
			log.Printf("[Notification] Malformed push data: %v", err)
			c.Status(http.StatusBadRequest)
			return
		}

		notif, err := ParseNotification(data)
		if err != nil {
			log.Printf("[Notification] Unparseable push notification: %v", err)
			c.Status(http.StatusBadRequest)
			return
		}

		err = s.orchestrator.HandleNotification(c.Request.Context(), notif.EmailAddress, notif.HistoryID)
		switch {
		case err == nil:
			c.Status(http.StatusNoContent)
		case err == enginesync.ErrUnknownUser:
			c.Status(http.StatusNoContent)
		default:
			log.Printf("[Notification] Sync failed for %s, requesting redelivery: %v", notif.EmailAddress, err)
			c.Status(http.StatusServiceUnavailable)
		}
	}
}
