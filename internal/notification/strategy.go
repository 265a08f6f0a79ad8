// Package notification receives "mailbox changed" events from the outside
// world and hands them to the sync orchestrator. Two strategies exist: Pull
// consumes a Pub/Sub subscription fed by provider watch registrations; Push
// exposes a webhook endpoint for a Pub/Sub push subscription.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	maildomain "mailboard-backend/internal/mail/domain"
)

// Strategy is one way of receiving mailbox change notifications.
type Strategy interface {
	// Start blocks, consuming notifications until the context is canceled.
	Start(ctx context.Context) error
}

// Notification is a parsed change event: which mailbox moved, and to where
// in the provider's change log. It is transient; nothing beyond the cursor
// comparison persists it.
type Notification struct {
	EmailAddress string
	HistoryID    maildomain.HistoryID
}

// envelope matches the provider's Pub/Sub payload. historyId arrives as a
// JSON number from Gmail itself but as a decimal string from some relays,
// so it is decoded leniently.
type envelope struct {
	EmailAddress string          `json:"emailAddress"`
	HistoryID    json.RawMessage `json:"historyId"`
}

// ParseNotification decodes a queue message body. It fails closed: any
// malformed payload is an error and the message must be left unacknowledged.
func ParseNotification(data []byte) (*Notification, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode notification envelope: %w", err)
	}
	if env.EmailAddress == "" {
		return nil, fmt.Errorf("notification envelope missing emailAddress")
	}
	if len(env.HistoryID) == 0 {
		return nil, fmt.Errorf("notification envelope missing historyId")
	}

	raw := bytes.Trim(bytes.TrimSpace(env.HistoryID), `"`)
	historyID, err := maildomain.ParseHistoryID(string(raw))
	if err != nil {
		return nil, fmt.Errorf("notification envelope historyId: %w", err)
	}

	return &Notification{
		EmailAddress: env.EmailAddress,
		HistoryID:    historyID,
	}, nil
}
