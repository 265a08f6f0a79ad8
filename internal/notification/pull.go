package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	syncengine "mailboard-backend/internal/sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PullStrategy holds one long-lived Pub/Sub subscription servicing all users.
// The queue guarantees at-least-once delivery and no ordering; deduplication
// and reordering tolerance live entirely in the orchestrator's cursor guard.
type PullStrategy struct {
	client       *pubsub.Client
	orchestrator *syncengine.Orchestrator
	topicName    string
	subName      string
}

// NewPullStrategy creates the Pub/Sub consumer.
func NewPullStrategy(ctx context.Context, projectID, topicName, credentialsFile string, orchestrator *syncengine.Orchestrator) (*PullStrategy, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &PullStrategy{
		client:       client,
		orchestrator: orchestrator,
		topicName:    topicName,
		subName:      topicName + "-sub", // Convention: topic-sub
	}, nil
}

// Start ensures the subscription exists and consumes it until ctx is
// canceled. Receive runs one handler goroutine per message; per-user
// ordering is restored inside the orchestrator.
func (s *PullStrategy) Start(ctx context.Context) error {
	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription %s: %w", s.subName, err)
	}

	if !exists {
		topic := s.client.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			return fmt.Errorf("check topic %s: %w", s.topicName, err)
		}
		if !topicExists {
			return fmt.Errorf("topic %s does not exist", s.topicName)
		}

		sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("create subscription %s: %w", s.subName, err)
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening on subscription: %s", s.subName)
	return sub.Receive(ctx, s.handleMessage)
}

func (s *PullStrategy) handleMessage(ctx context.Context, msg *pubsub.Message) {
	notif, err := ParseNotification(msg.Data)
	if err != nil {
		// Policy decision, not an omission: a malformed payload is left
		// unacknowledged (no Nack either) and comes back after the ack
		// deadline. A transient producer glitch is indistinguishable from
		// garbage, so rather retry than drop mail.
		log.Printf("[PubSub] Malformed notification, leaving unacked: %v", err)
		return
	}

	err = s.orchestrator.HandleNotification(ctx, notif.EmailAddress, notif.HistoryID)
	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, syncengine.ErrUnknownUser):
		// Not retryable: the watch was never seeded for this mailbox.
		msg.Ack()
	default:
		// Transient: no ack, the queue redelivers and the cursor guard makes
		// the retry idempotent.
		log.Printf("[PubSub] Sync failed for %s, leaving unacked: %v", notif.EmailAddress, err)
	}
}
