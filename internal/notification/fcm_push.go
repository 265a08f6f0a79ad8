package notification

import (
	"context"
	"fmt"
	"log"

	authrepo "mailboard-backend/internal/auth/repository"
	maildomain "mailboard-backend/internal/mail/domain"
	"mailboard-backend/pkg/fcm"
)

// FCMPushSender is the device-push leg of delivery fan-out: connected
// browsers get the websocket event, registered devices get an FCM push.
type FCMPushSender struct {
	client  *fcm.Client
	fcmRepo authrepo.FCMTokenRepository
}

// NewFCMPushSender wires the push leg.
func NewFCMPushSender(client *fcm.Client, fcmRepo authrepo.FCMTokenRepository) *FCMPushSender {
	return &FCMPushSender{client: client, fcmRepo: fcmRepo}
}

// SendNewMail pushes one notification per sync batch, summarizing the newest
// message. Tokens rejected by FCM are cleaned up.
func (p *FCMPushSender) SendNewMail(ctx context.Context, userID string, emails []*maildomain.Email) {
	if len(emails) == 0 {
		return
	}

	tokens, err := p.fcmRepo.GetTokensByUserID(userID)
	if err != nil {
		log.Printf("[FCM] Error getting tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	newest := emails[0]
	for _, e := range emails[1:] {
		if e.ReceivedAt.After(newest.ReceivedAt) {
			newest = e
		}
	}

	senderName := newest.FromName
	if senderName == "" {
		senderName = newest.From
	}
	title := fmt.Sprintf("New email from %s", senderName)
	if len(emails) > 1 {
		title = fmt.Sprintf("%d new emails", len(emails))
	}
	body := newest.Subject
	if body == "" {
		body = "(no subject)"
	}

	var tokenStrings []string
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failedTokens, err := p.client.SendToDevices(ctx, tokenStrings, fcm.NotificationData{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":         "email:new",
			"message_id":   newest.ProviderMessageID,
			"click_action": "/inbox/" + newest.ID,
		},
	})
	if err != nil {
		log.Printf("[FCM] Error sending notifications for user %s: %v", userID, err)
		return
	}

	for _, token := range failedTokens {
		if err := p.fcmRepo.DeleteToken(token); err != nil {
			log.Printf("[FCM] Failed to delete stale token: %v", err)
		}
	}
}
