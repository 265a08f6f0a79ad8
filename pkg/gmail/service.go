// Package gmail is the ingestion adapter against the Gmail API: watch
// lifecycle calls, bounded history fetches and full message retrieval,
// converted into the internal Email representation.
package gmail

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = maildomain.TokenUpdateFunc

type Service struct {
	clientID     string
	clientSecret string
}

// notifyTokenSource wraps an oauth2 token source and reports refreshed
// access tokens so callers can persist them.
type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// NewService creates the Gmail adapter.
func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// gmailService creates a Gmail API client bound to the user's tokens.
func (s *Service) gmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// Watch registers a change-watch publishing to the given Pub/Sub topic and
// returns the mailbox's history id at registration time, which seeds the
// sync cursor for users that have none.
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) (*maildomain.WatchResult, error) {
	srv, err := s.gmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	// Gmail allows a single push client per user; clearing any previous
	// watch first keeps re-registration idempotent. Failure here is
	// ignorable: there may simply be no watch to stop.
	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	resp, err := srv.Users.Watch("me", req).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to watch mailbox: %w", err)
	}
	log.Printf("[Gmail] Watch registered (historyId: %d, expires: %d)", resp.HistoryId, resp.Expiration)

	return &maildomain.WatchResult{
		HistoryID:  maildomain.HistoryIDFromUint64(resp.HistoryId),
		Expiration: time.UnixMilli(resp.Expiration),
	}, nil
}

// StopWatch deregisters the change-watch.
func (s *Service) StopWatch(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.gmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	if err := srv.Users.Stop("me").Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %w", err)
	}
	return nil
}

// GetHistory returns change-log records strictly after sinceHistoryID,
// following result pages. Only message additions are extracted; label-only
// changes never create board items.
func (s *Service) GetHistory(ctx context.Context, accessToken, refreshToken string, sinceHistoryID maildomain.HistoryID, onTokenRefresh TokenUpdateFunc) ([]maildomain.HistoryRecord, error) {
	srv, err := s.gmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	var records []maildomain.HistoryRecord
	pageToken := ""

	for {
		call := srv.Users.History.List("me").
			StartHistoryId(sinceHistoryID.Uint64()).
			HistoryTypes("messageAdded")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list history: %w", err)
		}

		for _, h := range resp.History {
			record := maildomain.HistoryRecord{
				ID: maildomain.HistoryIDFromUint64(h.Id).Big(),
			}
			for _, added := range h.MessagesAdded {
				if added.Message != nil {
					record.AddedMessageIDs = append(record.AddedMessageIDs, added.Message.Id)
				}
			}
			records = append(records, record)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return records, nil
}

// GetMessage fetches one full message and converts it.
func (s *Service) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) (*maildomain.Email, error) {
	srv, err := s.gmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message: %w", err)
	}

	// Some scopes return no structured payload; fall back to the raw RFC
	// 5322 form.
	if msg.Payload == nil {
		if msg.Raw == "" {
			return nil, fmt.Errorf("message %s has neither payload nor raw body", messageID)
		}
		return convertRawMessage(msg)
	}
	return convertMessage(msg), nil
}

// GetMailboxes retrieves all mailboxes (labels) from Gmail
func (s *Service) GetMailboxes(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) ([]*maildomain.Mailbox, error) {
	srv, err := s.gmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	labelsResp, err := srv.Users.Labels.List("me").Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve labels: %w", err)
	}

	mailboxes := make([]*maildomain.Mailbox, 0)
	for _, label := range labelsResp.Labels {
		if label.Type != "system" && label.Type != "user" {
			continue
		}
		mailboxType := "user"
		if label.Type == "system" {
			mailboxType = strings.ToLower(label.Name)
		}
		mailboxes = append(mailboxes, &maildomain.Mailbox{
			ID:    label.Id,
			Name:  label.Name,
			Type:  mailboxType,
			Count: int(label.MessagesUnread),
		})
	}
	return mailboxes, nil
}

// ModifyMessageLabels adds and/or removes labels from a message
func (s *Service) ModifyMessageLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.gmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{}
	if len(addLabelIDs) > 0 {
		modifyReq.AddLabelIds = addLabelIDs
	}
	if len(removeLabelIDs) > 0 {
		modifyReq.RemoveLabelIds = removeLabelIDs
	}

	if _, err := srv.Users.Messages.Modify("me", messageID, modifyReq).Do(); err != nil {
		return fmt.Errorf("unable to modify message labels: %w", err)
	}
	return nil
}
