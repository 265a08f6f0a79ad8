package gmail

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"google.golang.org/api/gmail/v1"
)

// convertRawMessage handles messages returned without a structured payload
// by decoding the raw RFC 5322 form.
func convertRawMessage(msg *gmail.Message) (*maildomain.Email, error) {
	data, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		return nil, fmt.Errorf("decode raw message %s: %w", msg.Id, err)
	}

	email, err := ParseRawMessage(msg.Id, data)
	if err != nil {
		return nil, err
	}

	email.ReceivedAt = time.Unix(msg.InternalDate/1000, 0)
	email.IsRead = !hasLabel(msg.LabelIds, "UNREAD")
	email.Labels = msg.LabelIds
	email.MailboxID = getMailboxID(msg.LabelIds)
	return email, nil
}

// ParseRawMessage parses an RFC 5322 message into the internal Email shape.
// MIME walking, header decoding and charsets are delegated to go-message.
func ParseRawMessage(messageID string, raw []byte) (*maildomain.Email, error) {
	mr, err := mail.CreateReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse raw message %s: %w", messageID, err)
	}
	defer mr.Close()

	email := &maildomain.Email{ProviderMessageID: messageID}

	if subject, err := mr.Header.Subject(); err == nil {
		email.Subject = subject
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		email.From = from[0].Address
		email.FromName = from[0].Name
		if email.FromName == "" {
			email.FromName = from[0].Address
		}
	}
	if to, err := mr.Header.AddressList("To"); err == nil {
		for _, addr := range to {
			email.To = append(email.To, addr.Address)
		}
	}
	if date, err := mr.Header.Date(); err == nil {
		email.ReceivedAt = date
	}

	var htmlBody, plainBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken part should not lose the whole message; keep what
			// was parsed so far.
			break
		}

		if h, ok := part.Header.(*mail.InlineHeader); ok {
			contentType, _, err := h.ContentType()
			if err != nil {
				continue
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch contentType {
			case "text/html":
				htmlBody = string(body)
			case "text/plain":
				plainBody = string(body)
			}
		}
	}

	if htmlBody != "" {
		email.Body = htmlBody
		email.IsHTML = true
	} else {
		email.Body = plainBody
	}
	email.Preview = makePreview(email.Body, email.IsHTML)
	return email, nil
}
