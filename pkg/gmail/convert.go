package gmail

import (
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"

	"google.golang.org/api/gmail/v1"
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// convertMessage turns a full-format Gmail message into the internal Email.
func convertMessage(msg *gmail.Message) *maildomain.Email {
	from := getHeader(msg.Payload.Headers, "From")
	fromName := from
	// Extract name from "Name <email@example.com>" format
	if idx := strings.Index(from, "<"); idx > 0 {
		fromName = strings.TrimSpace(from[:idx])
	}

	toArray := []string{}
	if toHeader := getHeader(msg.Payload.Headers, "To"); toHeader != "" {
		for _, addr := range strings.Split(toHeader, ",") {
			toArray = append(toArray, strings.TrimSpace(addr))
		}
	}

	body, isHTML := getEmailBody(msg.Payload)

	return &maildomain.Email{
		ProviderMessageID: msg.Id,
		Subject:           getHeader(msg.Payload.Headers, "Subject"),
		From:              from,
		FromName:          fromName,
		To:                toArray,
		Preview:           makePreview(body, isHTML),
		Body:              body,
		IsHTML:            isHTML,
		ReceivedAt:        time.Unix(msg.InternalDate/1000, 0),
		IsRead:            !hasLabel(msg.LabelIds, "UNREAD"),
		Labels:            msg.LabelIds,
		MailboxID:         getMailboxID(msg.LabelIds),
	}
}

// makePreview strips markup and collapses whitespace into a short snippet.
func makePreview(body string, isHTML bool) string {
	preview := body
	if isHTML {
		preview = htmlTagRe.ReplaceAllString(preview, " ")
		preview = strings.ReplaceAll(preview, "&nbsp;", " ")
		preview = strings.ReplaceAll(preview, "&lt;", "<")
		preview = strings.ReplaceAll(preview, "&gt;", ">")
		preview = strings.ReplaceAll(preview, "&amp;", "&")
		preview = strings.ReplaceAll(preview, "&quot;", "\"")
	}
	preview = strings.Join(strings.Fields(preview), " ")
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return preview
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// getEmailBody walks the MIME tree preferring text/html over text/plain.
func getEmailBody(payload *gmail.MessagePart) (string, bool) {
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil {
					switch part.MimeType {
					case "text/html":
						htmlBody = string(data)
					case "text/plain":
						plainBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if htmlBody != "" {
		return htmlBody, true
	}
	return plainBody, false
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}

// getMailboxID picks the mailbox hint from the label set.
func getMailboxID(labels []string) string {
	priority := []string{"INBOX", "SENT", "DRAFT", "SPAM", "TRASH"}
	for _, p := range priority {
		if hasLabel(labels, p) {
			return p
		}
	}
	if len(labels) > 0 {
		return labels[0]
	}
	return "INBOX"
}
