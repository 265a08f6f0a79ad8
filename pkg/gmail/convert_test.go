package gmail

import (
	"encoding/base64"
	"strings"
	"testing"

	"google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestConvertMessagePrefersHTMLPart(t *testing.T) {
	msg := &gmail.Message{
		Id:           "msg-1",
		InternalDate: 1700000000000,
		LabelIds:     []string{"INBOX", "UNREAD"},
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Weekly report"},
				{Name: "From", Value: "Alice <alice@example.com>"},
				{Name: "To", Value: "bob@example.com, carol@example.com"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("plain body")}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>html body</p>")}},
			},
		},
	}

	email := convertMessage(msg)

	if email.ProviderMessageID != "msg-1" {
		t.Errorf("ProviderMessageID = %q, want msg-1", email.ProviderMessageID)
	}
	if email.Subject != "Weekly report" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if email.FromName != "Alice" {
		t.Errorf("FromName = %q, want Alice", email.FromName)
	}
	if len(email.To) != 2 || email.To[1] != "carol@example.com" {
		t.Errorf("To = %v", email.To)
	}
	if !email.IsHTML || email.Body != "<p>html body</p>" {
		t.Errorf("Body = %q IsHTML = %v, want html part", email.Body, email.IsHTML)
	}
	if email.Preview != "html body" {
		t.Errorf("Preview = %q, want html body", email.Preview)
	}
	if email.IsRead {
		t.Error("UNREAD label should leave IsRead false")
	}
	if email.MailboxID != "INBOX" {
		t.Errorf("MailboxID = %q, want INBOX", email.MailboxID)
	}
}

func TestConvertMessageFallsBackToPlain(t *testing.T) {
	msg := &gmail.Message{
		Id:       "msg-2",
		LabelIds: []string{"SENT"},
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: b64("just text")},
		},
	}

	email := convertMessage(msg)
	if email.IsHTML || email.Body != "just text" {
		t.Errorf("Body = %q IsHTML = %v", email.Body, email.IsHTML)
	}
	if !email.IsRead {
		t.Error("message without UNREAD label should be read")
	}
	if email.MailboxID != "SENT" {
		t.Errorf("MailboxID = %q, want SENT", email.MailboxID)
	}
}

func TestMakePreviewTruncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := makePreview(long, false)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("len = %d, want 200 chars plus ellipsis", len(got))
	}
}

func TestParseRawMessage(t *testing.T) {
	raw := strings.Join([]string{
		"From: Alice <alice@example.com>",
		"To: Bob <bob@example.com>",
		"Subject: Raw fallback",
		"Date: Tue, 14 Nov 2023 12:00:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"hello from the raw path",
	}, "\r\n")

	email, err := ParseRawMessage("raw-1", []byte(raw))
	if err != nil {
		t.Fatalf("ParseRawMessage: %v", err)
	}
	if email.Subject != "Raw fallback" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if email.From != "alice@example.com" || email.FromName != "Alice" {
		t.Errorf("From = %q / %q", email.From, email.FromName)
	}
	if len(email.To) != 1 || email.To[0] != "bob@example.com" {
		t.Errorf("To = %v", email.To)
	}
	if email.IsHTML {
		t.Error("plain message should not be marked HTML")
	}
	if !strings.Contains(email.Body, "hello from the raw path") {
		t.Errorf("Body = %q", email.Body)
	}
	if email.ReceivedAt.IsZero() {
		t.Error("ReceivedAt should come from the Date header")
	}
}
