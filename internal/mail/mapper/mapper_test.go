package mapper

import (
	"testing"

	maildomain "mailboard-backend/internal/mail/domain"
)

func col(columnID string, order int, label string) *maildomain.KanbanColumn {
	return &maildomain.KanbanColumn{ColumnID: columnID, Order: order, GmailLabelID: label}
}

func TestMapFirstRuleInOrderWins(t *testing.T) {
	rules := []*maildomain.KanbanColumn{
		col("inbox", 0, "INBOX"),
		col("todo", 1, "STARRED"),
	}
	// Both labels present: order 0 must win regardless of label order.
	got := Map(rules, []string{"STARRED", "INBOX"}, "INBOX")
	if got != "inbox" {
		t.Fatalf("Map() = %q, want %q", got, "inbox")
	}
}

func TestMapIgnoresSliceOrder(t *testing.T) {
	rules := []*maildomain.KanbanColumn{
		col("todo", 1, "STARRED"),
		col("inbox", 0, "INBOX"),
	}
	got := Map(rules, []string{"INBOX", "STARRED"}, "INBOX")
	if got != "inbox" {
		t.Fatalf("Map() = %q, want %q", got, "inbox")
	}
}

func TestMapDeterministic(t *testing.T) {
	rules := []*maildomain.KanbanColumn{
		col("inbox", 0, "INBOX"),
		col("todo", 1, "IMPORTANT"),
		col("done", 2, "STARRED"),
	}
	labels := []string{"IMPORTANT", "STARRED", "UNREAD"}
	first := Map(rules, labels, "INBOX")
	for i := 0; i < 50; i++ {
		if got := Map(rules, labels, "INBOX"); got != first {
			t.Fatalf("Map() not deterministic: got %q then %q", first, got)
		}
	}
	if first != "todo" {
		t.Fatalf("Map() = %q, want %q", first, "todo")
	}
}

func TestMapFallsBackToDefaultColumn(t *testing.T) {
	rules := []*maildomain.KanbanColumn{
		col("todo", 1, "IMPORTANT"),
		col("later", 2, ""), // labelless default column
	}
	got := Map(rules, []string{"CATEGORY_PROMOTIONS"}, "INBOX")
	if got != "later" {
		t.Fatalf("Map() = %q, want default column %q", got, "later")
	}
}

func TestMapFallsBackToMailboxHint(t *testing.T) {
	rules := []*maildomain.KanbanColumn{
		col("todo", 1, "IMPORTANT"),
	}
	got := Map(rules, nil, "INBOX")
	if got != "inbox" {
		t.Fatalf("Map() = %q, want hint fallback %q", got, "inbox")
	}
}

func TestMapSkipsSnoozedColumn(t *testing.T) {
	rules := []*maildomain.KanbanColumn{
		col(maildomain.SnoozedColumnID, 0, ""),
		col("todo", 1, "IMPORTANT"),
	}
	// snoozed is labelless but reserved: it must never be the default target.
	got := Map(rules, []string{"INBOX"}, "INBOX")
	if got != "inbox" {
		t.Fatalf("Map() = %q, want %q", got, "inbox")
	}
	if got := Map(rules, []string{"IMPORTANT"}, "INBOX"); got != "todo" {
		t.Fatalf("Map() = %q, want %q", got, "todo")
	}
}
