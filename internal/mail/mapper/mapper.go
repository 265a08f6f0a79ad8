// Package mapper assigns a workflow status to a newly ingested email from
// the user's ordered column rules. It is a pure function: no I/O, no clock,
// and identical inputs always map to the identical status.
package mapper

import (
	"sort"
	"strings"

	maildomain "mailboard-backend/internal/mail/domain"
)

// Map returns the ColumnID of the first rule in ascending display order whose
// GmailLabelID is present in the message's label set. The reserved snoozed
// column never matches. If no labeled rule matches, the labelless default
// column wins; if there is none, the lowercased mailbox hint is used.
func Map(rules []*maildomain.KanbanColumn, labels []string, mailboxHint string) string {
	labelSet := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		labelSet[l] = struct{}{}
	}

	ordered := make([]*maildomain.KanbanColumn, 0, len(rules))
	for _, r := range rules {
		if r == nil || r.ColumnID == maildomain.SnoozedColumnID {
			continue
		}
		ordered = append(ordered, r)
	}
	// Order ties are broken by ColumnID so the result never depends on the
	// iteration order of the caller's slice.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].ColumnID < ordered[j].ColumnID
	})

	var defaultColumn string
	for _, r := range ordered {
		if r.GmailLabelID == "" {
			if defaultColumn == "" {
				defaultColumn = r.ColumnID
			}
			continue
		}
		if _, ok := labelSet[r.GmailLabelID]; ok {
			return r.ColumnID
		}
	}

	if defaultColumn != "" {
		return defaultColumn
	}
	return strings.ToLower(mailboxHint)
}

// DefaultColumn returns the ColumnID of the labelless non-snoozed rule with
// the lowest display order, or "inbox" when no such rule exists. Snoozed
// emails wake up into this column.
func DefaultColumn(rules []*maildomain.KanbanColumn) string {
	var target *maildomain.KanbanColumn
	for _, r := range rules {
		if r == nil || r.ColumnID == maildomain.SnoozedColumnID || r.GmailLabelID != "" {
			continue
		}
		if target == nil || r.Order < target.Order ||
			(r.Order == target.Order && r.ColumnID < target.ColumnID) {
			target = r
		}
	}
	if target == nil {
		return "inbox"
	}
	return target.ColumnID
}
