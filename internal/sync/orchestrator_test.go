package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	authdomain "mailboard-backend/internal/auth/domain"
	maildomain "mailboard-backend/internal/mail/domain"
	"mailboard-backend/internal/realtime"
)

type fakeSyncStateRepo struct {
	mu     sync.Mutex
	states map[string]*maildomain.SyncState // by userID
}

func newFakeSyncStateRepo(states ...*maildomain.SyncState) *fakeSyncStateRepo {
	r := &fakeSyncStateRepo{states: make(map[string]*maildomain.SyncState)}
	for _, s := range states {
		r.states[s.UserID] = s
	}
	return r
}

func (r *fakeSyncStateRepo) GetByEmailAddress(emailAddress string) (*maildomain.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s.EmailAddress == emailAddress {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSyncStateRepo) GetByUserID(userID string) (*maildomain.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[userID]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSyncStateRepo) Seed(userID, emailAddress string, historyID maildomain.HistoryID, expiration time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[userID]; ok {
		s.WatchExpiration = &expiration
		return nil
	}
	r.states[userID] = &maildomain.SyncState{
		UserID:          userID,
		EmailAddress:    emailAddress,
		LatestHistoryID: historyID,
		WatchExpiration: &expiration,
	}
	return nil
}

func (r *fakeSyncStateRepo) Advance(userID string, newHistoryID maildomain.HistoryID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[userID]
	if !ok {
		return false, nil
	}
	if s.LatestHistoryID.Cmp(newHistoryID) >= 0 {
		return false, nil
	}
	s.LatestHistoryID = newHistoryID
	return true, nil
}

func (r *fakeSyncStateRepo) ClearWatch(userID string) error { return nil }

func (r *fakeSyncStateRepo) ListExpiringWatches(before time.Time) ([]*maildomain.SyncState, error) {
	return nil, nil
}

func (r *fakeSyncStateRepo) cursor(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[userID].LatestHistoryID.String()
}

type fakeEmailRepo struct {
	mu     sync.Mutex
	byKey  map[string]*maildomain.Email // userID + "/" + providerMessageID
	nextID int
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{byKey: make(map[string]*maildomain.Email)}
}

func key(userID, providerMessageID string) string { return userID + "/" + providerMessageID }

func (r *fakeEmailRepo) Create(email *maildomain.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(email.UserID, email.ProviderMessageID)
	if _, ok := r.byKey[k]; ok {
		return fmt.Errorf("duplicate")
	}
	r.nextID++
	email.ID = fmt.Sprintf("e%d", r.nextID)
	copied := *email
	r.byKey[k] = &copied
	return nil
}

func (r *fakeEmailRepo) Exists(userID, providerMessageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byKey[key(userID, providerMessageID)]
	return ok, nil
}

func (r *fakeEmailRepo) GetByID(userID, id string) (*maildomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byKey {
		if e.UserID == userID && e.ID == id {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeEmailRepo) GetByProviderMessageID(userID, providerMessageID string) (*maildomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byKey[key(userID, providerMessageID)]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEmailRepo) ListByStatus(userID, status string, limit, offset int) ([]*maildomain.Email, int, error) {
	return nil, 0, nil
}

func (r *fakeEmailRepo) UpdateStatus(userID, emailID, status string) error { return nil }

func (r *fakeEmailRepo) Snooze(userID, emailID string, until time.Time) error { return nil }

func (r *fakeEmailRepo) ListExpiredSnoozes(now time.Time) ([]*maildomain.Email, error) {
	return nil, nil
}

func (r *fakeEmailRepo) ExpireSnooze(emailID, targetStatus string, now time.Time) (bool, error) {
	return false, nil
}

func (r *fakeEmailRepo) MarkRead(userID, emailID string, read bool) error { return nil }

func (r *fakeEmailRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

func (r *fakeEmailRepo) status(userID, providerMessageID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byKey[key(userID, providerMessageID)]
	if !ok {
		return ""
	}
	return e.Status
}

type fakeColumnRepo struct {
	columns []*maildomain.KanbanColumn
}

func (r *fakeColumnRepo) GetColumnsByUserID(userID string) ([]*maildomain.KanbanColumn, error) {
	return r.columns, nil
}

func (r *fakeColumnRepo) GetColumnByID(userID, columnID string) (*maildomain.KanbanColumn, error) {
	for _, c := range r.columns {
		if c.ColumnID == columnID {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeColumnRepo) CreateColumn(column *maildomain.KanbanColumn) error { return nil }
func (r *fakeColumnRepo) UpdateColumn(column *maildomain.KanbanColumn) error { return nil }
func (r *fakeColumnRepo) DeleteColumn(userID, columnID string) error         { return nil }
func (r *fakeColumnRepo) UpdateColumnOrders(userID string, orders map[string]int) error {
	return nil
}

type fakeUserRepo struct {
	user *authdomain.User
}

func (r *fakeUserRepo) Create(user *authdomain.User) error { return nil }
func (r *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) {
	return nil, nil
}
func (r *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, nil
}
func (r *fakeUserRepo) Update(user *authdomain.User) error { return nil }
func (r *fakeUserRepo) SaveRefreshToken(token *authdomain.RefreshToken) error {
	return nil
}
func (r *fakeUserRepo) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	return nil, nil
}
func (r *fakeUserRepo) DeleteRefreshToken(token string) error                    { return nil }
func (r *fakeUserRepo) ReplaceRefreshToken(token *authdomain.RefreshToken) error { return nil }

type fakeProvider struct {
	maildomain.MailProvider

	mu           sync.Mutex
	history      []maildomain.HistoryRecord
	messages     map[string]*maildomain.Email
	failMessages map[string]bool
	historyCalls int
}

func (p *fakeProvider) GetHistory(ctx context.Context, accessToken, refreshToken string, since maildomain.HistoryID, onTokenRefresh maildomain.TokenUpdateFunc) ([]maildomain.HistoryRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.historyCalls++
	return p.history, nil
}

func (p *fakeProvider) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh maildomain.TokenUpdateFunc) (*maildomain.Email, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failMessages[messageID] {
		return nil, errors.New("provider unavailable")
	}
	msg, ok := p.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("no such message %s", messageID)
	}
	copied := *msg
	return &copied, nil
}

type recordingDeliverer struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (d *recordingDeliverer) Deliver(userID string, event realtime.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

func hid(t *testing.T, s string) maildomain.HistoryID {
	t.Helper()
	h, err := maildomain.ParseHistoryID(s)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func record(t *testing.T, id string, messageIDs ...string) maildomain.HistoryRecord {
	t.Helper()
	return maildomain.HistoryRecord{ID: hid(t, id).Big(), AddedMessageIDs: messageIDs}
}

func boardRules() []*maildomain.KanbanColumn {
	return []*maildomain.KanbanColumn{
		{ColumnID: "inbox", Order: 0},
		{ColumnID: "todo", Order: 1, GmailLabelID: "IMPORTANT"},
		{ColumnID: "done", Order: 2, GmailLabelID: "STARRED"},
		{ColumnID: "snoozed", Order: 3},
	}
}

func testOrchestrator(t *testing.T, provider *fakeProvider) (*Orchestrator, *fakeSyncStateRepo, *fakeEmailRepo, *recordingDeliverer) {
	t.Helper()
	states := newFakeSyncStateRepo(&maildomain.SyncState{
		UserID:          "u1",
		EmailAddress:    "alice@example.com",
		LatestHistoryID: hid(t, "100"),
	})
	emails := newFakeEmailRepo()
	columns := &fakeColumnRepo{columns: boardRules()}
	users := &fakeUserRepo{user: &authdomain.User{ID: "u1", Email: "alice@example.com", AccessToken: "at", RefreshToken: "rt"}}
	deliverer := &recordingDeliverer{}

	o := NewOrchestrator(states, emails, columns, users, provider, deliverer, NewUserLocks())
	return o, states, emails, deliverer
}

func TestSyncIngestsNewMessagesAndAdvancesCursor(t *testing.T) {
	provider := &fakeProvider{
		history: []maildomain.HistoryRecord{
			record(t, "101", "m1"),
			record(t, "105", "m2"),
		},
		messages: map[string]*maildomain.Email{
			"m1": {Subject: "first", Labels: []string{"INBOX"}, MailboxID: "INBOX"},
			"m2": {Subject: "second", Labels: []string{"IMPORTANT"}, MailboxID: "INBOX"},
		},
	}
	o, states, emails, deliverer := testOrchestrator(t, provider)

	if err := o.HandleNotification(context.Background(), "alice@example.com", hid(t, "105")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	if got := emails.count(); got != 2 {
		t.Errorf("ingested %d emails, want 2", got)
	}
	if got := emails.status("u1", "m1"); got != "inbox" {
		t.Errorf("m1 status = %q, want inbox", got)
	}
	if got := emails.status("u1", "m2"); got != "todo" {
		t.Errorf("m2 status = %q, want todo", got)
	}
	if got := states.cursor("u1"); got != "105" {
		t.Errorf("cursor = %s, want 105", got)
	}
	if got := deliverer.count(); got != 2 {
		t.Errorf("delivered %d events, want 2", got)
	}
}

func TestSyncDropsStaleNotification(t *testing.T) {
	provider := &fakeProvider{}
	o, states, emails, deliverer := testOrchestrator(t, provider)

	if err := o.HandleNotification(context.Background(), "alice@example.com", hid(t, "100")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if err := o.HandleNotification(context.Background(), "alice@example.com", hid(t, "99")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	if provider.historyCalls != 0 {
		t.Errorf("stale notifications hit the provider %d times", provider.historyCalls)
	}
	if emails.count() != 0 || deliverer.count() != 0 {
		t.Error("stale notifications must not ingest or deliver anything")
	}
	if got := states.cursor("u1"); got != "100" {
		t.Errorf("cursor moved to %s on a stale notification", got)
	}
}

func TestSyncRedeliveryIsIdempotent(t *testing.T) {
	provider := &fakeProvider{
		history: []maildomain.HistoryRecord{record(t, "105", "m1")},
		messages: map[string]*maildomain.Email{
			"m1": {Subject: "only once", Labels: []string{"INBOX"}},
		},
	}
	o, _, emails, deliverer := testOrchestrator(t, provider)

	for i := 0; i < 3; i++ {
		if err := o.HandleNotification(context.Background(), "alice@example.com", hid(t, "105")); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if emails.count() != 1 {
		t.Errorf("ingested %d emails across redeliveries, want 1", emails.count())
	}
	if deliverer.count() != 1 {
		t.Errorf("delivered %d events across redeliveries, want 1", deliverer.count())
	}
}

func TestSyncPartialFailureKeepsCursorAndRetries(t *testing.T) {
	provider := &fakeProvider{
		history: []maildomain.HistoryRecord{record(t, "105", "m1", "m2")},
		messages: map[string]*maildomain.Email{
			"m1": {Subject: "ok", Labels: []string{"INBOX"}},
			"m2": {Subject: "flaky", Labels: []string{"INBOX"}},
		},
		failMessages: map[string]bool{"m2": true},
	}
	o, states, emails, _ := testOrchestrator(t, provider)

	err := o.HandleNotification(context.Background(), "alice@example.com", hid(t, "105"))
	if err == nil {
		t.Fatal("expected an error when one message fetch fails")
	}
	if got := states.cursor("u1"); got != "100" {
		t.Errorf("cursor = %s after failed batch, want 100", got)
	}

	// Redelivery after the provider recovers completes the batch without
	// duplicating the part that succeeded.
	provider.mu.Lock()
	provider.failMessages["m2"] = false
	provider.mu.Unlock()

	if err := o.HandleNotification(context.Background(), "alice@example.com", hid(t, "105")); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if emails.count() != 2 {
		t.Errorf("ingested %d emails after retry, want 2", emails.count())
	}
	if got := states.cursor("u1"); got != "105" {
		t.Errorf("cursor = %s after retry, want 105", got)
	}
}

func TestSyncUnknownMailboxIsPermanent(t *testing.T) {
	provider := &fakeProvider{}
	o, _, _, _ := testOrchestrator(t, provider)

	err := o.HandleNotification(context.Background(), "stranger@example.com", hid(t, "50"))
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("err = %v, want ErrUnknownUser", err)
	}
}

func TestSyncIgnoresRecordsBeyondNotifiedID(t *testing.T) {
	provider := &fakeProvider{
		history: []maildomain.HistoryRecord{
			record(t, "103", "m1"),
			record(t, "110", "m2"),
		},
		messages: map[string]*maildomain.Email{
			"m1": {Subject: "in range", Labels: []string{"INBOX"}},
			"m2": {Subject: "later", Labels: []string{"INBOX"}},
		},
	}
	o, states, emails, _ := testOrchestrator(t, provider)

	if err := o.HandleNotification(context.Background(), "alice@example.com", hid(t, "105")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	if emails.count() != 1 {
		t.Errorf("ingested %d emails, want 1 (record 110 belongs to a later notification)", emails.count())
	}
	if got := states.cursor("u1"); got != "105" {
		t.Errorf("cursor = %s, want 105", got)
	}
}

func TestSyncConcurrentNotificationsAreSerializedPerUser(t *testing.T) {
	provider := &fakeProvider{
		history: []maildomain.HistoryRecord{
			record(t, "103", "m1"),
			record(t, "105", "m2"),
		},
		messages: map[string]*maildomain.Email{
			"m1": {Subject: "first", Labels: []string{"INBOX"}},
			"m2": {Subject: "second", Labels: []string{"INBOX"}},
		},
	}
	o, states, emails, deliverer := testOrchestrator(t, provider)

	// Many interleaved deliveries for one user: stale, duplicate and
	// out-of-order ids all at once. Whatever order they win the lock in,
	// each message may be ingested once and the cursor ends at the maximum.
	ids := make([]maildomain.HistoryID, 0, 7)
	for _, s := range []string{"99", "100", "101", "102", "103", "104", "105"} {
		ids = append(ids, hid(t, s))
	}
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func(id maildomain.HistoryID) {
			defer wg.Done()
			<-start
			if err := o.HandleNotification(context.Background(), "alice@example.com", id); err != nil {
				t.Errorf("HandleNotification(%s): %v", id, err)
			}
		}(ids[i%len(ids)])
	}
	close(start)
	wg.Wait()

	if got := emails.count(); got != 2 {
		t.Errorf("ingested %d emails under concurrent delivery, want 2", got)
	}
	if got := deliverer.count(); got != 2 {
		t.Errorf("delivered %d events under concurrent delivery, want 2", got)
	}
	if got := states.cursor("u1"); got != "105" {
		t.Errorf("cursor = %s, want 105", got)
	}
}

func TestSyncNeverOverwritesExistingStatus(t *testing.T) {
	provider := &fakeProvider{
		history: []maildomain.HistoryRecord{record(t, "105", "m1")},
		messages: map[string]*maildomain.Email{
			"m1": {Subject: "moved by hand", Labels: []string{"INBOX"}},
		},
	}
	o, _, emails, _ := testOrchestrator(t, provider)

	// The user already moved this message to done.
	if err := emails.Create(&maildomain.Email{UserID: "u1", ProviderMessageID: "m1", Status: "done"}); err != nil {
		t.Fatal(err)
	}

	if err := o.HandleNotification(context.Background(), "alice@example.com", hid(t, "105")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	if got := emails.status("u1", "m1"); got != "done" {
		t.Errorf("re-sync changed status to %q, want done preserved", got)
	}
}
