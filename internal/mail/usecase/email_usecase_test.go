package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	maildomain "mailboard-backend/internal/mail/domain"
	"mailboard-backend/internal/mail/repository"
	enginesync "mailboard-backend/internal/sync"
)

type fakeUserRepo struct {
	authrepo.UserRepository
	user *authdomain.User
}

func (r *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(user *authdomain.User) error { return nil }

type fakeSyncStateRepo struct {
	repository.SyncStateRepository
	states map[string]*maildomain.SyncState
}

func (r *fakeSyncStateRepo) Seed(userID, emailAddress string, historyID maildomain.HistoryID, expiration time.Time) error {
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

type fakeColumnRepo struct {
	repository.KanbanColumnRepository
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

type fakeWatchProvider struct {
	maildomain.MailProvider
	watchCalls int
	result     *maildomain.WatchResult
}

func (p *fakeWatchProvider) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh maildomain.TokenUpdateFunc) (*maildomain.WatchResult, error) {
	p.watchCalls++
	return p.result, nil
}

func watchResult(t *testing.T, historyID string) *maildomain.WatchResult {
	t.Helper()
	h, err := maildomain.ParseHistoryID(historyID)
	if err != nil {
		t.Fatal(err)
	}
	return &maildomain.WatchResult{HistoryID: h, Expiration: time.Now().Add(7 * 24 * time.Hour)}
}

func TestStartWatchSeedsCursorOnlyOnce(t *testing.T) {
	users := &fakeUserRepo{user: &authdomain.User{ID: "u1", Email: "alice@example.com", AccessToken: "at"}}
	states := &fakeSyncStateRepo{states: make(map[string]*maildomain.SyncState)}
	provider := &fakeWatchProvider{result: watchResult(t, "500")}

	uc := NewEmailUsecase(nil, states, nil, users, provider, nil, enginesync.NewUserLocks(), "projects/p/topics/t")

	if _, err := uc.StartWatch("u1"); err != nil {
		t.Fatalf("StartWatch: %v", err)
	}
	if got := states.states["u1"].LatestHistoryID.String(); got != "500" {
		t.Errorf("seeded cursor = %s, want 500", got)
	}

	// Renewal returns a fresh history id; the cursor must not move.
	provider.result = watchResult(t, "900")
	if _, err := uc.StartWatch("u1"); err != nil {
		t.Fatalf("renewal: %v", err)
	}
	if got := states.states["u1"].LatestHistoryID.String(); got != "500" {
		t.Errorf("renewal moved cursor to %s, want it kept at 500", got)
	}
	if provider.watchCalls != 2 {
		t.Errorf("watchCalls = %d, want 2", provider.watchCalls)
	}
}

func TestMoveEmailRejectsSnoozedTarget(t *testing.T) {
	uc := NewEmailUsecase(nil, nil, nil, nil, nil, nil, enginesync.NewUserLocks(), "")

	err := uc.MoveEmail("u1", "e1", maildomain.SnoozedColumnID, "inbox")
	if err == nil || !strings.Contains(err.Error(), "snooze") {
		t.Errorf("err = %v, want snoozed-target rejection", err)
	}
}

func TestLabelChanges(t *testing.T) {
	todo := &maildomain.KanbanColumn{ColumnID: "todo", GmailLabelID: "IMPORTANT", RemoveLabelIDs: []string{"STARRED"}}
	done := &maildomain.KanbanColumn{ColumnID: "done", GmailLabelID: "STARRED"}
	inbox := &maildomain.KanbanColumn{ColumnID: "inbox"}

	add, remove := labelChanges(todo, done)
	if len(add) != 1 || add[0] != "IMPORTANT" {
		t.Errorf("add = %v, want [IMPORTANT]", add)
	}
	if len(remove) != 1 || remove[0] != "STARRED" {
		t.Errorf("remove = %v, want [STARRED]", remove)
	}

	// Labelless target keeps the message visible via INBOX.
	add, remove = labelChanges(inbox, todo)
	if len(add) != 1 || add[0] != "INBOX" {
		t.Errorf("add = %v, want [INBOX]", add)
	}
	if len(remove) != 1 || remove[0] != "IMPORTANT" {
		t.Errorf("remove = %v, want [IMPORTANT]", remove)
	}

	// A label never appears in both lists.
	add, remove = labelChanges(done, &maildomain.KanbanColumn{ColumnID: "other", GmailLabelID: "STARRED"})
	for _, r := range remove {
		for _, a := range add {
			if r == a {
				t.Errorf("label %s both added and removed", r)
			}
		}
	}
}

func TestCreateColumnEnforcesSingleDefault(t *testing.T) {
	columns := &fakeColumnRepo{columns: []*maildomain.KanbanColumn{
		{ColumnID: "inbox", Order: 0},
		{ColumnID: maildomain.SnoozedColumnID, Order: 3},
	}}
	uc := NewEmailUsecase(nil, nil, columns, nil, nil, nil, enginesync.NewUserLocks(), "")

	err := uc.CreateKanbanColumn("u1", &maildomain.KanbanColumn{ColumnID: "misc", Name: "Misc"})
	if err == nil {
		t.Error("second labelless column should be rejected")
	}

	err = uc.CreateKanbanColumn("u1", &maildomain.KanbanColumn{ColumnID: maildomain.SnoozedColumnID, Name: "Snoozed"})
	if err == nil {
		t.Error("snoozed column id should be reserved")
	}
}

func TestCreateColumnAllowsLabeledRule(t *testing.T) {
	columns := &fakeColumnRepo{columns: []*maildomain.KanbanColumn{
		{ColumnID: "inbox", Order: 0},
	}}
	created := false
	columns.KanbanColumnRepository = createRecorder{&created}

	uc := NewEmailUsecase(nil, nil, columns, nil, nil, nil, enginesync.NewUserLocks(), "")
	if err := uc.CreateKanbanColumn("u1", &maildomain.KanbanColumn{ColumnID: "urgent", Name: "Urgent", GmailLabelID: "Label_7"}); err != nil {
		t.Fatalf("CreateKanbanColumn: %v", err)
	}
	if !created {
		t.Error("labeled column was not persisted")
	}
}

type createRecorder struct{ created *bool }

func (c createRecorder) GetColumnsByUserID(userID string) ([]*maildomain.KanbanColumn, error) {
	return nil, nil
}
func (c createRecorder) GetColumnByID(userID, columnID string) (*maildomain.KanbanColumn, error) {
	return nil, nil
}
func (c createRecorder) CreateColumn(column *maildomain.KanbanColumn) error {
	*c.created = true
	return nil
}
func (c createRecorder) UpdateColumn(column *maildomain.KanbanColumn) error { return nil }
func (c createRecorder) DeleteColumn(userID, columnID string) error         { return nil }
func (c createRecorder) UpdateColumnOrders(userID string, orders map[string]int) error {
	return nil
}
