package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	authrepo "mailboard-backend/internal/auth/repository"
	maildomain "mailboard-backend/internal/mail/domain"
	"mailboard-backend/internal/mail/mapper"
	"mailboard-backend/internal/mail/repository"
	"mailboard-backend/internal/realtime"
	enginesync "mailboard-backend/internal/sync"

	"golang.org/x/oauth2"
)

// Deliverer pushes board events to the user's live connections.
type Deliverer interface {
	Deliver(userID string, event realtime.Event)
}

// emailUsecase implements EmailUsecase
type emailUsecase struct {
	emailRepo     repository.EmailRepository
	syncStateRepo repository.SyncStateRepository
	columnRepo    repository.KanbanColumnRepository
	userRepo      authrepo.UserRepository
	provider      maildomain.MailProvider
	deliverer     Deliverer
	locks         *enginesync.UserLocks
	topicName     string
}

// NewEmailUsecase creates a new instance of emailUsecase. The lock set is
// shared with the sync orchestrator and the snooze sweeper so every
// board-mutating path for one user is serialized.
func NewEmailUsecase(
	emailRepo repository.EmailRepository,
	syncStateRepo repository.SyncStateRepository,
	columnRepo repository.KanbanColumnRepository,
	userRepo authrepo.UserRepository,
	provider maildomain.MailProvider,
	deliverer Deliverer,
	locks *enginesync.UserLocks,
	topicName string,
) EmailUsecase {
	return &emailUsecase{
		emailRepo:     emailRepo,
		syncStateRepo: syncStateRepo,
		columnRepo:    columnRepo,
		userRepo:      userRepo,
		provider:      provider,
		deliverer:     deliverer,
		locks:         locks,
		topicName:     topicName,
	}
}

func (u *emailUsecase) getUserTokens(userID string) (string, string, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", fmt.Errorf("user not found")
	}
	return user.AccessToken, user.RefreshToken, nil
}

func (u *emailUsecase) makeTokenUpdateCallback(userID string) maildomain.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		user, err := u.userRepo.FindByID(userID)
		if err != nil || user == nil {
			return err
		}
		user.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			user.RefreshToken = token.RefreshToken
		}
		user.TokenExpiry = token.Expiry
		return u.userRepo.Update(user)
	}
}

// StartWatch registers the provider watch and seeds the history cursor. The
// cursor is only stored when the user has none: renewing a watch must never
// move an existing cursor.
func (u *emailUsecase) StartWatch(userID string) (*maildomain.WatchResult, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}
	if user.AccessToken == "" {
		return nil, fmt.Errorf("user %s has no provider credentials", userID)
	}

	ctx := context.Background()
	result, err := u.provider.Watch(ctx, user.AccessToken, user.RefreshToken, u.topicName, u.makeTokenUpdateCallback(userID))
	if err != nil {
		return nil, fmt.Errorf("register watch: %w", err)
	}

	if err := u.syncStateRepo.Seed(userID, user.Email, result.HistoryID, result.Expiration); err != nil {
		return nil, fmt.Errorf("seed sync state: %w", err)
	}

	log.Printf("[Watch] Registered for %s, expires %s", user.Email, result.Expiration.Format(time.RFC3339))
	return result, nil
}

func (u *emailUsecase) StopWatch(userID string) error {
	accessToken, refreshToken, err := u.getUserTokens(userID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := u.provider.StopWatch(ctx, accessToken, refreshToken, u.makeTokenUpdateCallback(userID)); err != nil {
		return fmt.Errorf("stop watch: %w", err)
	}
	return u.syncStateRepo.ClearWatch(userID)
}

func (u *emailUsecase) GetEmailsByStatus(userID, status string, limit, offset int) ([]*maildomain.Email, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.emailRepo.ListByStatus(userID, status, limit, offset)
}

func (u *emailUsecase) GetEmailByID(userID, emailID string) (*maildomain.Email, error) {
	email, err := u.emailRepo.GetByID(userID, emailID)
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, fmt.Errorf("email not found")
	}
	return email, nil
}

func (u *emailUsecase) GetAllMailboxes(userID string) ([]*maildomain.Mailbox, error) {
	accessToken, refreshToken, err := u.getUserTokens(userID)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	return u.provider.GetMailboxes(ctx, accessToken, refreshToken, u.makeTokenUpdateCallback(userID))
}

// MoveEmail applies a drag between columns. Label changes go to the provider
// first; only after the provider accepted them does the local status change,
// so a failed move leaves the board untouched.
func (u *emailUsecase) MoveEmail(userID, emailID, targetColumnID, sourceColumnID string) error {
	if targetColumnID == maildomain.SnoozedColumnID {
		return fmt.Errorf("use snooze to move an email into the snoozed column")
	}

	lock := u.locks.Get(userID)
	lock.Lock()
	defer lock.Unlock()

	email, err := u.emailRepo.GetByID(userID, emailID)
	if err != nil {
		return err
	}
	if email == nil {
		return fmt.Errorf("email not found")
	}
	if email.Status == targetColumnID {
		return nil
	}

	targetColumn, err := u.columnRepo.GetColumnByID(userID, targetColumnID)
	if err != nil {
		return err
	}
	if targetColumn == nil {
		return fmt.Errorf("column not found: %s", targetColumnID)
	}

	if sourceColumnID == "" {
		sourceColumnID = email.Status
	}
	var sourceColumn *maildomain.KanbanColumn
	if sourceColumnID != "" && sourceColumnID != targetColumnID {
		sourceColumn, _ = u.columnRepo.GetColumnByID(userID, sourceColumnID)
	}

	addLabelIDs, removeLabelIDs := labelChanges(targetColumn, sourceColumn)
	if len(addLabelIDs) > 0 || len(removeLabelIDs) > 0 {
		accessToken, refreshToken, err := u.getUserTokens(userID)
		if err != nil {
			return err
		}
		ctx := context.Background()
		err = u.provider.ModifyMessageLabels(ctx, accessToken, refreshToken,
			email.ProviderMessageID, addLabelIDs, removeLabelIDs, u.makeTokenUpdateCallback(userID))
		if err != nil {
			return fmt.Errorf("modify message labels: %w", err)
		}
	}

	if err := u.emailRepo.UpdateStatus(userID, emailID, targetColumnID); err != nil {
		return err
	}

	if u.deliverer != nil {
		u.deliverer.Deliver(userID, realtime.Event{
			Type: realtime.EventEmailMoved,
			Payload: map[string]string{
				"email_id": emailID,
				"column":   targetColumnID,
			},
		})
	}
	return nil
}

// labelChanges computes provider label edits for a move. The target's label
// is added (INBOX when the target has none, to keep the message visible) and
// the target's configured removals plus the source's label are removed.
// Labels being added are never simultaneously removed.
func labelChanges(target, source *maildomain.KanbanColumn) ([]string, []string) {
	addLabelIDs := []string{}
	removeLabelIDs := []string{}

	if target.GmailLabelID != "" {
		addLabelIDs = append(addLabelIDs, target.GmailLabelID)
	} else {
		addLabelIDs = append(addLabelIDs, "INBOX")
	}
	removeLabelIDs = append(removeLabelIDs, []string(target.RemoveLabelIDs)...)

	if source != nil && source.GmailLabelID != "" && source.GmailLabelID != target.GmailLabelID {
		removeLabelIDs = append(removeLabelIDs, source.GmailLabelID)
	}

	addSet := make(map[string]bool, len(addLabelIDs))
	for _, id := range addLabelIDs {
		addSet[id] = true
	}
	filtered := removeLabelIDs[:0]
	for _, id := range removeLabelIDs {
		if !addSet[id] {
			filtered = append(filtered, id)
		}
	}
	return addLabelIDs, filtered
}

func (u *emailUsecase) SnoozeEmail(userID, emailID string, until time.Time) error {
	if !until.After(time.Now()) {
		return fmt.Errorf("snooze deadline must be in the future")
	}

	lock := u.locks.Get(userID)
	lock.Lock()
	defer lock.Unlock()

	email, err := u.emailRepo.GetByID(userID, emailID)
	if err != nil {
		return err
	}
	if email == nil {
		return fmt.Errorf("email not found")
	}

	return u.emailRepo.Snooze(userID, emailID, until)
}

// UnsnoozeEmail wakes the email by hand. It lands in the default column, the
// same target the sweeper uses.
func (u *emailUsecase) UnsnoozeEmail(userID, emailID string) (string, error) {
	lock := u.locks.Get(userID)
	lock.Lock()
	defer lock.Unlock()

	email, err := u.emailRepo.GetByID(userID, emailID)
	if err != nil {
		return "", err
	}
	if email == nil {
		return "", fmt.Errorf("email not found")
	}
	if email.Status != maildomain.SnoozedColumnID {
		return email.Status, nil
	}

	columns, err := u.columnRepo.GetColumnsByUserID(userID)
	if err != nil {
		return "", err
	}
	target := mapper.DefaultColumn(columns)

	if err := u.emailRepo.UpdateStatus(userID, emailID, target); err != nil {
		return "", err
	}
	return target, nil
}

func (u *emailUsecase) MarkEmailRead(userID, emailID string, read bool) error {
	email, err := u.emailRepo.GetByID(userID, emailID)
	if err != nil {
		return err
	}
	if email == nil {
		return fmt.Errorf("email not found")
	}
	return u.emailRepo.MarkRead(userID, emailID, read)
}

// defaultColumns are backfilled for every user on first board read. Exactly
// one of them (inbox) is labelless and acts as the default mapping target;
// snoozed is reserved and never participates in mapping.
func defaultColumns(userID string) []*maildomain.KanbanColumn {
	return []*maildomain.KanbanColumn{
		{ColumnID: "inbox", Name: "Inbox", Order: 0, UserID: userID},
		{ColumnID: "todo", Name: "To Do", Order: 1, GmailLabelID: "IMPORTANT", RemoveLabelIDs: []string{"IMPORTANT"}, UserID: userID},
		{ColumnID: "done", Name: "Done", Order: 2, GmailLabelID: "STARRED", RemoveLabelIDs: []string{"STARRED"}, UserID: userID},
		{ColumnID: maildomain.SnoozedColumnID, Name: "Snoozed", Order: 3, UserID: userID},
	}
}

func (u *emailUsecase) GetKanbanColumns(userID string) ([]*maildomain.KanbanColumn, error) {
	columns, err := u.columnRepo.GetColumnsByUserID(userID)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(columns))
	for _, col := range columns {
		existing[col.ColumnID] = true
	}

	for _, def := range defaultColumns(userID) {
		if existing[def.ColumnID] {
			continue
		}
		if err := u.columnRepo.CreateColumn(def); err != nil {
			log.Printf("[Kanban] Failed to create default column %s: %v", def.ColumnID, err)
			continue
		}
		columns = append(columns, def)
	}

	return columns, nil
}

// validateColumnRule enforces the rule-set shape: snoozed is reserved, and
// at most one non-snoozed column may be labelless.
func (u *emailUsecase) validateColumnRule(userID string, column *maildomain.KanbanColumn) error {
	if column.ColumnID == maildomain.SnoozedColumnID {
		return fmt.Errorf("the snoozed column is reserved")
	}
	if column.GmailLabelID != "" {
		return nil
	}

	columns, err := u.columnRepo.GetColumnsByUserID(userID)
	if err != nil {
		return err
	}
	for _, col := range columns {
		if col.ColumnID == maildomain.SnoozedColumnID || col.ColumnID == column.ColumnID {
			continue
		}
		if col.GmailLabelID == "" {
			return fmt.Errorf("column %s is already the default; only one column may have no label", col.ColumnID)
		}
	}
	return nil
}

func (u *emailUsecase) CreateKanbanColumn(userID string, column *maildomain.KanbanColumn) error {
	column.UserID = userID
	if err := u.validateColumnRule(userID, column); err != nil {
		return err
	}
	return u.columnRepo.CreateColumn(column)
}

func (u *emailUsecase) UpdateKanbanColumn(userID string, column *maildomain.KanbanColumn) error {
	existing, err := u.columnRepo.GetColumnByID(userID, column.ColumnID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("column not found: %s", column.ColumnID)
	}
	if err := u.validateColumnRule(userID, column); err != nil {
		return err
	}

	existing.Name = column.Name
	existing.GmailLabelID = column.GmailLabelID
	existing.RemoveLabelIDs = column.RemoveLabelIDs
	if column.Order > 0 {
		existing.Order = column.Order
	}
	return u.columnRepo.UpdateColumn(existing)
}

func (u *emailUsecase) DeleteKanbanColumn(userID, columnID string) error {
	if columnID == maildomain.SnoozedColumnID {
		return fmt.Errorf("the snoozed column cannot be deleted")
	}
	return u.columnRepo.DeleteColumn(userID, columnID)
}

func (u *emailUsecase) UpdateKanbanColumnOrders(userID string, orders map[string]int) error {
	return u.columnRepo.UpdateColumnOrders(userID, orders)
}
