// Package scheduler contains the periodic background jobs: waking up
// expired snoozes and renewing provider watches before they lapse.
package scheduler

import (
	"log"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"
	"mailboard-backend/internal/mail/mapper"
	mailrepo "mailboard-backend/internal/mail/repository"
	"mailboard-backend/internal/realtime"
	enginesync "mailboard-backend/internal/sync"
)

// SnoozeSweeper periodically wakes snoozed emails whose deadline passed.
// The wake itself is a compare-and-set in the store, so an email the user
// moved between sweep ticks is left alone and the woken event fires exactly
// once per expiry even if two sweepers overlap.
type SnoozeSweeper struct {
	emailRepo  mailrepo.EmailRepository
	columnRepo mailrepo.KanbanColumnRepository
	deliverer  enginesync.Deliverer
	locks      *enginesync.UserLocks
	interval   time.Duration
	now        func() time.Time
	stopChan   chan struct{}
}

// NewSnoozeSweeper creates the sweeper. It shares the lock set with the sync
// orchestrator so a sweep never interleaves with a sync pass for the same
// user.
func NewSnoozeSweeper(
	emailRepo mailrepo.EmailRepository,
	columnRepo mailrepo.KanbanColumnRepository,
	deliverer enginesync.Deliverer,
	locks *enginesync.UserLocks,
	interval time.Duration,
) *SnoozeSweeper {
	return &SnoozeSweeper{
		emailRepo:  emailRepo,
		columnRepo: columnRepo,
		deliverer:  deliverer,
		locks:      locks,
		interval:   interval,
		now:        time.Now,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *SnoozeSweeper) Start() {
	log.Printf("[SnoozeSweeper] Starting (interval: %s)", s.interval)

	go func() {
		s.RunOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce()
			case <-s.stopChan:
				log.Println("[SnoozeSweeper] Stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *SnoozeSweeper) Stop() {
	close(s.stopChan)
}

// RunOnce performs a single sweep. One email failing does not abort the
// sweep; it stays snoozed and is retried next tick.
func (s *SnoozeSweeper) RunOnce() {
	now := s.now()

	expired, err := s.emailRepo.ListExpiredSnoozes(now)
	if err != nil {
		log.Printf("[SnoozeSweeper] Error listing expired snoozes: %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	for _, email := range expired {
		s.wake(email, now)
	}
}

func (s *SnoozeSweeper) wake(email *maildomain.Email, now time.Time) {
	lock := s.locks.Get(email.UserID)
	lock.Lock()
	defer lock.Unlock()

	columns, err := s.columnRepo.GetColumnsByUserID(email.UserID)
	if err != nil {
		log.Printf("[SnoozeSweeper] Error loading columns for user %s: %v", email.UserID, err)
		return
	}
	target := mapper.DefaultColumn(columns)

	woken, err := s.emailRepo.ExpireSnooze(email.ID, target, now)
	if err != nil {
		log.Printf("[SnoozeSweeper] Error waking email %s: %v", email.ID, err)
		return
	}
	if !woken {
		// The user moved or unsnoozed it since we listed it.
		return
	}

	log.Printf("[SnoozeSweeper] Email %s woken up, moved to %s", email.ID, target)

	if s.deliverer != nil {
		s.deliverer.Deliver(email.UserID, realtime.Event{
			Type: realtime.EventSnoozeExpired,
			Payload: map[string]string{
				"email_id": email.ID,
				"column":   target,
			},
		})
	}
}
