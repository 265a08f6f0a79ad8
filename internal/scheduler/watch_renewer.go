package scheduler

import (
	"log"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"
	mailrepo "mailboard-backend/internal/mail/repository"
)

// WatchStarter re-registers a provider watch for a user. The usecase keeps
// the stored cursor untouched for users that already have one.
type WatchStarter interface {
	StartWatch(userID string) (*maildomain.WatchResult, error)
}

// WatchRenewer re-registers provider watches before they expire. Gmail
// watches lapse after about seven days; without renewal, change
// notifications silently stop.
type WatchRenewer struct {
	syncStateRepo mailrepo.SyncStateRepository
	watcher       WatchStarter
	interval      time.Duration
	window        time.Duration
	stopChan      chan struct{}
}

// NewWatchRenewer creates the renewer. Watches expiring within window get
// renewed each tick.
func NewWatchRenewer(syncStateRepo mailrepo.SyncStateRepository, watcher WatchStarter, interval, window time.Duration) *WatchRenewer {
	return &WatchRenewer{
		syncStateRepo: syncStateRepo,
		watcher:       watcher,
		interval:      interval,
		window:        window,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the renewal loop.
func (w *WatchRenewer) Start() {
	log.Printf("[WatchRenewer] Starting (interval: %s, window: %s)", w.interval, w.window)

	go func() {
		w.RunOnce()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.RunOnce()
			case <-w.stopChan:
				log.Println("[WatchRenewer] Stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the renewer.
func (w *WatchRenewer) Stop() {
	close(w.stopChan)
}

// RunOnce renews every watch expiring within the window. A failed renewal is
// logged and retried next tick while the old watch is still alive.
func (w *WatchRenewer) RunOnce() {
	expiring, err := w.syncStateRepo.ListExpiringWatches(time.Now().Add(w.window))
	if err != nil {
		log.Printf("[WatchRenewer] Error listing expiring watches: %v", err)
		return
	}

	for _, state := range expiring {
		if _, err := w.watcher.StartWatch(state.UserID); err != nil {
			log.Printf("[WatchRenewer] Failed to renew watch for user %s: %v", state.UserID, err)
			continue
		}
		log.Printf("[WatchRenewer] Renewed watch for %s", state.EmailAddress)
	}
}
