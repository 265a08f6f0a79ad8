package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "mailboard-backend/cmd/api"
	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	authusecase "mailboard-backend/internal/auth/usecase"
	maildomain "mailboard-backend/internal/mail/domain"
	mailrepo "mailboard-backend/internal/mail/repository"
	mailusecase "mailboard-backend/internal/mail/usecase"
	"mailboard-backend/internal/notification"
	"mailboard-backend/internal/realtime"
	"mailboard-backend/internal/scheduler"
	enginesync "mailboard-backend/internal/sync"
	"mailboard-backend/pkg/config"
	"mailboard-backend/pkg/database"
	"mailboard-backend/pkg/fcm"
	"mailboard-backend/pkg/gmail"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&authdomain.FCMToken{},
		&maildomain.SyncState{},
		&maildomain.Email{},
		&maildomain.KanbanColumn{},
	); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	// Repositories
	userRepo := authrepo.NewUserRepository(db)
	fcmTokenRepo := authrepo.NewFCMTokenRepository(db)
	emailRepo := mailrepo.NewEmailRepository(db)
	syncStateRepo := mailrepo.NewSyncStateRepository(db)
	columnRepo := mailrepo.NewKanbanColumnRepository(db)

	// Live connection registry
	hub := realtime.NewHub()

	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Gmail watch registrations need the full topic resource name; the
	// Pub/Sub client wants the short one.
	shortTopic := cfg.GooglePubSubTopic
	if parts := strings.Split(shortTopic, "/"); len(parts) > 1 {
		shortTopic = parts[len(parts)-1]
	}
	fullTopic := "projects/" + cfg.GoogleProjectID + "/topics/" + shortTopic

	locks := enginesync.NewUserLocks()
	orchestrator := enginesync.NewOrchestrator(syncStateRepo, emailRepo, columnRepo, userRepo, gmailService, hub, locks)

	// Optional FCM leg
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] FCM disabled: %v", err)
		} else {
			orchestrator.SetPushSender(notification.NewFCMPushSender(fcmClient, fcmTokenRepo))
		}
	}

	// Usecases
	authUc := authusecase.NewAuthUsecase(userRepo, cfg)
	emailUc := mailusecase.NewEmailUsecase(emailRepo, syncStateRepo, columnRepo, userRepo, gmailService, hub, locks, fullTopic)

	// Every Google sign-in (re)arms the mailbox watch. Best effort: a
	// failure here is retried by the renewer or the next sign-in.
	authUc.SetSignInHook(func(userID string) {
		if _, err := emailUc.StartWatch(userID); err != nil {
			log.Printf("[Watch] Post-sign-in watch setup failed for user %s: %v", userID, err)
		}
	})

	// Notification strategy. The push variant additionally mounts a webhook
	// route, so the server keeps a concrete handle to it.
	var strategy notification.Strategy
	var pushStrategy *notification.PushStrategy
	switch cfg.NotificationMode {
	case "push":
		pushStrategy = notification.NewPushStrategy(orchestrator)
		strategy = pushStrategy
	default:
		if cfg.GoogleProjectID == "" {
			log.Println("[WARN] GOOGLE_PROJECT_ID not configured, change notifications disabled")
			break
		}
		pull, err := notification.NewPullStrategy(ctx, cfg.GoogleProjectID, shortTopic, cfg.GoogleCredentials, orchestrator)
		if err != nil {
			log.Fatal("Failed to initialize notification consumer: ", err)
		}
		strategy = pull
	}
	if strategy != nil {
		go func() {
			if err := strategy.Start(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[ERROR] Notification consumer stopped: %v", err)
			}
		}()
	}

	// Background jobs
	sweeper := scheduler.NewSnoozeSweeper(emailRepo, columnRepo, hub, locks, cfg.SnoozeSweepInterval)
	sweeper.Start()

	renewer := scheduler.NewWatchRenewer(syncStateRepo, emailUc, cfg.WatchRenewInterval, cfg.WatchRenewWindow)
	renewer.Start()

	server := api.NewServer(":"+cfg.Port, authUc, emailUc, fcmTokenRepo, hub, pushStrategy)

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.Start(); err != nil && ctx.Err() == nil {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	sweeper.Stop()
	renewer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] Server shutdown: %v", err)
	}
}
