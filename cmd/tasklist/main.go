package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasklist/internal/auth"
	"tasklist/internal/config"
	"tasklist/internal/notify"
	"tasklist/internal/repository"
	"tasklist/internal/server"
	"tasklist/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	directory := service.NewDirectory(taskRepo, userRepo)
	reminderSvc := service.NewReminderService(taskRepo)
	accounts := auth.NewService(userRepo, cfg.JWTSecret, cfg.TokenTTL)

	srv := server.New(directory, accounts)

	if cfg.DigestEnabled() {
		notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.DigestChatID)
		if err != nil {
			log.Fatalf("notifier: %v", err)
		}

		job := func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sendDigests(jobCtx, userRepo, reminderSvc, notifier)
		}

		scheduler := service.NewSchedulerService(time.Local)
		if cfg.DigestInterval > 0 {
			_, err = scheduler.ScheduleInterval(cfg.DigestInterval, job)
		} else {
			_, err = scheduler.ScheduleDaily(cfg.DigestTime, job)
		}
		if err != nil {
			log.Fatalf("schedule digest: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[warn] shutdown: %v", err)
		}
	}()

	log.Printf("[info] task list service listening on %s", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}

func sendDigests(ctx context.Context, userRepo *repository.UserRepository, reminderSvc *service.ReminderService, notifier *notify.Telegram) {
	users, err := userRepo.ListAll(ctx)
	if err != nil {
		log.Printf("[warn] digest: list users: %v", err)
		return
	}

	now := time.Now()
	for _, user := range users {
		digest, err := reminderSvc.DeadlineDigest(ctx, user, now)
		if err != nil {
			log.Printf("[warn] digest for %s: %v", user.Username, err)
			continue
		}
		if digest == "" {
			continue
		}
		if err := notifier.Send(digest); err != nil {
			log.Printf("[warn] digest delivery for %s: %v", user.Username, err)
		}
	}
}
