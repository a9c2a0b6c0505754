// Command sifnotify runs the SIF notification engine with a terminal
// inbox. Every component is constructed here and injected explicitly;
// nothing in the engine owns a shared singleton.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/sif-notify/internal/app"
	"github.com/nhle/sif-notify/internal/bus"
	"github.com/nhle/sif-notify/internal/credential"
	"github.com/nhle/sif-notify/internal/model"
	"github.com/nhle/sif-notify/internal/platform"
	"github.com/nhle/sif-notify/internal/queue"
	"github.com/nhle/sif-notify/internal/scheduler"
	"github.com/nhle/sif-notify/internal/service"
	"github.com/nhle/sif-notify/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sifnotify: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(filepath.Dir(model.DefaultConfigPath()), "sifnotify.db")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	blobs, err := store.NewSQLiteBlobStore(dbPath)
	if err != nil {
		return err
	}
	defer blobs.Close()

	notifStore := store.NewNotificationStore(blobs, cfg.Storage.MaxStored, log)

	eventBus := bus.New()

	q := queue.New(simulatedDeliver(log), queue.Config{
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: time.Duration(cfg.Queue.RetryDelayMS) * time.Millisecond,
	}, log)

	sched := scheduler.New(
		platform.NewMemoryTriggers(),
		time.Duration(cfg.Scheduler.MaxAheadDays)*24*time.Hour,
		log,
	)

	svc := service.New(
		notifStore,
		q,
		sched,
		&platform.MemoryBadge{},
		platform.StaticPermissions{Status: platform.PermissionAuthorized},
		eventBus,
		service.Config{
			Retention: time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour,
		},
		log,
	)
	defer svc.Close()

	// Log routed deep links; a real client would navigate.
	go func() {
		for e := range eventBus.Subscribe() {
			log.WithFields(logrus.Fields{
				"kind":      e.Kind,
				"id":        e.NotificationID,
				"deep_link": e.DeepLink,
			}).Info("engine event")
		}
	}()

	userID := os.Getenv("SIFNOTIFY_USER")
	if userID == "" {
		userID = credential.SessionUser()
	}
	if userID == "" {
		userID = "local"
	}
	svc.SignIn(context.Background(), userID)

	p := tea.NewProgram(app.New(svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// newLogger writes structured logs to a file so the terminal UI stays
// clean. The returned func closes the file.
func newLogger(cfg *model.AppConfig) (*logrus.Logger, func(), error) {
	log := logrus.New()

	path := cfg.Log.File
	if path == "" {
		path = filepath.Join(filepath.Dir(model.DefaultConfigPath()), "sifnotify.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	log.SetOutput(f)
	log.SetLevel(logrus.DebugLevel)
	return log, func() { f.Close() }, nil
}

// simulatedDeliver stands in for the push gateway: it succeeds ~90% of
// the time after a short latency, exercising the retry path.
func simulatedDeliver(log *logrus.Logger) queue.DeliverFunc {
	return func(ctx context.Context, n model.Notification) error {
		select {
		case <-time.After(time.Duration(50+rand.Intn(200)) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}

		if rand.Intn(10) == 0 {
			return fmt.Errorf("simulated gateway failure for %s", n.ID)
		}
		log.WithField("id", n.ID).Debug("delivered notification")
		return nil
	}
}
