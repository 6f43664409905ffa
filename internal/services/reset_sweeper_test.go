package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/store"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestResetSweeperClearsOnlyElapsedGrants(t *testing.T) {
	memory := store.NewMemory()
	users := memory.Users()
	ctx := context.Background()
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	expired := models.User{Username: "old", Email: "old@x.com"}
	expired.SetPasswordReset("digest-old", now.Add(-time.Minute))
	boundary := models.User{Username: "edge", Email: "edge@x.com"}
	boundary.SetPasswordReset("digest-edge", now)
	pending := models.User{Username: "new", Email: "new@x.com"}
	pending.SetPasswordReset("digest-new", now.Add(time.Minute))
	for _, user := range []*models.User{&expired, &boundary, &pending} {
		if err := users.Create(ctx, user); err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
	}

	var reported int64
	sweeper := NewResetSweeper(users, quietLogger(), "", WithClearedReporter(func(cleared int64) {
		reported += cleared
	}))
	sweeper.now = func() time.Time { return now }

	cleared, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() unexpected error: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("expected two cleared grants, got %d", cleared)
	}
	if reported != 2 {
		t.Fatalf("expected reporter to receive 2, got %d", reported)
	}

	stored, err := users.FindByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("FindByID() unexpected error: %v", err)
	}
	if stored.PasswordReset == nil {
		t.Fatal("expected live grant to survive the sweep")
	}
}

type failingResetRepo struct{}

func (failingResetRepo) ClearExpiredResets(context.Context, time.Time) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestResetSweeperWrapsStorageErrors(t *testing.T) {
	sweeper := NewResetSweeper(failingResetRepo{}, quietLogger(), "")

	if _, err := sweeper.Sweep(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestResetSweeperRunStopsWithContext(t *testing.T) {
	sweeper := NewResetSweeper(failingResetRepo{}, quietLogger(), "@every 1h")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- sweeper.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected Run to return after cancellation")
	}
}

func TestResetSweeperRejectsBadSchedule(t *testing.T) {
	sweeper := NewResetSweeper(failingResetRepo{}, quietLogger(), "not a schedule")

	if err := sweeper.Run(context.Background()); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
