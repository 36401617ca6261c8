package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/entities"
	"github.com/neutralbridge/concierge/domain/repositories"
)

func TestCreateAndGetLast(t *testing.T) {
	repo := NewSessionRepository(zap.NewNop())
	ctx := context.Background()

	first := entities.NewSession("widget-1")
	second := entities.NewSession("widget-1")

	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetLastByWidgetID(ctx, "widget-1")
	if err != nil {
		t.Fatalf("GetLastByWidgetID failed: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("Expected latest session %s, got %s", second.ID, got.ID)
	}
}

func TestGetLastUnknownWidget(t *testing.T) {
	repo := NewSessionRepository(zap.NewNop())

	_, err := repo.GetLastByWidgetID(context.Background(), "nobody")
	if !errors.Is(err, repositories.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestUpdateUnknownSession(t *testing.T) {
	repo := NewSessionRepository(zap.NewNop())

	session := entities.NewSession("widget-1")
	err := repo.Update(context.Background(), session)
	if !errors.Is(err, repositories.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestCreateRejectsInvalidSession(t *testing.T) {
	repo := NewSessionRepository(zap.NewNop())

	session := entities.NewSession("")
	if err := repo.Create(context.Background(), session); err == nil {
		t.Error("Expected validation error for empty widget ID")
	}
	if repo.Len() != 0 {
		t.Errorf("Expected empty repository, got %d sessions", repo.Len())
	}
}

func TestConcurrentCreate(t *testing.T) {
	repo := NewSessionRepository(zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Create(ctx, entities.NewSession("widget-1")); err != nil {
				t.Errorf("Create failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if repo.Len() != 20 {
		t.Errorf("Expected 20 sessions, got %d", repo.Len())
	}
}
