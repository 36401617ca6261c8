package usecase

import (
	"context"
	"sync"

	"github.com/neutralbridge/concierge/domain/entities"
	"github.com/neutralbridge/concierge/domain/repositories"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	byWidget map[string][]*entities.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byWidget: make(map[string][]*entities.Session)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *entities.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byWidget[session.WidgetID] = append(f.byWidget[session.WidgetID], session)
	return nil
}

func (f *fakeSessionRepo) GetLastByWidgetID(ctx context.Context, widgetID string) (*entities.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sessions := f.byWidget[widgetID]
	if len(sessions) == 0 {
		return nil, repositories.ErrSessionNotFound
	}
	return sessions[len(sessions)-1], nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, session *entities.Session) error {
	return nil
}
