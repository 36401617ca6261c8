package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/entities"
	"github.com/neutralbridge/concierge/domain/repositories"
)

// SessionRepository keeps conversation sessions in process memory,
// indexed by widget. Transcripts last only as long as the server; a
// restart starts every widget over, which is the intended contract.
type SessionRepository struct {
	mu       sync.RWMutex
	byID     map[string]*entities.Session
	byWidget map[string][]*entities.Session
	logger   *zap.Logger
}

// Ensure SessionRepository implements the repository interface
var _ repositories.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates an empty in-memory session store
func NewSessionRepository(logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		byID:     make(map[string]*entities.Session),
		byWidget: make(map[string][]*entities.Session),
		logger:   logger,
	}
}

// Create stores a new session
func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[session.ID] = session
	r.byWidget[session.WidgetID] = append(r.byWidget[session.WidgetID], session)

	r.logger.Debug("Created session",
		zap.String("sessionID", session.ID),
		zap.String("widgetID", session.WidgetID))
	return nil
}

// GetLastByWidgetID returns the most recently created session for a widget
func (r *SessionRepository) GetLastByWidgetID(ctx context.Context, widgetID string) (*entities.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.byWidget[widgetID]
	if len(sessions) == 0 {
		return nil, repositories.ErrSessionNotFound
	}
	return sessions[len(sessions)-1], nil
}

// Update replaces a stored session
func (r *SessionRepository) Update(ctx context.Context, session *entities.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[session.ID]; !ok {
		return repositories.ErrSessionNotFound
	}
	r.byID[session.ID] = session
	return nil
}

// Len reports how many sessions are held, for diagnostics
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
