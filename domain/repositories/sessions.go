package repositories

import (
	"context"
	"errors"

	"github.com/neutralbridge/concierge/domain/entities"
)

// ErrSessionNotFound is returned when no session exists for a widget.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores conversation sessions. Durability is explicitly
// not promised; the shipped implementation is in-memory.
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetLastByWidgetID(ctx context.Context, widgetID string) (*entities.Session, error)
	Update(ctx context.Context, session *entities.Session) error
}
