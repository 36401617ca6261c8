package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// SessionStatus represents the status of a conversation session
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusExpired    SessionStatus = "expired"
	SessionStatusTerminated SessionStatus = "terminated"
)

// SessionMessage represents a single exchange within a conversation session
type SessionMessage struct {
	Timestamp  time.Time   `json:"timestamp"`
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	DurationMs int64       `json:"duration_ms"`
}

// Session represents a conversation between one assistant widget and the
// system. It carries the transcript that is resent to the language model as
// context on every turn; nothing here outlives the process.
type Session struct {
	ID            string           `json:"id"`
	WidgetID      string           `json:"widget_id"`
	CreatedAt     time.Time        `json:"created_at"`
	LastActiveAt  time.Time        `json:"last_active_at"`
	LastMessageAt *time.Time       `json:"last_message_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
	Status        SessionStatus    `json:"status"`
	Messages      []SessionMessage `json:"messages"`
}

// NewSession creates a new conversation session for a widget
func NewSession(widgetID string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		WidgetID:     widgetID,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(24 * time.Hour),
		Status:       SessionStatusActive,
		Messages:     make([]SessionMessage, 0),
	}
}

// AddMessage appends a message to the transcript
func (s *Session) AddMessage(role MessageRole, content string, durationMs int64) {
	now := time.Now()
	s.Messages = append(s.Messages, SessionMessage{
		Timestamp:  now,
		Role:       role,
		Content:    content,
		DurationMs: durationMs,
	})
	s.LastMessageAt = &now
	s.UpdateLastActive()
}

// UpdateLastActive updates the last active timestamp and extends expiration
func (s *Session) UpdateLastActive() {
	s.LastActiveAt = time.Now()
	s.ExpiresAt = s.LastActiveAt.Add(24 * time.Hour)
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt) || s.Status != SessionStatusActive
}

// CanContinue reports whether a new turn may join this session. A session
// goes stale 30 minutes after its last message.
func (s *Session) CanContinue() bool {
	if s.IsExpired() {
		return false
	}
	if s.LastMessageAt == nil {
		return true
	}
	return time.Since(*s.LastMessageAt) <= 30*time.Minute
}

// Terminate marks the session as terminated
func (s *Session) Terminate() {
	s.Status = SessionStatusTerminated
	s.UpdateLastActive()
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.WidgetID == "" {
		return errors.New("widget_id is required")
	}
	switch s.Status {
	case SessionStatusActive, SessionStatusExpired, SessionStatusTerminated:
		return nil
	default:
		return errors.New("invalid session status")
	}
}
