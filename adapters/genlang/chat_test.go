package genlang

import (
	"testing"

	"github.com/neutralbridge/concierge/domain/repositories"
)

func TestHistoryRoleRoundTrip(t *testing.T) {
	messages := []repositories.ChatMessage{
		{Role: repositories.UserRole, Content: "Do you stock signed copies?"},
		{Role: repositories.AssistantRole, Content: "A few, while they last."},
		{Role: repositories.UserRole, Content: "Reserve one for me."},
	}

	contents := toGeminiHistory(messages)
	if len(contents) != len(messages) {
		t.Fatalf("Expected %d contents, got %d", len(messages), len(contents))
	}
	if contents[0].Role != "user" {
		t.Errorf("Expected user role, got %q", contents[0].Role)
	}
	if contents[1].Role != "model" {
		t.Errorf("Expected model role, got %q", contents[1].Role)
	}

	roundTrip := fromGeminiHistory(contents)
	if len(roundTrip) != len(messages) {
		t.Fatalf("Expected %d messages back, got %d", len(messages), len(roundTrip))
	}
	for i, msg := range roundTrip {
		if msg.Role != messages[i].Role {
			t.Errorf("Message %d: expected role %q, got %q", i, messages[i].Role, msg.Role)
		}
		if msg.Content != messages[i].Content {
			t.Errorf("Message %d: expected content %q, got %q", i, messages[i].Content, msg.Content)
		}
	}
}
