package trigger

import (
	"testing"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/entities"
)

func alertTrigger(title, message string) *entities.UITrigger {
	return &entities.UITrigger{
		Kind:  entities.TriggerKindAlert,
		Alert: &entities.AlertData{Title: title, Message: message},
	}
}

func orderTrigger(item string) *entities.UITrigger {
	return &entities.UITrigger{
		Kind:  entities.TriggerKindOrder,
		Order: &entities.OrderData{Item: item, Tier: "institutional"},
	}
}

func TestApplyAlert(t *testing.T) {
	i := NewInterpreter(zap.NewNop())

	i.Apply(alertTrigger("X", "Y"))

	state := i.Snapshot()
	if state.Alert == nil {
		t.Fatal("Expected alert to be shown")
	}
	if state.Alert.Title != "X" || state.Alert.Message != "Y" {
		t.Errorf("Expected alert X/Y, got %s/%s", state.Alert.Title, state.Alert.Message)
	}
	if state.OrderPhase != OrderPhaseIdle {
		t.Errorf("Alert must not touch the order panel, got phase %s", state.OrderPhase)
	}
}

func TestAlertReplacesPriorAlert(t *testing.T) {
	i := NewInterpreter(zap.NewNop())

	i.Apply(alertTrigger("first", "one"))
	i.Apply(alertTrigger("second", "two"))

	state := i.Snapshot()
	if state.Alert == nil || state.Alert.Title != "second" {
		t.Errorf("Expected last alert to win, got %+v", state.Alert)
	}
}

func TestDismissAlert(t *testing.T) {
	i := NewInterpreter(zap.NewNop())

	i.Apply(alertTrigger("X", "Y"))
	i.DismissAlert()

	if i.Snapshot().Alert != nil {
		t.Error("Expected alert to be cleared after dismiss")
	}
}

func TestOrderFlow(t *testing.T) {
	i := NewInterpreter(zap.NewNop())

	i.Apply(orderTrigger("The Neutral Bridge"))

	state := i.Snapshot()
	if state.OrderPhase != OrderPhasePending {
		t.Fatalf("Expected pending order, got %s", state.OrderPhase)
	}
	if state.Order == nil || state.Order.Item != "The Neutral Bridge" {
		t.Errorf("Order panel not pre-populated: %+v", state.Order)
	}

	if !i.ConfirmOrder() {
		t.Fatal("ConfirmOrder should succeed for a pending order")
	}
	if i.Snapshot().OrderPhase != OrderPhaseComplete {
		t.Errorf("Expected complete phase, got %s", i.Snapshot().OrderPhase)
	}

	// Confirming twice is a no-op.
	if i.ConfirmOrder() {
		t.Error("ConfirmOrder should fail when no order is pending")
	}
}

func TestCancelOrder(t *testing.T) {
	i := NewInterpreter(zap.NewNop())

	i.Apply(orderTrigger("The Neutral Bridge"))
	i.CancelOrder()

	state := i.Snapshot()
	if state.OrderPhase != OrderPhaseIdle || state.Order != nil {
		t.Errorf("Expected cleared order panel, got %+v", state)
	}
}

func TestApplyInvalidTriggerDropped(t *testing.T) {
	i := NewInterpreter(zap.NewNop())

	i.Apply(&entities.UITrigger{Kind: entities.TriggerKindAlert}) // missing payload
	i.Apply(&entities.UITrigger{Kind: "jackpot"})
	i.Apply(nil)

	state := i.Snapshot()
	if state.Alert != nil || state.OrderPhase != OrderPhaseIdle {
		t.Errorf("Invalid triggers must not change state, got %+v", state)
	}
}

func TestOnChangeNotified(t *testing.T) {
	i := NewInterpreter(zap.NewNop())

	var calls []State
	i.OnChange(func(s State) { calls = append(calls, s) })

	i.Apply(alertTrigger("X", "Y"))
	i.DismissAlert()

	if len(calls) != 2 {
		t.Fatalf("Expected 2 change notifications, got %d", len(calls))
	}
	if calls[0].Alert == nil || calls[1].Alert != nil {
		t.Error("Notifications did not reflect transitions in order")
	}
}

func TestReset(t *testing.T) {
	i := NewInterpreter(zap.NewNop())

	i.Apply(alertTrigger("X", "Y"))
	i.Apply(orderTrigger("book"))
	i.Reset()

	state := i.Snapshot()
	if state.Alert != nil || state.Order != nil || state.OrderPhase != OrderPhaseIdle {
		t.Errorf("Expected pristine state after reset, got %+v", state)
	}
}
