// Package trigger maps UI trigger directives from model responses onto
// local interface state.
package trigger

import (
	"sync"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/entities"
)

// OrderPhase is the confirmation flow for an order trigger.
type OrderPhase string

const (
	OrderPhaseIdle     OrderPhase = "idle"
	OrderPhasePending  OrderPhase = "pending"
	OrderPhaseComplete OrderPhase = "complete"
)

// State is a snapshot of the interface state the interpreter drives.
type State struct {
	// Alert is the single alert slot; a new alert replaces any prior one.
	Alert *entities.AlertData
	// OrderPhase and Order describe the purchase-confirmation panel.
	OrderPhase OrderPhase
	Order      *entities.OrderData
}

// Interpreter applies UI triggers from model responses. It trusts the
// remote model's output verbatim: the simulated order flow flips a local
// flag and nothing more, which is intentional demo scaffolding rather than
// a checkout path.
type Interpreter struct {
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	onChange func(State)
}

// NewInterpreter creates an interpreter with an empty state.
func NewInterpreter(logger *zap.Logger) *Interpreter {
	return &Interpreter{
		logger: logger,
		state:  State{OrderPhase: OrderPhaseIdle},
	}
}

// OnChange registers a callback invoked with a state snapshot after every
// transition. Must be set before the interpreter is shared.
func (i *Interpreter) OnChange(fn func(State)) {
	i.mu.Lock()
	i.onChange = fn
	i.mu.Unlock()
}

// Apply consumes a trigger exactly once, transitioning local state.
// Invalid triggers are logged and dropped.
func (i *Interpreter) Apply(t *entities.UITrigger) {
	if t == nil {
		return
	}
	if err := t.Validate(); err != nil {
		i.logger.Warn("Dropping invalid UI trigger", zap.Error(err))
		return
	}

	i.mu.Lock()
	switch t.Kind {
	case entities.TriggerKindAlert:
		i.state.Alert = t.Alert
		i.logger.Info("Alert shown",
			zap.String("title", t.Alert.Title))
	case entities.TriggerKindOrder:
		i.state.OrderPhase = OrderPhasePending
		i.state.Order = t.Order
		i.logger.Info("Order confirmation opened",
			zap.String("item", t.Order.Item))
	}
	i.notifyLocked()
	i.mu.Unlock()
}

// DismissAlert clears the alert slot.
func (i *Interpreter) DismissAlert() {
	i.mu.Lock()
	i.state.Alert = nil
	i.notifyLocked()
	i.mu.Unlock()
}

// ConfirmOrder completes a pending order. No payment or persistence
// happens here; real checkout is delegated to an external marketplace
// link elsewhere in the site.
func (i *Interpreter) ConfirmOrder() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state.OrderPhase != OrderPhasePending {
		return false
	}
	i.state.OrderPhase = OrderPhaseComplete
	i.logger.Info("Order marked complete",
		zap.String("item", i.state.Order.Item))
	i.notifyLocked()
	return true
}

// CancelOrder abandons a pending order and resets the panel.
func (i *Interpreter) CancelOrder() {
	i.mu.Lock()
	if i.state.OrderPhase == OrderPhasePending {
		i.state.OrderPhase = OrderPhaseIdle
		i.state.Order = nil
		i.notifyLocked()
	}
	i.mu.Unlock()
}

// Reset returns the interpreter to its initial state. Called when a
// session closes.
func (i *Interpreter) Reset() {
	i.mu.Lock()
	i.state = State{OrderPhase: OrderPhaseIdle}
	i.notifyLocked()
	i.mu.Unlock()
}

// Snapshot returns a copy of the current interface state.
func (i *Interpreter) Snapshot() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

func (i *Interpreter) notifyLocked() {
	if i.onChange != nil {
		i.onChange(i.state)
	}
}
