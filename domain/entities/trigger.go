package entities

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TriggerKind discriminates the UI trigger variants a model reply may carry.
type TriggerKind string

const (
	TriggerKindAlert TriggerKind = "alert"
	TriggerKindOrder TriggerKind = "order"
)

// AlertData is the payload of an alert trigger.
type AlertData struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// OrderData is the payload of an order trigger. The purchase fields come
// straight from the model and are applied without any legitimacy check;
// confirming an order only flips a local flag, real checkout lives behind
// an external marketplace link outside this service.
type OrderData struct {
	Item     string         `json:"item"`
	Tier     string         `json:"tier,omitempty"`
	Price    string         `json:"price,omitempty"`
	Quantity int            `json:"quantity,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// UITrigger is a structured directive embedded in a model response that
// requests a local interface state change. Exactly one of Alert or Order is
// set, matching Kind.
type UITrigger struct {
	Kind  TriggerKind `json:"type"`
	Alert *AlertData  `json:"alert,omitempty"`
	Order *OrderData  `json:"order,omitempty"`
}

// Validate checks that the trigger payload matches its kind.
func (t *UITrigger) Validate() error {
	switch t.Kind {
	case TriggerKindAlert:
		if t.Alert == nil {
			return fmt.Errorf("alert trigger without alert payload")
		}
	case TriggerKindOrder:
		if t.Order == nil {
			return fmt.Errorf("order trigger without order payload")
		}
	default:
		return fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
	return nil
}

// triggerDirectivePrefix marks the directive line the chat model is
// instructed to append when it wants a UI state change.
const triggerDirectivePrefix = "TRIGGER "

// rawTrigger matches the wire shape of a directive: {"type": ..., "data": ...}.
type rawTrigger struct {
	Type TriggerKind     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseTriggerDirective scans a model reply for a trailing TRIGGER line,
// returning the parsed trigger (nil when absent) and the reply text with
// the directive stripped. A malformed directive is dropped rather than
// surfaced; the spoken reply still goes through.
func ParseTriggerDirective(reply string) (*UITrigger, string) {
	lines := strings.Split(reply, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, triggerDirectivePrefix) {
			return nil, strings.TrimSpace(reply)
		}
		trigger, err := decodeTrigger([]byte(strings.TrimPrefix(line, triggerDirectivePrefix)))
		rest := strings.TrimSpace(strings.Join(lines[:i], "\n"))
		if err != nil {
			return nil, rest
		}
		return trigger, rest
	}
	return nil, strings.TrimSpace(reply)
}

// DecodeTrigger parses a wire-format trigger object.
func DecodeTrigger(data []byte) (*UITrigger, error) {
	return decodeTrigger(data)
}

func decodeTrigger(data []byte) (*UITrigger, error) {
	var raw rawTrigger
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed trigger: %w", err)
	}

	trigger := &UITrigger{Kind: raw.Type}
	switch raw.Type {
	case TriggerKindAlert:
		var alert AlertData
		if err := json.Unmarshal(raw.Data, &alert); err != nil {
			return nil, fmt.Errorf("malformed alert trigger: %w", err)
		}
		trigger.Alert = &alert
	case TriggerKindOrder:
		var order OrderData
		if err := json.Unmarshal(raw.Data, &order); err != nil {
			return nil, fmt.Errorf("malformed order trigger: %w", err)
		}
		trigger.Order = &order
	default:
		return nil, fmt.Errorf("unknown trigger kind %q", raw.Type)
	}
	return trigger, nil
}

// MarshalWire encodes the trigger in the {"type", "data"} wire shape used
// by the transport responses.
func (t *UITrigger) MarshalWire() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	var data any
	switch t.Kind {
	case TriggerKindAlert:
		data = t.Alert
	case TriggerKindOrder:
		data = t.Order
	}
	return json.Marshal(map[string]any{"type": t.Kind, "data": data})
}
