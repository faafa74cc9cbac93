package model

import "fmt"

// TurnInput is the public input for processing one customer message.
type TurnInput struct {
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	Message    string `json:"message"`
}

// TurnOutput is the public result of one processed turn.
type TurnOutput struct {
	SessionID string `json:"session_id"`
	Intent    Intent `json:"intent"`
	Reply     string `json:"reply"`
	// Degraded is set when the turn survived on a fallback path (classifier
	// failure, storage outage, handler failure).
	Degraded bool `json:"degraded,omitempty"`
}

// Stage is one state of the per-turn state machine. Stages advance strictly in
// order; skipping one is a programming error.
type Stage int

const (
	StageReceived Stage = iota
	StageContextLoaded
	StageIntentResolved
	StageDispatched
	StageContextUpdated
	StageResponded
)

var stageNames = [...]string{
	"received",
	"context_loaded",
	"intent_resolved",
	"dispatched",
	"context_updated",
	"responded",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// TurnState is the graph-local state for one turn. It is registered via
// compose.WithGenLocalState and touched only inside eino state handlers or
// compose.ProcessState, which serialize access.
type TurnState struct {
	Input   TurnInput
	Stage   Stage
	Session *Session
	Profile *CustomerProfile
	// LoadDegraded marks a turn running on an empty-context session because
	// the store was unreachable; such sessions are never persisted.
	LoadDegraded bool
	Resolution   Resolution
	Result       *HandlerResult
}

// Advance moves the state machine to next, enforcing that no stage is skipped.
func (t *TurnState) Advance(next Stage) error {
	if next != t.Stage+1 {
		return fmt.Errorf("illegal turn transition %s -> %s", t.Stage, next)
	}
	t.Stage = next
	return nil
}
