package model

// HandlerResult is what every handler returns: a conversational reply plus an
// optional set of slot updates for the context manager to merge. A failed
// downstream call surfaces as a Degraded result with an apology reply and no
// slot updates, never as an error to the orchestration loop.
type HandlerResult struct {
	Reply       string            `json:"reply"`
	SlotUpdates map[string]string `json:"slot_updates,omitempty"`
	Degraded    bool              `json:"degraded,omitempty"`
}
