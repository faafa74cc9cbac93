package model

import "sort"

// IntentScore is one classifier candidate with its confidence in [0,1].
type IntentScore struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classification is the raw output of the external classifier for one message:
// scored intent candidates plus any slot key/values it extracted. The router
// turns this into a single resolved intent.
type Classification struct {
	Candidates []IntentScore     `json:"candidates"`
	Slots      map[string]string `json:"slots"`
	// TopicSwitch is set when the message carries an explicit topic-switch cue
	// ("track my order" while shopping), which overrides the focus tie-break.
	TopicSwitch bool           `json:"topic_switch"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Ranked returns candidates sorted by descending confidence without mutating
// the receiver.
func (c *Classification) Ranked() []IntentScore {
	out := make([]IntentScore, len(c.Candidates))
	copy(out, c.Candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Resolution is the router's final decision for a turn.
type Resolution struct {
	Intent      Intent
	Slots       map[string]string
	TopicSwitch bool
	// Fallback marks a resolution produced because the classifier failed or
	// timed out rather than from a real classification.
	Fallback bool
}
