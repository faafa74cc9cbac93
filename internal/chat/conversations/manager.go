package conversations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoptalk-core/server/internal/chat/model"
	errx "github.com/shoptalk-core/server/internal/core/error"
	logx "github.com/shoptalk-core/server/pkg/logger"
)

// ContextManager owns the transient, mutable view of a session for the
// duration of one turn: it loads (or creates) the session, merges slot values
// into the focus state, appends the turn record, and writes everything back in
// a single wholesale Put at turn end.
type ContextManager struct {
	store        model.SessionStore
	maxTurns     int
	contextTurns int
}

func NewContextManager(store model.SessionStore, sessionCfg model.SessionConfig, classifierCfg model.ClassifierConfig) *ContextManager {
	return &ContextManager{
		store:        store,
		maxTurns:     sessionCfg.MaxTurns,
		contextTurns: classifierCfg.ContextTurns,
	}
}

// NewSessionID generates a session identifier for a first-contact customer.
func NewSessionID() string {
	return "SES-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// Load fetches the session, creating a fresh one when the id is absent. A
// store outage is recoverable: the turn proceeds on an empty-context session
// with degraded=true, and that session must not be persisted.
func (cm *ContextManager) Load(ctx context.Context, sessionID, customerID string) (session *model.Session, degraded bool) {
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	s, err := cm.store.Get(ctx, sessionID)
	switch {
	case err == nil:
		return s, false
	case errx.IsNotFound(err):
		logx.Debug().Str("session_id", sessionID).Str("customer_id", customerID).Msg("creating new session")
		return model.NewSession(sessionID, customerID), false
	default:
		logx.Error().Err(err).Str("session_id", sessionID).Msg("session store unavailable, using empty context for this turn")
		return model.NewSession(sessionID, customerID), true
	}
}

// Apply merges newly extracted slot values into the focus state. A topic
// change clears the accumulated filters first; cart and profile data live
// outside FocusState and survive. On key conflict the newest value wins.
func (cm *ContextManager) Apply(session *model.Session, intent model.Intent, slots map[string]string) {
	if session.Focus.Filters == nil {
		session.Focus.Filters = map[string]string{}
	}

	if cm.topicChanged(session, intent, slots) {
		logx.Debug().
			Str("session_id", session.ID).
			Str("from_topic", string(session.Focus.Topic)).
			Str("intent", intent.String()).
			Msg("topic change, resetting focus filters")
		session.Focus.Filters = map[string]string{}
	}

	if t := intent.Topic(); t != model.TopicNone {
		session.Focus.Topic = t
	}
	for k, v := range slots {
		if k == "" || v == "" {
			continue
		}
		session.Focus.Filters[k] = v
	}
}

// topicChanged implements the reset rule: the resolved intent belongs to a
// different topic than the active one, or the customer pivoted to a different
// product category within the product topic. Intents without a topic of their
// own (general inquiries) never reset focus.
func (cm *ContextManager) topicChanged(session *model.Session, intent model.Intent, slots map[string]string) bool {
	next := intent.Topic()
	if next == model.TopicNone {
		return false
	}
	cur := session.Focus.Topic
	if cur != model.TopicNone && cur != next {
		return true
	}
	if next == model.TopicProduct {
		prev, hadPrev := session.Focus.Filters["product_type"]
		if incoming, ok := slots["product_type"]; ok && hadPrev && !strings.EqualFold(prev, incoming) {
			return true
		}
	}
	return false
}

// AppendTurn records the completed exchange, evicting the oldest turns beyond
// the configured bound, and refreshes the activity timestamp.
func (cm *ContextManager) AppendTurn(session *model.Session, turn model.Turn) {
	session.Turns = append(session.Turns, turn)
	if cm.maxTurns > 0 && len(session.Turns) > cm.maxTurns {
		session.Turns = append([]model.Turn(nil), session.Turns[len(session.Turns)-cm.maxTurns:]...)
	}
	session.LastActiveAt = time.Now().UTC()
}

// Persist writes the session back wholesale (last-writer-wins). It refuses to
// write on an already-canceled context so a dropped request never leaves
// partial focus state behind.
func (cm *ContextManager) Persist(ctx context.Context, session *model.Session) error {
	if err := ctx.Err(); err != nil {
		logx.Warn().Str("session_id", session.ID).Msg("turn canceled before persist, keeping prior session state")
		return err
	}
	return cm.store.Put(ctx, session)
}

// ClassifierContext serializes the recent history plus the current focus for
// the classifier prompt, ending with the message under analysis.
func (cm *ContextManager) ClassifierContext(session *model.Session, message string) string {
	recent := trimTail(session.Turns, cm.contextTurns)

	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, t := range recent {
		if t.UserText != "" {
			b.WriteString("UserMessage(" + t.UserText + ")\n")
		}
		if t.Reply != "" {
			b.WriteString("AssistantMessage(" + t.Reply + ")\n")
		}
	}
	b.WriteString("</conversation_context>\n")

	b.WriteString("<focus_state>\n")
	b.WriteString(focusSnapshot(session.Focus))
	b.WriteString("\n</focus_state>\n")

	b.WriteString("<current_message_to_analyze>\n")
	b.WriteString("UserMessage(" + message + ")\n")
	b.WriteString("</current_message_to_analyze>")

	return b.String()
}

func focusSnapshot(f model.FocusState) string {
	b, err := json.Marshal(struct {
		Topic   string            `json:"topic"`
		Filters map[string]string `json:"filters"`
	}{Topic: string(f.Topic), Filters: f.Filters})
	if err != nil {
		return fmt.Sprintf("{\"topic\":%q}", string(f.Topic))
	}
	return string(b)
}

// ====================== Helper function ======================
func trimTail(turns []model.Turn, maxTurns int) []model.Turn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		result := make([]model.Turn, len(turns))
		copy(result, turns)
		return result
	}
	source := turns[len(turns)-maxTurns:]
	result := make([]model.Turn, len(source))
	copy(result, source)
	return result
}
