// Package router resolves each turn to exactly one intent. It wraps the
// external classifier with a hard timeout, a deterministic fallback, and the
// focus-topic tie-break, and never mutates the session.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/shoptalk-core/server/internal/chat/classifier"
	"github.com/shoptalk-core/server/internal/chat/model"
	logx "github.com/shoptalk-core/server/pkg/logger"
)

type Router struct {
	classifier classifier.Classifier
	timeout    time.Duration
	margin     float64
}

func New(c classifier.Classifier, routerCfg model.RouterConfig, classifierCfg model.ClassifierConfig) (*Router, error) {
	if c == nil {
		return nil, fmt.Errorf("classifier is nil")
	}
	timeout, err := time.ParseDuration(classifierCfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFIER_TIMEOUT %q: %w", classifierCfg.Timeout, err)
	}
	return &Router{
		classifier: c,
		timeout:    timeout,
		margin:     routerCfg.TieBreakMargin,
	}, nil
}

type classifyResult struct {
	cls *model.Classification
	err error
}

// Resolve classifies the message within the configured timeout. Classifier
// failure or timeout degrades to general_inquiry with no slots rather than
// failing the turn. The call returns within the timeout bound even against a
// classifier that ignores cancellation.
func (r *Router) Resolve(ctx context.Context, message string, session *model.Session, contextSnapshot string) model.Resolution {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := make(chan classifyResult, 1)
	go func() {
		cls, err := r.classifier.Classify(cctx, message, contextSnapshot)
		ch <- classifyResult{cls: cls, err: err}
	}()

	var cls *model.Classification
	select {
	case res := <-ch:
		if res.err != nil {
			logx.Warn().Err(res.err).Str("session_id", session.ID).Msg("classifier failed, falling back to general_inquiry")
			return fallbackResolution()
		}
		cls = res.cls
	case <-cctx.Done():
		logx.Warn().Str("session_id", session.ID).Dur("timeout", r.timeout).Msg("classifier timed out, falling back to general_inquiry")
		return fallbackResolution()
	}

	if cls == nil || len(cls.Candidates) == 0 {
		logx.Warn().Str("session_id", session.ID).Msg("classifier returned no candidates, falling back to general_inquiry")
		return fallbackResolution()
	}

	intent := r.pickIntent(cls, session.Focus.Topic)
	logx.Debug().
		Str("session_id", session.ID).
		Str("intent", intent.String()).
		Int("slots", len(cls.Slots)).
		Bool("topic_switch", cls.TopicSwitch).
		Msg("intent resolved")

	return model.Resolution{
		Intent:      intent,
		Slots:       cls.Slots,
		TopicSwitch: cls.TopicSwitch,
	}
}

// pickIntent applies the tie-break: when the top two candidates sit within the
// margin, the one matching the current focus topic wins, unless the classifier
// flagged an explicit topic-switch cue.
func (r *Router) pickIntent(cls *model.Classification, current model.Topic) model.Intent {
	ranked := cls.Ranked()
	top := ranked[0]
	if len(ranked) < 2 || cls.TopicSwitch || current == model.TopicNone {
		return top.Intent
	}

	second := ranked[1]
	if top.Confidence-second.Confidence >= r.margin {
		return top.Intent
	}
	if top.Intent.Topic() == current {
		return top.Intent
	}
	if second.Intent.Topic() == current {
		logx.Debug().
			Str("preferred", second.Intent.String()).
			Str("over", top.Intent.String()).
			Msg("ambiguous classification, preferring current focus topic")
		return second.Intent
	}
	return top.Intent
}

func fallbackResolution() model.Resolution {
	return model.Resolution{
		Intent:   model.IntentGeneralInquiry,
		Slots:    map[string]string{},
		Fallback: true,
	}
}
