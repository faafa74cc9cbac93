package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/shoptalk-core/server/internal/chat/conversations"
	"github.com/shoptalk-core/server/internal/chat/handlers"
	"github.com/shoptalk-core/server/internal/chat/model"
	"github.com/shoptalk-core/server/internal/chat/router"
	logx "github.com/shoptalk-core/server/pkg/logger"
)

// Graph node keys. Handler nodes are keyed per intent via handlerNodeKey.
const (
	NodeContextLoader  = "ContextLoader"
	NodeIntentRouter   = "IntentRouter"
	NodeContextUpdater = "ContextUpdater"
)

func handlerNodeKey(it model.Intent) string {
	return "Handler_" + it.String()
}

// classifyRequest flows from the loader to the router node.
type classifyRequest struct {
	Message  string
	Snapshot string
}

// newTurnInitPreHandler seeds the turn state when a new turn enters the graph.
func newTurnInitPreHandler() func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		s.Input = in
		s.Stage = model.StageReceived
		s.Session = nil
		s.Profile = nil
		s.LoadDegraded = false
		s.Result = nil
		return in, nil
	}
}

// newContextLoaderNode loads (or creates) the session and fetches the customer
// profile. Store outages degrade to an empty-context session; profile lookup
// failures degrade to no profile. Neither fails the turn.
func newContextLoaderNode(cm *conversations.ContextManager, profiles model.ProfileSource) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (classifyRequest, error) {
		session, degraded := cm.Load(ctx, in.SessionID, in.CustomerID)

		customerID := in.CustomerID
		if customerID == "" {
			customerID = session.CustomerID
		}
		var profile *model.CustomerProfile
		if profiles != nil && customerID != "" {
			p, err := profiles.GetProfile(ctx, customerID)
			if err != nil {
				logx.Warn().Err(err).Str("customer_id", customerID).Msg("profile lookup failed, continuing without profile")
			} else {
				profile = p
			}
		}

		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Session = session
			s.Profile = profile
			s.LoadDegraded = degraded
			return s.Advance(model.StageContextLoaded)
		})
		if err != nil {
			return classifyRequest{}, fmt.Errorf("context loader state: %w", err)
		}

		return classifyRequest{
			Message:  in.Message,
			Snapshot: cm.ClassifierContext(session, in.Message),
		}, nil
	})
}

// newIntentRouterNode resolves the turn's intent. The router absorbs
// classifier failures into the general_inquiry fallback, so this node only
// errors on a state machine violation.
func newIntentRouterNode(rt *router.Router) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, req classifyRequest) (model.Resolution, error) {
		var session *model.Session
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			session = s.Session
			return nil
		}); err != nil {
			return model.Resolution{}, fmt.Errorf("intent router state: %w", err)
		}

		res := rt.Resolve(ctx, req.Message, session, req.Snapshot)

		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Resolution = res
			return s.Advance(model.StageIntentResolved)
		}); err != nil {
			return model.Resolution{}, fmt.Errorf("intent router state: %w", err)
		}
		return res, nil
	})
}

// newDispatchCondition routes the resolution to its intent's handler node.
// The branch's node set is generated from AllIntents, so a resolvable intent
// without a node cannot be constructed.
func newDispatchCondition() func(context.Context, model.Resolution) (string, error) {
	return func(ctx context.Context, res model.Resolution) (string, error) {
		return handlerNodeKey(res.Intent), nil
	}
}

// newHandlerNode executes the handler mapped to one intent. The router's
// extracted slots are merged into focus first so the handler sees this turn's
// filters; the handler's own slot updates are merged afterwards by the
// context updater.
func newHandlerNode(d *handlers.Dispatcher, cm *conversations.ContextManager, intent model.Intent) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, res model.Resolution) (*model.HandlerResult, error) {
		var (
			message string
			focus   model.FocusState
			profile *model.CustomerProfile
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			if err := s.Advance(model.StageDispatched); err != nil {
				return err
			}
			cm.Apply(s.Session, res.Intent, res.Slots)
			message = s.Input.Message
			focus = s.Session.Focus.Clone()
			profile = s.Profile
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("handler %s state: %w", intent, err)
		}

		return d.Dispatch(ctx, intent, message, focus, profile)
	})
}

// newContextUpdaterNode applies the handler's slot updates, appends the turn
// record, and persists the session wholesale. Persistence failures degrade;
// only a state machine violation aborts.
func newContextUpdaterNode(cm *conversations.ContextManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, hr *model.HandlerResult) (*model.TurnOutput, error) {
		var out *model.TurnOutput
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			if err := s.Advance(model.StageContextUpdated); err != nil {
				return err
			}
			s.Result = hr

			if len(hr.SlotUpdates) > 0 {
				cm.Apply(s.Session, s.Resolution.Intent, hr.SlotUpdates)
			}

			degraded := hr.Degraded || s.Resolution.Fallback || s.LoadDegraded
			cm.AppendTurn(s.Session, model.Turn{
				UserText: s.Input.Message,
				Intent:   s.Resolution.Intent,
				Reply:    hr.Reply,
				Degraded: degraded,
				At:       time.Now().UTC(),
			})

			switch {
			case s.LoadDegraded:
				logx.Warn().Str("session_id", s.Session.ID).Msg("session loaded degraded, skipping persist to protect prior state")
			default:
				if perr := cm.Persist(ctx, s.Session); perr != nil {
					logx.Error().Err(perr).Str("session_id", s.Session.ID).Msg("session persist failed, turn result not stored (retryable)")
					degraded = true
				}
			}

			if err := s.Advance(model.StageResponded); err != nil {
				return err
			}
			out = &model.TurnOutput{
				SessionID: s.Session.ID,
				Intent:    s.Resolution.Intent,
				Reply:     hr.Reply,
				Degraded:  degraded,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("context updater state: %w", err)
		}
		return out, nil
	})
}
