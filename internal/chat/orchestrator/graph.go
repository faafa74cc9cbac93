// Package orchestrator wires one turn of the conversation into an eino graph:
// load context, resolve intent, dispatch to the intent's handler, update and
// persist context, respond. The per-turn stage machine lives in the graph's
// local state and every node advances it exactly one step.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/shoptalk-core/server/internal/chat/conversations"
	"github.com/shoptalk-core/server/internal/chat/handlers"
	"github.com/shoptalk-core/server/internal/chat/model"
	"github.com/shoptalk-core/server/internal/chat/orchestrator/observers"
	"github.com/shoptalk-core/server/internal/chat/router"
	logx "github.com/shoptalk-core/server/pkg/logger"
)

// Runner executes the compiled turn graph with the public TurnInput.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error)
}

// Config holds the composed components the turn graph is built from.
type Config struct {
	ContextManager *conversations.ContextManager
	Router         *router.Router
	Dispatcher     *handlers.Dispatcher
	Profiles       model.ProfileSource
}

// GraphBuilder handles the construction of the turn graph.
type GraphBuilder struct {
	config *Config
	graph  *compose.Graph[model.TurnInput, *model.TurnOutput]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, *model.TurnOutput]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error) {
	return r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
}

// BuildTurnGraph validates the config, builds the graph, and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ContextManager == nil {
		return nil, fmt.Errorf("context manager is nil")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("router is nil")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}

	builder := &GraphBuilder{
		config: &cfg,
		graph: compose.NewGraph[model.TurnInput, *model.TurnOutput](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	runnable, err := builder.compile(ctx)
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// addNodes adds the fixed pipeline nodes plus one handler node per intent.
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(NodeContextLoader,
		newContextLoaderNode(b.config.ContextManager, b.config.Profiles),
		compose.WithStatePreHandler(newTurnInitPreHandler()),
	)

	b.graph.AddLambdaNode(NodeIntentRouter,
		newIntentRouterNode(b.config.Router),
	)

	for _, it := range model.AllIntents {
		b.graph.AddLambdaNode(handlerNodeKey(it),
			newHandlerNode(b.config.Dispatcher, b.config.ContextManager, it),
		)
	}

	b.graph.AddLambdaNode(NodeContextUpdater,
		newContextUpdaterNode(b.config.ContextManager),
	)
}

// addEdges creates the main flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, NodeContextLoader},
		{NodeContextLoader, NodeIntentRouter},
		{NodeContextUpdater, compose.END},
	}
	for _, it := range model.AllIntents {
		edges = append(edges, [2]string{handlerNodeKey(it), NodeContextUpdater})
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches routes the resolved intent to its handler node. The branch's
// end-node set is generated from the same enumeration the dispatch table is
// validated against, so every resolvable intent has a destination.
func (b *GraphBuilder) addBranches() error {
	endNodes := make(map[string]bool, len(model.AllIntents))
	for _, it := range model.AllIntents {
		endNodes[handlerNodeKey(it)] = true
	}

	dispatchBranch := compose.NewGraphBranch(newDispatchCondition(), endNodes)
	if err := b.graph.AddBranch(NodeIntentRouter, dispatchBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding dispatch branch")
		return fmt.Errorf("error adding dispatch branch: %w", err)
	}
	return nil
}

// compile finalizes the graph. A turn visits a fixed number of nodes, so a
// small step cap is enough to catch wiring mistakes.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.TurnOutput], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(10))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
