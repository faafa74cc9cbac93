package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/shoptalk-core/server/internal/chat/classifier"
	"github.com/shoptalk-core/server/internal/chat/conversations"
	"github.com/shoptalk-core/server/internal/chat/handlers"
	"github.com/shoptalk-core/server/internal/chat/llm"
	"github.com/shoptalk-core/server/internal/chat/model"
	"github.com/shoptalk-core/server/internal/chat/orchestrator"
	"github.com/shoptalk-core/server/internal/chat/repo"
	"github.com/shoptalk-core/server/internal/chat/router"
	"github.com/shoptalk-core/server/internal/core"
	logx "github.com/shoptalk-core/server/pkg/logger"
	pkgredis "github.com/shoptalk-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config
	// SessionStore selects the session backend: "redis" or "memory".
	SessionStore string `envconfig:"SESSION_STORE" default:"redis"`

	// LLM providers. Which keys are required depends on CLASSIFIER_PROVIDER;
	// the "rules" provider needs none.
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`

	// Assistant configs
	Session    model.SessionConfig
	Classifier model.ClassifierConfig
	Router     model.RouterConfig
	Handler    model.HandlerConfig
	Responder  model.ResponderConfig
	Prompt     model.PromptConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	store, cleanup, err := buildSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialise session store: %v", err)
	}
	defer cleanup()

	cls, err := buildClassifier(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise classifier: %v", err)
	}

	responder, err := buildResponder(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise responder: %v", err)
	}

	cm := conversations.NewContextManager(store, cfg.Session, cfg.Classifier)
	rt, err := router.New(cls, cfg.Router, cfg.Classifier)
	if err != nil {
		log.Fatalf("Failed to initialise router: %v", err)
	}

	profiles := repo.NewStaticProfileSource()
	dispatcher, err := handlers.NewDispatcher(cfg.Handler, handlers.Deps{
		Catalog:     handlers.NewMockCatalog(),
		Orders:      handlers.NewMockOrderBook(),
		Recommender: handlers.NewMockRecommender(),
		Ticketing:   handlers.NewMockTicketing(profiles),
		Cart:        handlers.NewMockCartService(),
		Responder:   responder,
	})
	if err != nil {
		log.Fatalf("Failed to build dispatch table: %v", err)
	}

	runner, err := orchestrator.BuildTurnGraph(ctx, orchestrator.Config{
		ContextManager: cm,
		Router:         rt,
		Dispatcher:     dispatcher,
		Profiles:       profiles,
	})
	if err != nil {
		log.Fatalf("Failed to build turn graph: %v", err)
	}

	runDemo(ctx, runner)
}

// buildSessionStore wires the configured session backend. The memory store is
// for local runs without Redis.
func buildSessionStore(cfg AppConfig) (model.SessionStore, func(), error) {
	ttl, err := time.ParseDuration(cfg.Session.TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid SESSION_TTL %q: %w", cfg.Session.TTL, err)
	}

	switch cfg.SessionStore {
	case "redis":
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, nil, err
		}
		return repo.NewRedisSessionStore(rdb, ttl), func() { _ = rdb.Close() }, nil
	case "memory":
		return repo.NewMemorySessionStore(ttl), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_STORE %q (want redis or memory)", cfg.SessionStore)
	}
}

// buildClassifier wires the configured intent classifier provider.
func buildClassifier(ctx context.Context, cfg AppConfig) (classifier.Classifier, error) {
	switch cfg.Classifier.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini classifier")
		}
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL)
		if err != nil {
			return nil, err
		}
		return classifier.NewGeminiClassifier(ctx, client, cfg.Classifier)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai classifier")
		}
		oc := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
		return classifier.NewOpenAIClassifier(&oc, cfg.Classifier), nil
	case "rules":
		return classifier.NewRulesClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown CLASSIFIER_PROVIDER %q (want gemini, openai or rules)", cfg.Classifier.Provider)
	}
}

// buildResponder wires the general-inquiry responder. Without a Gemini key the
// deterministic responder keeps the assistant usable offline.
func buildResponder(ctx context.Context, cfg AppConfig) (handlers.Responder, error) {
	if cfg.GeminiAPIKey == "" {
		logx.Warn().Msg("GEMINI_API_KEY not set, using static responder for general inquiries")
		return handlers.NewStaticResponder(cfg.Prompt.BusinessName), nil
	}

	client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL)
	if err != nil {
		return nil, err
	}
	cm, err := llm.NewGeminiChatModel(ctx, client, cfg.Responder.Model, cfg.Responder.Temperature, cfg.Responder.MaxTokens)
	if err != nil {
		return nil, err
	}
	return handlers.NewLLMResponder(cm, cfg.Responder.Model, cfg.Prompt), nil
}

// runDemo drives a short multi-turn conversation through the graph.
func runDemo(ctx context.Context, runner orchestrator.Runner) {
	turns := []struct {
		description string
		message     string
	}{
		{
			description: "Initial product search",
			message:     "Show me Nike running shoes",
		},
		{
			description: "Follow-up refinement keeps the brand filter",
			message:     "Do you have them in size 10?",
		},
		{
			description: "Price cap stacks onto the same focus",
			message:     "Only under $150 please",
		},
		{
			description: "Topic change to order tracking resets product focus",
			message:     "Actually, where is my order #12345?",
		},
	}

	sessionID := conversations.NewSessionID()
	customerID := "CUST-12345"

	for i, turn := range turns {
		fmt.Printf("\nTurn %d: %s\n", i+1, turn.description)
		fmt.Printf("Customer: %q\n", turn.message)

		out, err := runner.Invoke(ctx, model.TurnInput{
			SessionID:  sessionID,
			CustomerID: customerID,
			Message:    turn.message,
		})
		if err != nil {
			log.Fatalf("Failed to process turn %d: %v", i+1, err)
		}

		fmt.Printf("Assistant [%s]: %s\n", out.Intent, out.Reply)
		if out.Degraded {
			fmt.Println("(degraded turn)")
		}
		fmt.Println("────────────────────────────────────────────")

		time.Sleep(300 * time.Millisecond)
	}

	fmt.Println("\nConversation complete.")
}
