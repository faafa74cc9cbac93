package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk-core/server/internal/chat/classifier"
	"github.com/shoptalk-core/server/internal/chat/conversations"
	"github.com/shoptalk-core/server/internal/chat/handlers"
	"github.com/shoptalk-core/server/internal/chat/model"
	"github.com/shoptalk-core/server/internal/chat/repo"
	"github.com/shoptalk-core/server/internal/chat/router"
	errx "github.com/shoptalk-core/server/internal/core/error"
)

type fixture struct {
	runner Runner
	store  model.SessionStore
}

func newFixture(t *testing.T, store model.SessionStore, cls classifier.Classifier, deps handlers.Deps) *fixture {
	t.Helper()

	sessionCfg := model.SessionConfig{TTL: "30m", MaxTurns: 20}
	classifierCfg := model.ClassifierConfig{Timeout: "2s", ContextTurns: 5}
	cm := conversations.NewContextManager(store, sessionCfg, classifierCfg)

	rt, err := router.New(cls, model.RouterConfig{TieBreakMargin: 0.15}, classifierCfg)
	require.NoError(t, err)

	dispatcher, err := handlers.NewDispatcher(model.HandlerConfig{Timeout: "2s"}, deps)
	require.NoError(t, err)

	runner, err := BuildTurnGraph(context.Background(), Config{
		ContextManager: cm,
		Router:         rt,
		Dispatcher:     dispatcher,
		Profiles:       repo.NewStaticProfileSource(),
	})
	require.NoError(t, err)

	return &fixture{runner: runner, store: store}
}

func testDeps() handlers.Deps {
	profiles := repo.NewStaticProfileSource()
	return handlers.Deps{
		Catalog:     handlers.NewMockCatalog(),
		Orders:      handlers.NewMockOrderBook(),
		Recommender: handlers.NewMockRecommender(),
		Ticketing:   handlers.NewMockTicketing(profiles),
		Cart:        handlers.NewMockCartService(),
		Responder:   handlers.NewStaticResponder("ShopTalk"),
	}
}

func TestBuildTurnGraphValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := BuildTurnGraph(ctx, Config{})
	assert.Error(t, err)

	store := repo.NewMemorySessionStore(time.Minute)
	cm := conversations.NewContextManager(store, model.SessionConfig{TTL: "30m"}, model.ClassifierConfig{ContextTurns: 5})
	_, err = BuildTurnGraph(ctx, Config{ContextManager: cm})
	assert.Error(t, err)
}

func TestTurnGraphFocusCarriesAcrossTurns(t *testing.T) {
	f := newFixture(t, repo.NewMemorySessionStore(time.Minute), classifier.NewRulesClassifier(), testDeps())
	ctx := context.Background()
	sessionID := "SES-E2E-FOCUS"

	turn := func(message string) *model.TurnOutput {
		out, err := f.runner.Invoke(ctx, model.TurnInput{
			SessionID:  sessionID,
			CustomerID: "CUST-12345",
			Message:    message,
		})
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, sessionID, out.SessionID)
		return out
	}

	out := turn("Show me Nike running shoes")
	assert.Equal(t, model.IntentProductQuery, out.Intent)
	assert.Contains(t, out.Reply, "Nike Air Max 270")
	assert.False(t, out.Degraded)

	out = turn("Do you have them in size 10?")
	assert.Equal(t, model.IntentProductQuery, out.Intent)
	assert.Contains(t, out.Reply, "Nike Pegasus 41", "brand filter from the prior turn still applies")
	assert.NotContains(t, out.Reply, "Adidas")

	out = turn("Only under $150 please")
	assert.Equal(t, model.IntentProductQuery, out.Intent)
	assert.Contains(t, out.Reply, "Nike Air Max 270")
	assert.Contains(t, out.Reply, "Nike Pegasus 41")

	s, err := f.store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.TopicProduct, s.Focus.Topic)
	assert.Equal(t, "Nike", s.Focus.Filters["brand"])
	assert.Equal(t, "running_shoes", s.Focus.Filters["product_type"])
	assert.Equal(t, "10", s.Focus.Filters["size"])
	assert.Equal(t, "150", s.Focus.Filters["max_price"])
	assert.Equal(t, "PROD-001", s.Focus.Filters["last_product_id"])
	assert.Len(t, s.Turns, 3)
}

func TestTurnGraphTopicChangeResetsFocus(t *testing.T) {
	f := newFixture(t, repo.NewMemorySessionStore(time.Minute), classifier.NewRulesClassifier(), testDeps())
	ctx := context.Background()
	sessionID := "SES-E2E-RESET"

	_, err := f.runner.Invoke(ctx, model.TurnInput{SessionID: sessionID, CustomerID: "CUST-12345", Message: "Show me Nike running shoes"})
	require.NoError(t, err)

	out, err := f.runner.Invoke(ctx, model.TurnInput{SessionID: sessionID, CustomerID: "CUST-12345", Message: "Actually, where is my order #12345?"})
	require.NoError(t, err)
	assert.Equal(t, model.IntentOrderStatus, out.Intent)
	assert.Contains(t, out.Reply, "Order 12345")
	assert.Contains(t, out.Reply, "FedEx")

	s, err := f.store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.TopicOrder, s.Focus.Topic)
	assert.Equal(t, "12345", s.Focus.Filters["order_id"])
	assert.NotContains(t, s.Focus.Filters, "brand", "product filters cleared by the topic change")
	assert.NotContains(t, s.Focus.Filters, "product_type")
	assert.Len(t, s.Turns, 2, "history survives the focus reset")
}

// slowClassifier ignores cancellation and answers far too late.
type slowClassifier struct{}

func (slowClassifier) Classify(ctx context.Context, message, contextSnapshot string) (*model.Classification, error) {
	time.Sleep(3 * time.Second)
	return &model.Classification{Candidates: []model.IntentScore{{Intent: model.IntentProductQuery, Confidence: 0.9}}}, nil
}

func TestTurnGraphClassifierTimeoutFallsBack(t *testing.T) {
	store := repo.NewMemorySessionStore(time.Minute)
	sessionCfg := model.SessionConfig{TTL: "30m", MaxTurns: 20}
	classifierCfg := model.ClassifierConfig{Timeout: "50ms", ContextTurns: 5}
	cm := conversations.NewContextManager(store, sessionCfg, classifierCfg)

	rt, err := router.New(slowClassifier{}, model.RouterConfig{TieBreakMargin: 0.15}, classifierCfg)
	require.NoError(t, err)
	dispatcher, err := handlers.NewDispatcher(model.HandlerConfig{Timeout: "2s"}, testDeps())
	require.NoError(t, err)

	runner, err := BuildTurnGraph(context.Background(), Config{
		ContextManager: cm,
		Router:         rt,
		Dispatcher:     dispatcher,
		Profiles:       repo.NewStaticProfileSource(),
	})
	require.NoError(t, err)

	start := time.Now()
	out, err := runner.Invoke(context.Background(), model.TurnInput{
		SessionID:  "SES-E2E-TIMEOUT",
		CustomerID: "CUST-12345",
		Message:    "Show me Nike running shoes",
	})
	require.NoError(t, err)
	assert.Equal(t, model.IntentGeneralInquiry, out.Intent, "timeout degrades to general_inquiry")
	assert.True(t, out.Degraded)
	assert.NotEmpty(t, out.Reply, "fallback turn still answers the customer")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTurnGraphHandlerFailureBecomesApology(t *testing.T) {
	deps := testDeps()
	deps.Orders = brokenOrders{}
	f := newFixture(t, repo.NewMemorySessionStore(time.Minute), classifier.NewRulesClassifier(), deps)

	out, err := f.runner.Invoke(context.Background(), model.TurnInput{
		SessionID:  "SES-E2E-APOLOGY",
		CustomerID: "CUST-12345",
		Message:    "Where is my order #12345?",
	})
	require.NoError(t, err, "handler failure never aborts the turn")
	assert.Equal(t, model.IntentOrderStatus, out.Intent)
	assert.Equal(t, handlers.ApologyReply, out.Reply)
	assert.True(t, out.Degraded)

	s, err := f.store.Get(context.Background(), "SES-E2E-APOLOGY")
	require.NoError(t, err)
	require.Len(t, s.Turns, 1)
	assert.True(t, s.Turns[0].Degraded, "the apology turn is recorded as degraded")
}

type brokenOrders struct{}

func (brokenOrders) Track(ctx context.Context, orderID string) (*handlers.OrderInfo, error) {
	return nil, errors.New("oms unavailable")
}

// outageStore fails every read and records write attempts.
type outageStore struct {
	puts int
}

func (s *outageStore) Get(ctx context.Context, id string) (*model.Session, error) {
	return nil, errx.New(errors.New("connection refused"), http.StatusBadGateway, errx.RedisErrorMessage)
}

func (s *outageStore) Put(ctx context.Context, sess *model.Session) error {
	s.puts++
	return nil
}

func (s *outageStore) Delete(ctx context.Context, id string) error { return nil }

func TestTurnGraphStoreOutageDegradesWithoutPersist(t *testing.T) {
	store := &outageStore{}
	f := newFixture(t, store, classifier.NewRulesClassifier(), testDeps())

	out, err := f.runner.Invoke(context.Background(), model.TurnInput{
		SessionID:  "SES-E2E-OUTAGE",
		CustomerID: "CUST-12345",
		Message:    "Show me Nike running shoes",
	})
	require.NoError(t, err, "a store outage still produces a best-effort turn")
	assert.Equal(t, model.IntentProductQuery, out.Intent, "classification works without stored context")
	assert.Contains(t, out.Reply, "Nike")
	assert.True(t, out.Degraded)
	assert.Zero(t, store.puts, "a degraded empty-context session is never persisted")
}

// putFailStore loads fine but cannot write.
type putFailStore struct {
	*repo.MemorySessionStore
}

func (s *putFailStore) Put(ctx context.Context, sess *model.Session) error {
	return errx.New(errors.New("write refused"), http.StatusBadGateway, errx.RedisErrorMessage)
}

func TestTurnGraphPersistFailureDegradesTurn(t *testing.T) {
	store := &putFailStore{MemorySessionStore: repo.NewMemorySessionStore(time.Minute)}
	f := newFixture(t, store, classifier.NewRulesClassifier(), testDeps())

	out, err := f.runner.Invoke(context.Background(), model.TurnInput{
		SessionID:  "SES-E2E-PUTFAIL",
		CustomerID: "CUST-12345",
		Message:    "Show me Nike running shoes",
	})
	require.NoError(t, err)
	assert.Equal(t, model.IntentProductQuery, out.Intent)
	assert.True(t, out.Degraded, "an unpersisted turn is reported as degraded")

	_, getErr := f.store.Get(context.Background(), "SES-E2E-PUTFAIL")
	assert.True(t, errx.IsNotFound(getErr), "failed persist leaves no partial state")
}
