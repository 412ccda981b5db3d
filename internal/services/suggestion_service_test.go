package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"acai-delivery-backend/internal/cart"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/upsell"
	"acai-delivery-backend/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCatalog struct {
	mu       sync.Mutex
	products []models.Product
	err      error
}

func (s *staticCatalog) ActiveCatalog(context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products, s.err
}

func (s *staticCatalog) set(products []models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}

// gatedCatalog blocks ActiveCatalog while closed, once per call, until
// release is signalled.
type gatedCatalog struct {
	staticCatalog
	gated   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedCatalog(products []models.Product) *gatedCatalog {
	return &gatedCatalog{
		staticCatalog: staticCatalog{products: products},
		entered:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
}

func (g *gatedCatalog) ActiveCatalog(ctx context.Context) ([]models.Product, error) {
	if g.gated.CompareAndSwap(true, false) {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.staticCatalog.ActiveCatalog(ctx)
}

func newTestSuggestionService(t *testing.T, catalog CatalogProvider, settings models.SuggestionSettings) (*SuggestionService, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	svc := NewSuggestionService(
		upsell.NewGenerator(upsell.DefaultPolicy(), upsell.PaidComplements()),
		catalog, fixedSettings(settings), bus, testLog,
		SuggestionOptions{RotationInterval: time.Hour, IdleTTL: time.Minute},
	)
	t.Cleanup(svc.Stop)
	return svc, bus
}

func linesFor(products ...models.Product) []cart.Line {
	c := cart.New()
	for _, p := range products {
		c.AddOrMerge(p, 1, nil, "")
	}
	return c.Lines()
}

func TestSuggestionService_RefreshAndDismiss(t *testing.T) {
	svc, _ := newTestSuggestionService(t, &staticCatalog{products: testCatalog()}, models.DefaultSuggestionSettings())
	ctx := context.Background()

	got := svc.Refresh(ctx, "c1", linesFor(testCatalog()[0]))
	assert.Equal(t, []string{"acai500", "combo"}, offerKeys(got))

	d := svc.Display("c1")
	require.True(t, d.Visible)
	assert.Equal(t, "acai500", d.Suggestion.Offer.EntryKey())

	assert.True(t, svc.Dismiss("c1"))
	assert.False(t, svc.Display("c1").Visible)
	assert.False(t, svc.Dismiss("unknown"))

	svc.Refresh(ctx, "c1", linesFor(testCatalog()[0], testCatalog()[3]))
	assert.True(t, svc.Display("c1").Visible)
}

func TestSuggestionService_CatalogFailureYieldsNoSuggestions(t *testing.T) {
	svc, _ := newTestSuggestionService(t, &staticCatalog{err: assert.AnError}, models.DefaultSuggestionSettings())

	got := svc.Refresh(context.Background(), "c1", linesFor(testCatalog()[0]))
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.False(t, svc.Display("c1").Visible)
}

func TestSuggestionService_CatalogChangeRecomputesSessions(t *testing.T) {
	catalog := &staticCatalog{products: testCatalog()}
	svc, bus := newTestSuggestionService(t, catalog, models.DefaultSuggestionSettings())
	svc.Start()

	svc.Refresh(context.Background(), "c1", linesFor(testCatalog()[0]))
	require.Contains(t, offerKeys(svc.Suggestions("c1")), "acai500")

	catalog.set([]models.Product{testCatalog()[0], testCatalog()[3]})
	bus.Publish(events.TopicCatalogChanged, "acai500")

	assert.NotContains(t, offerKeys(svc.Suggestions("c1")), "acai500")
	assert.Contains(t, offerKeys(svc.Suggestions("c1")), "coco")
}

func TestSuggestionService_SettingsBusTogglesBanner(t *testing.T) {
	svc, bus := newTestSuggestionService(t, &staticCatalog{products: testCatalog()}, models.DefaultSuggestionSettings())
	ctx := context.Background()
	lines := linesFor(testCatalog()[0])

	svc.Refresh(ctx, "c1", lines)
	bus.Publish(events.TopicSettingsChanged, models.SuggestionSettings{Enabled: false, ShowInCart: true})

	svc.Refresh(ctx, "c1", lines)
	assert.False(t, svc.Display("c1").Visible)
	assert.Len(t, svc.Suggestions("c1"), 2)
}

func TestSuggestionService_EvictIdle(t *testing.T) {
	svc, _ := newTestSuggestionService(t, &staticCatalog{products: testCatalog()}, models.DefaultSuggestionSettings())
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	svc.Refresh(ctx, "idle", linesFor(testCatalog()[0]))
	svc.Refresh(ctx, "watched", linesFor(testCatalog()[0]))
	unsubscribe, _, ok := svc.Subscribe("watched", func(upsell.Display) {})
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, svc.EvictIdle())
	assert.False(t, svc.HasSession("idle"))
	assert.True(t, svc.HasSession("watched"))

	unsubscribe()
	unsubscribe()
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, svc.EvictIdle())
	assert.Zero(t, svc.Sessions())
}

func TestSuggestionService_SubscribeUnknownCart(t *testing.T) {
	svc, _ := newTestSuggestionService(t, &staticCatalog{}, models.DefaultSuggestionSettings())
	_, _, ok := svc.Subscribe("missing", func(upsell.Display) {})
	assert.False(t, ok)
}

func TestSuggestionService_StopClosesSessions(t *testing.T) {
	svc, bus := newTestSuggestionService(t, &staticCatalog{products: testCatalog()}, models.DefaultSuggestionSettings())
	svc.Start()
	svc.Refresh(context.Background(), "c1", linesFor(testCatalog()[0]))
	require.Equal(t, 1, bus.Subscribers(events.TopicSettingsChanged))

	svc.Stop()
	svc.Stop()
	assert.Zero(t, svc.Sessions())
	assert.Zero(t, bus.Subscribers(events.TopicSettingsChanged))
	assert.Zero(t, bus.Subscribers(events.TopicCatalogChanged))
}

func TestSuggestionService_RefreshAllKeepsNewerResult(t *testing.T) {
	catalog := newGatedCatalog(testCatalog())
	svc, _ := newTestSuggestionService(t, catalog, models.DefaultSuggestionSettings())
	ctx := context.Background()

	svc.Refresh(ctx, "c1", linesFor(testCatalog()[0]))
	require.True(t, svc.Display("c1").Visible)

	catalog.gated.Store(true)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		svc.RefreshAll(ctx)
	}()
	<-catalog.entered

	// The cart is emptied while the catalog-wide pass is computing.
	svc.Refresh(ctx, "c1", nil)
	close(catalog.release)
	<-finished

	assert.False(t, svc.Display("c1").Visible)
	assert.Empty(t, svc.Suggestions("c1"))
}

func TestSuggestionService_ForgetEndsSubscription(t *testing.T) {
	svc, _ := newTestSuggestionService(t, &staticCatalog{products: testCatalog()}, models.DefaultSuggestionSettings())
	svc.Refresh(context.Background(), "c1", linesFor(testCatalog()[0]))

	unsubscribe, ended, ok := svc.Subscribe("c1", func(upsell.Display) {})
	require.True(t, ok)
	defer unsubscribe()

	select {
	case <-ended:
		t.Fatal("subscription ended before the cart was forgotten")
	default:
	}

	svc.Forget("c1")

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("subscription still open after Forget")
	}
	assert.False(t, svc.HasSession("c1"))
}
