package services

import (
	"context"
	"sync"
	"time"

	"acai-delivery-backend/internal/cart"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/upsell"
	"acai-delivery-backend/pkg/events"

	"go.uber.org/zap"
)

// CatalogProvider supplies the products currently on sale.
type CatalogProvider interface {
	ActiveCatalog(ctx context.Context) ([]models.Product, error)
}

// SettingsProvider supplies the suggestion switches. It never fails.
type SettingsProvider interface {
	Load(ctx context.Context) models.SuggestionSettings
}

type SuggestionOptions struct {
	RotationInterval time.Duration
	IdleTTL          time.Duration
	// Ticker overrides the wall-clock rotation ticker.
	Ticker upsell.TickerFunc
}

type suggestionSession struct {
	rotator     *upsell.Rotator
	unfollow    func()
	lines       []cart.Line
	lastSeen    time.Time
	subscribers int
	// generation counts recomputations; only the newest one is applied.
	generation uint64
	applyMu    sync.Mutex
	done       chan struct{}
	closeOnce  sync.Once
}

func newSuggestionSession(rotator *upsell.Rotator, now time.Time) *suggestionSession {
	return &suggestionSession{rotator: rotator, lastSeen: now, done: make(chan struct{})}
}

func (s *suggestionSession) close() {
	s.closeOnce.Do(func() {
		s.unfollow()
		s.rotator.Stop()
		close(s.done)
	})
}

// SuggestionService keeps one rotating suggestion banner per live cart.
type SuggestionService struct {
	generator *upsell.Generator
	catalog   CatalogProvider
	settings  SettingsProvider
	bus       *events.Bus
	log       *zap.Logger
	opts      SuggestionOptions
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*suggestionSession

	stopChan    chan struct{}
	stopOnce    sync.Once
	unsubscribe func()
	wg          sync.WaitGroup
}

func NewSuggestionService(
	generator *upsell.Generator,
	catalog CatalogProvider,
	settings SettingsProvider,
	bus *events.Bus,
	log *zap.Logger,
	opts SuggestionOptions,
) *SuggestionService {
	if opts.RotationInterval <= 0 {
		opts.RotationInterval = upsell.DefaultRotationInterval
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	return &SuggestionService{
		generator: generator,
		catalog:   catalog,
		settings:  settings,
		bus:       bus,
		log:       log,
		opts:      opts,
		now:       time.Now,
		sessions:  make(map[string]*suggestionSession),
		stopChan:  make(chan struct{}),
	}
}

// Start follows catalog changes and evicts idle sessions until Stop.
func (s *SuggestionService) Start() {
	s.unsubscribe = s.bus.Subscribe(events.TopicCatalogChanged, func(interface{}) {
		s.RefreshAll(context.Background())
	})

	s.wg.Add(1)
	go s.runJanitor()
	s.log.Info("suggestion service started",
		zap.Duration("rotation_interval", s.opts.RotationInterval),
		zap.Duration("idle_ttl", s.opts.IdleTTL))
}

// Stop ends the janitor and every rotator.
func (s *SuggestionService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.wg.Wait()

		s.mu.Lock()
		sessions := s.sessions
		s.sessions = make(map[string]*suggestionSession)
		s.mu.Unlock()

		for _, sess := range sessions {
			sess.close()
		}
		s.log.Info("suggestion service stopped", zap.Int("sessions", len(sessions)))
	})
}

func (s *SuggestionService) runJanitor() {
	defer s.wg.Done()

	interval := s.opts.IdleTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.EvictIdle()
		case <-s.stopChan:
			return
		}
	}
}

// EvictIdle drops sessions not touched within the idle TTL and without
// live subscribers. It returns how many were dropped.
func (s *SuggestionService) EvictIdle() int {
	cutoff := s.now().Add(-s.opts.IdleTTL)

	s.mu.Lock()
	var idle []*suggestionSession
	for id, sess := range s.sessions {
		if sess.subscribers == 0 && sess.lastSeen.Before(cutoff) {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.close()
	}
	if len(idle) > 0 {
		s.log.Debug("evicted idle suggestion sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

func (s *SuggestionService) session(ctx context.Context, cartID string) *suggestionSession {
	s.mu.Lock()
	sess, ok := s.sessions[cartID]
	s.mu.Unlock()
	if ok {
		return sess
	}

	enabled := s.settings.Load(ctx).Effective()
	opts := []upsell.RotatorOption{
		upsell.WithInterval(s.opts.RotationInterval),
		upsell.WithEnabled(enabled),
	}
	if s.opts.Ticker != nil {
		opts = append(opts, upsell.WithTicker(s.opts.Ticker))
	}
	created := newSuggestionSession(upsell.NewRotator(opts...), s.now())
	created.unfollow = created.rotator.Follow(s.bus)

	s.mu.Lock()
	if sess, ok = s.sessions[cartID]; !ok {
		s.sessions[cartID] = created
	}
	s.mu.Unlock()

	if ok {
		created.close()
		return sess
	}
	return created
}

func (s *SuggestionService) lookup(cartID string) (*suggestionSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[cartID]
	if ok {
		sess.lastSeen = s.now()
	}
	return sess, ok
}

func (s *SuggestionService) generate(ctx context.Context, lines []cart.Line) []upsell.Suggestion {
	if len(lines) == 0 {
		return []upsell.Suggestion{}
	}
	catalog, err := s.catalog.ActiveCatalog(ctx)
	if err != nil {
		s.log.Warn("catalog unavailable for suggestions", zap.Error(err))
		return []upsell.Suggestion{}
	}
	return s.generator.Generate(lines, catalog)
}

// apply hands suggestions computed for generation gen to the rotator unless
// a newer recomputation started in the meantime.
func (s *SuggestionService) apply(sess *suggestionSession, gen uint64, suggestions []upsell.Suggestion) bool {
	sess.applyMu.Lock()
	defer sess.applyMu.Unlock()

	s.mu.Lock()
	current := sess.generation == gen
	s.mu.Unlock()
	if !current {
		return false
	}
	sess.rotator.Update(suggestions)
	return true
}

// Refresh recomputes the suggestions of a cart after its contents changed.
func (s *SuggestionService) Refresh(ctx context.Context, cartID string, lines []cart.Line) []upsell.Suggestion {
	sess := s.session(ctx, cartID)

	s.mu.Lock()
	sess.generation++
	gen := sess.generation
	sess.lines = append([]cart.Line(nil), lines...)
	sess.lastSeen = s.now()
	s.mu.Unlock()

	suggestions := s.generate(ctx, lines)
	if !s.apply(sess, gen, suggestions) {
		s.log.Debug("superseded suggestions dropped", zap.String("cart_id", cartID))
	}
	return suggestions
}

// RefreshAll recomputes every live session against the current catalog.
// A session changed while its result was computed keeps the newer result.
func (s *SuggestionService) RefreshAll(ctx context.Context) {
	type pending struct {
		sess  *suggestionSession
		gen   uint64
		lines []cart.Line
	}

	s.mu.Lock()
	all := make([]pending, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sess.generation++
		all = append(all, pending{sess: sess, gen: sess.generation, lines: sess.lines})
	}
	s.mu.Unlock()

	applied := 0
	for _, p := range all {
		if s.apply(p.sess, p.gen, s.generate(ctx, p.lines)) {
			applied++
		}
	}
	s.log.Debug("suggestions refreshed", zap.Int("sessions", len(all)), zap.Int("applied", applied))
}

// HasSession reports whether the cart has a live suggestion session.
func (s *SuggestionService) HasSession(cartID string) bool {
	_, ok := s.lookup(cartID)
	return ok
}

// Display is what the cart banner shows now.
func (s *SuggestionService) Display(cartID string) upsell.Display {
	sess, ok := s.lookup(cartID)
	if !ok {
		return upsell.Display{}
	}
	return sess.rotator.Current()
}

// Suggestions returns the full list computed for the cart.
func (s *SuggestionService) Suggestions(cartID string) []upsell.Suggestion {
	sess, ok := s.lookup(cartID)
	if !ok {
		return []upsell.Suggestion{}
	}
	return sess.rotator.Suggestions()
}

// Dismiss hides the banner of a cart until its contents change.
func (s *SuggestionService) Dismiss(cartID string) bool {
	sess, ok := s.lookup(cartID)
	if !ok {
		return false
	}
	sess.rotator.Dismiss()
	return true
}

// Subscribe streams display changes of a cart. The session is kept alive
// until the returned function is called. The returned channel is closed
// when the session ends, after checkout or deletion of the cart.
func (s *SuggestionService) Subscribe(cartID string, fn func(upsell.Display)) (func(), <-chan struct{}, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[cartID]
	if ok {
		sess.subscribers++
	}
	s.mu.Unlock()
	if !ok {
		return nil, nil, false
	}

	unsubscribe := sess.rotator.Subscribe(fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			s.mu.Lock()
			sess.subscribers--
			sess.lastSeen = s.now()
			s.mu.Unlock()
		})
	}, sess.done, true
}

// Forget ends the session of a deleted cart.
func (s *SuggestionService) Forget(cartID string) {
	s.mu.Lock()
	sess, ok := s.sessions[cartID]
	delete(s.sessions, cartID)
	s.mu.Unlock()

	if ok {
		sess.close()
	}
}

// Sessions is the number of live sessions.
func (s *SuggestionService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
