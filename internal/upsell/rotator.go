package upsell

import (
	"sync"
	"time"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/pkg/events"
)

// DefaultRotationInterval is how long each suggestion stays on screen.
const DefaultRotationInterval = 8 * time.Second

// Ticker is the periodic source driving rotation.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the wall-clock TickerFunc.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Display is what the storefront shows right now.
type Display struct {
	Visible    bool        `json:"visible"`
	Suggestion *Suggestion `json:"suggestion,omitempty"`
	Index      int         `json:"index"`
	Count      int         `json:"count"`
}

type RotatorOption func(*Rotator)

func WithInterval(d time.Duration) RotatorOption {
	return func(r *Rotator) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithTicker(fn TickerFunc) RotatorOption {
	return func(r *Rotator) { r.newTicker = fn }
}

// WithEnabled sets the initial value of the suggestions flag.
func WithEnabled(enabled bool) RotatorOption {
	return func(r *Rotator) { r.enabled = enabled }
}

// Rotator is the presentation state machine for one cart. Every transition
// runs on a single goroutine, so ticks, cart changes, dismissals and reads
// never interleave.
type Rotator struct {
	interval  time.Duration
	newTicker TickerFunc

	events   chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// owned by run
	enabled      bool
	suggestions  []Suggestion
	index        int
	showing      bool
	ticker       Ticker
	listeners    map[int]func(Display)
	nextListener int
}

func NewRotator(opts ...RotatorOption) *Rotator {
	r := &Rotator{
		interval:  DefaultRotationInterval,
		newTicker: NewTimeTicker,
		events:    make(chan func()),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		enabled:   true,
		listeners: make(map[int]func(Display)),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

func (r *Rotator) run() {
	defer close(r.done)
	for {
		var tick <-chan time.Time
		if r.ticker != nil {
			tick = r.ticker.C()
		}
		select {
		case fn := <-r.events:
			fn()
		case <-tick:
			r.advance()
		case <-r.quit:
			r.disarm()
			return
		}
	}
}

// do runs fn on the loop and waits for it. It reports false once the
// rotator is stopped.
func (r *Rotator) do(fn func()) bool {
	ack := make(chan struct{})
	select {
	case r.events <- func() { fn(); close(ack) }:
		<-ack
		return true
	case <-r.quit:
		return false
	}
}

// Update replaces the suggestion list after a cart or catalog change.
func (r *Rotator) Update(suggestions []Suggestion) {
	list := append([]Suggestion(nil), suggestions...)
	r.do(func() {
		r.disarm()
		r.suggestions = list
		r.index = 0
		r.showing = r.enabled && len(list) > 0
		r.arm()
		r.notify()
	})
}

// Dismiss hides the current suggestion until the next Update.
func (r *Rotator) Dismiss() {
	r.do(func() {
		r.disarm()
		if r.showing {
			r.showing = false
			r.notify()
		}
	})
}

// SetEnabled records the suggestions flag. The shown state only changes on
// the next Update.
func (r *Rotator) SetEnabled(enabled bool) {
	r.do(func() { r.enabled = enabled })
}

func (r *Rotator) Enabled() bool {
	var enabled bool
	r.do(func() { enabled = r.enabled })
	return enabled
}

func (r *Rotator) Current() Display {
	var d Display
	r.do(func() { d = r.display() })
	return d
}

// Suggestions returns the list from the last Update.
func (r *Rotator) Suggestions() []Suggestion {
	var list []Suggestion
	r.do(func() { list = append([]Suggestion(nil), r.suggestions...) })
	return list
}

// Subscribe registers fn for every display change and returns a function
// removing it. fn runs on the rotator goroutine and must not call back
// into the rotator.
func (r *Rotator) Subscribe(fn func(Display)) func() {
	id := -1
	r.do(func() {
		id = r.nextListener
		r.nextListener++
		r.listeners[id] = fn
	})
	return func() {
		if id >= 0 {
			r.do(func() { delete(r.listeners, id) })
		}
	}
}

// Follow keeps the enabled flag in sync with settings published on bus.
func (r *Rotator) Follow(bus *events.Bus) func() {
	return bus.Subscribe(events.TopicSettingsChanged, func(payload interface{}) {
		if s, ok := payload.(models.SuggestionSettings); ok {
			r.SetEnabled(s.Effective())
		}
	})
}

// Stop cancels the rotation timer and ends the loop. It is safe to call
// more than once.
func (r *Rotator) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
	<-r.done
}

func (r *Rotator) advance() {
	if !r.showing || len(r.suggestions) < 2 {
		return
	}
	r.index = (r.index + 1) % len(r.suggestions)
	r.notify()
}

func (r *Rotator) arm() {
	if r.showing && len(r.suggestions) > 1 {
		r.ticker = r.newTicker(r.interval)
	}
}

func (r *Rotator) disarm() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Rotator) display() Display {
	d := Display{Count: len(r.suggestions)}
	if !r.showing {
		return d
	}
	s := r.suggestions[r.index]
	d.Visible = true
	d.Suggestion = &s
	d.Index = r.index
	return d
}

func (r *Rotator) notify() {
	d := r.display()
	for _, fn := range r.listeners {
		fn(d)
	}
}
