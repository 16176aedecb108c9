package app

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cardfolio/gocard/internal/store"
)

// Phase is the init sequencer's lifecycle state. There is no terminal
// failure: an errored hydrator can always be retried.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseReady        Phase = "ready"
	PhaseError        Phase = "error"
)

// Hydrator orchestrates store-open, initial load and mark-ready.
// Until it is ready the UI shell must not render over an unopened
// store. Retries re-run the full sequence; attempts are independent
// and no backoff is applied between them.
type Hydrator struct {
	mu      sync.Mutex
	open    func() (store.Storer, error)
	appOpts []Option
	seed    bool
	log     *zap.Logger

	phase Phase
	err   error
	app   *App
}

// HydratorOption configures a Hydrator.
type HydratorOption func(*Hydrator)

// WithSeedData inserts the demo folders on first run when the store
// comes up empty.
func WithSeedData() HydratorOption {
	return func(h *Hydrator) { h.seed = true }
}

// WithHydratorLogger attaches a structured logger, also passed down
// to the App it builds.
func WithHydratorLogger(log *zap.Logger) HydratorOption {
	return func(h *Hydrator) {
		h.log = log
		h.appOpts = append(h.appOpts, WithLogger(log))
	}
}

// WithAppOptions forwards options to the App built on success.
func WithAppOptions(opts ...Option) HydratorOption {
	return func(h *Hydrator) { h.appOpts = append(h.appOpts, opts...) }
}

// NewHydrator builds a sequencer around a store-open function. The
// open function is invoked once per attempt.
func NewHydrator(open func() (store.Storer, error), opts ...HydratorOption) *Hydrator {
	h := &Hydrator{
		open:  open,
		log:   zap.NewNop(),
		phase: PhaseInitializing,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Status reports the current phase and, in the error phase, what
// went wrong.
func (h *Hydrator) Status() (Phase, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.phase, h.err
}

// App returns the hydrated application, nil until ready.
func (h *Hydrator) App() *App {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.app
}

// Run executes the open-load-ready sequence. Idempotent: once ready,
// further calls return the live App without reopening anything.
func (h *Hydrator) Run() (*App, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase == PhaseReady {
		return h.app, nil
	}
	h.phase = PhaseInitializing
	h.err = nil

	st, err := h.open()
	if err != nil {
		h.log.Error("store open failed", zap.Error(err))
		h.phase = PhaseError
		h.err = err
		return nil, err
	}

	a := New(st, h.appOpts...)

	if h.seed {
		if err := seedIfEmpty(a); err != nil {
			// Seed data is a convenience, not a hydration requirement.
			h.log.Warn("demo seed failed", zap.Error(err))
		}
	}

	if err := a.ReloadFromStore(); err != nil {
		h.log.Error("initial load failed", zap.Error(err))
		// A retry opens a fresh handle, so this one must not leak.
		if cerr := st.Close(); cerr != nil {
			h.log.Warn("store close after failed load", zap.Error(cerr))
		}
		h.phase = PhaseError
		h.err = err
		return nil, err
	}

	h.app = a
	h.phase = PhaseReady
	h.log.Info("hydration complete", zap.Int("folders", len(a.State().Folders)))
	return a, nil
}

// Retry re-runs the full open sequence after a failure.
func (h *Hydrator) Retry() (*App, error) {
	return h.Run()
}
