package workspace

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/config"
	"github.com/perimetrix/fieldclinic/datasync"
	"github.com/perimetrix/fieldclinic/gateway"
	"github.com/perimetrix/fieldclinic/preferences"
	"github.com/perimetrix/fieldclinic/state"
	"github.com/perimetrix/fieldclinic/testrun"
)

// Workspace is everything one signed in clinician works with. The data-sync service
// and the test runner share the workspace store.
type Workspace struct {
	Store  *state.Store
	Sync   *datasync.Service
	Runner *testrun.Runner

	loadOnce sync.Once
}

// load fetches all collections once. A failed load is recorded in the store and
// retried through Reload.
func (w *Workspace) load(ctx context.Context, logger *zap.SugaredLogger) {
	w.loadOnce.Do(func() {
		if err := w.Sync.Load(ctx); err != nil {
			logger.Warnw("unable to load workspace", "userId", w.Store.UserId(), "error", err)
		}
	})
}

func (w *Workspace) Reload(ctx context.Context) error {
	return w.Sync.Load(ctx)
}

// Sources builds the data-sync service and test runner of a new workspace.
type Sources interface {
	Sync(store *state.Store) *datasync.Service
	Simulator() testrun.Simulator
}

type gatewaySources struct {
	gateway *gateway.Gateway
	seed    int64
	logger  *zap.SugaredLogger
}

func (g *gatewaySources) Sync(store *state.Store) *datasync.Service {
	return datasync.NewService(g.gateway, store, g.logger)
}

func (g *gatewaySources) Simulator() testrun.Simulator {
	seed := g.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return testrun.NewRandomSimulator(seed)
}

type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	sources    Sources
	prefs      preferences.Store
	clock      testrun.Clock
	options    testrun.Options
	logger     *zap.SugaredLogger
}

type Params struct {
	fx.In

	Gateway     *gateway.Gateway
	Preferences preferences.Store
	Config      *config.Config
	Logger      *zap.SugaredLogger
	Lifecycle   fx.Lifecycle
}

func NewRegistry(p Params) *Registry {
	sources := &gatewaySources{
		gateway: p.Gateway,
		seed:    p.Config.SimulationRandomSeed,
		logger:  p.Logger,
	}
	registry := NewRegistryWithSources(sources, p.Preferences, testrun.NewRealClock(), OptionsFromConfig(p.Config), p.Logger)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			registry.Close()
			return nil
		},
	})
	return registry
}

func NewRegistryWithSources(sources Sources, prefs preferences.Store, clock testrun.Clock, options testrun.Options, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		workspaces: make(map[string]*Workspace),
		sources:    sources,
		prefs:      prefs,
		clock:      clock,
		options:    options,
		logger:     logger,
	}
}

func OptionsFromConfig(cfg *config.Config) testrun.Options {
	return testrun.Options{
		PersistCancelled:  cfg.PersistCancelledRuns,
		SaveRedirectDelay: cfg.SaveRedirectDelay,
		TickInterval:      testrun.DefaultTickInterval,
	}
}

// Get returns the workspace of the user, creating and loading it on first access.
// ctx must carry the user's authentication data.
func (r *Registry) Get(ctx context.Context, userId string) *Workspace {
	r.mu.Lock()
	w, ok := r.workspaces[userId]
	if !ok {
		store := state.New(userId, r.prefs, r.logger)
		syncer := r.sources.Sync(store)
		w = &Workspace{
			Store:  store,
			Sync:   syncer,
			Runner: testrun.NewRunner(store, syncer, r.sources.Simulator(), r.clock, r.options, r.logger.With("userId", userId)),
		}
		r.workspaces[userId] = w
		r.logger.Infow("workspace created", "userId", userId)
	}
	r.mu.Unlock()

	w.load(ctx, r.logger)
	return w
}

// Discard drops the workspace of a user who signed out.
func (r *Registry) Discard(userId string) {
	r.mu.Lock()
	w, ok := r.workspaces[userId]
	delete(r.workspaces, userId)
	r.mu.Unlock()

	if ok {
		w.Runner.Close()
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userId, w := range r.workspaces {
		w.Runner.Close()
		delete(r.workspaces, userId)
	}
}
