// Package pipeline wires the loader, artifact store, hot-reload coordinator
// and runner into the single object a host embeds: push events from the
// asset source, bind owners to scripts, call Tick once per frame.
package pipeline

import (
	"github.com/fusabi-lang/fusabi-host/cache"
	"github.com/fusabi-lang/fusabi-host/compiler"
	"github.com/fusabi-lang/fusabi-host/loader"
	"github.com/fusabi-lang/fusabi-host/reload"
	"github.com/fusabi-lang/fusabi-host/runner"
	"github.com/fusabi-lang/fusabi-host/script"
	"github.com/fusabi-lang/fusabi-host/vm"
)

// Config configures a pipeline. The zero value gets the bundled Fusabi
// compiler, one VM engine, and no compile cache.
type Config struct {
	// Compile is the compiler capability. Defaults to compiler.Compile.
	Compile loader.CompileFunc

	// NewEngine builds one VM engine for the pool. Defaults to vm.New.
	NewEngine func() runner.Engine

	// Engines is the VM pool size. Defaults to 1.
	Engines int

	// Cache is an optional compile cache.
	Cache *cache.CompileCache

	// RetryOnTrap selects the trap policy (see runner.Runner).
	RetryOnTrap bool
}

// Pipeline is the host-facing composition of the script asset lifecycle.
type Pipeline struct {
	Store    *script.Store
	Loader   *loader.Loader
	Trackers *runner.TrackerSet
	Queue    *reload.Queue

	coordinator *reload.Coordinator
	runner      *runner.Runner
}

// New builds a pipeline from the configuration.
func New(cfg Config) *Pipeline {
	compile := cfg.Compile
	if compile == nil {
		compile = compiler.Compile
	}
	newEngine := cfg.NewEngine
	if newEngine == nil {
		newEngine = func() runner.Engine { return vm.New() }
	}
	engines := cfg.Engines
	if engines < 1 {
		engines = 1
	}

	store := script.NewStore()
	l := loader.New(compile)
	if cfg.Cache != nil {
		l.UseCache(cfg.Cache)
	}
	trackers := runner.NewTrackerSet(store)
	queue := reload.NewQueue()
	pool := runner.NewVMPool(engines, newEngine)

	r := runner.NewRunner(store, trackers, pool)
	r.RetryOnTrap = cfg.RetryOnTrap

	return &Pipeline{
		Store:       store,
		Loader:      l,
		Trackers:    trackers,
		Queue:       queue,
		coordinator: reload.NewCoordinator(store, l, queue),
		runner:      r,
	}
}

// Push enqueues a lifecycle event from the asset source. Safe to call from
// any goroutine.
func (p *Pipeline) Push(e reload.Event) {
	p.Queue.Push(e)
}

// Bind creates a tracker for an owner targeting an artifact identity.
func (p *Pipeline) Bind(owner runner.OwnerID, id script.ArtifactID) *runner.Tracker {
	return p.Trackers.Bind(owner, id)
}

// Unbind removes an owner's tracker.
func (p *Pipeline) Unbind(owner runner.OwnerID) bool {
	return p.Trackers.Unbind(owner)
}

// Tick advances the pipeline by one host tick: all queued events are
// applied first, then the runner scans trackers, so a reload and its
// effect on trackers are visible within the same tick.
func (p *Pipeline) Tick() ([]runner.Outcome, []reload.Diagnostic) {
	diags := p.coordinator.Drain()
	outcomes := p.runner.Tick()
	return outcomes, diags
}
