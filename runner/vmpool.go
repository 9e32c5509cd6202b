package runner

import (
	"github.com/fusabi-lang/fusabi-host/bytecode"
	"github.com/fusabi-lang/fusabi-host/vm"
)

// Engine is the VM capability boundary: execute a chunk, report a value or
// a trap. The runner never inspects values beyond propagating them.
type Engine interface {
	Execute(c *bytecode.Chunk) (vm.Value, error)
}

// VMPool hands out exclusive engine leases. A single engine instance is
// never invoked concurrently from two trackers: an engine is unavailable
// to everyone else between Acquire and Release.
type VMPool struct {
	engines chan Engine
}

// NewVMPool creates a pool of n engines built by newEngine.
func NewVMPool(n int, newEngine func() Engine) *VMPool {
	if n < 1 {
		n = 1
	}
	p := &VMPool{engines: make(chan Engine, n)}
	for i := 0; i < n; i++ {
		p.engines <- newEngine()
	}
	return p
}

// Acquire takes an exclusive lease on an engine, blocking until one is
// free.
func (p *VMPool) Acquire() Engine {
	return <-p.engines
}

// Release returns a leased engine to the pool.
func (p *VMPool) Release(e Engine) {
	p.engines <- e
}
