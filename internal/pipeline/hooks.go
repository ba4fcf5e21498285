package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/engine"
)

// Capabilities is what a capability hook may extend on an adapter under
// construction.
type Capabilities struct {
	module     claim.Module
	middleware []engine.Middleware
	flags      map[string]bool
}

// Module is the adapter's module.
func (c *Capabilities) Module() claim.Module { return c.module }

// Use wraps the adapter's engine. Middleware registered first runs
// outermost.
func (c *Capabilities) Use(mw engine.Middleware) { c.middleware = append(c.middleware, mw) }

// Enable sets a capability flag on the adapter.
func (c *Capabilities) Enable(flag string) { c.flags[flag] = true }

// CapabilityHook runs first, once per adapter.
type CapabilityHook func(*Capabilities)

// Operation is an extra named operation on an adapter. It receives a copy
// of the view.
type Operation func(ctx context.Context, v *View) (any, error)

// OperationHook runs after every capability hook and returns named
// operations for the adapter.
type OperationHook func(m claim.Module) map[string]Operation

// OpProcess is the built-in operation every adapter has.
const OpProcess = "process"

// Hooks is an ordered registration table. Hooks are applied when adapters
// are constructed; registering later does not affect existing adapters.
type Hooks struct {
	capabilities []CapabilityHook
	operations   []OperationHook
}

// OnCapabilities registers a capability hook.
func (h *Hooks) OnCapabilities(fn CapabilityHook) { h.capabilities = append(h.capabilities, fn) }

// OnOperations registers an operation hook.
func (h *Hooks) OnOperations(fn OperationHook) { h.operations = append(h.operations, fn) }

// extension is the result of applying hooks to one adapter.
type extension struct {
	engine     engine.Engine
	flags      map[string]bool
	operations map[string]Operation
}

func (h *Hooks) apply(m claim.Module, e engine.Engine) (extension, error) {
	caps := &Capabilities{module: m, flags: make(map[string]bool)}
	ops := make(map[string]Operation)
	if h != nil {
		for _, fn := range h.capabilities {
			fn(caps)
		}
		for i, fn := range h.operations {
			named := fn(m)
			names := make([]string, 0, len(named))
			for name := range named {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if name == OpProcess {
					return extension{}, fmt.Errorf("operation hook %d on %s: %q shadows a built-in operation", i, m, name)
				}
				if _, dup := ops[name]; dup {
					return extension{}, fmt.Errorf("operation hook %d on %s: operation %q already registered", i, m, name)
				}
				ops[name] = named[name]
			}
		}
	}
	return extension{
		engine:     engine.Chain(e, caps.middleware...),
		flags:      caps.flags,
		operations: ops,
	}, nil
}
