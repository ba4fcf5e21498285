// Package engine defines the contract between myelin and the external
// grouper, editor and pricer engines.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/myelin/internal/claim"
)

// Severity grades a return code.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ReturnCode is one engine message. Business rule failures arrive as codes
// with SeverityError, not as Go errors.
type ReturnCode struct {
	Code        string   `json:"code"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`
}

// Request is one engine invocation.
type Request struct {
	ClaimID string       `json:"claim_id"`
	Module  claim.Module `json:"module"`
	Family  claim.Family `json:"family"`
	Payload any          `json:"payload"`
}

// Response is what an engine returned.
type Response struct {
	Version string           `json:"version,omitempty"`
	Primary string           `json:"primary,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Codes   []ReturnCode     `json:"codes,omitempty"`
	Detail  json.RawMessage  `json:"detail,omitempty"`
}

// Engine invokes one module. Errors are integration failures only.
type Engine interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// Func adapts an in-process function to Engine.
type Func func(ctx context.Context, req Request) (*Response, error)

func (f Func) Call(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }

// Middleware wraps an Engine.
type Middleware func(Engine) Engine

// Chain applies mw so the first middleware is outermost.
func Chain(e Engine, mw ...Middleware) Engine {
	for i := len(mw) - 1; i >= 0; i-- {
		e = mw[i](e)
	}
	return e
}

// WithLogging logs every call at debug with its duration.
func WithLogging(log zerolog.Logger) Middleware {
	return func(next Engine) Engine {
		return Func(func(ctx context.Context, req Request) (*Response, error) {
			start := time.Now()
			resp, err := next.Call(ctx, req)
			ev := log.Debug()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			ev.Str("claim_id", req.ClaimID).
				Str("module", string(req.Module)).
				Dur("elapsed", time.Since(start)).
				Msg("engine call")
			return resp, err
		})
	}
}

// ExternalEngineError wraps an integration failure from an engine.
type ExternalEngineError struct {
	ClaimID string
	Module  claim.Module
	Err     error
}

func (e *ExternalEngineError) Error() string {
	return fmt.Sprintf("engine %s failed for claim %s: %v", e.Module, e.ClaimID, e.Err)
}

func (e *ExternalEngineError) Unwrap() error { return e.Err }

// Registry maps modules to engines.
type Registry struct {
	engines map[claim.Module]Engine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[claim.Module]Engine)}
}

// Register binds e to m, replacing any earlier binding.
func (r *Registry) Register(m claim.Module, e Engine) {
	r.engines[m] = e
}

// Lookup returns the engine for m.
func (r *Registry) Lookup(m claim.Module) (Engine, bool) {
	e, ok := r.engines[m]
	return e, ok
}

// Modules lists the registered modules in canonical order.
func (r *Registry) Modules() []claim.Module {
	var out []claim.Module
	for _, m := range claim.AllModules {
		if _, ok := r.engines[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
