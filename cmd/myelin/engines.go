package main

import (
	"os"

	"github.com/gyeh/myelin/internal/engine"
	"github.com/gyeh/myelin/internal/exitcode"
	"github.com/gyeh/myelin/internal/pipeline"
	"github.com/gyeh/myelin/internal/refdata"
)

// newOrchestrator registers an HTTP engine for every configured module.
// Every engine call is logged at debug.
func newOrchestrator(holder *refdata.Holder) *pipeline.Orchestrator {
	reg := engine.NewRegistry()
	for m, e := range cfg.Engines {
		reg.Register(m, engine.NewHTTP(e.URL, e.Timeout))
	}

	hooks := &pipeline.Hooks{}
	hooks.OnCapabilities(func(c *pipeline.Capabilities) {
		c.Use(engine.WithLogging(log))
	})

	orch, err := pipeline.New(holder, reg, cfg.ICD, hooks, log)
	if err != nil {
		log.Error().Err(err).Msg("orchestrator setup failed")
		os.Exit(exitcode.UsageError)
	}
	return orch
}

// exitCodeFor maps a claim processing error to an exit code.
func exitCodeFor(err error) int {
	switch pipeline.ErrorKind(err) {
	case "validation", "conversion":
		return exitcode.ValidationError
	case "reference_data_not_found":
		return exitcode.RefDataError
	case "engine", "no_engine":
		return exitcode.EngineError
	case "dependency":
		return exitcode.DependencyError
	}
	return exitcode.UsageError
}
