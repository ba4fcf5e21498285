package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/engine"
	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/refdata"
)

// ErrNoEngine means a claim requested a module with no configured engine.
var ErrNoEngine = errors.New("no engine configured")

// Note codes added to a view while it is prepared.
const (
	NoteConversionSkipped = "ICD_CONVERSION_SKIPPED"
	NoteAmbiguous         = "ICD_AMBIGUOUS"
	NoteUnconvertible     = "ICD_UNCONVERTIBLE"
)

// Orchestrator prepares resolved views and runs stages in dependency order.
type Orchestrator struct {
	holder *refdata.Holder
	policy icd.Policy
	stages map[claim.Module]Stage
	log    zerolog.Logger
}

// New builds one adapter per registered engine. Hooks are applied to each
// adapter as it is constructed.
func New(holder *refdata.Holder, engines *engine.Registry, policy icd.Policy, hooks *Hooks, log zerolog.Logger) (*Orchestrator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		holder: holder,
		policy: policy,
		stages: make(map[claim.Module]Stage),
		log:    log,
	}
	resolver := refdata.NewResolver(holder)
	for _, m := range engines.Modules() {
		e, _ := engines.Lookup(m)
		s, err := NewStage(m, e, resolver, hooks)
		if err != nil {
			return nil, fmt.Errorf("build %s adapter: %w", m, err)
		}
		o.stages[m] = s
	}
	return o, nil
}

// Stage returns the adapter for m.
func (o *Orchestrator) Stage(m claim.Module) (Stage, bool) {
	s, ok := o.stages[m]
	return s, ok
}

// Converter returns an ICD converter over the current snapshot.
func (o *Orchestrator) Converter() (*icd.Converter, error) {
	snap := o.holder.Load()
	if snap == nil || snap.Mapper() == nil {
		return nil, errors.New("no reference snapshot loaded")
	}
	return icd.NewConverter(snap.Mapper(), o.policy)
}

// Prepare validates c and builds its resolved view. A requested ICD
// conversion that cannot run leaves the billed codes in place and adds a
// warning note.
func (o *Orchestrator) Prepare(c *claim.Claim) (*View, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	v := NewView(c)
	d, ok := icd.DirectiveFor(v.claim)
	if !ok {
		return v, nil
	}

	cv, err := o.Converter()
	var res *icd.Result
	if err == nil {
		res, err = cv.GenerateClaimMappings(v.claim, d)
	}
	if err != nil {
		o.log.Warn().Err(err).Str("claim_id", c.ClaimID).Msg("icd conversion skipped")
		v.notes = append(v.notes, engine.ReturnCode{
			Code:        NoteConversionSkipped,
			Description: err.Error(),
			Severity:    engine.SeverityWarning,
		})
		return v, nil
	}

	v.claim = icd.ApplyMappings(v.claim, res)
	v.conversion = res
	for _, m := range res.Mappings {
		switch m.Status {
		case icd.StatusAmbiguous:
			v.notes = append(v.notes, engine.ReturnCode{
				Code:        NoteAmbiguous,
				Description: fmt.Sprintf("%s → %s chosen from %v", m.Code, m.Chosen, m.Resolved),
				Severity:    engine.SeverityInfo,
			})
		case icd.StatusUnconvertible:
			v.notes = append(v.notes, engine.ReturnCode{
				Code:        NoteUnconvertible,
				Description: fmt.Sprintf("%s kept as billed; no mapping from %s", m.Code, m.StoppedAt),
				Severity:    engine.SeverityInfo,
			})
		}
	}
	return v, nil
}

// Invoke runs one stage independently. The caller supplies whatever
// upstream outputs the stage requires.
func (o *Orchestrator) Invoke(ctx context.Context, m claim.Module, v *View, upstream ...*StageOutput) (*StageOutput, error) {
	s, ok := o.stages[m]
	if !ok {
		return nil, fmt.Errorf("%s: %w", m, ErrNoEngine)
	}
	start := time.Now()
	out, err := s.Process(ctx, v, upstream...)
	ev := o.log.Debug()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Str("claim_id", v.ClaimID()).
		Str("module", string(m)).
		Dur("elapsed", time.Since(start)).
		Msg("stage processed")
	return out, err
}

// StageResult is one stage of a run: an output or an error.
type StageResult struct {
	Module claim.Module
	Output *StageOutput
	Err    error
}

type stageErrorJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (r StageResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Module claim.Module    `json:"module"`
		Output *StageOutput    `json:"output,omitempty"`
		Error  *stageErrorJSON `json:"error,omitempty"`
	}{Module: r.Module, Output: r.Output}
	if r.Err != nil {
		out.Error = &stageErrorJSON{Kind: ErrorKind(r.Err), Message: r.Err.Error()}
	}
	return json.Marshal(out)
}

// RunResult is the outcome of an assisted run.
type RunResult struct {
	RunID      string              `json:"run_id"`
	ClaimID    string              `json:"claim_id"`
	Setting    claim.Setting       `json:"setting"`
	Conversion *icd.Result         `json:"conversion,omitempty"`
	Notes      []engine.ReturnCode `json:"notes,omitempty"`
	Stages     []StageResult       `json:"stages"`
}

// Output returns the output of module m, if it ran successfully.
func (r *RunResult) Output(m claim.Module) (*StageOutput, bool) {
	for _, s := range r.Stages {
		if s.Module == m && s.Output != nil {
			return s.Output, true
		}
	}
	return nil, false
}

// Err returns the error of module m, if it failed.
func (r *RunResult) Err(m claim.Module) error {
	for _, s := range r.Stages {
		if s.Module == m {
			return s.Err
		}
	}
	return nil
}

// Failed counts stages that ended in an error.
func (r *RunResult) Failed() int {
	n := 0
	for _, s := range r.Stages {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Run prepares c and runs its requested modules: editors, then groupers,
// then pricers, canonical order within a family. A failed stage does not
// stop its siblings; stages that depend on it fail with DependencyError.
func (o *Orchestrator) Run(ctx context.Context, c *claim.Claim) (*RunResult, error) {
	v, err := o.Prepare(c)
	if err != nil {
		return nil, err
	}
	res := &RunResult{
		RunID:      v.RunID().String(),
		ClaimID:    v.ClaimID(),
		Setting:    v.Setting(),
		Conversion: v.Conversion(),
		Notes:      v.Notes(),
	}

	outputs := make(map[claim.Module]*StageOutput)
	failed := make(map[claim.Module]error)
	for _, m := range runOrder(c.Modules) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var upstream []*StageOutput
		var depErr error
		for _, req := range dependencies[m] {
			if out, ok := outputs[req.Module]; ok {
				upstream = append(upstream, out)
				continue
			}
			if cause, ok := failed[req.Module]; ok && !req.Optional {
				depErr = &DependencyError{Module: m, Missing: req.Module, Cause: cause}
				break
			}
		}
		if depErr != nil {
			failed[m] = depErr
			res.Stages = append(res.Stages, StageResult{Module: m, Err: depErr})
			continue
		}

		out, err := o.Invoke(ctx, m, v, upstream...)
		if err != nil {
			failed[m] = err
			res.Stages = append(res.Stages, StageResult{Module: m, Err: err})
			continue
		}
		outputs[m] = out
		res.Stages = append(res.Stages, StageResult{Module: m, Output: out})
	}
	return res, nil
}

// runOrder deduplicates modules and sorts them canonically.
func runOrder(mods []claim.Module) []claim.Module {
	seen := make(map[claim.Module]bool, len(mods))
	var out []claim.Module
	for _, m := range mods {
		if !seen[m] && m.Valid() {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}

// ErrorKind classifies err for callers that report stage failures.
func ErrorKind(err error) string {
	var (
		ve *claim.ValidationError
		de *DependencyError
		ee *engine.ExternalEngineError
		ce *icd.ConversionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &de):
		return "dependency"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, refdata.ErrReferenceDataNotFound):
		return "reference_data_not_found"
	case errors.As(err, &ee):
		return "engine"
	case errors.As(err, &ce):
		return "conversion"
	case errors.Is(err, ErrNoEngine):
		return "no_engine"
	}
	return "internal"
}
