package pipeline

import (
	"fmt"
	"strings"

	"github.com/gyeh/myelin/internal/claim"
)

// Requirement is one upstream output a stage needs.
type Requirement struct {
	Module   claim.Module
	Optional bool
	// FromClaim, when set, can satisfy the requirement from claim data.
	FromClaim func(*claim.Claim) (*StageOutput, bool)
}

// Revenue codes whose HCPCS field carries a grouper result.
const (
	revenueHHAHIPPS = "0023"
	revenueIRFCMG   = "0024"
)

var dependencies = map[claim.Module][]Requirement{
	claim.IPPS:  {{Module: claim.MSDRG, FromClaim: claimDRG}},
	claim.LTCH:  {{Module: claim.MSDRG}},
	claim.PSYCH: {{Module: claim.MSDRG}},
	claim.IRF:   {{Module: claim.CMG, FromClaim: revenueLineCode(claim.CMG, revenueIRFCMG)}},
	claim.HHA:   {{Module: claim.HHAG, FromClaim: revenueLineCode(claim.HHAG, revenueHHAHIPPS)}},
	claim.OPPS:  {{Module: claim.IOCE, Optional: true}},
	claim.FQHC:  {{Module: claim.IOCE}},
}

// Dependencies returns the upstream requirements of m.
func Dependencies(m claim.Module) []Requirement {
	return append([]Requirement(nil), dependencies[m]...)
}

func claimDRG(c *claim.Claim) (*StageOutput, bool) {
	if c.AdditionalData.DRG == "" {
		return nil, false
	}
	return ClaimSourced(claim.MSDRG, c.AdditionalData.DRG), true
}

func revenueLineCode(m claim.Module, revenue string) func(*claim.Claim) (*StageOutput, bool) {
	return func(c *claim.Claim) (*StageOutput, bool) {
		for _, l := range c.Lines {
			if l.RevenueCode == revenue && strings.TrimSpace(l.HCPCS) != "" {
				return ClaimSourced(m, strings.TrimSpace(l.HCPCS)), true
			}
		}
		return nil, false
	}
}

// DependencyError means a stage was invoked without a required upstream
// output, or with one of the wrong kind. The engine is never called.
type DependencyError struct {
	Module  claim.Module
	Missing claim.Module
	Got     claim.Module // set when an output of the wrong module was supplied
	Cause   error        // set when the upstream stage itself failed
}

func (e *DependencyError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s requires %s output: upstream failed: %v", e.Module, e.Missing, e.Cause)
	case e.Got != "":
		return fmt.Sprintf("%s requires %s output, got %s", e.Module, e.Missing, e.Got)
	}
	return fmt.Sprintf("%s requires %s output", e.Module, e.Missing)
}

func (e *DependencyError) Unwrap() error { return e.Cause }

// satisfy matches upstream outputs to m's requirements. Missing optional
// requirements are left out of the result.
func satisfy(m claim.Module, c *claim.Claim, upstream []*StageOutput) (map[claim.Module]*StageOutput, error) {
	reqs := dependencies[m]
	out := make(map[claim.Module]*StageOutput, len(reqs))
	for _, req := range reqs {
		var wrong claim.Module
		for _, u := range upstream {
			if u == nil {
				continue
			}
			if u.Module() == req.Module {
				out[req.Module] = u
				break
			}
			if u.Family() == req.Module.Family() && wrong == "" {
				wrong = u.Module()
			}
		}
		if _, ok := out[req.Module]; ok {
			continue
		}
		if wrong != "" {
			return nil, &DependencyError{Module: m, Missing: req.Module, Got: wrong}
		}
		if req.FromClaim != nil {
			if o, ok := req.FromClaim(c); ok {
				out[req.Module] = o
				continue
			}
		}
		if !req.Optional {
			return nil, &DependencyError{Module: m, Missing: req.Module}
		}
	}
	return out, nil
}
