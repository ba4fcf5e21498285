package pipeline

import (
	"github.com/google/uuid"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/engine"
	"github.com/gyeh/myelin/internal/icd"
)

// View is the resolved claim handed to adapters: a private copy of the
// claim with conversions applied. Accessors return copies, so nothing
// downstream can change resolved state.
type View struct {
	runID      uuid.UUID
	claim      *claim.Claim
	setting    claim.Setting
	conversion *icd.Result
	notes      []engine.ReturnCode
}

// NewView wraps a copy of c without conversion.
func NewView(c *claim.Claim) *View {
	cp := c.Clone()
	return &View{runID: uuid.New(), claim: cp, setting: cp.ResolveSetting()}
}

// RunID identifies the processing run the view was prepared for.
func (v *View) RunID() uuid.UUID { return v.runID }

// ClaimID is the claim's identifier.
func (v *View) ClaimID() string { return v.claim.ClaimID }

// Claim returns a copy of the resolved claim.
func (v *View) Claim() *claim.Claim { return v.claim.Clone() }

// Setting is the declared or inferred care setting.
func (v *View) Setting() claim.Setting { return v.setting }

// Conversion is the ICD conversion applied to the view, or nil.
func (v *View) Conversion() *icd.Result { return v.conversion }

// Notes are informational codes raised while preparing the view.
func (v *View) Notes() []engine.ReturnCode {
	return append([]engine.ReturnCode(nil), v.notes...)
}

func (v *View) clone() *View {
	cp := *v
	cp.claim = v.claim.Clone()
	cp.notes = v.Notes()
	return &cp
}
