package claim

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/gyeh/myelin/internal/model"
)

// AdditionalData holds claim-level inputs for individual pricers. Each
// subsystem has a fixed schema; unknown subsystems or fields fail decoding.
type AdditionalData struct {
	IPPS *IPPSData `json:"ipps,omitempty"`
	IRF  *IRFData  `json:"irf,omitempty"`
	SNF  *SNFData  `json:"snf,omitempty"`
	HHA  *HHAData  `json:"hha,omitempty"`
	ESRD *ESRDData `json:"esrd,omitempty"`
	FQHC *FQHCData `json:"fqhc,omitempty"`
	// DRG is a precomputed MS-DRG used when the claim skips the grouper.
	DRG string `json:"drg,omitempty" validate:"omitempty,max=3,numeric"`
}

type IPPSData struct {
	ReviewCode                    string `json:"review_code" validate:"omitempty,len=2,numeric"`
	LifetimeReserveDays           int    `json:"lifetime_reserve_days" validate:"gte=0"`
	MidnightAdjustmentGeolocation string `json:"midnight_adjustment_geolocation"`
}

type IRFData struct {
	LifetimeReserveDays int `json:"lifetime_reserve_days" validate:"gte=0"`
}

type SNFData struct {
	PriorPDPMDays int `json:"prior_pdpm_days" validate:"gte=0"`
}

type HHAData struct {
	AdjustmentIndicator                            string          `json:"adjustment_indicator" validate:"omitempty,max=1"`
	InitialPaymentQualityReportingProgramIndicator string          `json:"initial_payment_quality_reporting_program_indicator" validate:"omitempty,max=1"`
	LateFilingPenaltyWaiverIndicator               string          `json:"late_filing_penalty_waiver_indicator" validate:"omitempty,max=1"`
	PriorPaymentTotal                              decimal.Decimal `json:"prior_payment_total" validate:"gte=0"`
	PriorOutlierTotal                              decimal.Decimal `json:"prior_outlier_total" validate:"gte=0"`
}

// ESRDData carries the ESRD treatment choices model inputs. A PPA adjustment
// is required when ECTChoice is P or B.
type ESRDData struct {
	ECTChoice     string   `json:"ect_choice" validate:"omitempty,oneof=H P B"`
	PPAAdjustment *float64 `json:"ppa_adjustment,omitempty"`
}

type FQHCData struct {
	MDPCPReductionPercentage float64         `json:"mdpcp_reduction_percentage" validate:"gte=0,lte=100"`
	MedAdvantagePlanAmount   decimal.Decimal `json:"med_advantage_plan_amount" validate:"gte=0"`
}

func (a *AdditionalData) UnmarshalJSON(b []byte) error {
	type plain AdditionalData
	var out plain
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return fmt.Errorf("additional_data: %w", err)
	}
	*a = AdditionalData(out)
	return nil
}

// ProviderData holds per-provider overrides of provider specific file
// attributes, keyed by variant ("ipsf", "opsf").
type ProviderData struct {
	overrides map[model.Variant]model.Override
}

// NewProviderData builds validated provider overrides from raw attribute
// maps keyed by subsystem name.
func NewProviderData(raw map[string]map[string]any) (ProviderData, error) {
	out := ProviderData{overrides: make(map[model.Variant]model.Override, len(raw))}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := model.ParseVariant(k)
		if err != nil {
			return ProviderData{}, fmt.Errorf("provider additional_data: %w", err)
		}
		ov, err := model.ParseOverride(v, raw[k])
		if err != nil {
			return ProviderData{}, err
		}
		out.overrides[v] = ov
	}
	return out, nil
}

// Override returns the override for variant v; the zero Override when none
// was supplied.
func (p ProviderData) Override(v model.Variant) model.Override {
	return p.overrides[v]
}

func (p *ProviderData) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ProviderData{}
		return nil
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("provider additional_data: %w", err)
	}
	pd, err := NewProviderData(raw)
	if err != nil {
		return err
	}
	*p = pd
	return nil
}

func (p ProviderData) MarshalJSON() ([]byte, error) {
	out := make(map[model.Variant]model.Override, len(p.overrides))
	for k, v := range p.overrides {
		if !v.IsZero() {
			out[k] = v
		}
	}
	return json.Marshal(out)
}
