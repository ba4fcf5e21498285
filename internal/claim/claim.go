package claim

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/gyeh/myelin/internal/normalize"
)

// Date is a calendar date that decodes from "2006-01-02", "20060102",
// "01/02/2006" or RFC 3339.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		d.Time = time.Time{}
		return nil
	}
	t := normalize.ParseDate(s)
	if t == nil {
		return &time.ParseError{Layout: "2006-01-02", Value: s, Message: ": unrecognized date"}
	}
	d.Time = normalize.Day(*t)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// Claim is the canonical in-memory representation of an institutional claim.
type Claim struct {
	ClaimID         string          `json:"claimid"`
	FromDate        Date            `json:"from_date" validate:"required"`
	ThruDate        Date            `json:"thru_date" validate:"required"`
	LOS             int             `json:"los" validate:"gte=0"`
	BillType        string          `json:"bill_type" validate:"omitempty,min=3,max=4,numeric"`
	PatientStatus   string          `json:"patient_status" validate:"omitempty,max=2"`
	TotalCharges    decimal.Decimal `json:"total_charges" validate:"gte=0"`
	NonCoveredDays  int             `json:"non_covered_days" validate:"gte=0"`
	Setting         Setting         `json:"setting,omitempty" validate:"omitempty,setting"`
	AdmitDate       Date            `json:"admit_date"`
	AdmissionSource string          `json:"admission_source"`
	ReceiptDate     Date            `json:"receipt_date"`
	ESRDInitialDate Date            `json:"esrd_initial_date"`
	HMO             bool            `json:"hmo"`
	OPPSFlag        int             `json:"opps_flag,omitempty" validate:"omitempty,oneof=1 2"`

	Patient           Patient   `json:"patient"`
	BillingProvider   *Provider `json:"billing_provider,omitempty"`
	ServicingProvider *Provider `json:"servicing_provider,omitempty"`

	PrincipalDx  *DiagnosisCode  `json:"principal_dx,omitempty"`
	AdmitDx      *DiagnosisCode  `json:"admit_dx,omitempty"`
	SecondaryDxs []DiagnosisCode `json:"secondary_dxs" validate:"dive"`
	RFVDx        []string        `json:"rfvdx"`
	InpatientPxs []ProcedureCode `json:"inpatient_pxs" validate:"dive"`
	Lines        []LineItem      `json:"lines" validate:"dive"`

	CondCodes       []string         `json:"cond_codes" validate:"dive,max=2"`
	ValueCodes      []ValueCode      `json:"value_codes" validate:"dive"`
	OccurrenceCodes []OccurrenceCode `json:"occurrence_codes" validate:"dive"`
	SpanCodes       []SpanCode       `json:"span_codes" validate:"dive"`
	DemoCodes       []string         `json:"demo_codes"`

	OASIS  *OASISAssessment `json:"oasis_assessment,omitempty"`
	IRFPAI *IRFPAI          `json:"irf_pai,omitempty"`

	ICDConvert     *ConvertDirective `json:"icd_convert,omitempty"`
	AdditionalData AdditionalData    `json:"additional_data"`
	Modules        []Module          `json:"modules" validate:"dive,module"`
}

// Patient identifies the beneficiary.
type Patient struct {
	PatientID           string  `json:"patient_id"`
	FirstName           string  `json:"first_name"`
	LastName            string  `json:"last_name"`
	MiddleName          string  `json:"middle_name"`
	DateOfBirth         Date    `json:"date_of_birth"`
	MedicalRecordNumber string  `json:"medical_record_number"`
	Address             Address `json:"address"`
	Age                 int     `json:"age" validate:"gte=0,lte=124"`
	Sex                 string  `json:"sex" validate:"omitempty,oneof=M F U 0 1 2"`
}

// Address is a postal address.
type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Zip4     string `json:"zip4"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
	Fax      string `json:"fax"`
}

// Provider is a billing or servicing provider on the claim. OtherID carries
// the CMS certification number.
type Provider struct {
	NPI            string       `json:"npi" validate:"omitempty,len=10,numeric"`
	OtherID        string       `json:"other_id"`
	FacilityName   string       `json:"facility_name"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	ContractID     string       `json:"contract_id"`
	Address        Address      `json:"address"`
	Carrier        string       `json:"carrier"`
	Locality       string       `json:"locality"`
	AdditionalData ProviderData `json:"additional_data"`
}

// POA is a present-on-admission indicator.
type POA string

const (
	POAYes          POA = "Y"
	POANo           POA = "N"
	POAUndetermined POA = "W"
	POAInsufficient POA = "U"
	POAExemptOne    POA = "1"
	POAExempt       POA = "E"
	POABlank        POA = ""
)

// UnmarshalJSON collapses unrecognized indicators to blank.
func (p *POA) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*p = POABlank
		return nil
	}
	switch v := POA(strings.ToUpper(strings.TrimSpace(s))); v {
	case POAYes, POANo, POAUndetermined, POAInsufficient, POAExemptOne, POAExempt:
		*p = v
	default:
		*p = POABlank
	}
	return nil
}

// DxType marks a diagnosis as principal or secondary.
type DxType int

const (
	DxUnknown DxType = iota
	DxPrimary
	DxSecondary
)

// DiagnosisCode is an ICD-10-CM diagnosis with its POA indicator.
type DiagnosisCode struct {
	Code   string `json:"code" validate:"required,max=8"`
	POA    POA    `json:"poa"`
	DxType DxType `json:"dx_type"`
}

// ProcedureCode is an ICD-10-PCS procedure.
type ProcedureCode struct {
	Code     string `json:"code" validate:"required,max=8"`
	Modifier string `json:"modifier"`
	Date     Date   `json:"date"`
}

// LineItem is one revenue line.
type LineItem struct {
	ServiceDate Date            `json:"service_date"`
	RevenueCode string          `json:"revenue_code" validate:"omitempty,len=4,numeric"`
	HCPCS       string          `json:"hcpcs" validate:"omitempty,max=5"`
	Modifiers   []string        `json:"modifiers" validate:"max=5,dive,len=2"`
	Units       int             `json:"units" validate:"gte=0"`
	Charges     decimal.Decimal `json:"charges" validate:"gte=0"`
	NDC         string          `json:"ndc"`
	NDCUnits    float64         `json:"ndc_units" validate:"gte=0"`
	POS         string          `json:"pos"`
}

// ValueCode is a UB-04 value code with its amount.
type ValueCode struct {
	Code   string          `json:"code" validate:"required,max=2"`
	Amount decimal.Decimal `json:"amount"`
}

// OccurrenceCode is a UB-04 occurrence code.
type OccurrenceCode struct {
	Code string `json:"code" validate:"required,max=2"`
	Date Date   `json:"date"`
}

// SpanCode is a UB-04 occurrence span code.
type SpanCode struct {
	Code      string `json:"code" validate:"required,max=2"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
}

// OASISAssessment carries the home health assessment items used by the HHA
// grouper.
type OASISAssessment struct {
	FallRisk              int    `json:"fall_risk" validate:"oneof=0 1"`
	WeightLoss            int    `json:"weight_loss" validate:"oneof=0 1"`
	MultipleHospitalStays int    `json:"multiple_hospital_stays" validate:"oneof=0 1"`
	MultipleEDVisits      int    `json:"multiple_ed_visits" validate:"oneof=0 1"`
	MentalBehaviorRisk    int    `json:"mental_behavior_risk" validate:"oneof=0 1"`
	ComplianceRisk        int    `json:"compliance_risk" validate:"oneof=0 1"`
	FiveOrMoreMeds        int    `json:"five_or_more_meds" validate:"oneof=0 1"`
	Exhaustion            int    `json:"exhaustion" validate:"oneof=0 1"`
	OtherRisk             int    `json:"other_risk" validate:"oneof=0 1"`
	NoneOfAbove           int    `json:"none_of_above" validate:"oneof=0 1"`
	Grooming              string `json:"grooming" validate:"omitempty,len=2,numeric"`
	DressUpper            string `json:"dress_upper" validate:"omitempty,len=2,numeric"`
	DressLower            string `json:"dress_lower" validate:"omitempty,len=2,numeric"`
	Bathing               string `json:"bathing" validate:"omitempty,len=2,numeric"`
	Toileting             string `json:"toileting" validate:"omitempty,len=2,numeric"`
	Transferring          string `json:"transferring" validate:"omitempty,len=2,numeric"`
	Ambulation            string `json:"ambulation" validate:"omitempty,len=2,numeric"`
}

// IRFPAI is the inpatient rehabilitation facility patient assessment used by
// the CMG grouper.
type IRFPAI struct {
	AssessmentSystem         string `json:"assessment_system" validate:"eq=IRF-PAI"`
	TransactionType          int    `json:"transaction_type" validate:"oneof=1 2"`
	ImpairmentAdmitGroupCode string `json:"impairment_admit_group_code" validate:"required"`
	EatingSelfAdmsnCd        string `json:"eating_self_admsn_cd"`
	OralHygneAdmsnCd         string `json:"oral_hygne_admsn_cd"`
	ToiletingHygneAdmsnCd    string `json:"toileting_hygne_admsn_cd"`
	BathingHygneAdmsnCd      string `json:"bathing_hygne_admsn_cd"`
	UpperBodyDressingCd      string `json:"upper_body_dressing_cd"`
	LowerBodyDressingCd      string `json:"lower_body_dressing_cd"`
	FootwearDressingCd       string `json:"footwear_dressing_cd"`
	SitToLyingCd             string `json:"sit_to_lying_cd"`
	LyingToSitCd             string `json:"lying_to_sit_cd"`
	SitToStandCd             string `json:"sit_to_stand_cd"`
	ChairBedTransferCd       string `json:"chair_bed_transfer_cd"`
	ToiletTransferCd         string `json:"toilet_transfer_cd"`
	Walk10FeetCd             string `json:"walk_10_feet_cd"`
	Walk50FeetCd             string `json:"walk_50_feet_cd"`
	Walk150FeetCd            string `json:"walk_150_feet_cd"`
	Step1Cd                  string `json:"step_1_cd"`
	UrinaryContinenceCd      string `json:"urinary_continence_cd"`
	BowelContinenceCd        string `json:"bowel_continence_cd"`
}

// ConvertMode selects how code set versions are chosen for conversion.
type ConvertMode string

const (
	ConvertNone   ConvertMode = "NONE"
	ConvertAuto   ConvertMode = "AUTO"
	ConvertManual ConvertMode = "MANUAL"
)

// ConvertDirective asks for the claim's ICD-10 codes to be converted before
// stages run. AUTO infers BilledVersion from the thru date.
type ConvertDirective struct {
	Option        ConvertMode `json:"option" validate:"oneof=NONE AUTO MANUAL"`
	TargetVersion string      `json:"target_version" validate:"required_unless=Option NONE"`
	BilledVersion string      `json:"billed_version" validate:"required_if=Option MANUAL"`
}

// Diagnoses returns principal, admit and secondary diagnoses in claim order.
func (c *Claim) Diagnoses() []*DiagnosisCode {
	out := make([]*DiagnosisCode, 0, len(c.SecondaryDxs)+2)
	if c.PrincipalDx != nil {
		out = append(out, c.PrincipalDx)
	}
	if c.AdmitDx != nil {
		out = append(out, c.AdmitDx)
	}
	for i := range c.SecondaryDxs {
		out = append(out, &c.SecondaryDxs[i])
	}
	return out
}

// Procedures returns the inpatient procedures in claim order.
func (c *Claim) Procedures() []*ProcedureCode {
	out := make([]*ProcedureCode, len(c.InpatientPxs))
	for i := range c.InpatientPxs {
		out[i] = &c.InpatientPxs[i]
	}
	return out
}

// HasModule reports whether m was requested.
func (c *Claim) HasModule(m Module) bool {
	for _, x := range c.Modules {
		if x == m {
			return true
		}
	}
	return false
}
