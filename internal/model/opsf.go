package model

// OutpatientProvider is one row of the outpatient provider specific file
// (OPSF), used by the OPPS, ESRD and FQHC pricers.
type OutpatientProvider struct {
	ProviderCCN                         string  `json:"provider_ccn" parquet:"provider_ccn"`
	EffectiveDate                       int     `json:"effective_date" parquet:"effective_date"`
	NationalProviderIdentifier          string  `json:"national_provider_identifier" parquet:"national_provider_identifier"`
	FiscalYearBeginDate                 int     `json:"fiscal_year_begin_date" parquet:"fiscal_year_begin_date"`
	ExportDate                          int     `json:"export_date" parquet:"export_date"`
	TerminationDate                     int     `json:"termination_date" parquet:"termination_date"`
	WaiverIndicator                     string  `json:"waiver_indicator" parquet:"waiver_indicator"`
	IntermediaryNumber                  string  `json:"intermediary_number" parquet:"intermediary_number"`
	ProviderType                        string  `json:"provider_type" parquet:"provider_type"`
	SpecialLocalityIndicator            string  `json:"special_locality_indicator" parquet:"special_locality_indicator"`
	ChangeCodeWageIndexReclassification string  `json:"change_code_wage_index_reclassification" parquet:"change_code_wage_index_reclassification"`
	MSAActualGeographicLocation         string  `json:"msa_actual_geographic_location" parquet:"msa_actual_geographic_location"`
	MSAWageIndexLocation                string  `json:"msa_wage_index_location" parquet:"msa_wage_index_location"`
	CostOfLivingAdjustment              float64 `json:"cost_of_living_adjustment" parquet:"cost_of_living_adjustment"`
	StateCode                           string  `json:"state_code" parquet:"state_code"`
	TOPSIndicator                       string  `json:"tops_indicator" parquet:"tops_indicator"`
	HospitalQualityIndicator            string  `json:"hospital_quality_indicator" parquet:"hospital_quality_indicator"`
	OperatingCostToChargeRatio          float64 `json:"operating_cost_to_charge_ratio" parquet:"operating_cost_to_charge_ratio"`
	CBSAActualGeographicLocation        string  `json:"cbsa_actual_geographic_location" parquet:"cbsa_actual_geographic_location"`
	CBSAWageIndexLocation               string  `json:"cbsa_wage_index_location" parquet:"cbsa_wage_index_location"`
	SpecialWageIndex                    float64 `json:"special_wage_index" parquet:"special_wage_index"`
	SpecialPaymentIndicator             string  `json:"special_payment_indicator" parquet:"special_payment_indicator"`
	ESRDChildrenQualityIndicator        string  `json:"esrd_children_quality_indicator" parquet:"esrd_children_quality_indicator"`
	DeviceCostToChargeRatio             float64 `json:"device_cost_to_charge_ratio" parquet:"device_cost_to_charge_ratio"`
	CountyCode                          string  `json:"county_code" parquet:"county_code"`
	PaymentCBSA                         string  `json:"payment_cbsa" parquet:"payment_cbsa"`
	PaymentModelAdjustment              float64 `json:"payment_model_adjustment" parquet:"payment_model_adjustment"`
	MedicarePerformanceAdjustment       float64 `json:"medicare_performance_adjustment" parquet:"medicare_performance_adjustment"`
	SupplementalWageIndexIndicator      string  `json:"supplemental_wage_index_indicator" parquet:"supplemental_wage_index_indicator"`
	SupplementalWageIndex               float64 `json:"supplemental_wage_index" parquet:"supplemental_wage_index"`
	LastUpdated                         string  `json:"last_updated" parquet:"last_updated"`
	CarrierCode                         string  `json:"carrier_code" parquet:"carrier_code"`
	LocalityCode                        string  `json:"locality_code" parquet:"locality_code"`
}

func (p OutpatientProvider) Variant() Variant { return Outpatient }
func (p OutpatientProvider) CCN() string      { return p.ProviderCCN }
func (p OutpatientProvider) NPI() string      { return p.NationalProviderIdentifier }
func (p OutpatientProvider) Effective() int   { return p.EffectiveDate }
func (p OutpatientProvider) Termination() int { return p.TerminationDate }
