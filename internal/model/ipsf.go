package model

// InpatientProvider is one row of the inpatient provider specific file
// (IPSF). Field order matches the CMS CSV column positions. Dates are
// YYYYMMDD integers.
type InpatientProvider struct {
	ProviderCCN                                        string  `json:"provider_ccn" parquet:"provider_ccn"`
	EffectiveDate                                      int     `json:"effective_date" parquet:"effective_date"`
	FiscalYearBeginDate                                int     `json:"fiscal_year_begin_date" parquet:"fiscal_year_begin_date"`
	ExportDate                                         int     `json:"export_date" parquet:"export_date"`
	TerminationDate                                    int     `json:"termination_date" parquet:"termination_date"`
	WaiverIndicator                                    string  `json:"waiver_indicator" parquet:"waiver_indicator"`
	IntermediaryNumber                                 string  `json:"intermediary_number" parquet:"intermediary_number"`
	ProviderType                                       string  `json:"provider_type" parquet:"provider_type"`
	CensusDivision                                     string  `json:"census_division" parquet:"census_division"`
	MSAActualGeographicLocation                        string  `json:"msa_actual_geographic_location" parquet:"msa_actual_geographic_location"`
	MSAWageIndexLocation                               string  `json:"msa_wage_index_location" parquet:"msa_wage_index_location"`
	MSAStandardizedAmountLocation                      string  `json:"msa_standardized_amount_location" parquet:"msa_standardized_amount_location"`
	SoleCommunityOrMedicareDependentHospitalBaseYear   string  `json:"sole_community_or_medicare_dependent_hospital_base_year" parquet:"sole_community_or_medicare_dependent_hospital_base_year"`
	ChangeCodeForLugarReclassification                 string  `json:"change_code_for_lugar_reclassification" parquet:"change_code_for_lugar_reclassification"`
	TemporaryReliefIndicator                           string  `json:"temporary_relief_indicator" parquet:"temporary_relief_indicator"`
	FederalPPSBlend                                    string  `json:"federal_pps_blend" parquet:"federal_pps_blend"`
	StateCode                                          string  `json:"state_code" parquet:"state_code"`
	PPSFacilitySpecificRate                            float64 `json:"pps_facility_specific_rate" parquet:"pps_facility_specific_rate"`
	CostOfLivingAdjustment                             float64 `json:"cost_of_living_adjustment" parquet:"cost_of_living_adjustment"`
	InternsToBedsRatio                                 float64 `json:"interns_to_beds_ratio" parquet:"interns_to_beds_ratio"`
	BedSize                                            int     `json:"bed_size" parquet:"bed_size"`
	OperatingCostToChargeRatio                         float64 `json:"operating_cost_to_charge_ratio" parquet:"operating_cost_to_charge_ratio"`
	CaseMixIndex                                       float64 `json:"case_mix_index" parquet:"case_mix_index"`
	SupplementalSecurityIncomeRatio                    float64 `json:"supplemental_security_income_ratio" parquet:"supplemental_security_income_ratio"`
	MedicaidRatio                                      float64 `json:"medicaid_ratio" parquet:"medicaid_ratio"`
	SpecialProviderUpdateFactor                        float64 `json:"special_provider_update_factor" parquet:"special_provider_update_factor"`
	OperatingDSH                                       float64 `json:"operating_dsh" parquet:"operating_dsh"`
	FiscalYearEndDate                                  int     `json:"fiscal_year_end_date" parquet:"fiscal_year_end_date"`
	SpecialPaymentIndicator                            string  `json:"special_payment_indicator" parquet:"special_payment_indicator"`
	HospQualityIndicator                               string  `json:"hosp_quality_indicator" parquet:"hosp_quality_indicator"`
	CBSAActualGeographicLocation                       string  `json:"cbsa_actual_geographic_location" parquet:"cbsa_actual_geographic_location"`
	CBSAWILocation                                     string  `json:"cbsa_wi_location" parquet:"cbsa_wi_location"`
	CBSAStandardizedAmountLocation                     string  `json:"cbsa_standardized_amount_location" parquet:"cbsa_standardized_amount_location"`
	SpecialWageIndex                                   float64 `json:"special_wage_index" parquet:"special_wage_index"`
	PassThroughAmountForCapital                        float64 `json:"pass_through_amount_for_capital" parquet:"pass_through_amount_for_capital"`
	PassThroughAmountForDirectMedicalEducation         float64 `json:"pass_through_amount_for_direct_medical_education" parquet:"pass_through_amount_for_direct_medical_education"`
	PassThroughAmountForOrganAcquisition               float64 `json:"pass_through_amount_for_organ_acquisition" parquet:"pass_through_amount_for_organ_acquisition"`
	PassThroughTotalAmount                             float64 `json:"pass_through_total_amount" parquet:"pass_through_total_amount"`
	CapitalPPSPaymentCode                              string  `json:"capital_pps_payment_code" parquet:"capital_pps_payment_code"`
	HospitalSpecificCapitalRate                        float64 `json:"hospital_specific_capital_rate" parquet:"hospital_specific_capital_rate"`
	OldCapitalHoldHarmlessRate                         float64 `json:"old_capital_hold_harmless_rate" parquet:"old_capital_hold_harmless_rate"`
	NewCapitalHoldHarmlessRate                         float64 `json:"new_capital_hold_harmless_rate" parquet:"new_capital_hold_harmless_rate"`
	CapitalCostToChargeRatio                           float64 `json:"capital_cost_to_charge_ratio" parquet:"capital_cost_to_charge_ratio"`
	NewHospital                                        string  `json:"new_hospital" parquet:"new_hospital"`
	CapitalIndirectMedicalEducationRatio               float64 `json:"capital_indirect_medical_education_ratio" parquet:"capital_indirect_medical_education_ratio"`
	CapitalExceptionPaymentRate                        float64 `json:"capital_exception_payment_rate" parquet:"capital_exception_payment_rate"`
	VPBParticipantIndicator                            string  `json:"vpb_participant_indicator" parquet:"vpb_participant_indicator"`
	VBPAdjustment                                      float64 `json:"vbp_adjustment" parquet:"vbp_adjustment"`
	HRRParticipantIndicator                            int     `json:"hrr_participant_indicator" parquet:"hrr_participant_indicator"`
	HRRAdjustment                                      float64 `json:"hrr_adjustment" parquet:"hrr_adjustment"`
	BundleModelDiscount                                float64 `json:"bundle_model_discount" parquet:"bundle_model_discount"`
	HACReductionParticipantIndicator                   string  `json:"hac_reduction_participant_indicator" parquet:"hac_reduction_participant_indicator"`
	UncompensatedCareAmount                            float64 `json:"uncompensated_care_amount" parquet:"uncompensated_care_amount"`
	EHRReductionIndicator                              string  `json:"ehr_reduction_indicator" parquet:"ehr_reduction_indicator"`
	LowVolumeAdjustmentFactor                          float64 `json:"low_volume_adjustment_factor" parquet:"low_volume_adjustment_factor"`
	CountyCode                                         string  `json:"county_code" parquet:"county_code"`
	MedicarePerformanceAdjustment                      float64 `json:"medicare_performance_adjustment" parquet:"medicare_performance_adjustment"`
	LTCHDPPIndicator                                   string  `json:"ltch_dpp_indicator" parquet:"ltch_dpp_indicator"`
	SupplementalWageIndex                              float64 `json:"supplemental_wage_index" parquet:"supplemental_wage_index"`
	SupplementalWageIndexIndicator                     string  `json:"supplemental_wage_index_indicator" parquet:"supplemental_wage_index_indicator"`
	ChangeCodeWageIndexReclassification                string  `json:"change_code_wage_index_reclassification" parquet:"change_code_wage_index_reclassification"`
	NationalProviderIdentifier                         string  `json:"national_provider_identifier" parquet:"national_provider_identifier"`
	PassThroughAmountForAllogenicStemCellAcquisition   float64 `json:"pass_through_amount_for_allogenic_stem_cell_acquisition" parquet:"pass_through_amount_for_allogenic_stem_cell_acquisition"`
	PPSBlendYearIndicator                              string  `json:"pps_blend_year_indicator" parquet:"pps_blend_year_indicator"`
	LastUpdated                                        string  `json:"last_updated" parquet:"last_updated"`
	PassThroughAmountForDirectGraduateMedicalEducation float64 `json:"pass_through_amount_for_direct_graduate_medical_education" parquet:"pass_through_amount_for_direct_graduate_medical_education"`
	PassThroughAmountForKidneyAcquisition              float64 `json:"pass_through_amount_for_kidney_acquisition" parquet:"pass_through_amount_for_kidney_acquisition"`
	PassThroughAmountForSupplyChain                    float64 `json:"pass_through_amount_for_supply_chain" parquet:"pass_through_amount_for_supply_chain"`
}

func (p InpatientProvider) Variant() Variant { return Inpatient }
func (p InpatientProvider) CCN() string      { return p.ProviderCCN }
func (p InpatientProvider) NPI() string      { return p.NationalProviderIdentifier }
func (p InpatientProvider) Effective() int   { return p.EffectiveDate }
func (p InpatientProvider) Termination() int { return p.TerminationDate }
