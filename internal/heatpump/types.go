package heatpump

const kelvinOffset = 273.15

func celsiusToKelvin(t float64) float64 { return t + kelvinOffset }
func kelvinToCelsius(t float64) float64 { return t - kelvinOffset }

// SourceType identifies the physical heat source the pump draws from.
type SourceType string

const (
	SourceGround         SourceType = "Ground"
	SourceOutsideAir     SourceType = "OutsideAir"
	SourceExhaustAirMEV  SourceType = "ExhaustAirMEV"
	SourceExhaustAirMVHR SourceType = "ExhaustAirMVHR"
	SourceExhaustAirMix  SourceType = "ExhaustAirMixed"
	SourceWaterGround    SourceType = "WaterGround"
	SourceWaterSurface   SourceType = "WaterSurface"
	SourceHeatNetwork    SourceType = "HeatNetwork"
)

// ParseSourceType maps a configuration string to a SourceType. Only Ground
// and OutsideAir have runtime implementations; the rest are accepted here and
// rejected with UnsupportedSourceTypeError when first queried.
func ParseSourceType(s string) (SourceType, error) {
	switch st := SourceType(s); st {
	case SourceGround, SourceOutsideAir, SourceExhaustAirMEV, SourceExhaustAirMVHR,
		SourceExhaustAirMix, SourceWaterGround, SourceWaterSurface, SourceHeatNetwork:
		return st, nil
	}
	return "", &ConfigurationError{Field: "source_type", Reason: "unknown value " + s}
}

// SinkType identifies the medium the pump delivers heat into.
type SinkType string

const (
	SinkAir      SinkType = "Air"
	SinkWater    SinkType = "Water"
	SinkGlycol25 SinkType = "Glycol25"
)

func ParseSinkType(s string) (SinkType, error) {
	switch st := SinkType(s); st {
	case SinkAir, SinkWater, SinkGlycol25:
		return st, nil
	}
	return "", &ConfigurationError{Field: "sink_type", Reason: "unknown value " + s}
}

// BackupCtrl is the policy governing how the backup heater supplements or
// replaces the heat pump.
type BackupCtrl string

const (
	BackupNone       BackupCtrl = "None"
	BackupTopUp      BackupCtrl = "TopUp"
	BackupSubstitute BackupCtrl = "Substitute"
)

func ParseBackupCtrl(s string) (BackupCtrl, error) {
	switch b := BackupCtrl(s); b {
	case BackupNone, BackupTopUp, BackupSubstitute:
		return b, nil
	}
	return "", &ConfigurationError{Field: "backup_ctrl_type", Reason: "unknown value " + s}
}

// ServiceType distinguishes hot water from space heating services.
type ServiceType string

const (
	ServiceTypeWater ServiceType = "Water"
	ServiceTypeSpace ServiceType = "Space"
)

// Config mirrors the heat pump product data record of the input file.
// Temperatures are in Celsius, powers in kW, capacities in kW,
// time constants in seconds.
type Config struct {
	SourceType     string `json:"source_type"`
	SinkType       string `json:"sink_type"`
	BackupCtrlType string `json:"backup_ctrl_type"`

	ModulatingControl          bool    `json:"modulating_control"`
	MinModulationRate35        float64 `json:"min_modulation_rate_35"`
	MinModulationRate55        float64 `json:"min_modulation_rate_55"`
	TimeConstantOnOffOperation float64 `json:"time_constant_onoff_operation"`
	VarFlowTempCtrlDuringTest  bool    `json:"var_flow_temp_ctrl_during_test"`

	TempReturnFeedMax       float64 `json:"temp_return_feed_max"`
	TempLowerOperatingLimit float64 `json:"temp_lower_operating_limit"`

	MinTempDiffFlowReturnForHPToOperate float64 `json:"min_temp_diff_flow_return_for_hp_to_operate"`

	PowerHeatingCircPump float64 `json:"power_heating_circ_pump"`
	PowerSourceCircPump  float64 `json:"power_source_circ_pump"`
	PowerStandby         float64 `json:"power_standby"`
	PowerCrankcaseHeater float64 `json:"power_crankcase_heater"`
	PowerMaxBackup       float64 `json:"power_max_backup"`

	// Fraction of compressor full-load power drawn by auxiliaries while the
	// compressor is cycling on/off.
	FractionAuxiliary float64 `json:"f_aux"`

	TestData []TestRecord `json:"test_data"`
}
