package types

// IrradianceSeries is a Typical Meteorological Year of hourly global
// horizontal irradiance (W/m²) and ambient temperature (°C).
type IrradianceSeries struct {
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	HourlyGHIWm2 []float64 `json:"hourlyGhiWm2"`
	HourlyTempC  []float64 `json:"hourlyTempC,omitempty"`
}

// LossChainConfig holds the PVsyst loss factors grouped by stage. Every
// factor is a percentage loss applied as (1 - loss/100); a negative value is
// a net gain. A nil group means the stage is missing and the config is
// rejected rather than treated as lossless.
type LossChainConfig struct {
	Irradiance   *IrradianceLosses   `json:"irradiance" toml:"irradiance"`
	Array        *ArrayLosses        `json:"array" toml:"array"`
	Inverter     *InverterLosses     `json:"inverter" toml:"inverter"`
	PostInverter *PostInverterLosses `json:"postInverter" toml:"post_inverter"`
}

// IrradianceLosses are the optical losses before the modules.
type IrradianceLosses struct {
	Transposition     float64 `json:"transposition" toml:"transposition"`
	NearShading       float64 `json:"nearShading" toml:"near_shading"`
	IAM               float64 `json:"iam" toml:"iam"`
	Soiling           float64 `json:"soiling" toml:"soiling"`
	Spectral          float64 `json:"spectral" toml:"spectral"`
	ElectricalShading float64 `json:"electricalShading" toml:"electrical_shading"`
}

// ArrayLosses are the DC losses in the modules and array wiring.
type ArrayLosses struct {
	IrradianceLevel   float64 `json:"irradianceLevel" toml:"irradiance_level"`
	Temperature       float64 `json:"temperature" toml:"temperature"`
	ModuleQuality     float64 `json:"moduleQuality" toml:"module_quality"`
	LID               float64 `json:"lid" toml:"lid"`
	ModuleDegradation float64 `json:"moduleDegradation" toml:"module_degradation"`
	Mismatch          float64 `json:"mismatch" toml:"mismatch"`
	Ohmic             float64 `json:"ohmic" toml:"ohmic"`
}

// InverterLosses are the conversion losses in the inverter.
type InverterLosses struct {
	OperatingEfficiency float64 `json:"operatingEfficiency" toml:"operating_efficiency"`
	OverNominalPower    float64 `json:"overNominalPower" toml:"over_nominal_power"`
	MaxInputCurrent     float64 `json:"maxInputCurrent" toml:"max_input_current"`
	OverNominalVoltage  float64 `json:"overNominalVoltage" toml:"over_nominal_voltage"`
	PowerThreshold      float64 `json:"powerThreshold" toml:"power_threshold"`
	VoltageThreshold    float64 `json:"voltageThreshold" toml:"voltage_threshold"`
}

// PostInverterLosses are the losses after the inverter.
type PostInverterLosses struct {
	Availability float64 `json:"availability" toml:"availability"`
}

// LossChainOverrides is a partial LossChainConfig. Only non-nil fields are
// applied on top of a base config.
type LossChainOverrides struct {
	Irradiance   *IrradianceLossOverrides   `json:"irradiance,omitempty" toml:"irradiance"`
	Array        *ArrayLossOverrides        `json:"array,omitempty" toml:"array"`
	Inverter     *InverterLossOverrides     `json:"inverter,omitempty" toml:"inverter"`
	PostInverter *PostInverterLossOverrides `json:"postInverter,omitempty" toml:"post_inverter"`
}

type IrradianceLossOverrides struct {
	Transposition     *float64 `json:"transposition,omitempty" toml:"transposition"`
	NearShading       *float64 `json:"nearShading,omitempty" toml:"near_shading"`
	IAM               *float64 `json:"iam,omitempty" toml:"iam"`
	Soiling           *float64 `json:"soiling,omitempty" toml:"soiling"`
	Spectral          *float64 `json:"spectral,omitempty" toml:"spectral"`
	ElectricalShading *float64 `json:"electricalShading,omitempty" toml:"electrical_shading"`
}

type ArrayLossOverrides struct {
	IrradianceLevel   *float64 `json:"irradianceLevel,omitempty" toml:"irradiance_level"`
	Temperature       *float64 `json:"temperature,omitempty" toml:"temperature"`
	ModuleQuality     *float64 `json:"moduleQuality,omitempty" toml:"module_quality"`
	LID               *float64 `json:"lid,omitempty" toml:"lid"`
	ModuleDegradation *float64 `json:"moduleDegradation,omitempty" toml:"module_degradation"`
	Mismatch          *float64 `json:"mismatch,omitempty" toml:"mismatch"`
	Ohmic             *float64 `json:"ohmic,omitempty" toml:"ohmic"`
}

type InverterLossOverrides struct {
	OperatingEfficiency *float64 `json:"operatingEfficiency,omitempty" toml:"operating_efficiency"`
	OverNominalPower    *float64 `json:"overNominalPower,omitempty" toml:"over_nominal_power"`
	MaxInputCurrent     *float64 `json:"maxInputCurrent,omitempty" toml:"max_input_current"`
	OverNominalVoltage  *float64 `json:"overNominalVoltage,omitempty" toml:"over_nominal_voltage"`
	PowerThreshold      *float64 `json:"powerThreshold,omitempty" toml:"power_threshold"`
	VoltageThreshold    *float64 `json:"voltageThreshold,omitempty" toml:"voltage_threshold"`
}

type PostInverterLossOverrides struct {
	Availability *float64 `json:"availability,omitempty" toml:"availability"`
}
