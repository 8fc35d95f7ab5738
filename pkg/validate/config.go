package validate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params holds every threshold the rules use. Values ship with compiled-in
// defaults and can be overridden from a YAML file so site standards never
// require a rebuild.
type Params struct {
	MaxLightsPerCircuit  int     `yaml:"max_lights_per_circuit"`
	MaxSocketsPerCircuit int     `yaml:"max_sockets_per_circuit"`
	MinSpareWaysPct      float64 `yaml:"min_spare_ways_pct"`
	ELCBRatingA          float64 `yaml:"elcb_rating_a"`
	ELCBSensitivityMA    float64 `yaml:"elcb_sensitivity_ma"`
	MinCableLightingMM2  float64 `yaml:"min_cable_lighting_mm2"`
	MinCablePowerMM2     float64 `yaml:"min_cable_power_mm2"`
	MaxVoltageDropPct    float64 `yaml:"max_voltage_drop_pct"`
	SupplyVoltage        float64 `yaml:"supply_voltage"`

	// CableAmpacity maps conductor size (mm2) to continuous current
	// capacity in amps.
	CableAmpacity map[float64]float64 `yaml:"cable_ampacity"`
	// CableMaxBreaker maps conductor size to the largest breaker allowed
	// to protect it.
	CableMaxBreaker map[float64]float64 `yaml:"cable_max_breaker"`
	// CableMVPerAM maps conductor size to voltage drop in mV per amp per
	// metre.
	CableMVPerAM map[float64]float64 `yaml:"cable_mv_per_a_m"`
}

// DefaultParams returns the standard rule thresholds and cable tables.
func DefaultParams() Params {
	return Params{
		MaxLightsPerCircuit:  10,
		MaxSocketsPerCircuit: 10,
		MinSpareWaysPct:      15,
		ELCBRatingA:          63,
		ELCBSensitivityMA:    30,
		MinCableLightingMM2:  1.5,
		MinCablePowerMM2:     2.5,
		MaxVoltageDropPct:    5,
		SupplyVoltage:        230,

		CableAmpacity: map[float64]float64{
			1.5: 14.5, 2.5: 19.5, 4: 26, 6: 34, 10: 46, 16: 61,
			25: 80, 35: 99, 50: 119, 70: 151, 95: 182,
		},
		CableMaxBreaker: map[float64]float64{
			1.5: 16, 2.5: 20, 4: 25, 6: 32, 10: 40, 16: 63, 25: 80, 35: 100,
		},
		CableMVPerAM: map[float64]float64{
			1.5: 29, 2.5: 18, 4: 11, 6: 7.3, 10: 4.4, 16: 2.8,
			25: 1.75, 35: 1.25, 50: 0.93, 70: 0.63, 95: 0.46,
		},
	}
}

// LoadParams overlays a YAML file onto the defaults. Fields absent from the
// file keep their default values.
func LoadParams(path string) (Params, error) {
	params := DefaultParams()

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("read validation params: %w", err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("parse validation params: %w", err)
	}
	return params, nil
}
