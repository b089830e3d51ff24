// Package refine defines the refinement boundary: given a candidate orbit
// and its observations, iteratively improve the fit using precovery search.
package refine

// Params are the run-level refinement parameters. Tolerances are in
// arcseconds, time quantities in days (MJD).
type Params struct {
	MinTolerance   float64 `yaml:"min_tolerance"`
	MaxTolerance   float64 `yaml:"max_tolerance"`
	ToleranceStep  float64 `yaml:"tolerance_step"`
	DeltaTime      float64 `yaml:"delta_time"`
	RChi2Threshold float64 `yaml:"rchi2_threshold"`
	OutlierChi2    float64 `yaml:"outlier_chi2"`
	ReconsiderChi2 float64 `yaml:"reconsider_chi2"`

	// Optional time window filter; nil means unbounded.
	MinMJD *float64 `yaml:"min_mjd"`
	MaxMJD *float64 `yaml:"max_mjd"`
}

// DefaultParams returns the standard refinement parameters.
func DefaultParams() Params {
	return Params{
		MinTolerance:   1.0,
		MaxTolerance:   10.0,
		ToleranceStep:  5.0,
		DeltaTime:      15.0,
		RChi2Threshold: 3.0,
		OutlierChi2:    9.0,
		ReconsiderChi2: 8.0,
	}
}
