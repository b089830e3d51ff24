package orbits

// FittedOrbit represents a single row in the fitted_orbits table.
// The sky-plane state (position plus rates at the fit epoch) is what the
// refinement loop adjusts; the fit statistics describe the quality of the
// current solution.
type FittedOrbit struct {
	// Primary identifier
	OrbitID string `parquet:"orbit_id"`

	// Fit epoch
	EpochMJD float64 `parquet:"epoch_mjd"`

	// Sky-plane state at epoch
	RADeg        float64 `parquet:"ra_deg"`
	DecDeg       float64 `parquet:"dec_deg"`
	RAVelDegDay  float64 `parquet:"ra_vel_deg_day"`
	DecVelDegDay float64 `parquet:"dec_vel_deg_day"`

	// Fit statistics
	NumObs        int32   `parquet:"num_obs"`
	ArcLengthDays float64 `parquet:"arc_length_days"`
	ReducedChi2   float64 `parquet:"reduced_chi2"`
	Success       bool    `parquet:"success"`
}

// TableName returns the canonical table name.
func (FittedOrbit) TableName() string { return "fitted_orbits" }

// FittedOrbitMember associates one observation with a fitted orbit.
type FittedOrbitMember struct {
	OrbitID string `parquet:"orbit_id"`
	ObsID   string `parquet:"obs_id"`

	// Residuals of the observation against the fitted orbit
	ResidualRAArcsec  float64 `parquet:"residual_ra_arcsec"`
	ResidualDecArcsec float64 `parquet:"residual_dec_arcsec"`
	Chi2              float64 `parquet:"chi2"`
	Outlier           bool    `parquet:"outlier"`
}

// TableName returns the canonical table name.
func (FittedOrbitMember) TableName() string { return "fitted_orbit_members" }

// PrecoveryCandidate is a detection recovered from the precovery index that
// is consistent with a fitted orbit.
type PrecoveryCandidate struct {
	OrbitID string `parquet:"orbit_id"`
	ObsID   string `parquet:"obs_id"`

	MJDDays  int64   `parquet:"mjd_days"`
	MJDNanos int64   `parquet:"mjd_nanos"`
	RADeg    float64 `parquet:"ra_deg"`
	DecDeg   float64 `parquet:"dec_deg"`
	Mag      float64 `parquet:"mag"`

	ObservatoryCode string `parquet:"observatory_code"`
	DatasetID       string `parquet:"dataset_id"`

	// Angular separation from the predicted position
	DistanceArcsec float64 `parquet:"distance_arcsec"`
}

// TableName returns the canonical table name.
func (PrecoveryCandidate) TableName() string { return "precovery_candidates" }

// SearchSummary describes what the precovery search did for one orbit.
type SearchSummary struct {
	OrbitID string `parquet:"orbit_id"`

	WindowsSearched  int32   `parquet:"windows_searched"`
	ObsFound         int32   `parquet:"obs_found"`
	ObsRejected      int32   `parquet:"obs_rejected"`
	ToleranceReached float64 `parquet:"tolerance_reached"`
	Iterations       int32   `parquet:"iterations"`
	WallTimeSeconds  float64 `parquet:"wall_time_seconds"`
}

// TableName returns the canonical table name.
func (SearchSummary) TableName() string { return "search_summary" }

// Observation is a single astrometric observation. Times are split into
// integer days and nanoseconds of MJD so ordering is exact.
type Observation struct {
	ObsID string `parquet:"obs_id"`

	MJDDays  int64 `parquet:"mjd_days"`
	MJDNanos int64 `parquet:"mjd_nanos"`

	RADeg  float64 `parquet:"ra_deg"`
	DecDeg float64 `parquet:"dec_deg"`

	SigmaRAArcsec  float64 `parquet:"sigma_ra_arcsec"`
	SigmaDecArcsec float64 `parquet:"sigma_dec_arcsec"`
	Mag            float64 `parquet:"mag"`

	ObservatoryCode string `parquet:"observatory_code"`
}

// TableName returns the canonical table name.
func (Observation) TableName() string { return "observations" }

// MJD returns the observation time as a fractional MJD.
func (o Observation) MJD() float64 {
	return float64(o.MJDDays) + float64(o.MJDNanos)/nanosPerDay
}

const nanosPerDay = 86400e9

// SchemaVersion is the version of the table schemas.
// Increment this when making breaking changes.
const SchemaVersion = "1.0.0"
