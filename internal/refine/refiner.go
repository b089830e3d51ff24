package refine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
	"github.com/B612-Asteroid-Institute/ipod/internal/precovery"
)

var (
	// ErrInsufficientData is returned when there is nothing to fit: no
	// member observations and no detections recovered at any tolerance.
	ErrInsufficientData = errors.New("insufficient data to refine orbit")
)

// Refiner refines a single candidate orbit. Implementations must not mutate
// the candidate or the observation set.
type Refiner interface {
	// Refine produces the four result batches for one orbit. obs may be
	// nil, in which case the search is database-only.
	Refine(ctx context.Context, candidate orbits.FittedOrbit, obs *orbits.ObservationSet, index precovery.Index, params Params) (*orbits.ResultSet, error)
}

// IterativeRefiner sweeps the search tolerance from min to max, widening
// the time window each pass, recovering detections from the precovery index
// and refitting the sky-plane motion until the reduced chi-squared drops
// below the threshold or the tolerance is exhausted.
type IterativeRefiner struct{}

// NewIterativeRefiner returns the default refiner.
func NewIterativeRefiner() *IterativeRefiner {
	return &IterativeRefiner{}
}

// point is one fitted datum: a position at a time.
type point struct {
	obsID   string
	mjd     float64
	raDeg   float64
	decDeg  float64
	fromObs bool
	distAS  float64
	det     precovery.Detection
}

// Refine implements Refiner.
func (r *IterativeRefiner) Refine(ctx context.Context, candidate orbits.FittedOrbit, obs *orbits.ObservationSet, index precovery.Index, params Params) (*orbits.ResultSet, error) {
	start := time.Now()

	orbit := candidate
	points := basePoints(obs)

	accepted := make(map[string]point, len(points))
	rejected := make(map[string]float64)
	for _, p := range points {
		accepted[p.obsID] = p
	}

	var (
		iterations int32
		windows    int32
		tolerance  = params.MinTolerance
		rchi2      = math.Inf(1)
	)

	for {
		iterations++

		window := searchWindow(orbit.EpochMJD, params, iterations)
		windows++

		matches, err := index.FindMatches(ctx, orbit, window, tolerance/3600.0)
		if err != nil {
			return nil, fmt.Errorf("precovery search at tolerance %.1f: %w", tolerance, err)
		}

		for _, det := range matches {
			if _, ok := accepted[det.ObsID]; ok {
				continue
			}
			raPred, decPred := orbits.Predict(orbit, det.MJD())
			sepAS := precovery.AngularSeparationDeg(raPred, decPred, det.RADeg, det.DecDeg) * 3600
			chi2 := sepAS * sepAS

			if prev, ok := rejected[det.ObsID]; ok {
				// Previously rejected detections come back only under
				// the stricter reconsideration threshold.
				if chi2 > params.ReconsiderChi2 || chi2 > prev {
					continue
				}
				delete(rejected, det.ObsID)
			} else if chi2 > params.OutlierChi2 {
				rejected[det.ObsID] = chi2
				continue
			}

			accepted[det.ObsID] = point{
				obsID:  det.ObsID,
				mjd:    det.MJD(),
				raDeg:  det.RADeg,
				decDeg: det.DecDeg,
				distAS: sepAS,
				det:    det,
			}
		}

		if len(accepted) >= 2 {
			orbit, rchi2 = refit(candidate, accepted)
		}

		if rchi2 <= params.RChi2Threshold {
			break
		}
		tolerance += params.ToleranceStep
		if tolerance > params.MaxTolerance {
			break
		}
	}

	if len(accepted) == 0 {
		return nil, fmt.Errorf("%w: orbit %s", ErrInsufficientData, candidate.OrbitID)
	}

	return buildResult(candidate.OrbitID, orbit, accepted, rejected, rchi2,
		windows, iterations, tolerance, params, time.Since(start)), nil
}

// basePoints converts the member observations, if any, into fit points.
func basePoints(obs *orbits.ObservationSet) []point {
	if obs.Len() == 0 {
		return nil
	}
	points := make([]point, 0, obs.Len())
	for _, o := range obs.Observations {
		points = append(points, point{
			obsID:   o.ObsID,
			mjd:     o.MJD(),
			raDeg:   o.RADeg,
			decDeg:  o.DecDeg,
			fromObs: true,
		})
	}
	return points
}

// searchWindow widens by DeltaTime days each side per iteration, clamped to
// the run-level bounds.
func searchWindow(epochMJD float64, params Params, iteration int32) precovery.TimeWindow {
	half := params.DeltaTime * float64(iteration)
	lo := epochMJD - half
	hi := epochMJD + half
	if params.MinMJD != nil && lo < *params.MinMJD {
		lo = *params.MinMJD
	}
	if params.MaxMJD != nil && hi > *params.MaxMJD {
		hi = *params.MaxMJD
	}
	return precovery.TimeWindow{MinMJD: &lo, MaxMJD: &hi}
}

// refit recomputes the linearized sky-plane state from the accepted points
// and returns it with the reduced chi-squared of the new fit.
func refit(candidate orbits.FittedOrbit, accepted map[string]point) (orbits.FittedOrbit, float64) {
	orbit := candidate

	var n float64
	var sumT, sumTT float64
	var sumRA, sumTRA, sumDec, sumTDec float64
	for _, p := range accepted {
		t := p.mjd - candidate.EpochMJD
		n++
		sumT += t
		sumTT += t * t
		sumRA += p.raDeg
		sumTRA += t * p.raDeg
		sumDec += p.decDeg
		sumTDec += t * p.decDeg
	}

	det := n*sumTT - sumT*sumT
	if det != 0 {
		orbit.RADeg = (sumTT*sumRA - sumT*sumTRA) / det
		orbit.RAVelDegDay = (n*sumTRA - sumT*sumRA) / det
		orbit.DecDeg = (sumTT*sumDec - sumT*sumTDec) / det
		orbit.DecVelDegDay = (n*sumTDec - sumT*sumDec) / det
	}

	var chi2 float64
	var minT, maxT float64
	first := true
	for _, p := range accepted {
		raPred, decPred := orbits.Predict(orbit, p.mjd)
		sepAS := precovery.AngularSeparationDeg(raPred, decPred, p.raDeg, p.decDeg) * 3600
		chi2 += sepAS * sepAS
		if first || p.mjd < minT {
			minT = p.mjd
		}
		if first || p.mjd > maxT {
			maxT = p.mjd
		}
		first = false
	}

	orbit.NumObs = int32(len(accepted))
	orbit.ArcLengthDays = maxT - minT

	// Four fitted parameters; clamp the denominator for short arcs.
	dof := 2*float64(len(accepted)) - 4
	if dof < 1 {
		dof = 1
	}
	orbit.ReducedChi2 = chi2 / dof
	return orbit, orbit.ReducedChi2
}

// buildResult assembles the per-orbit quadruple.
func buildResult(orbitID string, orbit orbits.FittedOrbit, accepted map[string]point, rejected map[string]float64, rchi2 float64, windows, iterations int32, tolerance float64, params Params, elapsed time.Duration) *orbits.ResultSet {
	orbit.OrbitID = orbitID
	orbit.Success = rchi2 <= params.RChi2Threshold

	// Stable member order: re-derive through the sorted observation-set
	// path so output does not depend on map iteration.
	members := make([]orbits.FittedOrbitMember, 0, len(accepted))
	candidates := make([]orbits.PrecoveryCandidate, 0, len(accepted))

	byTime := make([]orbits.Observation, 0, len(accepted))
	lookup := make(map[string]point, len(accepted))
	for _, p := range accepted {
		byTime = append(byTime, orbits.Observation{
			ObsID:           p.obsID,
			MJDDays:         int64(math.Floor(p.mjd)),
			MJDNanos:        int64((p.mjd - math.Floor(p.mjd)) * 86400e9),
			RADeg:           p.raDeg,
			DecDeg:          p.decDeg,
			ObservatoryCode: p.det.ObservatoryCode,
		})
		lookup[p.obsID] = p
	}
	set := orbits.BuildObservationSet(byTime)

	for _, o := range set.Observations {
		p := lookup[o.ObsID]
		raPred, decPred := orbits.Predict(orbit, p.mjd)
		resRA := (p.raDeg - raPred) * 3600
		resDec := (p.decDeg - decPred) * 3600
		chi2 := resRA*resRA + resDec*resDec

		members = append(members, orbits.FittedOrbitMember{
			OrbitID:           orbitID,
			ObsID:             p.obsID,
			ResidualRAArcsec:  resRA,
			ResidualDecArcsec: resDec,
			Chi2:              chi2,
			Outlier:           chi2 > params.OutlierChi2,
		})

		if !p.fromObs {
			candidates = append(candidates, orbits.PrecoveryCandidate{
				OrbitID:         orbitID,
				ObsID:           p.obsID,
				MJDDays:         p.det.MJDDays,
				MJDNanos:        p.det.MJDNanos,
				RADeg:           p.det.RADeg,
				DecDeg:          p.det.DecDeg,
				Mag:             p.det.Mag,
				ObservatoryCode: p.det.ObservatoryCode,
				DatasetID:       p.det.DatasetID,
				DistanceArcsec:  p.distAS,
			})
		}
	}

	var found int32
	for _, p := range accepted {
		if !p.fromObs {
			found++
		}
	}

	summary := orbits.SearchSummary{
		OrbitID:          orbitID,
		WindowsSearched:  windows,
		ObsFound:         found,
		ObsRejected:      int32(len(rejected)),
		ToleranceReached: math.Min(tolerance, params.MaxTolerance),
		Iterations:       iterations,
		WallTimeSeconds:  elapsed.Seconds(),
	}

	result := orbits.EmptyResultSet()
	result.Orbits.Append(orbit)
	result.Members.Append(members...)
	result.Candidates.Append(candidates...)
	result.Summaries.Append(summary)
	return result
}
