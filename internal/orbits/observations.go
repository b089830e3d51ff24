package orbits

import "sort"

// Observer is the per-observation observer record derived from the
// observatory code and observation time.
type Observer struct {
	Code     string
	MJDDays  int64
	MJDNanos int64
}

// ObservationSet pairs sorted observations with their derived observers,
// ready to hand to the refinement routine. Both slices are sorted by
// (time days, time nanoseconds, code) ascending and are index-aligned.
type ObservationSet struct {
	Observations []Observation
	Observers    []Observer
}

// Len returns the number of observations in the set.
func (s *ObservationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Observations)
}

// BuildObservationSet sorts the observations by (mjd_days, mjd_nanos,
// observatory_code), derives one observer per observation, and pairs them.
func BuildObservationSet(obs []Observation) *ObservationSet {
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.MJDDays != b.MJDDays {
			return a.MJDDays < b.MJDDays
		}
		if a.MJDNanos != b.MJDNanos {
			return a.MJDNanos < b.MJDNanos
		}
		return a.ObservatoryCode < b.ObservatoryCode
	})

	observers := make([]Observer, len(sorted))
	for i, o := range sorted {
		observers[i] = Observer{
			Code:     o.ObservatoryCode,
			MJDDays:  o.MJDDays,
			MJDNanos: o.MJDNanos,
		}
	}

	return &ObservationSet{Observations: sorted, Observers: observers}
}
