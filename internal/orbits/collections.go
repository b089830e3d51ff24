package orbits

import (
	"errors"
	"fmt"
)

var (
	// ErrOrbitNotFound is returned when an orbit ID has no candidate row.
	ErrOrbitNotFound = errors.New("orbit not found")

	// ErrDuplicateOrbit is returned when an orbit ID matches more than one
	// candidate row.
	ErrDuplicateOrbit = errors.New("duplicate orbit id")
)

// Orbits is the candidate-orbit table, ordered and keyed by orbit ID.
type Orbits struct {
	Table[FittedOrbit]
}

// NewOrbits builds an orbit table from rows.
func NewOrbits(rows []FittedOrbit) *Orbits {
	return &Orbits{Table: FromRows(rows)}
}

// IDs returns the orbit IDs in table order.
func (o *Orbits) IDs() []string {
	rows := o.Rows()
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.OrbitID
	}
	return ids
}

// Select returns the single row for the given orbit ID. The ID must match
// exactly one row.
func (o *Orbits) Select(orbitID string) (FittedOrbit, error) {
	var found FittedOrbit
	n := 0
	for _, r := range o.Rows() {
		if r.OrbitID == orbitID {
			found = r
			n++
		}
	}
	switch n {
	case 0:
		return FittedOrbit{}, fmt.Errorf("%w: %s", ErrOrbitNotFound, orbitID)
	case 1:
		return found, nil
	default:
		return FittedOrbit{}, fmt.Errorf("%w: %s matches %d rows", ErrDuplicateOrbit, orbitID, n)
	}
}

// Members is the membership table mapping orbit IDs to observation IDs.
type Members struct {
	Table[FittedOrbitMember]
}

// NewMembers builds a membership table from rows.
func NewMembers(rows []FittedOrbitMember) *Members {
	return &Members{Table: FromRows(rows)}
}

// ObsIDsFor returns the observation IDs supporting the given orbit, in
// table order.
func (m *Members) ObsIDsFor(orbitID string) []string {
	var ids []string
	for _, r := range m.Rows() {
		if r.OrbitID == orbitID {
			ids = append(ids, r.ObsID)
		}
	}
	return ids
}

// Observations is the full pool of astrometric observations.
type Observations struct {
	Table[Observation]
}

// NewObservations builds an observation table from rows.
func NewObservations(rows []Observation) *Observations {
	return &Observations{Table: FromRows(rows)}
}

// SelectByIDs returns the rows whose observation ID is in ids.
func (o *Observations) SelectByIDs(ids []string) []Observation {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []Observation
	for _, r := range o.Rows() {
		if _, ok := want[r.ObsID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Candidates accumulates precovery candidates.
type Candidates struct {
	Table[PrecoveryCandidate]
}

// NewCandidates builds a candidate table from rows.
func NewCandidates(rows []PrecoveryCandidate) *Candidates {
	return &Candidates{Table: FromRows(rows)}
}

// Summaries accumulates search summaries.
type Summaries struct {
	Table[SearchSummary]
}

// NewSummaries builds a summary table from rows.
func NewSummaries(rows []SearchSummary) *Summaries {
	return &Summaries{Table: FromRows(rows)}
}
