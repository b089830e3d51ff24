package orbits

// ResultSet is the quadruple of result batches produced per chunk and
// accumulated for the whole run: refined orbits, their membership, precovery
// candidates, and search summaries. The four collections are correlated by
// orbit ID but accumulated independently; row order reflects merge order and
// carries no meaning.
type ResultSet struct {
	Orbits     Orbits
	Members    Members
	Candidates Candidates
	Summaries  Summaries
}

// EmptyResultSet returns a result set with four empty, non-nil collections.
func EmptyResultSet() *ResultSet {
	return &ResultSet{}
}

// Merge concatenates one chunk's batches into the running totals, one
// collection at a time, compacting any collection whose storage has become
// fragmented before the next merge.
func (r *ResultSet) Merge(chunk *ResultSet) {
	r.Orbits.Concat(&chunk.Orbits.Table)
	if r.Orbits.Fragmented() {
		r.Orbits.Defragment()
	}
	r.Members.Concat(&chunk.Members.Table)
	if r.Members.Fragmented() {
		r.Members.Defragment()
	}
	r.Candidates.Concat(&chunk.Candidates.Table)
	if r.Candidates.Fragmented() {
		r.Candidates.Defragment()
	}
	r.Summaries.Concat(&chunk.Summaries.Table)
	if r.Summaries.Fragmented() {
		r.Summaries.Defragment()
	}
}
