// Package chunk plans the partitioning of an ordered identifier sequence
// into fixed-size contiguous ranges for dispatch.
package chunk

// Range is a contiguous half-open index range [Start, End) over the item
// sequence. Index provides monotonic submission ordering.
type Range struct {
	Start int
	End   int
	Index int
}

// Len returns the number of items in the range.
func (r Range) Len() int { return r.End - r.Start }

// EffectiveSize computes the chunk size actually used for a run:
// min(ceil(n/workers), size). Capping at ceil(n/workers) guarantees at least
// `workers` chunks whenever there is enough work to keep every worker busy,
// while never exceeding the caller's requested size. The result is at
// least 1.
func EffectiveSize(n, workers, size int) int {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	if n <= 0 {
		return 1
	}
	perWorker := (n + workers - 1) / workers
	if perWorker < size {
		return perWorker
	}
	return size
}

// Plan is a restartable description of the chunking of n items into ranges
// of a fixed size. It holds no state beyond the two numbers that define it.
type Plan struct {
	n    int
	size int
}

// NewPlan creates a plan for n items with the effective chunk size computed
// from the worker count and the nominal size.
func NewPlan(n, workers, size int) Plan {
	return Plan{n: n, size: EffectiveSize(n, workers, size)}
}

// Size returns the effective chunk size.
func (p Plan) Size() int { return p.size }

// Count returns the number of ranges in the plan.
func (p Plan) Count() int {
	if p.n <= 0 {
		return 0
	}
	return (p.n + p.size - 1) / p.size
}

// At returns the i-th range. Ranges are disjoint, exhaustive, and ordered by
// start index; the last range may be short.
func (p Plan) At(i int) Range {
	start := i * p.size
	end := start + p.size
	if end > p.n {
		end = p.n
	}
	return Range{Start: start, End: end, Index: i}
}

// Ranges materializes every range in order.
func (p Plan) Ranges() []Range {
	out := make([]Range, 0, p.Count())
	for i := 0; i < p.Count(); i++ {
		out = append(out, p.At(i))
	}
	return out
}
