package sample

import "sort"

// Store is a population of live points kept sorted ascending by LogL.
//
// The classical loop uses it at a fixed length (Nlive): Insert replaces
// the current worst point in place. The importance loop additionally
// grows and shrinks it across levels via InsertSorted and RemoveBelow.
type Store struct {
	Nlive  int
	points []Sample
}

// NewStore returns an empty store with the given target population size.
func NewStore(nlive int) *Store {
	return &Store{Nlive: nlive, points: make([]Sample, 0, nlive)}
}

// Populate fills the store to Nlive points using generate, which should
// draw a fresh prior sample and run it through the proposal driver. Only
// samples with finite LogP and LogL are accepted. The store is sorted by
// LogL once full.
func (s *Store) Populate(generate func() (Sample, error)) error {
	s.points = s.points[:0]
	for len(s.points) < s.Nlive {
		smp, err := generate()
		if err != nil {
			return err
		}
		if smp.Finite() {
			s.points = append(s.points, smp)
		}
	}
	sort.Slice(s.points, func(i, j int) bool { return s.points[i].LogL < s.points[j].LogL })
	return nil
}

// Len returns the current population size.
func (s *Store) Len() int { return len(s.points) }

// Worst returns a copy of the lowest-likelihood live point.
func (s *Store) Worst() Sample { return s.points[0].Clone() }

// At returns a copy of the live point at rank i.
func (s *Store) At(i int) Sample { return s.points[i].Clone() }

// Points returns the backing slice directly for read-only column access
// (e.g. binary-searching LogL, or reading LogQ/LogW/It across the
// population). Callers must not retain it across a mutating call.
func (s *Store) Points() []Sample { return s.points }

// Sorted reports whether the store is currently ascending by LogL; used
// by tests to check the sortedness invariant.
func (s *Store) Sorted() bool {
	for i := 1; i < len(s.points); i++ {
		if s.points[i].LogL < s.points[i-1].LogL {
			return false
		}
	}
	return true
}

// Insert replaces the current worst point (slot 0) with new, which must
// satisfy new.LogL > s.points[0].LogL. It finds new's rank k among the
// current (still nlive-length) population via binary search, shifts
// slots [1,k) down into [0,k-1), and writes new into slot k-1. This keeps
// the store at constant length without a full resort. Returns the
// zero-based insertion index k-1.
func (s *Store) Insert(new Sample) int {
	k := sort.Search(len(s.points), func(i int) bool { return s.points[i].LogL > new.LogL })
	if k == 0 {
		// Unreachable in correct use: callers only insert replacements
		// with LogL strictly greater than the current worst (logLmin).
		k = 1
	}
	copy(s.points[0:k-1], s.points[1:k])
	s.points[k-1] = new
	return k - 1
}

// RemoveBelow removes and returns the n lowest-likelihood points,
// shrinking the store. Used by the importance loop's level eviction.
func (s *Store) RemoveBelow(n int) []Sample {
	if n <= 0 {
		return nil
	}
	if n > len(s.points) {
		n = len(s.points)
	}
	removed := make([]Sample, n)
	copy(removed, s.points[:n])
	remaining := make([]Sample, len(s.points)-n)
	copy(remaining, s.points[n:])
	s.points = remaining
	return removed
}

// InsertSorted inserts new at its sorted position, growing the store by
// one. Used by the importance loop when admitting newly drawn samples
// into the live array (§4.7 step 8: "searchsorted, maintaining sort
// order").
func (s *Store) InsertSorted(new Sample) int {
	k := sort.Search(len(s.points), func(i int) bool { return s.points[i].LogL > new.LogL })
	s.points = append(s.points, Sample{})
	copy(s.points[k+1:], s.points[k:len(s.points)-1])
	s.points[k] = new
	return k
}

// ReplaceAll swaps the entire population (used when resuming from a
// checkpoint or seeding from a precomputed set).
func (s *Store) ReplaceAll(points []Sample) {
	s.points = append(s.points[:0], points...)
}
