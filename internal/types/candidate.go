package types

import (
	"database/sql"

	"github.com/elliotchance/orderedmap/v2"
)

// Candidate is an identifier selected for reconciliation, together with the
// stored body summary used by the staleness comparison. BodyCount and
// LenBodies are only meaningful for incomplete candidates; LenBodies is
// NULL for systems whose body list has never been counted.
type Candidate struct {
	ID64      int64
	Name      string
	BodyCount int64
	LenBodies sql.NullInt64
}

// CandidateSet is an insertion-ordered set of candidates, unique by id64.
// Report tables can reference the same system more than once; the first
// occurrence wins and later duplicates are dropped.
type CandidateSet struct {
	m *orderedmap.OrderedMap[int64, *Candidate]
}

// NewCandidateSet returns an empty candidate set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{m: orderedmap.NewOrderedMap[int64, *Candidate]()}
}

// Add inserts a candidate unless its id64 is already present.
// Returns true if the candidate was added.
func (s *CandidateSet) Add(c *Candidate) bool {
	if _, exists := s.m.Get(c.ID64); exists {
		return false
	}
	s.m.Set(c.ID64, c)
	return true
}

// Contains reports whether the set holds the given id64.
func (s *CandidateSet) Contains(id64 int64) bool {
	_, exists := s.m.Get(id64)
	return exists
}

// Len returns the number of candidates in the set.
func (s *CandidateSet) Len() int {
	return s.m.Len()
}

// All returns the candidates in insertion order.
func (s *CandidateSet) All() []*Candidate {
	out := make([]*Candidate, 0, s.m.Len())
	for el := s.m.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Last returns the highest id64 in the set, used as the paging checkpoint.
// Returns 0 for an empty set.
func (s *CandidateSet) Last() int64 {
	var max int64
	for el := s.m.Front(); el != nil; el = el.Next() {
		if el.Key > max {
			max = el.Key
		}
	}
	return max
}
