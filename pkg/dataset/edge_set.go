package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Edge is the fact "this service is offered in this region".
type Edge struct {
	Region  string `json:"region"`
	Service string `json:"service"`
}

func (e Edge) String() string {
	return fmt.Sprintf("(%s, %s)", e.Region, e.Service)
}

// EdgeSet is the availability relation between regions and services.
// Union and Add are commutative, so merge order across collection units
// never affects the final relation.
type EdgeSet map[Edge]struct{}

func EdgeSetOf(edges ...Edge) EdgeSet {
	s := make(EdgeSet, len(edges))
	s.Add(edges...)
	return s
}

func (s EdgeSet) Add(edges ...Edge) {
	for _, e := range edges {
		s[e] = struct{}{}
	}
}

func (s EdgeSet) AddFrom(other EdgeSet) {
	for e := range other {
		s[e] = struct{}{}
	}
}

func (s EdgeSet) Contains(e Edge) bool {
	_, ok := s[e]
	return ok
}

func (s EdgeSet) Len() int {
	return len(s)
}

func (s EdgeSet) Union(other EdgeSet) EdgeSet {
	union := make(EdgeSet, len(s)+len(other))
	union.AddFrom(s)
	union.AddFrom(other)
	return union
}

// ToSlice returns the edges ordered by region then service so that output
// generators and tests see a stable ordering.
func (s EdgeSet) ToSlice() []Edge {
	edges := make([]Edge, 0, len(s))
	for e := range s {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Region != edges[j].Region {
			return edges[i].Region < edges[j].Region
		}
		return edges[i].Service < edges[j].Service
	})
	return edges
}

// MarshalJSON serializes the set as a sorted edge list. A struct-keyed map
// has no natural JSON form, and the sorted list keeps cache files diffable.
func (s EdgeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToSlice())
}

func (s *EdgeSet) UnmarshalJSON(data []byte) error {
	var edges []Edge
	if err := json.Unmarshal(data, &edges); err != nil {
		return err
	}
	*s = EdgeSetOf(edges...)
	return nil
}
