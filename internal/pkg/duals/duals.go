// Package duals holds the dual prices of a solved master problem and writes them as
// integer-scaled facts for the grounder.
package duals

import (
	"fmt"
	"sort"
)

// PhiKey identifies a conservation row by location and product name.
type PhiKey struct {
	Location string
	Product  string
}

func (k PhiKey) String() string { return fmt.Sprintf("%s,%s", k.Location, k.Product) }

// CoverKey identifies a coverage row by route endpoints and product name.
type CoverKey struct {
	From    string
	To      string
	Product string
}

func (k CoverKey) Route() string { return k.From + "->" + k.To }

func (k CoverKey) String() string { return fmt.Sprintf("%s,%s", k.Route(), k.Product) }

// Duals maps each master row to its dual value.
type Duals struct {
	Phi   map[PhiKey]float64
	Cover map[CoverKey]float64
}

func New() Duals {
	return Duals{Phi: map[PhiKey]float64{}, Cover: map[CoverKey]float64{}}
}

func (d Duals) Len() int { return len(d.Phi) + len(d.Cover) }

// PhiKeys returns the conservation keys ordered by location then product.
func (d Duals) PhiKeys() []PhiKey {
	keys := make([]PhiKey, 0, len(d.Phi))
	for k := range d.Phi {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Location != keys[j].Location {
			return keys[i].Location < keys[j].Location
		}
		return keys[i].Product < keys[j].Product
	})
	return keys
}

// CoverKeys returns the coverage keys ordered by from, to, then product.
func (d Duals) CoverKeys() []CoverKey {
	keys := make([]CoverKey, 0, len(d.Cover))
	for k := range d.Cover {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Product < b.Product
	})
	return keys
}
