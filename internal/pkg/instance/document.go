package instance

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Document is the interchange form of a Model sent to an out-of-process solver.
type Document struct {
	Settings           Settings                          `json:"settings"`
	Locations          map[string]LocationEntry          `json:"locations"`
	TransportResources map[string]TransportResourceEntry `json:"transportResources"`
	Products           map[string]ProductEntry           `json:"products"`
	Routes             map[string]RouteEntry             `json:"routes"`
}

type LocationEntry struct {
	Name string `json:"name"`
}

type TransportResourceEntry struct {
	Name         string  `json:"name"`
	Capacity     float64 `json:"capacity"`
	CO2Emissions float64 `json:"co2Emissions"`
	Cost         float64 `json:"cost"`
	Speed        float64 `json:"speed"`
}

type ProductEntry struct {
	Name            string             `json:"name"`
	ValidTR         []string           `json:"validTR"`
	Size            float64            `json:"size"`
	Value           float64            `json:"value"`
	NetSupplyDemand map[string]float64 `json:"netSupplyDemand"`
}

type RouteEntry struct {
	From               string                   `json:"from"`
	To                 string                   `json:"to"`
	TransportResources map[string]DistanceEntry `json:"transportResources"`
}

type DistanceEntry struct {
	Distance float64 `json:"distance"`
}

// Document converts the model to its interchange form. encoding/json writes map keys in
// sorted order, so equal models marshal to identical bytes.
func (m *Model) Document() Document {
	doc := Document{
		Settings:           m.Settings,
		Locations:          make(map[string]LocationEntry, len(m.Locations)),
		TransportResources: make(map[string]TransportResourceEntry, len(m.TransportResources)),
		Products:           make(map[string]ProductEntry, len(m.Products)),
		Routes:             make(map[string]RouteEntry, len(m.Routes)),
	}
	for _, l := range m.Locations {
		doc.Locations[l.ID] = LocationEntry{Name: l.Name}
	}
	for _, tr := range m.TransportResources {
		doc.TransportResources[tr.ID] = TransportResourceEntry{
			Name:         tr.Name,
			Capacity:     tr.Capacity,
			CO2Emissions: tr.CO2Emissions,
			Cost:         tr.Cost,
			Speed:        tr.Speed,
		}
	}
	for _, p := range m.Products {
		valid := append([]string{}, p.ValidTR...)
		nsd := make(map[string]float64, len(p.NetSupplyDemand))
		for k, v := range p.NetSupplyDemand {
			nsd[k] = v
		}
		doc.Products[p.ID] = ProductEntry{
			Name:            p.Name,
			ValidTR:         valid,
			Size:            p.Size,
			Value:           p.Value,
			NetSupplyDemand: nsd,
		}
	}
	for _, r := range m.Routes {
		trs := make(map[string]DistanceEntry, len(r.TransportResources))
		for tr, d := range r.TransportResources {
			trs[tr] = DistanceEntry{Distance: d}
		}
		doc.Routes[r.ID] = RouteEntry{From: r.From, To: r.To, TransportResources: trs}
	}
	return doc
}

// FromDocument rebuilds a Model from its interchange form. Cross references must resolve.
func FromDocument(doc Document) (*Model, error) {
	m := &Model{Settings: doc.Settings}

	for _, k := range sortedKeys(doc.Locations) {
		m.Locations = append(m.Locations, Location{ID: k, Name: doc.Locations[k].Name})
	}
	for _, k := range sortedKeys(doc.TransportResources) {
		e := doc.TransportResources[k]
		m.TransportResources = append(m.TransportResources, TransportResource{
			ID:           k,
			Name:         e.Name,
			Capacity:     e.Capacity,
			CO2Emissions: e.CO2Emissions,
			Cost:         e.Cost,
			Speed:        e.Speed,
		})
	}
	m.index()

	for _, k := range sortedKeys(doc.Products) {
		e := doc.Products[k]
		p := Product{
			ID:              k,
			Name:            e.Name,
			ValidTR:         []string{},
			Size:            e.Size,
			Value:           e.Value,
			NetSupplyDemand: make(map[string]float64, len(m.Locations)),
		}
		for _, tr := range e.ValidTR {
			if _, ok := m.resources[tr]; !ok {
				return nil, errors.Errorf("product %s: unknown transport resource %s", k, tr)
			}
			p.ValidTR = append(p.ValidTR, tr)
		}
		for _, l := range m.Locations {
			p.NetSupplyDemand[l.ID] = 0
		}
		for loc, v := range e.NetSupplyDemand {
			if _, ok := m.locations[loc]; !ok {
				return nil, errors.Errorf("product %s: unknown location %s", k, loc)
			}
			p.NetSupplyDemand[loc] = v
		}
		m.Products = append(m.Products, p)
	}

	for _, k := range sortedKeys(doc.Routes) {
		e := doc.Routes[k]
		if _, ok := m.locations[e.From]; !ok {
			return nil, errors.Errorf("route %s: unknown location %s", k, e.From)
		}
		if _, ok := m.locations[e.To]; !ok {
			return nil, errors.Errorf("route %s: unknown location %s", k, e.To)
		}
		r := Route{ID: k, From: e.From, To: e.To, TransportResources: map[string]float64{}}
		for tr, d := range e.TransportResources {
			if _, ok := m.resources[tr]; !ok {
				return nil, errors.Errorf("route %s: unknown transport resource %s", k, tr)
			}
			r.TransportResources[tr] = d.Distance
		}
		m.Routes = append(m.Routes, r)
	}
	m.index()
	return m, nil
}

// sortedKeys orders IDs by prefix then number, so R2 sorts before R10.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, ni := splitID(keys[i])
		pj, nj := splitID(keys[j])
		if pi != pj {
			return pi < pj
		}
		if ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func splitID(s string) (string, int) {
	i := strings.IndexAny(s, "0123456789")
	if i < 0 {
		return s, -1
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, -1
	}
	return s[:i], n
}
