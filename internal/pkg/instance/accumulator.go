package instance

import (
	"sort"

	log "github.com/golang/glog"
	"github.com/ohowland/lno_core/internal/pkg/fact"
)

type set map[string]struct{}

func (s set) add(name string) { s[name] = struct{}{} }

func (s set) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type routeKey struct{ from, to string }

// Accumulator collects facts until every entity name is known. Build can only assign
// IDs after the last fact has been added. An Accumulator is not safe for concurrent use.
type Accumulator struct {
	locations set
	resources set
	parts     set

	capacity map[string]float64
	co2      map[string]float64
	cost     map[string]float64
	speed    map[string]float64
	size     map[string]float64
	value    map[string]float64
	validTR  map[string]set

	offer  map[string]map[string]float64
	demand map[string]map[string]float64
	routes map[routeKey]map[string]float64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		locations: set{},
		resources: set{},
		parts:     set{},
		capacity:  map[string]float64{},
		co2:       map[string]float64{},
		cost:      map[string]float64{},
		speed:     map[string]float64{},
		size:      map[string]float64{},
		value:     map[string]float64{},
		validTR:   map[string]set{},
		offer:     map[string]map[string]float64{},
		demand:    map[string]map[string]float64{},
		routes:    map[routeKey]map[string]float64{},
	}
}

// AddAll adds every fact in order.
func (a *Accumulator) AddAll(facts []fact.Fact) {
	for _, f := range facts {
		a.Add(f)
	}
}

// Add records one fact. Facts that carry no instance data (duals) are ignored.
func (a *Accumulator) Add(f fact.Fact) {
	switch f := f.(type) {
	case fact.Location:
		a.locations.add(f.Name)
	case fact.TransportResource:
		a.resources.add(f.Name)
	case fact.TransportCapacity:
		a.capacity[f.Resource] = f.Capacity
	case fact.TransportCO2:
		a.co2[f.Resource] = f.CO2
	case fact.TransportCost:
		a.cost[f.Resource] = f.Cost
	case fact.TransportSpeed:
		a.speed[f.Resource] = f.Speed
	case fact.Part:
		a.parts.add(f.Name)
	case fact.PartSize:
		a.size[f.Part] = f.Size
	case fact.PartVal:
		a.value[f.Part] = f.Value
	case fact.PartTR:
		if a.validTR[f.Part] == nil {
			a.validTR[f.Part] = set{}
		}
		a.validTR[f.Part].add(f.Resource)
	case fact.Offer:
		a.parts.add(f.Part)
		a.locations.add(f.Location)
		addQuantity(a.offer, f.Part, f.Location, f.Quantity)
	case fact.Demand:
		a.parts.add(f.Part)
		a.locations.add(f.Location)
		addQuantity(a.demand, f.Part, f.Location, f.Quantity)
	case fact.Route:
		a.locations.add(f.From)
		a.locations.add(f.To)
		a.resources.add(f.Resource)
		k := routeKey{f.From, f.To}
		if a.routes[k] == nil {
			a.routes[k] = map[string]float64{}
		}
		if d, ok := a.routes[k][f.Resource]; !ok || f.Distance < d {
			a.routes[k][f.Resource] = f.Distance
		}
	}
}

func addQuantity(m map[string]map[string]float64, part, location string, q float64) {
	if m[part] == nil {
		m[part] = map[string]float64{}
	}
	m[part][location] += q
}

// Build assigns IDs in lexicographic name order and returns the canonical model.
func (a *Accumulator) Build(settings Settings) *Model {
	m := &Model{Settings: settings}

	locID := map[string]string{}
	for i, name := range a.locations.sorted() {
		l := Location{ID: id("L", i+1), Name: name}
		locID[name] = l.ID
		m.Locations = append(m.Locations, l)
	}

	trID := map[string]string{}
	for i, name := range a.resources.sorted() {
		tr := TransportResource{
			ID:           id("TR", i+1),
			Name:         name,
			Capacity:     a.capacity[name],
			CO2Emissions: a.co2[name],
			Cost:         a.cost[name],
			Speed:        1,
		}
		if s, ok := a.speed[name]; ok {
			tr.Speed = s
		}
		trID[name] = tr.ID
		m.TransportResources = append(m.TransportResources, tr)
	}

	for i, name := range a.parts.sorted() {
		p := Product{
			ID:              id("P", i+1),
			Name:            name,
			ValidTR:         []string{},
			Size:            a.size[name],
			Value:           a.value[name],
			NetSupplyDemand: make(map[string]float64, len(m.Locations)),
		}
		for _, l := range m.Locations {
			p.NetSupplyDemand[l.ID] = 0
		}
		for loc, q := range a.offer[name] {
			p.NetSupplyDemand[locID[loc]] += q
		}
		for loc, q := range a.demand[name] {
			p.NetSupplyDemand[locID[loc]] -= q
		}
		for _, tr := range a.validTR[name].sorted() {
			if ref, ok := trID[tr]; ok {
				p.ValidTR = append(p.ValidTR, ref)
			}
		}
		m.Products = append(m.Products, p)
	}

	keys := make([]routeKey, 0, len(a.routes))
	for k := range a.routes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})
	for i, k := range keys {
		r := Route{
			ID:                 id("R", i+1),
			From:               locID[k.from],
			To:                 locID[k.to],
			TransportResources: map[string]float64{},
		}
		for tr, d := range a.routes[k] {
			r.TransportResources[trID[tr]] = d
		}
		m.Routes = append(m.Routes, r)
	}

	m.Dangling = a.dangling()
	m.index()
	log.V(1).Infof("[Builder] %d locations, %d transport resources, %d products, %d routes",
		len(m.Locations), len(m.TransportResources), len(m.Products), len(m.Routes))
	for _, ref := range m.Dangling {
		log.V(1).Infof("[Builder] omitted dangling reference %s", ref)
	}
	return m
}

// dangling lists attribute facts whose subject was never introduced.
func (a *Accumulator) dangling() []Reference {
	var refs []Reference
	check := func(pred string, attrs map[string]float64, known set) {
		for name := range attrs {
			if !known.has(name) {
				refs = append(refs, Reference{pred, name})
			}
		}
	}
	check("transportCapacity", a.capacity, a.resources)
	check("transportCO2", a.co2, a.resources)
	check("transportCost", a.cost, a.resources)
	check("transportSpeed", a.speed, a.resources)
	check("partSize", a.size, a.parts)
	check("partVal", a.value, a.parts)
	for part, trs := range a.validTR {
		if !a.parts.has(part) {
			refs = append(refs, Reference{"partTR", part})
		}
		for tr := range trs {
			if !a.resources.has(tr) {
				refs = append(refs, Reference{"partTR", tr})
			}
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Predicate != refs[j].Predicate {
			return refs[i].Predicate < refs[j].Predicate
		}
		return refs[i].Name < refs[j].Name
	})
	return refs
}
