// Package instance builds the canonical logistics model from parsed facts: stable IDs,
// aggregated net supply/demand per product and location, and deduplicated routes.
package instance

import "fmt"

// Settings carries the cost multipliers reserved for a cost-aware master objective.
type Settings struct {
	CO2Costs     float64 `json:"co2Costs"`
	CapitalCosts float64 `json:"capitalCosts"`
}

// DefaultSettings matches the multipliers the external solver has always been fed.
func DefaultSettings() Settings {
	return Settings{CO2Costs: 50, CapitalCosts: 0.1}
}

type Location struct {
	ID   string
	Name string
}

type TransportResource struct {
	ID           string
	Name         string
	Capacity     float64
	CO2Emissions float64
	Cost         float64
	Speed        float64
}

// Product holds the net supply/demand of a part for every location, keyed by location ID.
// Positive values are net sources.
type Product struct {
	ID              string
	Name            string
	ValidTR         []string
	Size            float64
	Value           float64
	NetSupplyDemand map[string]float64
}

// Route is a directed (From, To) location pair with the shortest known distance per
// transport resource ID.
type Route struct {
	ID                 string
	From               string
	To                 string
	TransportResources map[string]float64
}

// Reference names an attribute fact that points at an entity nobody declared.
type Reference struct {
	Predicate string
	Name      string
}

func (r Reference) String() string { return fmt.Sprintf("%s(%s)", r.Predicate, r.Name) }

// Model is the canonical instance. Slices are ordered by ID number.
type Model struct {
	Settings           Settings
	Locations          []Location
	TransportResources []TransportResource
	Products           []Product
	Routes             []Route
	Dangling           []Reference

	locations map[string]int
	resources map[string]int
	products  map[string]int
	routes    map[[2]string]int
}

// Location returns the location with the given ID.
func (m *Model) Location(id string) (Location, bool) {
	i, ok := m.locations[id]
	if !ok {
		return Location{}, false
	}
	return m.Locations[i], true
}

// TransportResource returns the transport resource with the given ID.
func (m *Model) TransportResource(id string) (TransportResource, bool) {
	i, ok := m.resources[id]
	if !ok {
		return TransportResource{}, false
	}
	return m.TransportResources[i], true
}

// Product returns the product with the given ID.
func (m *Model) Product(id string) (Product, bool) {
	i, ok := m.products[id]
	if !ok {
		return Product{}, false
	}
	return m.Products[i], true
}

// RouteBetween returns the route from one location ID to another.
func (m *Model) RouteBetween(from, to string) (Route, bool) {
	i, ok := m.routes[[2]string{from, to}]
	if !ok {
		return Route{}, false
	}
	return m.Routes[i], true
}

// LocationName maps a location ID to its name, falling back to the ID.
func (m *Model) LocationName(id string) string {
	if l, ok := m.Location(id); ok {
		return l.Name
	}
	return id
}

// ProductName maps a product ID to its name, falling back to the ID.
func (m *Model) ProductName(id string) string {
	if p, ok := m.Product(id); ok {
		return p.Name
	}
	return id
}

func (m *Model) index() {
	m.locations = make(map[string]int, len(m.Locations))
	for i, l := range m.Locations {
		m.locations[l.ID] = i
	}
	m.resources = make(map[string]int, len(m.TransportResources))
	for i, tr := range m.TransportResources {
		m.resources[tr.ID] = i
	}
	m.products = make(map[string]int, len(m.Products))
	for i, p := range m.Products {
		m.products[p.ID] = i
	}
	m.routes = make(map[[2]string]int, len(m.Routes))
	for i, r := range m.Routes {
		m.routes[[2]string{r.From, r.To}] = i
	}
}

func id(prefix string, n int) string { return fmt.Sprintf("%s%d", prefix, n) }
