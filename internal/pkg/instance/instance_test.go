package instance

import (
	"encoding/json"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func load(t *testing.T, src string) *Model {
	t.Helper()
	m, res, err := Load(strings.NewReader(src), DefaultSettings())
	assert.NilError(t, err)
	assert.Equal(t, len(res.Dropped), 0)
	return m
}

func TestRouteKeepsMinimumDistance(t *testing.T) {
	m := load(t, `
route(a,b,truck,10,_).
route(a,b,truck,7,_).
route(a,b,truck,12,_).
route(b,a,truck,3,_).
`)
	assert.Equal(t, len(m.TransportResources), 1)
	assert.Equal(t, len(m.Routes), 2)

	ab, ok := m.RouteBetween("L1", "L2")
	assert.Assert(t, ok)
	assert.DeepEqual(t, ab.TransportResources, map[string]float64{"TR1": 7})

	ba, ok := m.RouteBetween("L2", "L1")
	assert.Assert(t, ok)
	assert.DeepEqual(t, ba.TransportResources, map[string]float64{"TR1": 3})
}

func TestRouteKeepsOneEntryPerResource(t *testing.T) {
	m := load(t, `
route(a,b,truck,10,_).
route(a,b,ship,4,_).
route(a,b,ship,6,_).
`)
	assert.Equal(t, len(m.Routes), 1)
	// ship sorts before truck
	assert.DeepEqual(t, m.Routes[0].TransportResources, map[string]float64{"TR1": 4, "TR2": 10})
}

func TestNetSupplyDemandSums(t *testing.T) {
	m := load(t, `
offer(p1,loc1,5).
offer(p1,loc1,3).
demand(p1,loc1,4).
demand(p1,loc2,4).
`)
	p, ok := m.Product("P1")
	assert.Assert(t, ok)
	assert.Equal(t, p.NetSupplyDemand["L1"], 4.0)
	assert.Equal(t, p.NetSupplyDemand["L2"], -4.0)
}

func TestNetSupplyDemandCoversAllLocations(t *testing.T) {
	m := load(t, `
location(depot).
location(hub).
part(p2).
offer(p1,loc1,5).
route(hub,store,truck,1,_).
`)
	// depot, hub, loc1, store
	assert.Equal(t, len(m.Locations), 4)
	assert.Equal(t, len(m.Products), 2)
	for _, p := range m.Products {
		assert.Equal(t, len(p.NetSupplyDemand), len(m.Locations), p.Name)
		for _, l := range m.Locations {
			_, ok := p.NetSupplyDemand[l.ID]
			assert.Assert(t, ok, "%s missing %s", p.Name, l.Name)
		}
	}
}

func TestIDsFollowNameOrder(t *testing.T) {
	m := load(t, `
location(zeta).
location(alpha).
offer(widget,mid,1).
transportResource(van).
route(alpha,zeta,bike,2,_).
`)
	names := []string{}
	for _, l := range m.Locations {
		names = append(names, l.ID+"="+l.Name)
	}
	assert.DeepEqual(t, names, []string{"L1=alpha", "L2=mid", "L3=zeta"})
	assert.Equal(t, m.TransportResources[0].Name, "bike")
	assert.Equal(t, m.TransportResources[1].ID, "TR2")
	assert.Equal(t, m.Routes[0].From, "L1")
	assert.Equal(t, m.Routes[0].To, "L3")
}

func TestTransportResourceDefaults(t *testing.T) {
	m := load(t, `
transportResource(truck).
transportCapacity(truck,40).
transportCost(truck,2.5).
route(a,b,ship,1,_).
transportSpeed(ship,20).
`)
	ship, _ := m.TransportResource("TR1")
	truck, _ := m.TransportResource("TR2")
	assert.DeepEqual(t, ship, TransportResource{ID: "TR1", Name: "ship", Speed: 20})
	assert.DeepEqual(t, truck, TransportResource{ID: "TR2", Name: "truck", Capacity: 40, Cost: 2.5, Speed: 1})
}

func TestDanglingReferencesAreOmitted(t *testing.T) {
	m := load(t, `
part(p1).
transportResource(truck).
partTR(p1,truck).
partTR(p1,plane).
partSize(ghost,3).
transportCO2(rocket,9).
`)
	p, _ := m.Product("P1")
	assert.DeepEqual(t, p.ValidTR, []string{"TR1"})
	assert.Equal(t, len(m.TransportResources), 1)
	assert.Equal(t, len(m.Products), 1)
	assert.DeepEqual(t, m.Dangling, []Reference{
		{"partSize", "ghost"},
		{"partTR", "plane"},
		{"transportCO2", "rocket"},
	})
}

const scenario = `
location(l1).
location(l2).
location(l3).
transportResource(truck).
transportResource(ship).
transportCapacity(truck,10).
part(p).
part(q).
partTR(p,truck).
offer(p,l1,10).
demand(p,l2,10).
offer(q,l3,2).
demand(q,l1,2).
route(l1,l2,truck,5,0).
route(l3,l1,ship,9,0).
route(l3,l1,truck,12,0).
`

func TestDocumentIsReproducible(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(scenario), "\n")
	reversed := make([]string, len(lines))
	for i, l := range lines {
		reversed[len(lines)-1-i] = l
	}

	a, err := json.Marshal(load(t, scenario).Document())
	assert.NilError(t, err)
	b, err := json.Marshal(load(t, strings.Join(reversed, "\n")).Document())
	assert.NilError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestDocumentShape(t *testing.T) {
	raw, err := json.Marshal(load(t, scenario).Document())
	assert.NilError(t, err)

	var doc map[string]map[string]interface{}
	assert.NilError(t, json.Unmarshal(raw, &doc))
	assert.DeepEqual(t, doc["settings"], map[string]interface{}{"co2Costs": 50.0, "capitalCosts": 0.1})

	p1 := doc["products"]["P1"].(map[string]interface{})
	assert.Equal(t, p1["name"], "p")
	assert.DeepEqual(t, p1["validTR"], []interface{}{"TR2"})
	assert.DeepEqual(t, p1["netSupplyDemand"], map[string]interface{}{"L1": 10.0, "L2": -10.0, "L3": 0.0})

	p2 := doc["products"]["P2"].(map[string]interface{})
	assert.DeepEqual(t, p2["validTR"], []interface{}{})

	r2 := doc["routes"]["R2"].(map[string]interface{})
	assert.Equal(t, r2["from"], "L3")
	assert.Equal(t, r2["to"], "L1")
	assert.DeepEqual(t, r2["transportResources"], map[string]interface{}{
		"TR1": map[string]interface{}{"distance": 9.0},
		"TR2": map[string]interface{}{"distance": 12.0},
	})
}

func TestFromDocumentRoundTrip(t *testing.T) {
	m := load(t, scenario)
	raw, err := json.Marshal(m.Document())
	assert.NilError(t, err)

	var doc Document
	assert.NilError(t, json.Unmarshal(raw, &doc))
	back, err := FromDocument(doc)
	assert.NilError(t, err)
	assert.DeepEqual(t, back.Document(), m.Document())
	assert.Equal(t, back.LocationName("L2"), "l2")
	assert.Equal(t, back.ProductName("P2"), "q")

	doc.Routes["R1"] = RouteEntry{From: "L1", To: "L9"}
	_, err = FromDocument(doc)
	assert.ErrorContains(t, err, "unknown location L9")
}
