package engine

import (
	"pherosim/catalog"
	"pherosim/models"
)

// Seed is one unit of flood-fill work for a known substance and owner.
type Seed struct {
	Position models.Position
	Quantity float64
	// Stale seeds recompute their quantity from the grid when popped.
	Stale bool
}

// Source is a seed addressed to a substance and owner.
type Source struct {
	Position      models.Position `json:"position"`
	PheromoneType catalog.Type    `json:"substanceType"`
	OwnerID       int             `json:"ownerId"`
	Quantity      float64         `json:"quantity"`
	Stale         bool            `json:"stale,omitempty"`
	// EntityID is the emitter the source came from, if any.
	EntityID int `json:"entityId,omitempty"`
}

// FloodFill propagates typ for owner breadth-first from the seeds and returns every write.
//
// Each popped seed is written only if it raises the stored value, and spreads to the 4
// orthogonal neighbors with its quantity less the decay amount. Because every write is a
// max, the final field does not depend on the order of the seeds. Diagonals are never
// expanded into.
func (sc *SimulationContext) FloodFill(typ catalog.Type, owner int, seeds []Seed) models.Diff {
	diff := models.Diff{}
	pt, ok := sc.Catalog.Lookup(typ)
	if !ok {
		return diff
	}

	written := 0
	queue := append([]Seed(nil), seeds...)
	for len(queue) > 0 {
		seed := queue[0]
		queue = queue[1:]

		quantity := seed.Quantity
		if seed.Stale {
			quantity = sc.staleQuantity(pt, owner, seed.Position)
		}
		quantity = min(quantity, pt.QuantityCap)
		if quantity <= 0 || !sc.Grid.InBounds(seed.Position) {
			continue
		}
		if sc.blocks(pt, seed.Position) && !pt.CanInhabitBlocker {
			continue
		}
		if sc.Grid.Get(seed.Position, typ, owner) >= quantity {
			continue
		}

		stored, _ := sc.Grid.Set(seed.Position, typ, owner, quantity)
		diff.Put(seed.Position, typ, owner, stored)
		written++
		if pt.IsDispersing {
			sc.register(typ, owner, seed.Position, stored)
		}

		next := stored - pt.DecayAmount
		if next <= 0 {
			continue
		}
		for _, n := range sc.Grid.Orthogonal(seed.Position) {
			if next > sc.Grid.Get(n, typ, owner) && !sc.blocks(pt, n) {
				queue = append(queue, Seed{Position: n, Quantity: next})
			}
		}
	}

	cellsWritten.WithLabelValues(string(typ)).Add(float64(written))
	return diff
}

type fieldKey struct {
	typ   catalog.Type
	owner int
}

// FloodFillSources groups sources by substance and owner, in order of first appearance,
// and flood fills each group as one queue. One diff is returned per non-empty group.
func (sc *SimulationContext) FloodFillSources(sources []Source) (diffs []models.Diff) {
	var order []fieldKey
	groups := map[fieldKey][]Seed{}
	for _, s := range sources {
		key := fieldKey{typ: s.PheromoneType, owner: s.OwnerID}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], Seed{Position: s.Position, Quantity: s.Quantity, Stale: s.Stale})
	}
	for _, key := range order {
		if diff := sc.FloodFill(key.typ, key.owner, groups[key]); len(diff) > 0 {
			diffs = append(diffs, diff)
		}
	}
	return
}
