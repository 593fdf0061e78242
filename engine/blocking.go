package engine

import (
	"pherosim/catalog"
	"pherosim/models"
)

// IsBlocking reports whether typ cannot enter pos: the position is off the grid, an
// occupant's kind is one of the substance's blockers, or a blocking substance is present.
// Unknown substances block everywhere.
func (sc *SimulationContext) IsBlocking(typ catalog.Type, pos models.Position) bool {
	if !sc.Grid.InBounds(pos) {
		return true
	}
	pt, ok := sc.Catalog.Lookup(typ)
	if !ok {
		return true
	}
	return sc.blocks(pt, pos)
}

func (sc *SimulationContext) blocks(pt *catalog.PheromoneType, pos models.Position) bool {
	for _, id := range sc.Grid.Occupants(pos) {
		if e, ok := sc.entities[id]; ok && pt.Blocks(e.Kind) {
			return true
		}
	}
	for _, other := range pt.BlockingPheromones {
		if sc.Grid.Get(pos, other, Environment) > 0 {
			return true
		}
	}
	return false
}

// Temperature is the environmental heat minus cold at pos.
func (sc *SimulationContext) Temperature(pos models.Position) float64 {
	return sc.Grid.Get(pos, catalog.HEAT, Environment) - sc.Grid.Get(pos, catalog.COLD, Environment)
}

// supportBound is the largest value pos could hold from its unblocked orthogonal
// neighbors alone.
func (sc *SimulationContext) supportBound(pt *catalog.PheromoneType, owner int, pos models.Position) float64 {
	bound := 0.0
	for _, n := range sc.Grid.Orthogonal(pos) {
		if sc.blocks(pt, n) {
			continue
		}
		bound = max(bound, sc.Grid.Get(n, pt.Name, owner)-pt.DecayAmount)
	}
	return bound
}

// staleQuantity recomputes the quantity a re-eligible position should propagate: the
// emitter's own quantity if one lives there, else what its neighbors support.
func (sc *SimulationContext) staleQuantity(pt *catalog.PheromoneType, owner int, pos models.Position) float64 {
	if e, ok := sc.EmitterAt(pos, pt.Name, owner); ok {
		return e.Quantity
	}
	return sc.supportBound(pt, owner, pos)
}
