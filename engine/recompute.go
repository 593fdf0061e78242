package engine

import (
	"log/slog"

	"pherosim/catalog"
	"pherosim/models"

	"github.com/zyedidia/generic/mapset"
)

// Recompute zeroes the field of typ for owner and floods it again from every live emitter.
func (sc *SimulationContext) Recompute(typ catalog.Type, owner int) models.Diff {
	diff := models.Diff{}
	var stale []models.Position
	sc.Grid.Each(typ, owner, func(pos models.Position, _ float64) {
		stale = append(stale, pos)
	})
	for _, pos := range stale {
		sc.Grid.Set(pos, typ, owner, 0)
		diff.Put(pos, typ, owner, 0)
	}

	var seeds []Seed
	for _, e := range sc.Emitters(typ, owner) {
		seeds = append(seeds, Seed{Position: e.Position, Quantity: e.Quantity})
	}
	diff.Merge(sc.FloodFill(typ, owner, seeds))
	return diff
}

// RecomputeSteadyState recomputes every steady-state field that has an emitter.
func (sc *SimulationContext) RecomputeSteadyState() (diffs []models.Diff) {
	for _, typ := range sc.Catalog.SteadyState() {
		owners := mapset.New[int]()
		sc.emitters.Each(func(id int) {
			if e := sc.entities[id]; e.PheromoneType == typ {
				owners.Put(e.OwnerID)
			}
		})
		owners.Each(func(owner int) {
			if diff := sc.Recompute(typ, owner); len(diff) > 0 {
				diffs = append(diffs, diff)
			}
		})
	}
	return
}

// SetEmitterQuantity changes an emitter's output. A decrease retracts the old field
// from the emitter's cell before the new quantity is flooded.
func (sc *SimulationContext) SetEmitterQuantity(id int, quantity float64) []models.Diff {
	e, ok := sc.entities[id]
	if !ok || !e.IsEmitter() {
		sc.logger.Debug("set quantity of unknown emitter", slog.Int("entityID", id))
		return nil
	}
	old := e.Quantity
	e.Quantity = quantity

	diff := models.Diff{}
	if quantity < old {
		diff.Merge(sc.retract(e, e.PheromoneType, old))
	}
	if quantity > 0 {
		diff.Merge(sc.FloodFill(e.PheromoneType, e.OwnerID, []Seed{{Position: e.Position, Quantity: quantity}}))
	}
	if len(diff) == 0 {
		return nil
	}
	return []models.Diff{diff}
}

// ChangeEmitterType retracts the emitter's current substance and floods the new one.
func (sc *SimulationContext) ChangeEmitterType(id int, typ catalog.Type) (diffs []models.Diff) {
	e, ok := sc.entities[id]
	if !ok || !e.IsEmitter() {
		sc.logger.Debug("change type of unknown emitter", slog.Int("entityID", id))
		return nil
	}
	if _, ok := sc.Catalog.Lookup(typ); !ok {
		return nil
	}
	old := e.PheromoneType
	e.PheromoneType = typ
	if retracted := sc.retract(e, old, e.Quantity); len(retracted) > 0 {
		diffs = append(diffs, retracted)
	}
	if e.Quantity > 0 {
		if filled := sc.FloodFill(typ, e.OwnerID, []Seed{{Position: e.Position, Quantity: e.Quantity}}); len(filled) > 0 {
			diffs = append(diffs, filled)
		}
	}
	return
}

// retract raises the emitter's cell just above what the old output supported, so the cell
// cannot be mistaken for supported, and unwinds from it.
func (sc *SimulationContext) retract(e *models.Entity, typ catalog.Type, old float64) models.Diff {
	current := sc.Grid.Get(e.Position, typ, e.OwnerID)
	if old+1 > current {
		sc.Grid.Set(e.Position, typ, e.OwnerID, old+1)
	}
	return sc.ReverseFloodFill(typ, e.OwnerID, []models.Position{e.Position})
}
