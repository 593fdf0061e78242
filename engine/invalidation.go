package engine

import (
	"pherosim/catalog"
	"pherosim/models"

	"github.com/zyedidia/generic/mapset"
)

// supportEpsilon absorbs float error when comparing a value against its neighbor bound.
const supportEpsilon = 1e-9

// ReverseFloodFill unwinds values of typ for owner that lost their support, starting at
// the frontier, then repairs the unwound region from whatever support remains.
//
// A popped cell is still supported if its value does not exceed the best value its
// unblocked orthogonal neighbors can give it, or if a live emitter there is at least as
// strong. Supported cells become repair seeds. Unsupported cells are zeroed and their
// positive neighbors are examined in turn, except neighbors already at the cap, which
// are adjacent to a full source and are seeded directly. Once the unwind drains, the
// seeds are expanded by FloodFill. The result equals recomputing the field from scratch.
func (sc *SimulationContext) ReverseFloodFill(typ catalog.Type, owner int, frontier []models.Position) models.Diff {
	diff := models.Diff{}
	pt, ok := sc.Catalog.Lookup(typ)
	if !ok {
		return diff
	}

	zeroed := mapset.New[models.Position]()
	var boundary []models.Position
	queue := append([]models.Position(nil), frontier...)
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]

		current := sc.Grid.Get(pos, typ, owner)
		if current <= 0 {
			continue
		}
		if sc.supported(pt, owner, pos, current) {
			boundary = append(boundary, pos)
			continue
		}

		sc.Grid.Set(pos, typ, owner, 0)
		diff.Put(pos, typ, owner, 0)
		zeroed.Put(pos)

		for _, n := range sc.Grid.Orthogonal(pos) {
			q := sc.Grid.Get(n, typ, owner)
			switch {
			case q <= 0:
			case q >= pt.QuantityCap:
				boundary = append(boundary, n)
			default:
				queue = append(queue, n)
			}
		}
	}
	cellsZeroed.WithLabelValues(string(typ)).Add(float64(zeroed.Size()))

	diff.Merge(sc.FloodFill(typ, owner, sc.repairSeeds(pt, owner, boundary, zeroed)))
	return diff
}

func (sc *SimulationContext) supported(pt *catalog.PheromoneType, owner int, pos models.Position, current float64) bool {
	if sc.blocks(pt, pos) && !pt.CanInhabitBlocker {
		return false
	}
	if e, ok := sc.EmitterAt(pos, pt.Name, owner); ok && e.Quantity >= current {
		return true
	}
	return current <= sc.supportBound(pt, owner, pos)+supportEpsilon
}

// repairSeeds expands each surviving boundary cell into its neighbors and re-seeds every
// live emitter whose cell was zeroed.
func (sc *SimulationContext) repairSeeds(
	pt *catalog.PheromoneType,
	owner int,
	boundary []models.Position,
	zeroed mapset.Set[models.Position],
) (seeds []Seed) {
	zeroed.Each(func(pos models.Position) {
		if e, ok := sc.EmitterAt(pos, pt.Name, owner); ok {
			seeds = append(seeds, Seed{Position: pos, Quantity: e.Quantity})
		}
	})
	for _, pos := range boundary {
		next := sc.Grid.Get(pos, pt.Name, owner) - pt.DecayAmount
		if next <= 0 {
			continue
		}
		for _, n := range sc.Grid.Orthogonal(pos) {
			if next > sc.Grid.Get(n, pt.Name, owner) && !sc.blocks(pt, n) {
				seeds = append(seeds, Seed{Position: n, Quantity: next})
			}
		}
	}
	return
}

// ReverseFloodFillSources groups sources by substance and owner and unwinds each group.
func (sc *SimulationContext) ReverseFloodFillSources(sources []Source) (diffs []models.Diff) {
	var order []fieldKey
	groups := map[fieldKey][]models.Position{}
	for _, s := range sources {
		key := fieldKey{typ: s.PheromoneType, owner: s.OwnerID}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], s.Position)
	}
	for _, key := range order {
		if diff := sc.ReverseFloodFill(key.typ, key.owner, groups[key]); len(diff) > 0 {
			diffs = append(diffs, diff)
		}
	}
	return
}
