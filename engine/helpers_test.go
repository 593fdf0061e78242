package engine

import (
	"pherosim/catalog"
	"pherosim/grid"
	"pherosim/models"
)

func newContext(width, height int, cat *catalog.Catalog) *SimulationContext {
	if cat == nil {
		cat = catalog.Default()
	}
	return NewContext(grid.New(width, height, cat))
}

func place(sc *SimulationContext, e *models.Entity) *models.Entity {
	if e.Width == 0 {
		e.Width, e.Height = 1, 1
	}
	sc.AddEntity(e)
	sc.InsertInGrid(e)
	return e
}

func stone(id int, pos models.Position) *models.Entity {
	return &models.Entity{ID: id, Kind: catalog.STONE, Position: pos}
}

func emitter(id int, pos models.Position, typ catalog.Type, owner int, quantity float64) *models.Entity {
	return &models.Entity{
		ID:            id,
		Kind:          catalog.TOKEN,
		Position:      pos,
		OwnerID:       owner,
		PheromoneType: typ,
		Quantity:      quantity,
	}
}

// field returns every positive value of typ for owner.
func field(sc *SimulationContext, typ catalog.Type, owner int) map[models.Position]float64 {
	values := map[models.Position]float64{}
	sc.Grid.Each(typ, owner, func(pos models.Position, q float64) {
		values[pos] = q
	})
	return values
}

// oracle rebuilds the field of typ for owner from scratch over the same entities.
func oracle(sc *SimulationContext, typ catalog.Type, owner int) map[models.Position]float64 {
	fresh := NewContext(grid.New(sc.Grid.Width(), sc.Grid.Height(), sc.Catalog))
	for _, e := range sc.entities {
		place(fresh, e.Clone())
	}
	fresh.Recompute(typ, owner)
	return field(fresh, typ, owner)
}
