// Package grid is the dense occupancy grid: every cell holds the ids of the entities
// covering it and, per owner, the quantity of each substance present.
package grid

import (
	"sort"

	"pherosim/catalog"
	"pherosim/models"

	"github.com/zyedidia/generic/mapset"
)

// Cell is a single grid cell. Both tables are allocated on first write.
type Cell struct {
	occupants  *mapset.Set[int]
	pheromones map[int]map[catalog.Type]float64
}

// Grid is a width x height array of cells in row-major order.
type Grid struct {
	width, height int
	cells         []Cell
	catalog       *catalog.Catalog
}

// New returns an empty grid whose writes are clamped by the catalog.
func New(width, height int, cat *catalog.Catalog) *Grid {
	return &Grid{
		width:   width,
		height:  height,
		cells:   make([]Cell, width*height),
		catalog: cat,
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Catalog returns the catalog the grid clamps against.
func (g *Grid) Catalog() *catalog.Catalog {
	return g.catalog
}

// InBounds reports whether pos is a cell of the grid.
func (g *Grid) InBounds(pos models.Position) bool {
	return pos.X >= 0 && pos.X < g.width && pos.Y >= 0 && pos.Y < g.height
}

func (g *Grid) cell(pos models.Position) *Cell {
	if !g.InBounds(pos) {
		return nil
	}
	return &g.cells[pos.Y*g.width+pos.X]
}

// Get returns the quantity of typ owned by owner at pos, 0 if absent or out of bounds.
func (g *Grid) Get(pos models.Position, typ catalog.Type, owner int) float64 {
	c := g.cell(pos)
	if c == nil || c.pheromones == nil {
		return 0
	}
	return c.pheromones[owner][typ]
}

// Set writes quantity clamped to [0, cap] and returns the stored value. Writes out of
// bounds or of unknown substances are dropped and report false.
func (g *Grid) Set(pos models.Position, typ catalog.Type, owner int, quantity float64) (float64, bool) {
	c := g.cell(pos)
	if c == nil {
		return 0, false
	}
	pt, ok := g.catalog.Lookup(typ)
	if !ok {
		return 0, false
	}
	quantity = pt.Clamp(quantity)
	if c.pheromones == nil {
		c.pheromones = map[int]map[catalog.Type]float64{}
	}
	table, ok := c.pheromones[owner]
	if !ok {
		table = map[catalog.Type]float64{}
		c.pheromones[owner] = table
	}
	table[typ] = quantity
	return quantity, true
}

// Insert registers id as an occupant of pos.
func (g *Grid) Insert(pos models.Position, id int) bool {
	c := g.cell(pos)
	if c == nil {
		return false
	}
	if c.occupants == nil {
		set := mapset.New[int]()
		c.occupants = &set
	}
	c.occupants.Put(id)
	return true
}

// Remove unregisters id from pos.
func (g *Grid) Remove(pos models.Position, id int) {
	c := g.cell(pos)
	if c == nil || c.occupants == nil {
		return
	}
	c.occupants.Remove(id)
}

// Occupants returns the ids occupying pos in ascending order.
func (g *Grid) Occupants(pos models.Position) (ids []int) {
	c := g.cell(pos)
	if c == nil || c.occupants == nil {
		return nil
	}
	c.occupants.Each(func(id int) {
		ids = append(ids, id)
	})
	sort.Ints(ids)
	return
}

// Orthogonal returns the in-bounds edge neighbors of pos.
func (g *Grid) Orthogonal(pos models.Position) []models.Position {
	neighbors := make([]models.Position, 0, 4)
	for _, n := range pos.Orthogonal() {
		if g.InBounds(n) {
			neighbors = append(neighbors, n)
		}
	}
	return neighbors
}

// Moore returns the in-bounds 8-way neighbors of pos.
func (g *Grid) Moore(pos models.Position) []models.Position {
	neighbors := make([]models.Position, 0, 8)
	for _, n := range pos.Moore() {
		if g.InBounds(n) {
			neighbors = append(neighbors, n)
		}
	}
	return neighbors
}

// Each visits every cell holding a positive quantity of typ for owner, in row-major order.
func (g *Grid) Each(typ catalog.Type, owner int, fn func(models.Position, float64)) {
	for i := range g.cells {
		c := &g.cells[i]
		if c.pheromones == nil {
			continue
		}
		if q := c.pheromones[owner][typ]; q > 0 {
			fn(models.Position{X: i % g.width, Y: i / g.width}, q)
		}
	}
}

// Owners returns every owner id with a substance table anywhere on the grid.
func (g *Grid) Owners() []int {
	seen := mapset.New[int]()
	for i := range g.cells {
		for owner := range g.cells[i].pheromones {
			seen.Put(owner)
		}
	}
	owners := make([]int, 0, seen.Size())
	seen.Each(func(owner int) {
		owners = append(owners, owner)
	})
	sort.Ints(owners)
	return owners
}
