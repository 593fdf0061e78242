package models

import (
	"pherosim/catalog"

	"github.com/zyedidia/generic/mapset"
)

// Level glyphs. Upper case glyphs place entities, lower case glyphs pour substances.
const (
	EMPTY   = '.'
	STONE   = 'S'
	DIRT    = 'D'
	ICE     = 'I'
	COAL    = 'c'
	COLONY  = 'C'
	FOOD    = 'F'
	LIGHT   = 'L'
	HEAT    = 'H'
	COLD    = 'K'
	TURBINE = 'T'
	ANT     = 'A'
	WATER   = 'w'
	OIL     = 'o'
	SAND    = 's'
)

// The faction owning colony tokens, food and ants placed by a level. Environmental
// substances (light, heat, cold, fluids) are unowned.
const (
	Environment = 0
	Player      = 1
)

// The small level for development and a larger one exercising every mechanism.
var (
	DebugLevel []string = []string{
		"SSSSSSSSSSSS",
		"S..ww......S",
		"S..........S",
		"S..C....F..S",
		"S...DDD....S",
		"S..........S",
		"S..TT...H..S",
		"S..TT......S",
		"SSSSSSSSSSSS",
	}

	FullLevel []string = []string{
		"SSSSSSSSSSSSSSSSSSSSSSSSSSSSSS",
		"S............................S",
		"S..wwww..........oooo........S",
		"S..wwww..........oooo........S",
		"S............................S",
		"S......DDDDD.................S",
		"S..TT..........ssss..........S",
		"S..TT.........DDDDDD.........S",
		"S..............H.............S",
		"S.....C...............F......S",
		"S...........A................S",
		"SDDDDDDD..........DDDDDDDDD..S",
		"S....L.......K...............S",
		"S.........III..........cc....S",
		"SSSSSSSSSSSSSSSSSSSSSSSSSSSSSS",
	}
)

// Pour is an initial quantity of a dispersing substance placed by a level.
type Pour struct {
	Position      Position
	PheromoneType catalog.Type
	Quantity      float64
}

// Level is a converted level: its size, the entities it places and its initial pours.
type Level struct {
	Width, Height int
	Entities      []*Entity
	Pours         []Pour
}

var solidGlyphs = map[rune]catalog.Kind{
	STONE: catalog.STONE,
	DIRT:  catalog.DIRT,
	ICE:   catalog.ICE,
	COAL:  catalog.COAL,
}

var emitterGlyphs = map[rune]struct {
	kind     catalog.Kind
	typ      catalog.Type
	owner    int
	quantity float64
}{
	COLONY: {catalog.TOKEN, catalog.COLONY, Player, 350},
	FOOD:   {catalog.FOOD_SOURCE, catalog.FOOD, Player, 100},
	LIGHT:  {catalog.TOKEN, catalog.LIGHT, Environment, 350},
	HEAT:   {catalog.TOKEN, catalog.HEAT, Environment, 150},
	COLD:   {catalog.TOKEN, catalog.COLD, Environment, 120},
}

var pourGlyphs = map[rune]catalog.Type{
	WATER: catalog.WATER,
	OIL:   catalog.OIL,
	SAND:  catalog.SAND,
}

// Convert transforms a level of glyph rows into entities and pours. Row index is y.
// Adjacent turbine glyphs are merged into one turbine covering their bounding box.
// Ids are assigned from 1 in row-major order of each entity's first glyph.
// Note there is no error checking on the input level; unknown glyphs are empty cells.
func Convert(rows []string) (level *Level) {
	level = &Level{Height: len(rows)}
	for _, row := range rows {
		level.Width = max(level.Width, len(row))
	}

	glyphAt := func(pos Position) rune {
		if pos.Y < 0 || pos.Y >= len(rows) || pos.X < 0 || pos.X >= len(rows[pos.Y]) {
			return EMPTY
		}
		return rune(rows[pos.Y][pos.X])
	}

	nextID := 1
	add := func(e *Entity) {
		e.ID = nextID
		nextID++
		level.Entities = append(level.Entities, e)
	}

	turbineCells := mapset.New[Position]()
	for y, row := range rows {
		for x, glyph := range row {
			pos := Position{X: x, Y: y}
			if kind, ok := solidGlyphs[glyph]; ok {
				add(&Entity{Kind: kind, Position: pos, Width: 1, Height: 1})
			} else if em, ok := emitterGlyphs[glyph]; ok {
				add(&Entity{
					Kind:          em.kind,
					Position:      pos,
					Width:         1,
					Height:        1,
					OwnerID:       em.owner,
					PheromoneType: em.typ,
					Quantity:      em.quantity,
				})
			} else if glyph == ANT {
				add(&Entity{Kind: catalog.ANT, Position: pos, Width: 1, Height: 1, OwnerID: Player})
			} else if typ, ok := pourGlyphs[glyph]; ok {
				level.Pours = append(level.Pours, Pour{Position: pos, PheromoneType: typ, Quantity: 120})
			} else if glyph == TURBINE && !turbineCells.Has(pos) {
				add(turbineAt(pos, glyphAt, turbineCells))
			}
		}
	}
	return
}

// turbineAt groups the edge-connected turbine glyphs reachable from start.
func turbineAt(start Position, glyphAt func(Position) rune, seen mapset.Set[Position]) *Entity {
	minP, maxP := start, start
	queue := []Position{start}
	seen.Put(start)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		minP = Position{X: min(minP.X, current.X), Y: min(minP.Y, current.Y)}
		maxP = Position{X: max(maxP.X, current.X), Y: max(maxP.Y, current.Y)}
		for _, n := range current.Orthogonal() {
			if glyphAt(n) == TURBINE && !seen.Has(n) {
				seen.Put(n)
				queue = append(queue, n)
			}
		}
	}
	return &Entity{
		Kind:          catalog.TURBINE,
		Position:      minP,
		Width:         maxP.X - minP.X + 1,
		Height:        maxP.Y - minP.Y + 1,
		MaxThetaSpeed: DefaultMaxThetaSpeed,
	}
}
