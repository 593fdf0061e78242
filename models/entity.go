package models

import (
	"pherosim/catalog"
)

// DefaultMaxThetaSpeed is the rotational speed, in radians per tick, of a turbine driven
// by a full cap of fluid.
const DefaultMaxThetaSpeed = 0.1

// Entity is anything occupying grid cells. Position is the top-left cell of the footprint.
type Entity struct {
	ID       int          `json:"id"`
	Kind     catalog.Kind `json:"type"`
	Position Position     `json:"position"`
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	OwnerID  int          `json:"playerID"`

	// Emitter fields.
	PheromoneType catalog.Type `json:"pheromoneType,omitempty"`
	Quantity      float64      `json:"quantity,omitempty"`

	// Turbine fields.
	MaxThetaSpeed float64 `json:"maxThetaSpeed,omitempty"`
	Theta         float64 `json:"theta,omitempty"`
	ThetaSpeed    float64 `json:"thetaSpeed,omitempty"`
}

// Footprint returns every cell the entity covers.
func (e *Entity) Footprint() []Position {
	w, h := max(e.Width, 1), max(e.Height, 1)
	cells := make([]Position, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cells = append(cells, e.Position.Add(x, y))
		}
	}
	return cells
}

// Covers reports whether pos lies within the footprint.
func (e *Entity) Covers(pos Position) bool {
	w, h := max(e.Width, 1), max(e.Height, 1)
	return pos.X >= e.Position.X && pos.X < e.Position.X+w &&
		pos.Y >= e.Position.Y && pos.Y < e.Position.Y+h
}

// IsEmitter reports whether the entity is a standing source of a substance.
func (e *Entity) IsEmitter() bool {
	return e.Kind.Capabilities().Has(catalog.Emitter) && e.PheromoneType != ""
}

// IsTurbine reports whether the entity converts fluid flow into rotation.
func (e *Entity) IsTurbine() bool {
	return e.Kind == catalog.TURBINE
}

// Clone returns a copy safe to hand to another goroutine.
func (e *Entity) Clone() *Entity {
	clone := *e
	return &clone
}
