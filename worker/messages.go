package worker

import (
	"pherosim/engine"
	"pherosim/models"
)

// Message is a result sent from the worker back to the main thread.
type Message interface {
	Kind() Kind
	message()
}

// Pheromones carries the diffs of one command, one diff per substance and owner.
type Pheromones struct {
	Result []models.Diff `json:"result"`
}

// Turbines reports the rotational impulse fluid gave one turbine in a dispersion pass.
type Turbines struct {
	EntityID   int     `json:"entityID"`
	ThetaSpeed float64 `json:"thetaSpeed"`
}

// Entities maps position keys to solids that froze there.
type Entities struct {
	Solids map[string]engine.Solid `json:"solids"`
}

func (Pheromones) Kind() Kind { return PHEROMONES }
func (Turbines) Kind() Kind   { return TURBINES }
func (Entities) Kind() Kind   { return ENTITIES }

func (Pheromones) message() {}
func (Turbines) message()   {}
func (Entities) message()   {}
