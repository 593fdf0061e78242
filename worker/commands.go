package worker

import (
	"pherosim/catalog"
	"pherosim/engine"
	"pherosim/models"
)

// Kind tags every command and message crossing the worker boundary.
type Kind string

const (
	INIT                 Kind = "INIT"
	FLOOD_FILL           Kind = "FLOOD_FILL"
	REVERSE_FLOOD_FILL   Kind = "REVERSE_FLOOD_FILL"
	DISPERSE_PHEROMONES  Kind = "DISPERSE_PHEROMONES"
	SET_PHEROMONE        Kind = "SET_PHEROMONE"
	INSERT_IN_GRID       Kind = "INSERT_IN_GRID"
	REMOVE_FROM_GRID     Kind = "REMOVE_FROM_GRID"
	ADD_ENTITY           Kind = "ADD_ENTITY"
	REMOVE_ENTITY        Kind = "REMOVE_ENTITY"
	SET_EMITTER_QUANTITY Kind = "SET_EMITTER_QUANTITY"
	CHANGE_EMITTER_TYPE  Kind = "CHANGE_EMITTER_TYPE"

	PHEROMONES Kind = "PHEROMONES"
	TURBINES   Kind = "TURBINES"
	ENTITIES   Kind = "ENTITIES"
)

// Command is a mutation sent from the main thread to the worker. The set of commands is
// closed: only the types in this file implement it.
type Command interface {
	Kind() Kind
	command()
}

// Init builds the worker's mirror. Commands received before it are dropped.
type Init struct {
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Entities []*models.Entity `json:"entities"`
	// Pheromones are initial writes, such as poured fluids, applied before the steady
	// state fields are computed.
	Pheromones []engine.Source `json:"pheromones,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

type FloodFill struct {
	Sources []engine.Source `json:"sources"`
}

type ReverseFloodFill struct {
	Sources []engine.Source `json:"sources"`
}

type Disperse struct {
	Timestamp int64 `json:"timestamp"`
}

// SetPheromone writes a quantity directly. It has no reply.
type SetPheromone struct {
	Position      models.Position `json:"position"`
	PheromoneType catalog.Type    `json:"substanceType"`
	Quantity      float64         `json:"quantity"`
	OwnerID       int             `json:"ownerId"`
}

type InsertInGrid struct {
	Entity *models.Entity `json:"entity"`
}

type RemoveFromGrid struct {
	Entity *models.Entity `json:"entity"`
}

type AddEntity struct {
	Entity *models.Entity `json:"entity"`
}

type RemoveEntity struct {
	Entity *models.Entity `json:"entity"`
}

type SetEmitterQuantity struct {
	EntityID int     `json:"entityID"`
	Quantity float64 `json:"quantity"`
}

type ChangeEmitterType struct {
	EntityID      int          `json:"entityID"`
	PheromoneType catalog.Type `json:"substanceType"`
}

func (Init) Kind() Kind               { return INIT }
func (FloodFill) Kind() Kind          { return FLOOD_FILL }
func (ReverseFloodFill) Kind() Kind   { return REVERSE_FLOOD_FILL }
func (Disperse) Kind() Kind           { return DISPERSE_PHEROMONES }
func (SetPheromone) Kind() Kind       { return SET_PHEROMONE }
func (InsertInGrid) Kind() Kind       { return INSERT_IN_GRID }
func (RemoveFromGrid) Kind() Kind     { return REMOVE_FROM_GRID }
func (AddEntity) Kind() Kind          { return ADD_ENTITY }
func (RemoveEntity) Kind() Kind       { return REMOVE_ENTITY }
func (SetEmitterQuantity) Kind() Kind { return SET_EMITTER_QUANTITY }
func (ChangeEmitterType) Kind() Kind  { return CHANGE_EMITTER_TYPE }

func (Init) command()               {}
func (FloodFill) command()          {}
func (ReverseFloodFill) command()   {}
func (Disperse) command()           {}
func (SetPheromone) command()       {}
func (InsertInGrid) command()       {}
func (RemoveFromGrid) command()     {}
func (AddEntity) command()          {}
func (RemoveEntity) command()       {}
func (SetEmitterQuantity) command() {}
func (ChangeEmitterType) command()  {}
