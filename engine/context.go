// Package engine runs the substance fields: forward flood fill from sources, reverse flood
// fill when support is removed, and the periodic dispersion of fluids, gases and heat.
//
// All engine state lives in a SimulationContext owned by exactly one goroutine; none of
// its methods are safe for concurrent use.
package engine

import (
	"log/slog"
	"sort"

	"pherosim/catalog"
	"pherosim/grid"
	"pherosim/models"

	"github.com/zyedidia/generic/mapset"
)

// Environment is the owner of unowned substances such as heat, cold and fluids.
const Environment = 0

// Config holds the tunables of the engines.
type Config struct {
	// MsPerTick is the nominal duration of one main loop tick. Dispersion decay is scaled
	// by elapsed time over this interval.
	MsPerTick float64
	// PooledThreshold is the resting fluid concentration above which decay is suppressed.
	PooledThreshold float64
	// RetainedThreshold is the mass left behind by a flow above which neither end of the flow decays.
	RetainedThreshold float64
	Seed              int64
}

// DefaultConfig returns the configuration of the shipped simulation.
func DefaultConfig() Config {
	return Config{
		MsPerTick:         16,
		PooledThreshold:   0.5,
		RetainedThreshold: 1,
	}
}

// DispersingEntry is a position holding a dispersing substance, visited every dispersion pass.
type DispersingEntry struct {
	Position      models.Position `json:"position"`
	OwnerID       int             `json:"ownerId"`
	PheromoneType catalog.Type    `json:"substanceType"`
	Quantity      float64         `json:"quantity"`
}

type entryKey struct {
	pos   models.Position
	owner int
}

// SimulationContext is the worker-side mirror of the grid, the entities and the indices
// the engines consult.
type SimulationContext struct {
	Grid    *grid.Grid
	Catalog *catalog.Catalog

	entities map[int]*models.Entity
	emitters mapset.Set[int]
	turbines mapset.Set[int]
	live     map[catalog.Type]map[entryKey]DispersingEntry

	// lastDispersal is the timestamp, in ms, of the previous dispersion pass.
	lastDispersal int64

	cfg    Config
	rng    *RNG
	logger *slog.Logger
}

// Option configures a SimulationContext.
type Option func(*SimulationContext)

// WithLogger sets the context's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *SimulationContext) {
		sc.logger = logger
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(sc *SimulationContext) {
		sc.cfg = cfg
	}
}

// NewContext returns a context over g with no entities.
func NewContext(g *grid.Grid, opts ...Option) *SimulationContext {
	sc := &SimulationContext{
		Grid:     g,
		Catalog:  g.Catalog(),
		entities: map[int]*models.Entity{},
		emitters: mapset.New[int](),
		turbines: mapset.New[int](),
		live:     map[catalog.Type]map[entryKey]DispersingEntry{},
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	sc.rng = NewRNG(sc.cfg.Seed)
	return sc
}

// SetClock sets the timestamp dispersion measures elapsed time from.
func (sc *SimulationContext) SetClock(timestamp int64) {
	sc.lastDispersal = timestamp
}

// AddEntity registers the entity and indexes it as an emitter or turbine.
// A previously registered entity with the same id is replaced.
func (sc *SimulationContext) AddEntity(e *models.Entity) {
	sc.entities[e.ID] = e
	sc.emitters.Remove(e.ID)
	sc.turbines.Remove(e.ID)
	if e.IsEmitter() {
		sc.emitters.Put(e.ID)
	}
	if e.IsTurbine() {
		sc.turbines.Put(e.ID)
	}
}

// RemoveEntity unregisters the entity. Its grid occupancy is left untouched.
func (sc *SimulationContext) RemoveEntity(id int) {
	delete(sc.entities, id)
	sc.emitters.Remove(id)
	sc.turbines.Remove(id)
}

// Entity returns the registered entity with the id.
func (sc *SimulationContext) Entity(id int) (*models.Entity, bool) {
	e, ok := sc.entities[id]
	return e, ok
}

// InsertInGrid marks every cell of the entity's footprint as occupied by it. The stored
// entity is updated to the passed position.
func (sc *SimulationContext) InsertInGrid(e *models.Entity) {
	if stored, ok := sc.entities[e.ID]; ok {
		stored.Position = e.Position
		e = stored
	}
	for _, pos := range e.Footprint() {
		sc.Grid.Insert(pos, e.ID)
	}
}

// RemoveFromGrid clears the entity from every cell of its footprint.
func (sc *SimulationContext) RemoveFromGrid(e *models.Entity) {
	for _, pos := range e.Footprint() {
		sc.Grid.Remove(pos, e.ID)
	}
}

// Emitters returns the live emitters of typ for owner in id order.
func (sc *SimulationContext) Emitters(typ catalog.Type, owner int) (emitters []*models.Entity) {
	sc.emitters.Each(func(id int) {
		e := sc.entities[id]
		if e.PheromoneType == typ && e.OwnerID == owner && e.Quantity > 0 {
			emitters = append(emitters, e)
		}
	})
	sort.Slice(emitters, func(i, j int) bool { return emitters[i].ID < emitters[j].ID })
	return
}

// EmitterAt returns the strongest live emitter of typ for owner located at pos.
func (sc *SimulationContext) EmitterAt(pos models.Position, typ catalog.Type, owner int) (best *models.Entity, ok bool) {
	sc.emitters.Each(func(id int) {
		e := sc.entities[id]
		if e.Position != pos || e.PheromoneType != typ || e.OwnerID != owner || e.Quantity <= 0 {
			return
		}
		if best == nil || e.Quantity > best.Quantity {
			best = e
		}
	})
	return best, best != nil
}

// Turbines returns the registered turbines in id order.
func (sc *SimulationContext) Turbines() (turbines []*models.Entity) {
	sc.turbines.Each(func(id int) {
		turbines = append(turbines, sc.entities[id])
	})
	sort.Slice(turbines, func(i, j int) bool { return turbines[i].ID < turbines[j].ID })
	return
}

// register adds or refreshes the live entry of a dispersing substance at pos.
func (sc *SimulationContext) register(typ catalog.Type, owner int, pos models.Position, quantity float64) {
	entries, ok := sc.live[typ]
	if !ok {
		entries = map[entryKey]DispersingEntry{}
		sc.live[typ] = entries
	}
	entries[entryKey{pos: pos, owner: owner}] = DispersingEntry{
		Position:      pos,
		OwnerID:       owner,
		PheromoneType: typ,
		Quantity:      quantity,
	}
}

// LiveEntries returns the live dispersing entries of typ in row-major order.
func (sc *SimulationContext) LiveEntries(typ catalog.Type) []DispersingEntry {
	entries := make([]DispersingEntry, 0, len(sc.live[typ]))
	for _, entry := range sc.live[typ] {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Position.Y != b.Position.Y {
			return a.Position.Y < b.Position.Y
		}
		if a.Position.X != b.Position.X {
			return a.Position.X < b.Position.X
		}
		return a.OwnerID < b.OwnerID
	})
	return entries
}

// SetPheromone writes a quantity directly and registers it for dispersion when positive.
func (sc *SimulationContext) SetPheromone(pos models.Position, typ catalog.Type, owner int, quantity float64) {
	stored, ok := sc.Grid.Set(pos, typ, owner, quantity)
	if !ok {
		return
	}
	if pt, _ := sc.Catalog.Lookup(typ); pt.IsDispersing && stored > 0 {
		sc.register(typ, owner, pos, stored)
	}
}
