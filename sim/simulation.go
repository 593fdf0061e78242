// Package sim is the main thread of the simulation. It owns the authoritative entities and
// occupancy, forwards every mutation to the worker without waiting, and folds the worker's
// replies into a field mirror that agents and views read.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"pherosim/catalog"
	"pherosim/config"
	"pherosim/engine"
	"pherosim/grid"
	"pherosim/models"
	"pherosim/worker"

	channerics "github.com/niceyeti/channerics/channels"
)

// Snapshot is the state published to views: one field layer plus the entities.
type Snapshot struct {
	Tick          int64
	Width, Height int
	Display       config.Display
	QuantityCap   float64
	// Values is the displayed layer as [y][x].
	Values   [][]float64
	Entities []models.Entity
}

// Simulation is the main thread. None of its methods are safe for concurrent use except
// SetDisplay and reads of the field.
type Simulation struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	grid    *grid.Grid
	field   *Field

	entities map[int]*models.Entity
	nextID   int

	commands chan<- worker.Command
	messages <-chan worker.Message

	pendingReverse []engine.Source
	pendingForward []engine.Source

	tick    int64
	now     func() int64
	display atomic.Pointer[config.Display]

	snapshots  chan Snapshot
	workerGone bool
	logger     *slog.Logger

	console      *Console
	consoleEvery int64
}

type Option func(*Simulation)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulation) {
		s.logger = logger
	}
}

// WithClock replaces the wall clock, in milliseconds, used to timestamp dispersion passes.
func WithClock(now func() int64) Option {
	return func(s *Simulation) {
		s.now = now
	}
}

// WithConsole dumps the displayed layer to the console every n ticks.
func WithConsole(c *Console, n int) Option {
	return func(s *Simulation) {
		s.console = c
		s.consoleEvery = int64(max(n, 1))
	}
}

// New builds a simulation over the level. commands and messages are the two ends of the
// worker boundary.
func New(
	cfg *config.Config,
	cat *catalog.Catalog,
	level *models.Level,
	commands chan<- worker.Command,
	messages <-chan worker.Message,
	opts ...Option,
) *Simulation {
	s := &Simulation{
		cfg:       cfg,
		catalog:   cat,
		grid:      grid.New(level.Width, level.Height, cat),
		field:     NewField(level.Width, level.Height, cat, cfg.Owners),
		entities:  map[int]*models.Entity{},
		nextID:    1,
		commands:  commands,
		messages:  messages,
		now:       func() int64 { return time.Now().UnixMilli() },
		snapshots: make(chan Snapshot, 1),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	display := cfg.Display
	s.display.Store(&display)

	for _, e := range level.Entities {
		s.track(e.Clone())
	}
	for _, p := range level.Pours {
		s.field.Store(p.Position, p.PheromoneType, engine.Environment, p.Quantity)
	}
	return s
}

// Field returns the mirror of the worker's fields.
func (s *Simulation) Field() *Field {
	return s.field
}

// Snapshots is the channel views receive published snapshots on. Snapshots are dropped
// while the previous one is still unread.
func (s *Simulation) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// SetDisplay swaps the displayed layer. It may be called from any goroutine.
func (s *Simulation) SetDisplay(d config.Display) {
	d.PublishEvery = max(d.PublishEvery, 1)
	s.display.Store(&d)
}

// Entity returns a copy of the entity with the id.
func (s *Simulation) Entity(id int) (models.Entity, bool) {
	if e, ok := s.entities[id]; ok {
		return *e, true
	}
	return models.Entity{}, false
}

// Entities returns copies of every entity in id order.
func (s *Simulation) Entities() []models.Entity {
	entities := make([]models.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		entities = append(entities, *e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })
	return entities
}

func (s *Simulation) track(e *models.Entity) {
	if e.ID == 0 {
		e.ID = s.nextID
	}
	s.nextID = max(s.nextID, e.ID+1)
	s.entities[e.ID] = e
	for _, pos := range e.Footprint() {
		s.grid.Insert(pos, e.ID)
	}
}

// send forwards a command to the worker. It blocks only while the command buffer is full;
// it never waits for a reply.
func (s *Simulation) send(ctx context.Context, cmd worker.Command) error {
	select {
	case s.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Init sends the level to the worker. Dispersing emitters are first filled by tick 0.
func (s *Simulation) Init(ctx context.Context) error {
	msg := worker.Init{
		Width:      s.grid.Width(),
		Height:     s.grid.Height(),
		Pheromones: s.pours(),
		Timestamp:  s.now(),
	}
	for _, e := range s.Entities() {
		msg.Entities = append(msg.Entities, e.Clone())
	}
	return s.send(ctx, msg)
}

// pours returns the environmental dispersing quantities already mirrored, such as a
// level's initial fluids.
func (s *Simulation) pours() (sources []engine.Source) {
	for _, typ := range s.catalog.Dispersing() {
		for y := 0; y < s.grid.Height(); y++ {
			for x := 0; x < s.grid.Width(); x++ {
				pos := models.Position{X: x, Y: y}
				if q := s.field.Sense(pos, typ, engine.Environment); q > 0 {
					sources = append(sources, engine.Source{
						Position:      pos,
						PheromoneType: typ,
						OwnerID:       engine.Environment,
						Quantity:      q,
					})
				}
			}
		}
	}
	return
}

// Place adds an entity. Emitters queue a fill of their substance; blockers cut every field
// they stop under them. The assigned id is returned.
func (s *Simulation) Place(ctx context.Context, e models.Entity) (int, error) {
	placed := e.Clone()
	placed.ID = 0
	s.track(placed)

	if err := s.send(ctx, worker.AddEntity{Entity: placed.Clone()}); err != nil {
		return 0, err
	}
	if err := s.send(ctx, worker.InsertInGrid{Entity: placed.Clone()}); err != nil {
		return 0, err
	}

	if placed.Kind.Capabilities().Has(catalog.Blocking) {
		if err := s.block(ctx, placed, placed.Footprint()); err != nil {
			return 0, err
		}
	}
	if placed.IsEmitter() {
		s.pendingForward = append(s.pendingForward, emitterSource(placed))
	}
	return placed.ID, nil
}

// block cuts every field the blocker stops at the cells it covers, for every tracked owner.
// Steady-state fields are reverse filled on the next tick; dispersing ones are zeroed at
// once. The mirror may still be waiting on a fill of these cells, so nothing is skipped
// for reading 0 there.
func (s *Simulation) block(ctx context.Context, e *models.Entity, cells []models.Position) error {
	for _, pos := range cells {
		for _, typ := range s.catalog.Types() {
			pt, _ := s.catalog.Lookup(typ)
			if !pt.Blocks(e.Kind) || pt.CanInhabitBlocker {
				continue
			}
			for _, owner := range s.cfg.Owners {
				s.field.Store(pos, typ, owner, 0)
				if !pt.IsDispersing {
					s.pendingReverse = append(s.pendingReverse, engine.Source{
						Position:      pos,
						PheromoneType: typ,
						OwnerID:       owner,
					})
					continue
				}
				if err := s.send(ctx, worker.SetPheromone{Position: pos, PheromoneType: typ, OwnerID: owner}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func emitterSource(e *models.Entity) engine.Source {
	return engine.Source{
		Position:      e.Position,
		PheromoneType: e.PheromoneType,
		OwnerID:       e.OwnerID,
		Quantity:      e.Quantity,
		EntityID:      e.ID,
	}
}

// forget drops the queued fills of an emitter that is leaving its cell.
func (s *Simulation) forget(id int) {
	s.pendingForward = slices.DeleteFunc(s.pendingForward, func(src engine.Source) bool {
		return src.EntityID == id
	})
}

// unblock queues stale fills at cells a blocker left, so they refill from their neighbors.
func (s *Simulation) unblock(cells []models.Position) {
	for _, pos := range cells {
		for _, typ := range s.catalog.SteadyState() {
			for _, owner := range s.cfg.Owners {
				s.pendingForward = append(s.pendingForward, engine.Source{
					Position:      pos,
					PheromoneType: typ,
					OwnerID:       owner,
					Stale:         true,
				})
			}
		}
	}
}

// Remove deletes an entity. An emitter's field is unwound first; a blocker's cells are
// refilled from their neighbors.
func (s *Simulation) Remove(ctx context.Context, id int) error {
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("remove entity %d: not found", id)
	}

	s.forget(id)
	if e.IsEmitter() && e.Quantity > 0 {
		if err := s.send(ctx, worker.SetEmitterQuantity{EntityID: id, Quantity: 0}); err != nil {
			return err
		}
	}
	if err := s.send(ctx, worker.RemoveFromGrid{Entity: e.Clone()}); err != nil {
		return err
	}
	if err := s.send(ctx, worker.RemoveEntity{Entity: e.Clone()}); err != nil {
		return err
	}

	for _, pos := range e.Footprint() {
		s.grid.Remove(pos, id)
	}
	delete(s.entities, id)

	if e.Kind.Capabilities().Has(catalog.Blocking) {
		s.unblock(e.Footprint())
	}
	return nil
}

// Move shifts an entity to pos, keeping its id. The worker sees it leave the grid and
// enter again at pos. An emitter's field is retracted from the old cell and flooded from
// the new one; a blocker refills the cells it left and cuts the ones it now covers.
func (s *Simulation) Move(ctx context.Context, id int, pos models.Position) error {
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("move entity %d: not found", id)
	}
	moved := e.Clone()
	moved.Position = pos
	for _, cell := range moved.Footprint() {
		if !s.grid.InBounds(cell) {
			return fmt.Errorf("move entity %d to %s: off the grid", id, pos)
		}
	}
	if pos == e.Position {
		return nil
	}

	s.forget(id)
	emitting := e.IsEmitter() && e.Quantity > 0
	if emitting {
		if err := s.send(ctx, worker.SetEmitterQuantity{EntityID: id, Quantity: 0}); err != nil {
			return err
		}
	}
	if err := s.send(ctx, worker.RemoveFromGrid{Entity: e.Clone()}); err != nil {
		return err
	}

	left := e.Footprint()
	for _, cell := range left {
		s.grid.Remove(cell, id)
	}
	e.Position = pos
	covered := e.Footprint()
	for _, cell := range covered {
		s.grid.Insert(cell, id)
	}

	if err := s.send(ctx, worker.InsertInGrid{Entity: e.Clone()}); err != nil {
		return err
	}
	if emitting {
		if err := s.send(ctx, worker.SetEmitterQuantity{EntityID: id, Quantity: e.Quantity}); err != nil {
			return err
		}
	}

	if e.Kind.Capabilities().Has(catalog.Blocking) {
		if err := s.block(ctx, e, without(covered, left)); err != nil {
			return err
		}
		s.unblock(without(left, covered))
	}
	return nil
}

// without returns the cells of a not in b.
func without(a, b []models.Position) (out []models.Position) {
	for _, cell := range a {
		if !slices.Contains(b, cell) {
			out = append(out, cell)
		}
	}
	return
}

// SetEmitterQuantity changes an emitter's output.
func (s *Simulation) SetEmitterQuantity(ctx context.Context, id int, quantity float64) error {
	e, ok := s.entities[id]
	if !ok || !e.IsEmitter() {
		return fmt.Errorf("set quantity of entity %d: not an emitter", id)
	}
	e.Quantity = quantity
	return s.send(ctx, worker.SetEmitterQuantity{EntityID: id, Quantity: quantity})
}

// ChangeEmitterType switches an emitter to another substance.
func (s *Simulation) ChangeEmitterType(ctx context.Context, id int, typ catalog.Type) error {
	e, ok := s.entities[id]
	if !ok || !e.IsEmitter() {
		return fmt.Errorf("change type of entity %d: not an emitter", id)
	}
	if _, ok := s.catalog.Lookup(typ); !ok {
		return fmt.Errorf("change type of entity %d: unknown substance %q", id, typ)
	}
	e.PheromoneType = typ
	return s.send(ctx, worker.ChangeEmitterType{EntityID: id, PheromoneType: typ})
}

// Pour writes an environmental quantity of a substance directly.
func (s *Simulation) Pour(ctx context.Context, pos models.Position, typ catalog.Type, quantity float64) error {
	pt, ok := s.catalog.Lookup(typ)
	if !ok {
		return fmt.Errorf("pour: unknown substance %q", typ)
	}
	quantity = pt.Clamp(quantity)
	s.field.Store(pos, typ, engine.Environment, quantity)
	return s.send(ctx, worker.SetPheromone{
		Position:      pos,
		PheromoneType: typ,
		OwnerID:       engine.Environment,
		Quantity:      quantity,
	})
}

// Sense returns the mirrored quantity of typ for owner at pos.
func (s *Simulation) Sense(pos models.Position, typ catalog.Type, owner int) float64 {
	return s.field.Sense(pos, typ, owner)
}

// Gradient returns the unblocked 8-way neighbor of pos holding the most of typ for owner,
// and that quantity. ok is false when no neighbor holds any.
func (s *Simulation) Gradient(pos models.Position, typ catalog.Type, owner int) (best models.Position, quantity float64, ok bool) {
	for _, n := range s.grid.Moore(pos) {
		if s.blocked(typ, n) {
			continue
		}
		if q := s.field.Sense(n, typ, owner); q > quantity {
			best, quantity, ok = n, q, true
		}
	}
	return
}

func (s *Simulation) blocked(typ catalog.Type, pos models.Position) bool {
	pt, ok := s.catalog.Lookup(typ)
	if !ok {
		return true
	}
	for _, id := range s.grid.Occupants(pos) {
		if e, ok := s.entities[id]; ok && pt.Blocks(e.Kind) {
			return true
		}
	}
	return false
}

// Tick advances the main loop once: apply replies, flush queued fills with reverse fills
// first, fire a dispersion pass every dispersion interval, turn turbines and publish.
func (s *Simulation) Tick(ctx context.Context) error {
	s.drain(ctx)

	if len(s.pendingReverse) > 0 {
		if err := s.send(ctx, worker.ReverseFloodFill{Sources: s.pendingReverse}); err != nil {
			return err
		}
		s.pendingReverse = nil
	}
	if s.tick%int64(s.cfg.DispersionInterval) == 0 {
		s.reseed()
	}
	if len(s.pendingForward) > 0 {
		if err := s.send(ctx, worker.FloodFill{Sources: s.pendingForward}); err != nil {
			return err
		}
		s.pendingForward = nil
	}
	if s.tick%int64(s.cfg.DispersionInterval) == 0 {
		if err := s.send(ctx, worker.Disperse{Timestamp: s.now()}); err != nil {
			return err
		}
	}

	for _, e := range s.entities {
		if e.IsTurbine() {
			e.Theta += e.ThetaSpeed
		}
	}
	if s.tick%int64(s.display.Load().PublishEvery) == 0 {
		s.publish()
	}
	if s.console != nil && s.tick%s.consoleEvery == 0 {
		s.console.Dump(s.Current())
	}
	s.tick++
	return nil
}

// reseed queues a fill from every dispersing emitter, whose fields otherwise decay away.
func (s *Simulation) reseed() {
	for _, e := range s.Entities() {
		if !e.IsEmitter() || e.Quantity <= 0 {
			continue
		}
		if pt, ok := s.catalog.Lookup(e.PheromoneType); ok && pt.IsDispersing {
			s.pendingForward = append(s.pendingForward, emitterSource(&e))
		}
	}
}

// drain applies every reply already delivered without waiting for more.
func (s *Simulation) drain(ctx context.Context) {
	for {
		select {
		case msg, ok := <-s.messages:
			if !ok {
				if !s.workerGone {
					s.workerGone = true
					s.logger.Warn("worker channel closed, fields are no longer updated")
				}
				s.messages = nil
				return
			}
			s.apply(ctx, msg)
		default:
			return
		}
	}
}

func (s *Simulation) apply(ctx context.Context, msg worker.Message) {
	switch m := msg.(type) {
	case worker.Pheromones:
		for _, diff := range m.Result {
			err := diff.Each(func(pos models.Position, q models.Quantity) {
				s.field.Store(pos, q.PheromoneType, q.OwnerID, q.Quantity)
			})
			if err != nil {
				s.logger.Warn("skipped malformed diff keys", slog.String("error", err.Error()))
			}
		}
	case worker.Turbines:
		if e, ok := s.entities[m.EntityID]; ok {
			e.ThetaSpeed = m.ThetaSpeed
		}
	case worker.Entities:
		s.solidify(ctx, m.Solids)
	}
}

// solidify spawns the solids a dispersion pass froze, in position order. A cell already
// holding a blocker is left as it is.
func (s *Simulation) solidify(ctx context.Context, solids map[string]engine.Solid) {
	keys := make([]string, 0, len(solids))
	for key := range solids {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		pos, err := models.ParseKey(key)
		if err != nil {
			s.logger.Warn("skipped solid at malformed key", slog.String("key", key))
			continue
		}
		if s.occupiedByBlocker(pos) {
			continue
		}
		solid := solids[key]
		_, err = s.Place(ctx, models.Entity{
			Kind:     solid.Kind,
			Position: pos,
			Width:    1,
			Height:   1,
			Quantity: solid.Quantity,
		})
		if err != nil {
			s.logger.Warn("could not spawn solid", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

func (s *Simulation) occupiedByBlocker(pos models.Position) bool {
	for _, id := range s.grid.Occupants(pos) {
		if e, ok := s.entities[id]; ok && e.Kind.Capabilities().Has(catalog.Blocking) {
			return true
		}
	}
	return false
}

func (s *Simulation) publish() {
	select {
	case s.snapshots <- s.Current():
	default:
	}
}

// Current builds a snapshot of the displayed layer. Like Tick, it must not run concurrently
// with other methods.
func (s *Simulation) Current() Snapshot {
	display := *s.display.Load()
	snapshot := Snapshot{
		Tick:     s.tick,
		Width:    s.grid.Width(),
		Height:   s.grid.Height(),
		Display:  display,
		Values:   s.field.Snapshot(display.Substance, display.Owner),
		Entities: s.Entities(),
	}
	if pt, ok := s.catalog.Lookup(display.Substance); ok {
		snapshot.QuantityCap = pt.QuantityCap
	}
	return snapshot
}

// Run initializes the worker and ticks until ctx is done, which is not an error.
func (s *Simulation) Run(ctx context.Context) error {
	if err := s.Init(ctx); err != nil {
		return ignoreDone(ctx, err)
	}
	for range channerics.NewTicker(ctx.Done(), s.cfg.Tick()) {
		if err := s.Tick(ctx); err != nil {
			return ignoreDone(ctx, err)
		}
	}
	return nil
}

func ignoreDone(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}
