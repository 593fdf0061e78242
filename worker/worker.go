// Package worker is the background side of the simulation: it owns the engine state and
// applies commands strictly in arrival order, replying with diffs.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"pherosim/catalog"
	"pherosim/engine"
	"pherosim/grid"
	"pherosim/models"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pherosim_worker_commands_total",
		Help: "Commands handled by the worker, per kind",
	}, []string{"kind"})

	commandsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pherosim_worker_commands_dropped_total",
		Help: "Commands dropped because they arrived before INIT",
	})

	panicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pherosim_worker_panics_recovered_total",
		Help: "Handler panics recovered by the worker, per command kind",
	}, []string{"kind"})
)

// Worker dispatches commands to the engines. It holds no logic of its own beyond
// building the mirror on INIT and batching replies.
type Worker struct {
	catalog *catalog.Catalog
	cfg     engine.Config
	logger  *slog.Logger
	// buffer is the capacity of the outbound message channel.
	buffer int

	sc *engine.SimulationContext
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithConfig(cfg engine.Config) Option {
	return func(w *Worker) {
		w.cfg = cfg
	}
}

// WithBuffer sets the capacity of the channel returned by Start.
func WithBuffer(n int) Option {
	return func(w *Worker) {
		w.buffer = n
	}
}

func New(cat *catalog.Catalog, opts ...Option) *Worker {
	w := &Worker{
		catalog: cat,
		cfg:     engine.DefaultConfig(),
		logger:  slog.Default(),
		buffer:  64,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs the worker loop until ctx is done or commands is closed. Commands are handled
// one at a time in the order they are received; the returned channel is closed on exit.
func (w *Worker) Start(ctx context.Context, commands <-chan Command) <-chan Message {
	out := make(chan Message, w.buffer)
	go func() {
		defer close(out)
		for cmd := range channerics.OrDone(ctx.Done(), commands) {
			for _, msg := range w.Handle(cmd) {
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Handle applies a single command and returns its replies. A panic inside the handler is
// logged and the command dropped.
func (w *Worker) Handle(cmd Command) (replies []Message) {
	kind := string(cmd.Kind())
	defer func() {
		if r := recover(); r != nil {
			panicsRecovered.WithLabelValues(kind).Inc()
			w.logger.Error("command handler panicked",
				slog.String("kind", kind),
				slog.String("panic", fmt.Sprint(r)))
			replies = nil
		}
	}()

	if _, isInit := cmd.(Init); !isInit && w.sc == nil {
		commandsDropped.Inc()
		w.logger.Debug("dropping command received before INIT", slog.String("kind", kind))
		return nil
	}
	commandsHandled.WithLabelValues(kind).Inc()

	switch c := cmd.(type) {
	case Init:
		return w.init(c)
	case FloodFill:
		return pheromones(w.sc.FloodFillSources(c.Sources))
	case ReverseFloodFill:
		return pheromones(w.sc.ReverseFloodFillSources(c.Sources))
	case Disperse:
		return w.disperse(c.Timestamp)
	case SetPheromone:
		w.sc.SetPheromone(c.Position, c.PheromoneType, c.OwnerID, c.Quantity)
	case InsertInGrid:
		w.sc.InsertInGrid(c.Entity.Clone())
	case RemoveFromGrid:
		w.sc.RemoveFromGrid(c.Entity)
	case AddEntity:
		w.sc.AddEntity(c.Entity.Clone())
	case RemoveEntity:
		w.sc.RemoveEntity(c.Entity.ID)
	case SetEmitterQuantity:
		return pheromones(w.sc.SetEmitterQuantity(c.EntityID, c.Quantity))
	case ChangeEmitterType:
		return pheromones(w.sc.ChangeEmitterType(c.EntityID, c.PheromoneType))
	}
	return nil
}

// init replaces any previous mirror, so a second INIT rebuilds from scratch.
func (w *Worker) init(c Init) []Message {
	w.sc = engine.NewContext(
		grid.New(c.Width, c.Height, w.catalog),
		engine.WithConfig(w.cfg),
		engine.WithLogger(w.logger))
	w.sc.SetClock(c.Timestamp)

	for _, e := range c.Entities {
		clone := e.Clone()
		w.sc.AddEntity(clone)
		w.sc.InsertInGrid(clone)
	}
	for _, p := range c.Pheromones {
		w.sc.SetPheromone(p.Position, p.PheromoneType, p.OwnerID, p.Quantity)
	}
	w.logger.Info("worker initialized",
		slog.Int("width", c.Width),
		slog.Int("height", c.Height),
		slog.Int("entities", len(c.Entities)))

	diffs := w.sc.RecomputeSteadyState()
	for _, p := range c.Pheromones {
		diff := models.Diff{}
		diff.Put(p.Position, p.PheromoneType, p.OwnerID, w.sc.Grid.Get(p.Position, p.PheromoneType, p.OwnerID))
		diffs = append(diffs, diff)
	}
	return pheromones(diffs)
}

// disperse replies with the pass' diffs, then one TURBINES message per turbine the flow
// touched, in id order, then the solids to spawn. An untouched turbine keeps its speed.
func (w *Worker) disperse(timestamp int64) (replies []Message) {
	result := w.sc.Disperse(timestamp)
	replies = pheromones(result.Diffs)

	for _, turbine := range w.sc.Turbines() {
		if speed, ok := result.Turbines[turbine.ID]; ok {
			replies = append(replies, Turbines{EntityID: turbine.ID, ThetaSpeed: speed})
		}
	}

	if len(result.Solids) > 0 {
		replies = append(replies, Entities{Solids: result.Solids})
	}
	return
}

func pheromones(diffs []models.Diff) []Message {
	if len(diffs) == 0 {
		return nil
	}
	return []Message{Pheromones{Result: diffs}}
}
