// Package catalog holds the immutable rules for every substance: how much of it a cell may
// hold, how fast it decays per hop and per tick, what stops it, and how it changes phase
// or flows. Entries are looked up by Type on every propagation step, so lookups are a map
// read and return shared pointers which callers must treat as read-only.
package catalog

import (
	"log/slog"
	"sync"

	"github.com/zyedidia/generic/mapset"
)

// Type names a substance.
type Type string

// Viscosity is the fraction of a fluid's mass retained in place per flow class.
type Viscosity struct {
	Vertical   float64
	Diagonal   float64
	Horizontal float64
}

// Fluid holds the flow parameters of substances that move under gravity.
type Fluid struct {
	Viscosity Viscosity
	// Rising fluids (gases) flow upward, toward lower row indices.
	IsRising bool
}

// Transition is a temperature-triggered conversion of a fraction of a substance into another.
type Transition struct {
	Point float64
	To    Type
	Rate  float64
}

// Cooling converts absolute units of a substance once the temperature falls to Point,
// but only while at least Concentration of it is present at the cell.
type Cooling struct {
	Point         float64
	To            Type
	Rate          float64
	Concentration float64
	// Solid is set when cooling yields an entity instead of another substance.
	Solid Kind
}

// ToEntity reports whether cooling produces a solid entity.
func (c *Cooling) ToEntity() bool {
	return c.Solid != ""
}

// PheromoneType is a catalog entry. Optional behavior is present when its field is non-nil.
type PheromoneType struct {
	Name        Type
	QuantityCap float64
	// DecayAmount is subtracted per hop of propagation.
	DecayAmount float64
	// DecayRate, when set, is subtracted per nominal tick by dispersion.
	DecayRate          *float64
	BlockingKinds      mapset.Set[Kind]
	BlockingPheromones []Type
	CanInhabitBlocker  bool
	IsDispersing       bool
	// DecaysWhenPooled exempts the substance from the no-decay rule for pooled fluid.
	DecaysWhenPooled bool
	Color            string

	Fluid      *Fluid
	Heat       *Transition
	Cool       *Cooling
	Combustion *Transition
}

// IsFluid reports whether the substance flows.
func (pt *PheromoneType) IsFluid() bool {
	return pt.Fluid != nil
}

// TickDecay is the amount removed per nominal tick by dispersion.
func (pt *PheromoneType) TickDecay() float64 {
	if pt.DecayRate != nil {
		return *pt.DecayRate
	}
	return pt.DecayAmount
}

// Blocks reports whether an entity of the kind stops this substance.
func (pt *PheromoneType) Blocks(kind Kind) bool {
	return pt.BlockingKinds.Has(kind)
}

// Clamp bounds q to [0, cap].
func (pt *PheromoneType) Clamp(q float64) float64 {
	if q < 0 {
		return 0
	}
	if q > pt.QuantityCap {
		return pt.QuantityCap
	}
	return q
}

// Override replaces numeric parameters of one catalog entry. Zero fields are left as-is.
type Override struct {
	QuantityCap float64  `yaml:"quantityCap"`
	DecayAmount float64  `yaml:"decayAmount"`
	DecayRate   *float64 `yaml:"decayRate"`
}

// Catalog is the lookup table of substances.
type Catalog struct {
	types  map[Type]*PheromoneType
	order  []Type
	logger *slog.Logger

	mu     sync.Mutex
	warned mapset.Set[Type]
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used to report unknown substances.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// New builds a catalog from the passed entries, preserving their order.
func New(entries []PheromoneType, opts ...Option) *Catalog {
	c := &Catalog{
		types:  make(map[Type]*PheromoneType, len(entries)),
		logger: slog.Default(),
		warned: mapset.New[Type](),
	}
	for _, opt := range opts {
		opt(c)
	}
	for i := range entries {
		entry := entries[i]
		if _, ok := c.types[entry.Name]; !ok {
			c.order = append(c.order, entry.Name)
		}
		c.types[entry.Name] = &entry
	}
	return c
}

// Default returns the catalog of every built-in substance.
func Default(opts ...Option) *Catalog {
	return New(defaults(), opts...)
}

// Lookup returns the entry for t. Unknown types are logged once and reported as absent.
func (c *Catalog) Lookup(t Type) (*PheromoneType, bool) {
	pt, ok := c.types[t]
	if !ok {
		c.warnUnknown(t)
	}
	return pt, ok
}

func (c *Catalog) warnUnknown(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warned.Has(t) {
		return
	}
	c.warned.Put(t)
	c.logger.Warn("unknown substance", slog.String("type", string(t)))
}

// Types returns every substance in catalog order.
func (c *Catalog) Types() []Type {
	return append([]Type{}, c.order...)
}

// SteadyState returns the substances governed purely by flood fill.
func (c *Catalog) SteadyState() (types []Type) {
	for _, t := range c.order {
		if !c.types[t].IsDispersing {
			types = append(types, t)
		}
	}
	return
}

// Dispersing returns the substances evolved by dispersion.
func (c *Catalog) Dispersing() (types []Type) {
	for _, t := range c.order {
		if c.types[t].IsDispersing {
			types = append(types, t)
		}
	}
	return
}

// WithOverrides returns a copy of the catalog with numeric overrides applied.
// Overrides naming unknown substances are logged and skipped.
func (c *Catalog) WithOverrides(overrides map[Type]Override) *Catalog {
	entries := make([]PheromoneType, 0, len(c.order))
	for _, t := range c.order {
		entry := *c.types[t]
		if o, ok := overrides[t]; ok {
			if o.QuantityCap > 0 {
				entry.QuantityCap = o.QuantityCap
			}
			if o.DecayAmount > 0 {
				entry.DecayAmount = o.DecayAmount
			}
			if o.DecayRate != nil {
				rate := *o.DecayRate
				entry.DecayRate = &rate
			}
		}
		entries = append(entries, entry)
	}
	for t := range overrides {
		if _, ok := c.types[t]; !ok {
			c.warnUnknown(t)
		}
	}
	return New(entries, WithLogger(c.logger))
}
