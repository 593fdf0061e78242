package engine

import (
	"math"
	"sort"
	"time"

	"pherosim/catalog"
	"pherosim/models"
)

// Solid is a solid entity to be created where a substance froze.
type Solid struct {
	Kind     catalog.Kind `json:"type"`
	Quantity float64      `json:"quantity"`
}

// DispersionResult is everything one dispersion pass changed.
type DispersionResult struct {
	Diffs []models.Diff
	// Turbines maps turbine ids to the rotational impulse fluid gave them this pass.
	Turbines map[int]float64
	// Solids maps position keys to solids that froze there.
	Solids map[string]Solid
}

// flowClass indexes a fluid's viscosity.
type flowClass int

const (
	vertical flowClass = iota
	diagonal
	horizontal
)

func leftover(vis catalog.Viscosity, class flowClass) float64 {
	switch class {
	case diagonal:
		return vis.Diagonal
	case horizontal:
		return vis.Horizontal
	}
	return vis.Vertical
}

// turbineCost is the fraction of transferred mass spent turning a turbine.
const turbineCost = 0.2

// pass accumulates the output of one dispersion pass.
type pass struct {
	diffs    map[fieldKey]models.Diff
	order    []fieldKey
	turbines map[int]float64
	solids   map[string]Solid
}

func (p *pass) put(pos models.Position, typ catalog.Type, owner int, quantity float64) {
	p.diff(typ, owner).Put(pos, typ, owner, quantity)
}

func (p *pass) merge(typ catalog.Type, owner int, diff models.Diff) {
	if len(diff) > 0 {
		p.diff(typ, owner).Merge(diff)
	}
}

func (p *pass) diff(typ catalog.Type, owner int) models.Diff {
	key := fieldKey{typ: typ, owner: owner}
	d, ok := p.diffs[key]
	if !ok {
		d = models.Diff{}
		p.diffs[key] = d
		p.order = append(p.order, key)
	}
	return d
}

// Disperse runs one pass over every live dispersing entry: phase changes, fluid flow,
// then decay scaled by the time elapsed since the previous pass. The live set is rebuilt
// as entries are visited; anything registered during the pass is visited next pass.
func (sc *SimulationContext) Disperse(timestamp int64) DispersionResult {
	start := time.Now()
	defer func() {
		dispersionDuration.Observe(time.Since(start).Seconds())
	}()

	elapsed := max(float64(timestamp-sc.lastDispersal), 0)
	sc.lastDispersal = timestamp
	scale := elapsed / sc.cfg.MsPerTick

	var entries []DispersingEntry
	for _, typ := range sc.Catalog.Types() {
		entries = append(entries, sc.LiveEntries(typ)...)
	}
	sc.live = map[catalog.Type]map[entryKey]DispersingEntry{}

	p := &pass{
		diffs:    map[fieldKey]models.Diff{},
		turbines: map[int]float64{},
		solids:   map[string]Solid{},
	}
	for _, entry := range entries {
		pt, ok := sc.Catalog.Lookup(entry.PheromoneType)
		if !ok {
			continue
		}
		sc.disperseEntry(p, pt, entry, scale)
	}

	result := DispersionResult{Turbines: p.turbines, Solids: p.solids}
	sort.SliceStable(p.order, func(i, j int) bool {
		return p.order[i].owner < p.order[j].owner
	})
	for _, key := range p.order {
		if len(p.diffs[key]) > 0 {
			result.Diffs = append(result.Diffs, p.diffs[key])
		}
	}
	live := 0
	for _, entries := range sc.live {
		live += len(entries)
	}
	liveEntries.Set(float64(live))
	return result
}

func (sc *SimulationContext) disperseEntry(p *pass, pt *catalog.PheromoneType, entry DispersingEntry, scale float64) {
	typ, owner, pos := pt.Name, entry.OwnerID, entry.Position
	quantity := sc.Grid.Get(pos, typ, owner)
	if quantity <= 0 && !pt.IsFluid() {
		return
	}

	quantity = sc.changePhase(p, pt, owner, pos, quantity)
	decay := pt.TickDecay() * scale

	if pt.IsFluid() && quantity > 0 {
		if dest, class, ok := sc.flowTarget(pt, owner, pos); ok {
			held := sc.Grid.Get(dest, typ, owner)
			give := quantity * (1 - leftover(pt.Fluid.Viscosity, class))
			give = max(min(give, pt.QuantityCap-held), 0)
			give = sc.turn(p, pos, dest, class, give, pt.QuantityCap)

			// Mass left behind above the retained threshold stops decay for the rest of
			// this entry's pass, at the destination too.
			left := quantity - give
			if left > sc.cfg.RetainedThreshold {
				decay = 0
			}
			left = max(left-decay, 0)
			stored, _ := sc.Grid.Set(pos, typ, owner, left)
			p.put(pos, typ, owner, stored)
			sc.keep(pt, owner, pos, stored, entry.Quantity)

			pos = dest
			quantity = held + give
			entry.Quantity = held
		}
	}

	if pt.IsFluid() && quantity > sc.cfg.PooledThreshold && !pt.DecaysWhenPooled {
		decay = 0
	}
	final, _ := sc.Grid.Set(pos, typ, owner, max(quantity-decay, 0))
	p.put(pos, typ, owner, final)
	sc.keep(pt, owner, pos, final, entry.Quantity)
}

// keep re-registers an entry for the next pass. Fluids stay one extra pass at 0 so
// consumers observe the transition.
func (sc *SimulationContext) keep(pt *catalog.PheromoneType, owner int, pos models.Position, quantity, previous float64) {
	if quantity > 0 || (pt.IsFluid() && previous > 0) {
		sc.register(pt.Name, owner, pos, quantity)
	}
}

// changePhase converts part of the substance at pos according to the temperature there
// and returns the unconverted remainder.
func (sc *SimulationContext) changePhase(
	p *pass,
	pt *catalog.PheromoneType,
	owner int,
	pos models.Position,
	quantity float64,
) float64 {
	if quantity <= 0 {
		return quantity
	}
	temperature := sc.Temperature(pos)

	switch {
	case pt.Combustion != nil && temperature >= pt.Combustion.Point:
		converted := fraction(quantity, pt.Combustion.Rate)
		to := pt.Combustion.To
		p.merge(to, owner, sc.FloodFill(to, owner, []Seed{{
			Position: pos,
			Quantity: sc.Grid.Get(pos, to, owner) + converted,
		}}))
		if heat, ok := sc.Catalog.Lookup(catalog.HEAT); ok {
			p.merge(catalog.HEAT, Environment, sc.FloodFill(catalog.HEAT, Environment, []Seed{{
				Position: pos,
				Quantity: heat.QuantityCap,
			}}))
		}
		return quantity - converted

	case pt.Heat != nil && temperature >= pt.Heat.Point:
		converted := fraction(quantity, pt.Heat.Rate)
		sc.convert(p, pt.Heat.To, owner, pos, converted)
		return quantity - converted

	case pt.Cool != nil && temperature <= pt.Cool.Point && quantity >= pt.Cool.Concentration:
		converted := min(quantity, pt.Cool.Rate)
		if pt.Cool.ToEntity() {
			if amount := math.Round(converted); amount > 0 {
				p.solids[pos.Key()] = Solid{Kind: pt.Cool.Solid, Quantity: amount}
				solidified.WithLabelValues(string(pt.Cool.Solid)).Inc()
			}
		} else {
			sc.convert(p, pt.Cool.To, owner, pos, converted)
		}
		return quantity - converted
	}
	return quantity
}

// fraction is the part of quantity a rate converts; trace amounts convert entirely.
func fraction(quantity, rate float64) float64 {
	if quantity < 1 {
		return quantity
	}
	return min(quantity, rate*quantity)
}

func (sc *SimulationContext) convert(p *pass, to catalog.Type, owner int, pos models.Position, amount float64) {
	stored, ok := sc.Grid.Set(pos, to, owner, sc.Grid.Get(pos, to, owner)+amount)
	if !ok {
		return
	}
	p.put(pos, to, owner, stored)
	if stored > 0 {
		sc.register(to, owner, pos, stored)
	}
}

// flowTarget picks where a fluid at pos moves: straight along gravity, else the emptier
// of the two gravity diagonals, else the emptier of the two horizontals.
func (sc *SimulationContext) flowTarget(pt *catalog.PheromoneType, owner int, pos models.Position) (models.Position, flowClass, bool) {
	dy := 1
	if pt.Fluid.IsRising {
		dy = -1
	}
	available := func(n models.Position) bool {
		return !sc.IsBlocking(pt.Name, n) && sc.Grid.Get(n, pt.Name, owner) < pt.QuantityCap-1
	}

	if below := pos.Add(0, dy); available(below) {
		return below, vertical, true
	}
	if n, ok := sc.emptier(pt, owner, pos.Add(-1, dy), pos.Add(1, dy), available); ok {
		return n, diagonal, true
	}
	if n, ok := sc.emptier(pt, owner, pos.Add(-1, 0), pos.Add(1, 0), available); ok {
		return n, horizontal, true
	}
	return pos, vertical, false
}

func (sc *SimulationContext) emptier(
	pt *catalog.PheromoneType,
	owner int,
	a, b models.Position,
	available func(models.Position) bool,
) (models.Position, bool) {
	okA, okB := available(a), available(b)
	switch {
	case okA && okB:
		qa, qb := sc.Grid.Get(a, pt.Name, owner), sc.Grid.Get(b, pt.Name, owner)
		if qa < qb || (qa == qb && sc.rng.Bool()) {
			return a, true
		}
		return b, true
	case okA:
		return a, true
	case okB:
		return b, true
	}
	return a, false
}

// turn drives every turbine whose footprint covers both ends of a vertical or horizontal
// flow and returns the mass that still arrives at dest. Diagonal flows slip past turbines.
func (sc *SimulationContext) turn(
	p *pass,
	src, dest models.Position,
	class flowClass,
	give, quantityCap float64,
) float64 {
	if class == diagonal {
		return give
	}
	dir := -1.0
	if flowAngle(src.Sub(dest)) > 0 {
		dir = 1
	}
	for _, turbine := range sc.Turbines() {
		if !turbine.Covers(src) || !turbine.Covers(dest) {
			continue
		}
		impulse := dir
		if give > 1 {
			give *= 1 - turbineCost
		} else {
			impulse = 0
		}
		p.turbines[turbine.ID] += impulse * give / quantityCap * turbine.MaxThetaSpeed
	}
	return give
}

// flowAngle is the angle of d in [0, 2π). Only a flow toward -x has angle 0.
func flowAngle(d models.Position) float64 {
	return math.Mod(2*math.Pi+math.Atan2(float64(d.Y), float64(d.X)), 2*math.Pi)
}
