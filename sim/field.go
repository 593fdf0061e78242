package sim

import (
	"sort"

	"pherosim/atomic_float"
	"pherosim/catalog"
	"pherosim/models"
)

type layerKey struct {
	typ   catalog.Type
	owner int
}

// layer is one substance field for one owner, stored row-major.
type layer struct {
	cells []atomic_float.AtomicFloat64
	// peak is the largest value ever stored, used to normalize views.
	peak atomic_float.AtomicFloat64
}

// Field is the main thread's mirror of every substance field. The set of layers is fixed
// at construction, so the simulation loop can store diffs while views read concurrently.
type Field struct {
	width, height int
	layers        map[layerKey]*layer
	// order is each substance's index in the catalog.
	order map[catalog.Type]int
}

// NewField allocates a layer per catalog substance and owner.
func NewField(width, height int, cat *catalog.Catalog, owners []int) *Field {
	f := &Field{
		width:  width,
		height: height,
		layers: map[layerKey]*layer{},
		order:  map[catalog.Type]int{},
	}
	for i, typ := range cat.Types() {
		f.order[typ] = i
		for _, owner := range owners {
			f.layers[layerKey{typ: typ, owner: owner}] = &layer{
				cells: make([]atomic_float.AtomicFloat64, width*height),
			}
		}
	}
	return f
}

func (f *Field) Width() int  { return f.width }
func (f *Field) Height() int { return f.height }

func (f *Field) cell(pos models.Position, typ catalog.Type, owner int) *atomic_float.AtomicFloat64 {
	l, ok := f.layers[layerKey{typ: typ, owner: owner}]
	if !ok || pos.X < 0 || pos.Y < 0 || pos.X >= f.width || pos.Y >= f.height {
		return nil
	}
	return &l.cells[pos.Y*f.width+pos.X]
}

// Store applies one diff entry, replacing whatever was mirrored. It reports false for
// positions off the grid and for untracked substances or owners.
func (f *Field) Store(pos models.Position, typ catalog.Type, owner int, quantity float64) bool {
	c := f.cell(pos, typ, owner)
	if c == nil {
		return false
	}
	c.AtomicStore(quantity)
	f.layers[layerKey{typ: typ, owner: owner}].peak.AtomicMax(quantity)
	return true
}

// Sense returns the mirrored quantity, 0 when absent or off the grid.
func (f *Field) Sense(pos models.Position, typ catalog.Type, owner int) float64 {
	if c := f.cell(pos, typ, owner); c != nil {
		return c.AtomicRead()
	}
	return 0
}

// Peak returns the largest quantity ever mirrored for the substance and owner.
func (f *Field) Peak(typ catalog.Type, owner int) float64 {
	if l, ok := f.layers[layerKey{typ: typ, owner: owner}]; ok {
		return l.peak.AtomicRead()
	}
	return 0
}

// Tracks reports whether a layer exists for the substance and owner.
func (f *Field) Tracks(typ catalog.Type, owner int) bool {
	_, ok := f.layers[layerKey{typ: typ, owner: owner}]
	return ok
}

// Snapshot copies one layer as [y][x]. It is nil for untracked layers.
func (f *Field) Snapshot(typ catalog.Type, owner int) [][]float64 {
	l, ok := f.layers[layerKey{typ: typ, owner: owner}]
	if !ok {
		return nil
	}
	rows := make([][]float64, f.height)
	for y := range rows {
		rows[y] = make([]float64, f.width)
		for x := range rows[y] {
			rows[y][x] = l.cells[y*f.width+x].AtomicRead()
		}
	}
	return rows
}

// Positive calls fn, in catalog order then owner order, for every tracked substance and
// owner holding a positive quantity at pos.
func (f *Field) Positive(pos models.Position, fn func(typ catalog.Type, owner int, quantity float64)) {
	keys := make([]layerKey, 0, len(f.layers))
	for key := range f.layers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if f.order[keys[i].typ] != f.order[keys[j].typ] {
			return f.order[keys[i].typ] < f.order[keys[j].typ]
		}
		return keys[i].owner < keys[j].owner
	})
	for _, key := range keys {
		if q := f.Sense(pos, key.typ, key.owner); q > 0 {
			fn(key.typ, key.owner, q)
		}
	}
}
