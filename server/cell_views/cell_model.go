// Package cell_views contains views derived from the Cell view-model.
package cell_views

import (
	"fmt"

	"pherosim/catalog"
	"pherosim/sim"
)

// Cell is one grid cell reduced to what the views draw. Fields are immediately usable as
// template and svg attribute values.
type Cell struct {
	X, Y     int
	Quantity float64
	// Level is the quantity over the substance's cap, in [0, 1].
	Level float64
	Fill  string
	// Kind is the occupying entity's kind, empty for open cells.
	Kind catalog.Kind
}

// Frame is the view-model: the cells of one snapshot indexed [x][y], plus its caption.
type Frame struct {
	Tick    int64
	Caption string
	Total   float64
	Cells   [][]Cell
}

var kindFills = map[catalog.Kind]string{
	catalog.STONE:       "dimgray",
	catalog.DIRT:        "saddlebrown",
	catalog.DOODAD:      "darkolivegreen",
	catalog.ICE:         "lightcyan",
	catalog.STEEL:       "slategray",
	catalog.IRON:        "rosybrown",
	catalog.COAL:        "black",
	catalog.GLASS:       "azure",
	catalog.SULPHUR:     "khaki",
	catalog.TURBINE:     "silver",
	catalog.TOKEN:       "gold",
	catalog.FOOD_SOURCE: "limegreen",
	catalog.ANT:         "maroon",
}

var substanceFills = map[catalog.Type]string{
	catalog.COLONY:          "purple",
	catalog.FOOD:            "green",
	catalog.ALERT:           "orangered",
	catalog.FOLLOW:          "teal",
	catalog.LIGHT:           "yellow",
	catalog.WATER:           "blue",
	catalog.STEAM:           "lightsteelblue",
	catalog.OIL:             "darkslategray",
	catalog.HOT_OIL:         "chocolate",
	catalog.SULPHUR_DIOXIDE: "yellowgreen",
	catalog.SAND:            "tan",
	catalog.MOLTEN_SAND:     "orange",
	catalog.MOLTEN_IRON:     "darkorange",
	catalog.MOLTEN_STEEL:    "tomato",
	catalog.HEAT:            "red",
	catalog.COLD:            "deepskyblue",
}

// Convert reduces a snapshot to a frame. Cells covered by an entity take the entity's fill;
// the rest take the displayed substance's fill, weighted by Level.
func Convert(snapshot sim.Snapshot) Frame {
	kinds := map[[2]int]catalog.Kind{}
	for _, e := range snapshot.Entities {
		for _, pos := range e.Footprint() {
			kinds[[2]int{pos.X, pos.Y}] = e.Kind
		}
	}

	fill, ok := substanceFills[snapshot.Display.Substance]
	if !ok {
		fill = "magenta"
	}

	frame := Frame{
		Tick:    snapshot.Tick,
		Caption: fmt.Sprintf("%s/%d", snapshot.Display.Substance, snapshot.Display.Owner),
		Cells:   make([][]Cell, snapshot.Width),
	}
	for x := range frame.Cells {
		frame.Cells[x] = make([]Cell, snapshot.Height)
		for y := range frame.Cells[x] {
			cell := Cell{X: x, Y: y, Fill: fill}
			if y < len(snapshot.Values) && x < len(snapshot.Values[y]) {
				cell.Quantity = snapshot.Values[y][x]
			}
			if snapshot.QuantityCap > 0 {
				cell.Level = min(max(cell.Quantity/snapshot.QuantityCap, 0), 1)
			}
			if kind, ok := kinds[[2]int{x, y}]; ok {
				cell.Kind = kind
				cell.Fill = kindFills[kind]
				cell.Level = 1
			}
			frame.Total += cell.Quantity
			frame.Cells[x][y] = cell
		}
	}
	return frame
}
