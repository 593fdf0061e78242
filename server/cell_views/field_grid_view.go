package cell_views

import (
	"fmt"
	"html/template"

	"pherosim/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// FieldGrid is a flat heat map of the displayed layer, one square per cell, with the
// quantity printed inside.
type FieldGrid struct {
	id       string
	cellSize int
	updates  <-chan []fastview.EleUpdate
}

func NewFieldGrid(
	done <-chan struct{},
	frames <-chan Frame,
) *FieldGrid {
	fg := &FieldGrid{id: "fieldgrid", cellSize: 40}
	fg.updates = channerics.Convert(done, frames, fg.onUpdate)
	return fg
}

func (fg *FieldGrid) Updates() <-chan []fastview.EleUpdate {
	return fg.updates
}

func cellID(cell Cell, suffix string) string {
	return fmt.Sprintf("%d-%d-%s", cell.X, cell.Y, suffix)
}

func (fg *FieldGrid) onUpdate(frame Frame) (ops []fastview.EleUpdate) {
	ops = append(ops, fastview.EleUpdate{
		EleId: fg.id + "_caption",
		Ops: []fastview.Op{
			{Key: "textContent", Value: caption(frame)},
		},
	})
	for _, column := range frame.Cells {
		for _, cell := range column {
			ops = append(ops,
				fastview.EleUpdate{
					EleId: cellID(cell, "cell"),
					Ops: []fastview.Op{
						{Key: "fill", Value: cell.Fill},
						{Key: "fill-opacity", Value: fmt.Sprintf("%.2f", cell.Level)},
					},
				},
				fastview.EleUpdate{
					EleId: cellID(cell, "quantity"),
					Ops: []fastview.Op{
						{Key: "textContent", Value: quantityText(cell)},
					},
				})
		}
	}
	return
}

func caption(frame Frame) string {
	return fmt.Sprintf("tick %d, %s, total %.1f", frame.Tick, frame.Caption, frame.Total)
}

func quantityText(cell Cell) string {
	if cell.Kind != "" || cell.Quantity <= 0 {
		return ""
	}
	return fmt.Sprintf("%.0f", cell.Quantity)
}

// Parse defines the grid's template. It is executed with the initial Frame.
func (fg *FieldGrid) Parse(t *template.Template) (name string, err error) {
	name = fg.id
	_, err = t.Funcs(template.FuncMap{
		"caption":      caption,
		"quantityText": quantityText,
	}).Parse(`{{ define "` + name + `" }}
		<div style="padding:20px;">
			<h3 id="` + fg.id + `_caption">{{ caption . }}</h3>
			{{ $size := ` + fmt.Sprint(fg.cellSize) + ` }}
			{{ $half := div $size 2 }}
			{{ $x_cells := len .Cells }}
			{{ $y_cells := len (index .Cells 0) }}
			<svg id="` + fg.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ add (mult $size $x_cells) 1 }}px"
				height="{{ add (mult $size $y_cells) 1 }}px"
				style="shape-rendering: crispEdges;">
				{{ range $column := .Cells }}
					{{ range $cell := $column }}
					<rect id="{{$cell.X}}-{{$cell.Y}}-cell"
						x="{{ mult $cell.X $size }}"
						y="{{ mult $cell.Y $size }}"
						width="{{ $size }}"
						height="{{ $size }}"
						fill="{{ $cell.Fill }}"
						fill-opacity="{{ printf "%.2f" $cell.Level }}"
						stroke="lightgray"
						stroke-width="1"/>
					<text id="{{$cell.X}}-{{$cell.Y}}-quantity"
						x="{{ add (mult $cell.X $size) $half }}"
						y="{{ add (mult $cell.Y $size) $half }}"
						font-size="10"
						dominant-baseline="central" text-anchor="middle"
						>{{ quantityText $cell }}</text>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}
