package cell_views

import (
	"fmt"
	"html/template"
	"math"

	"pherosim/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// angle of the x and y axes in the isometric projection
const surfaceAngle = math.Pi / 6

var sinAng, cosAng = math.Sin(surfaceAngle), math.Cos(surfaceAngle)

// FieldSurface plots the displayed layer as a 3d surface (x, y, level) projected
// isometrically onto the page. Each polygon spans four adjacent cells and is shaded by
// their average level.
type FieldSurface struct {
	id      string
	updates <-chan []fastview.EleUpdate

	cellDim       float64
	width, height float64
	xyscale       float64
	zscale        float64
}

// NewFieldSurface sizes the plot from the initial frame.
func NewFieldSurface(
	done <-chan struct{},
	initial Frame,
	frames <-chan Frame,
) *FieldSurface {
	fs := &FieldSurface{id: "fieldsurface", cellDim: 30}
	fs.xyscale = fs.cellDim
	fs.zscale = fs.cellDim * 4
	if len(initial.Cells) > 0 {
		fs.width = float64(len(initial.Cells)) * fs.cellDim
		fs.height = float64(len(initial.Cells[0])) * fs.cellDim
	}
	fs.updates = channerics.Convert(done, frames, fs.onUpdate)
	return fs
}

func (fs *FieldSurface) Updates() <-chan []fastview.EleUpdate {
	return fs.updates
}

func (fs *FieldSurface) project(x, y, z float64) (float64, float64) {
	sx := (x - y) * cosAng * fs.xyscale
	sy := (x+y)*sinAng*fs.xyscale - z*fs.zscale
	return sx, sy
}

type polygon struct {
	id     string
	ax, ay float64
	bx, by float64
	cx, cy float64
	dx, dy float64
}

// makePolygon projects the quad whose corners are a (bottom left), b (top left),
// c (top right) and d (bottom right).
func (fs *FieldSurface) makePolygon(id string, a, b, c, d Cell) (p *polygon) {
	p = &polygon{id: id}
	p.ax, p.ay = fs.project(float64(a.X), float64(a.Y), a.Level)
	p.bx, p.by = fs.project(float64(b.X), float64(b.Y), b.Level)
	p.cx, p.cy = fs.project(float64(c.X), float64(c.Y), c.Level)
	p.dx, p.dy = fs.project(float64(d.X), float64(d.Y), d.Level)
	return
}

// String formats the corners for the svg points attribute, truncated to ints.
func (p *polygon) String() string {
	return fmt.Sprintf("%d,%d %d,%d %d,%d %d,%d",
		int(p.ax), int(p.ay),
		int(p.bx), int(p.by),
		int(p.cx), int(p.cy),
		int(p.dx), int(p.dy),
	)
}

func (p *polygon) bounds() (minX, minY, maxX, maxY float64) {
	minX = math.Min(math.Min(p.ax, p.bx), math.Min(p.cx, p.dx))
	maxX = math.Max(math.Max(p.ax, p.bx), math.Max(p.cx, p.dx))
	minY = math.Min(math.Min(p.ay, p.by), math.Min(p.cy, p.dy))
	maxY = math.Max(math.Max(p.ay, p.by), math.Max(p.cy, p.dy))
	return
}

// quads calls fn for every polygon, back to front.
func quads(cells [][]Cell, fn func(id string, a, b, c, d Cell)) {
	if len(cells) < 2 || len(cells[0]) < 2 {
		return
	}
	for ri := 0; ri < len(cells)-1; ri++ {
		for ci := 0; ci < len(cells[ri])-1; ci++ {
			fn(cellID(cells[ri][ci], "surface"),
				cells[ri+1][ci], cells[ri][ci], cells[ri][ci+1], cells[ri+1][ci+1])
		}
	}
}

func (fs *FieldSurface) onUpdate(frame Frame) (ops []fastview.EleUpdate) {
	xmin, ymin := math.MaxFloat64, math.MaxFloat64
	xmax, ymax := -math.MaxFloat64, -math.MaxFloat64
	quads(frame.Cells, func(id string, a, b, c, d Cell) {
		p := fs.makePolygon(id, a, b, c, d)
		minX, minY, maxX, maxY := p.bounds()
		xmin, ymin = math.Min(xmin, minX), math.Min(ymin, minY)
		xmax, ymax = math.Max(xmax, maxX), math.Max(ymax, maxY)

		ops = append(ops, fastview.EleUpdate{
			EleId: p.id,
			Ops: []fastview.Op{
				{Key: "points", Value: p.String()},
				{Key: "fill", Value: levelFill((a.Level + b.Level + c.Level + d.Level) / 4)},
			},
		})
	})
	if len(ops) == 0 {
		return
	}

	// Shrink the plot to fit the view, never enlarge it.
	scaler := 1.0
	if xmax > xmin {
		scaler = math.Min(scaler, math.Abs(fs.width/(xmax-xmin)))
	}
	if ymax > ymin {
		scaler = math.Min(scaler, math.Abs(fs.height/(ymax-ymin)))
	}
	ops = append(ops, fastview.EleUpdate{
		EleId: fs.id + "-group",
		Ops: []fastview.Op{
			{Key: "transform", Value: fmt.Sprintf("scale(%f) translate(%d %d)", scaler, int(-xmin), int(-ymin))},
		},
	})
	return
}

// levelFill shades from blue at level 0 to red at level 1.
func levelFill(level float64) string {
	redPct := int(100 * min(max(level, 0), 1))
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

// Parse defines the surface's template. It is executed with the initial Frame.
func (fs *FieldSurface) Parse(t *template.Template) (name string, err error) {
	name = fs.id
	points := func(a, b, c, d Cell) string {
		return fs.makePolygon("", a, b, c, d).String()
	}
	_, err = t.Funcs(template.FuncMap{
		"surfacePoints": points,
	}).Parse(`{{ define "` + name + `" }}
		<div style="padding:40px;">
			{{ $x_cells := len .Cells }}
			{{ $y_cells := len (index .Cells 0) }}
			{{ $num_x_polys := sub $x_cells 1 }}
			{{ $num_y_polys := sub $y_cells 1 }}
			{{ $dim := ` + fmt.Sprint(int(fs.cellDim)) + ` }}
			<svg id="` + fs.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ mult (mult $dim $x_cells) 2 }}px"
				height="{{ mult (mult $dim $y_cells) 2 }}px"
				style="shape-rendering: crispEdges; stroke: lightgrey; stroke-opacity: 1.0; stroke-width: 1;">
				<g id="` + fs.id + `-group" transform="translate(0 0)">
				{{ $cells := .Cells }}
				{{ range $ri, $column := $cells }}
					{{ if lt $ri $num_x_polys }}
						{{ range $ci, $cell := $column }}
							{{ if lt $ci $num_y_polys }}
								<polygon id="{{$cell.X}}-{{$cell.Y}}-surface"
									fill="black" fill-opacity="1.0"
									points="{{ surfacePoints (index $cells (add $ri 1) $ci) $cell (index $cells $ri (add $ci 1)) (index $cells (add $ri 1) (add $ci 1)) }}" />
							{{ end }}
						{{ end }}
					{{ end }}
				{{ end }}
				</g>
			</svg>
		</div>
		{{ end }}`)
	return
}
