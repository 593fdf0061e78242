package sim

import (
	"fmt"
	"io"
	"os"
	"strings"

	"pherosim/catalog"
	"pherosim/models"

	"github.com/gookit/color"
	"github.com/mattn/go-isatty"
)

var kindGlyphs = map[catalog.Kind]rune{
	catalog.STONE:       models.STONE,
	catalog.DIRT:        models.DIRT,
	catalog.ICE:         models.ICE,
	catalog.COAL:        models.COAL,
	catalog.TURBINE:     models.TURBINE,
	catalog.ANT:         models.ANT,
	catalog.TOKEN:       'E',
	catalog.FOOD_SOURCE: models.FOOD,
	catalog.STEEL:       'X',
	catalog.IRON:        'R',
	catalog.GLASS:       'G',
	catalog.SULPHUR:     'U',
	catalog.DOODAD:      'd',
}

// Shades from faint to saturated, by quantity over cap.
var shades = []color.Style{
	{color.FgGray},
	{color.FgBlue},
	{color.FgCyan},
	{color.FgGreen},
	{color.FgYellow},
	{color.FgRed, color.OpBold},
}

var glyphStyle = color.Style{color.FgWhite, color.OpBold}

// Console prints snapshots for debugging.
type Console struct {
	w       io.Writer
	colored bool
}

// NewConsole writes to w, styled only when w is a terminal.
func NewConsole(w io.Writer) *Console {
	colored := false
	if f, ok := w.(*os.File); ok {
		colored = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Console{w: w, colored: colored}
}

func (c *Console) style(s color.Style, text string) string {
	if !c.colored {
		return text
	}
	return s.Sprint(text)
}

// Dump prints the snapshot's layer with entity glyphs over their cells, then the layer total.
func (c *Console) Dump(snapshot Snapshot) {
	glyphs := map[models.Position]rune{}
	for _, e := range snapshot.Entities {
		glyph, ok := kindGlyphs[e.Kind]
		if !ok {
			continue
		}
		for _, pos := range e.Footprint() {
			glyphs[pos] = glyph
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "tick %d %s/%d:\n", snapshot.Tick, snapshot.Display.Substance, snapshot.Display.Owner)
	total := 0.0
	for y, row := range snapshot.Values {
		b.WriteString(" ")
		for x, q := range row {
			total += q
			if glyph, ok := glyphs[models.Position{X: x, Y: y}]; ok {
				b.WriteString(c.style(glyphStyle, fmt.Sprintf("%6c ", glyph)))
				continue
			}
			b.WriteString(c.style(c.shade(q, snapshot.QuantityCap), fmt.Sprintf("%6.2f ", q)))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: %.2f\n", total)
	_, _ = io.WriteString(c.w, b.String())
}

func (c *Console) shade(q, quantityCap float64) color.Style {
	if quantityCap <= 0 || q <= 0 {
		return shades[0]
	}
	i := int(q / quantityCap * float64(len(shades)-1))
	return shades[min(max(i, 0), len(shades)-1)]
}
