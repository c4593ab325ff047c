// Package chart draws the small inline SVG charts of the HTML dashboard.
package chart

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Palette is cycled through for multi-series charts.
var Palette = []string{
	"#66c2a5", "#fc8d62", "#8da0cb", "#e78ac3",
	"#a6d854", "#ffd92f", "#e5c494", "#b3b3b3",
}

const (
	positiveColor = "#2e7d32"
	negativeColor = "#c62828"
	fontSize      = 12
)

// Bar is one labelled value.
type Bar struct {
	Label string
	Value float64
}

// Point is one x position of a line.
type Point struct {
	X string
	Y float64
}

// Line is a named series. Points missing for an x are simply not drawn.
type Line struct {
	Name   string
	Points []Point
}

// Options control sizing and value formatting.
type Options struct {
	Width  int
	Height int
	// Format is the fmt verb used for value labels, "%.1f" by default.
	Format string
	// Min and Max fix the value axis. Unset bounds come from the data.
	Min, Max *float64
}

// Bound returns a pointer to v for Options.Min and Options.Max.
func Bound(v float64) *float64 { return &v }

func (o Options) withDefaults(w, h int) Options {
	if o.Width <= 0 {
		o.Width = w
	}
	if o.Height <= 0 {
		o.Height = h
	}
	if o.Format == "" {
		o.Format = "%.1f"
	}
	return o
}

func (o Options) bounds(values []float64) (lo, hi float64) {
	lo, hi = 0, 0
	for i, v := range values {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	if lo > 0 {
		lo = 0
	}
	if o.Min != nil {
		lo = *o.Min
	}
	if o.Max != nil {
		hi = *o.Max
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

type canvas struct {
	b strings.Builder
}

func newCanvas(w, h int) *canvas {
	c := &canvas{}
	fmt.Fprintf(&c.b, `<svg xmlns="http://www.w3.org/2000/svg" class="chart" viewBox="0 0 %d %d" width="100%%" role="img">`, w, h)
	return c
}

func (c *canvas) text(x, y float64, anchor, s string) {
	fmt.Fprintf(&c.b, `<text x="%.1f" y="%.1f" text-anchor="%s" font-size="%d">%s</text>`,
		x, y, anchor, fontSize, template.HTMLEscapeString(s))
}

func (c *canvas) rect(x, y, w, h float64, fill, title string) {
	fmt.Fprintf(&c.b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s</title></rect>`,
		x, y, w, h, fill, template.HTMLEscapeString(title))
}

func (c *canvas) line(x1, y1, x2, y2 float64, stroke string) {
	fmt.Fprintf(&c.b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`, x1, y1, x2, y2, stroke)
}

func (c *canvas) done() template.HTML {
	c.b.WriteString("</svg>")
	return template.HTML(c.b.String())
}

func empty(w, h int) template.HTML {
	c := newCanvas(w, h)
	c.text(float64(w)/2, float64(h)/2, "middle", "データなし")
	return c.done()
}

// HBar draws horizontal bars in the given order. Negative values are drawn
// left of the zero line in red.
func HBar(bars []Bar, opts Options) template.HTML {
	const labelWidth, rowHeight, pad = 220.0, 26.0, 8.0
	opts = opts.withDefaults(720, int(rowHeight)*len(bars)+int(2*pad))
	if len(bars) == 0 {
		return empty(opts.Width, 60)
	}

	values := make([]float64, len(bars))
	for i, b := range bars {
		values[i] = b.Value
	}
	lo, hi := opts.bounds(values)

	c := newCanvas(opts.Width, opts.Height)
	plot := float64(opts.Width) - labelWidth - 60
	scale := func(v float64) float64 { return labelWidth + (v-lo)/(hi-lo)*plot }
	zero := scale(math.Max(lo, 0))

	for i, b := range bars {
		y := pad + float64(i)*rowHeight
		c.text(labelWidth-6, y+rowHeight*0.65, "end", b.Label)
		x0, x1 := zero, scale(b.Value)
		fill := positiveColor
		if b.Value < 0 {
			x0, x1 = x1, zero
			fill = negativeColor
		}
		label := fmt.Sprintf(opts.Format, b.Value)
		c.rect(x0, y+4, math.Max(x1-x0, 1), rowHeight-8, fill, b.Label+": "+label)
		c.text(math.Max(x1, zero)+4, y+rowHeight*0.65, "start", label)
	}
	c.line(zero, pad, zero, pad+float64(len(bars))*rowHeight, "#555")
	return c.done()
}

// Lines draws one polyline per series over the categorical xs.
func Lines(xs []string, lines []Line, opts Options) template.HTML {
	const left, right, top, bottom = 50.0, 20.0, 16.0, 40.0
	legendRows := (len(lines) + 2) / 3
	opts = opts.withDefaults(720, 320+legendRows*18)
	if len(xs) == 0 || len(lines) == 0 {
		return empty(opts.Width, 60)
	}

	var values []float64
	for _, l := range lines {
		for _, p := range l.Points {
			values = append(values, p.Y)
		}
	}
	lo, hi := opts.bounds(values)

	plotH := float64(opts.Height) - top - bottom - float64(legendRows*18)
	plotW := float64(opts.Width) - left - right
	step := plotW
	if len(xs) > 1 {
		step = plotW / float64(len(xs)-1)
	}
	xpos := make(map[string]float64, len(xs))
	for i, x := range xs {
		if len(xs) == 1 {
			xpos[x] = left + plotW/2
		} else {
			xpos[x] = left + float64(i)*step
		}
	}
	ypos := func(v float64) float64 { return top + (hi-v)/(hi-lo)*plotH }

	c := newCanvas(opts.Width, opts.Height)
	for _, v := range []float64{lo, (lo + hi) / 2, hi} {
		y := ypos(v)
		c.line(left, y, left+plotW, y, "#ddd")
		c.text(left-6, y+4, "end", fmt.Sprintf(opts.Format, v))
	}
	for _, x := range xs {
		c.text(xpos[x], top+plotH+18, "middle", x)
	}

	for i, l := range lines {
		color := Palette[i%len(Palette)]
		var pts []string
		for _, p := range l.Points {
			x, ok := xpos[p.X]
			if !ok {
				continue
			}
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", x, ypos(p.Y)))
		}
		if len(pts) > 1 {
			fmt.Fprintf(&c.b, `<polyline fill="none" stroke="%s" stroke-width="2" points="%s"/>`, color, strings.Join(pts, " "))
		}
		for _, p := range l.Points {
			if x, ok := xpos[p.X]; ok {
				fmt.Fprintf(&c.b, `<circle cx="%.1f" cy="%.1f" r="4" fill="%s"><title>%s</title></circle>`,
					x, ypos(p.Y), color, template.HTMLEscapeString(fmt.Sprintf("%s %s: "+opts.Format, l.Name, p.X, p.Y)))
			}
		}

		lx := left + float64(i%3)*(plotW/3)
		ly := top + plotH + bottom + float64(i/3)*18
		c.rect(lx, ly-10, 12, 12, color, l.Name)
		c.text(lx+16, ly, "start", l.Name)
	}
	return c.done()
}

// Heatmap draws a grid of cells shaded from white to blue.
func Heatmap(rows, cols []string, cells [][]float64, opts Options) template.HTML {
	const labelWidth, headerHeight, cellH = 200.0, 60.0, 32.0
	opts = opts.withDefaults(720, int(headerHeight+cellH*float64(len(rows)))+8)
	if len(rows) == 0 || len(cols) == 0 {
		return empty(opts.Width, 60)
	}

	var values []float64
	for _, r := range cells {
		values = append(values, r...)
	}
	lo, hi := opts.bounds(values)

	cellW := (float64(opts.Width) - labelWidth) / float64(len(cols))
	c := newCanvas(opts.Width, opts.Height)
	for j, col := range cols {
		c.text(labelWidth+(float64(j)+0.5)*cellW, headerHeight-10, "middle", col)
	}
	for i, row := range rows {
		y := headerHeight + float64(i)*cellH
		c.text(labelWidth-6, y+cellH*0.6, "end", row)
		for j := range cols {
			var v float64
			if i < len(cells) && j < len(cells[i]) {
				v = cells[i][j]
			}
			label := fmt.Sprintf(opts.Format, v)
			c.rect(labelWidth+float64(j)*cellW, y, cellW-1, cellH-1, shade((v-lo)/(hi-lo)), row+" / "+cols[j]+": "+label)
			c.text(labelWidth+(float64(j)+0.5)*cellW, y+cellH*0.6, "middle", label)
		}
	}
	return c.done()
}

// shade maps t in [0,1] onto a white to blue ramp.
func shade(t float64) string {
	t = math.Max(0, math.Min(1, t))
	r := int(247 - t*(247-8))
	g := int(251 - t*(251-81))
	b := int(255 - t*(255-156))
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
