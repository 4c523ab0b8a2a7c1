package scope

import (
	"image"
	"image/color"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const gridDivisions = 10

var (
	background = color.RGBA{0x00, 0x00, 0x00, 0xff}
	traceColor = color.RGBA{0x00, 0xff, 0x00, 0xff}
	gridColor  = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Canvas is the oscilloscope picture.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas ...
func NewCanvas(width int, height int) *Canvas {
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Image returns the backing image. It changes on the next draw.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Clear fills the canvas with the background color.
func (c *Canvas) Clear() {
	pix := c.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = background.R
		pix[i+1] = background.G
		pix[i+2] = background.B
		pix[i+3] = background.A
	}
}

// DrawWave draws samples (-1..1) left to right as a connected trace.
// Positive values are drawn above the center line.
func (c *Canvas) DrawWave(samples []float64) {
	b := c.img.Bounds()
	w, h := b.Dx(), b.Dy()
	if len(samples) == 0 || w == 0 || h == 0 {
		return
	}
	toY := func(v float64) int {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		return int((0.5 - v/2) * float64(h-1))
	}
	if len(samples) == 1 {
		y := toY(samples[0])
		c.line(0, y, w-1, y, traceColor)
		return
	}
	px, py := 0, toY(samples[0])
	for i := 1; i < len(samples); i++ {
		x := i * (w - 1) / (len(samples) - 1)
		y := toY(samples[i])
		c.line(px, py, x, y, traceColor)
		px, py = x, y
	}
}

// DrawGrid draws a 10x10 grid with labels 0..10 along the top and 10..0
// down the left side.
func (c *Canvas) DrawGrid() {
	b := c.img.Bounds()
	w, h := b.Dx(), b.Dy()
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(gridColor),
		Face: basicfont.Face7x13,
	}
	for i := 0; i <= gridDivisions; i++ {
		x := i * (w - 1) / gridDivisions
		c.line(x, 0, x, h-1, gridColor)
		d.Dot = fixed.P(x+5, 10)
		d.DrawString(strconv.Itoa(i))
	}
	for i := 0; i <= gridDivisions; i++ {
		y := i * (h - 1) / gridDivisions
		c.line(0, y, w-1, y, gridColor)
		d.Dot = fixed.P(5, y+15)
		d.DrawString(strconv.Itoa(gridDivisions - i))
	}
}

// Render draws one complete frame: background, trace, then grid on top.
func (c *Canvas) Render(samples []float64) {
	c.Clear()
	c.DrawWave(samples)
	c.DrawGrid()
}

// Bresenham
func (c *Canvas) line(x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.img.SetRGBA(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
