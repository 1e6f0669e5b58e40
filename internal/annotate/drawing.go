package annotate

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawThickCircle draws an outlined circle of radius r centred on (cx, cy)
// as thickness unfilled ellipses. Ellipse i has the bounding box
// (cx-r-i, cy-r+i, cx+r+i, cy+r-i): widened on the left/right by i and
// narrowed on the top/bottom by i.
func drawThickCircle(output *image.RGBA, cx, cy, r, thickness int, col color.RGBA) {
	if thickness < 1 {
		thickness = 1
	}
	for i := 0; i < thickness; i++ {
		drawEllipse(output, cx, cy, r+i, r-i, col)
	}
}

// drawEllipse draws the outline of an axis-aligned ellipse with semi-axes a
// (horizontal) and b (vertical).
func drawEllipse(output *image.RGBA, cx, cy, a, b int, col color.RGBA) {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	bounds := output.Bounds()

	// Enough samples that neighbouring points are at most a pixel apart.
	longest := a
	if b > longest {
		longest = b
	}
	steps := int(2*math.Pi*float64(longest))*2 + 8

	for s := 0; s < steps; s++ {
		theta := 2 * math.Pi * float64(s) / float64(steps)
		x := cx + int(math.Round(float64(a)*math.Cos(theta)))
		y := cy + int(math.Round(float64(b)*math.Sin(theta)))
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			output.SetRGBA(x, y, col)
		}
	}
}

// drawLegend burns text into output with its top-left corner at at, using
// the 7x13 bitmap face enlarged scale times. It returns the area covered.
func drawLegend(output *image.RGBA, text string, at image.Point, col color.RGBA, scale int) image.Rectangle {
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	width := d.MeasureString(text).Ceil()
	height := face.Metrics().Height.Ceil()
	if width == 0 {
		return image.Rectangle{}
	}

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	d.Dst = mask
	d.Src = image.Opaque
	d.Dot = fixed.P(0, face.Metrics().Ascent.Ceil())
	d.DrawString(text)

	scaled := image.NewAlpha(image.Rect(0, 0, width*scale, height*scale))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), draw.Src, nil)

	r := scaled.Bounds().Add(at)
	draw.DrawMask(output, r, image.NewUniform(col), image.Point{}, scaled, image.Point{}, draw.Over)
	return r.Intersect(output.Bounds())
}
