// Package annotate overlays picked particles on preview images.
//
// Each legend slot gets its own colour and ring radius, so up to three pick
// results for the same micrograph can be compared on one image.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gscreen/internal/coords"
	pimage "gscreen/internal/image"
	"gscreen/pkg/colorutil"
)

const (
	// DefaultThickness is the ring outline width in pixels.
	DefaultThickness = 5

	// DefaultLegendScale enlarges the 7x13 legend font to 35x65 pixels.
	DefaultLegendScale = 5

	// RadiusStep is added to the ring radius for each successive slot.
	RadiusStep = 6
)

// LegendOrigins are the top-left corners of the legend lines, slot 1 first.
var LegendOrigins = []image.Point{{X: 30, Y: 30}, {X: 30, Y: 120}, {X: 30, Y: 190}}

// Annotator draws coordinate sets onto preview images.
type Annotator struct {
	BaseRadius  int
	Thickness   int
	LegendScale int
}

// New returns an Annotator with the default ring thickness and legend size.
func New(baseRadius int) Annotator {
	return Annotator{
		BaseRadius:  baseRadius,
		Thickness:   DefaultThickness,
		LegendScale: DefaultLegendScale,
	}
}

// Slot describes what was drawn for one legend slot.
type Slot struct {
	Index      int
	Color      color.RGBA
	Radius     int
	Rings      int
	Legend     string
	LegendRect image.Rectangle
}

// Annotation describes an annotated preview.
type Annotation struct {
	Path  string
	Slots []Slot
}

// Radius returns the ring radius for a 1-based slot.
func (a Annotator) Radius(slot int) int {
	return a.BaseRadius + RadiusStep*(slot-1)
}

// Annotate draws sets[i] and legend[i] in slot i+1's colour onto the preview
// at path, overwriting it. Every slot is drawn on a freshly decoded copy of
// the file as left by the previous slot, so the saved image ends up holding
// all slots. Empty sets are fine: the slot's legend is still drawn.
func (a Annotator) Annotate(path string, sets []coords.Set, legend []string) (Annotation, error) {
	if len(sets) != len(legend) {
		return Annotation{}, fmt.Errorf("annotate %s: %d coordinate sets but %d legend lines",
			path, len(sets), len(legend))
	}
	if len(sets) > len(colorutil.Slots) || len(sets) > len(LegendOrigins) {
		return Annotation{}, fmt.Errorf("annotate %s: %d slots, at most %d supported",
			path, len(sets), len(colorutil.Slots))
	}

	ann := Annotation{Path: path}
	for i, set := range sets {
		slot := i + 1
		col, err := colorutil.SlotColor(slot)
		if err != nil {
			return Annotation{}, err
		}

		canvas, err := pimage.OpenRGB(path)
		if err != nil {
			return Annotation{}, fmt.Errorf("annotate slot %d: %w", slot, err)
		}

		radius := a.Radius(slot)
		for _, c := range set {
			drawThickCircle(canvas, c.X, c.Y, radius, a.Thickness, col)
		}
		rect := drawLegend(canvas, legend[i], LegendOrigins[i], col, a.LegendScale)

		if err := pimage.Save(path, canvas); err != nil {
			return Annotation{}, fmt.Errorf("annotate slot %d: %w", slot, err)
		}

		ann.Slots = append(ann.Slots, Slot{
			Index:      slot,
			Color:      col,
			Radius:     radius,
			Rings:      len(set),
			Legend:     legend[i],
			LegendRect: rect,
		})
	}
	return ann, nil
}
