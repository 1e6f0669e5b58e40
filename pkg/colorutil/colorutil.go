// Package colorutil provides the overlay colours used on annotated previews.
package colorutil

import (
	"fmt"
	"image/color"
)

// Common overlay colors.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Blue  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// Slots holds the colour of each legend slot, slot 1 first.
var Slots = []color.RGBA{Green, Red, Blue}

// SlotColor returns the colour for a 1-based legend slot.
func SlotColor(slot int) (color.RGBA, error) {
	if slot < 1 || slot > len(Slots) {
		return color.RGBA{}, fmt.Errorf("legend slot %d out of range 1..%d", slot, len(Slots))
	}
	return Slots[slot-1], nil
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Dominant reports whether c is clearly the given primary overlay colour:
// that channel bright and the other two dark.
func Dominant(c, primary color.RGBA) bool {
	match := func(got, want uint8) bool {
		if want == 255 {
			return got >= 160
		}
		return got <= 95
	}
	return match(c.R, primary.R) && match(c.G, primary.G) && match(c.B, primary.B)
}
