// Package preview prepares preview images so that their pixel coordinates
// match the picker's coordinate convention.
package preview

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Orient mirrors the image at path left-right, rotates it by 180 degrees
// and writes it back in place. The combined effect is a vertical flip,
// which turns an image stored bottom row first into one stored top row
// first.
func Orient(path string) error {
	img := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer img.Close()
	if img.Empty() {
		return fmt.Errorf("failed to read %s", path)
	}

	mirrored := gocv.NewMat()
	defer mirrored.Close()
	gocv.Flip(img, &mirrored, 1)

	rotated := gocv.NewMat()
	defer rotated.Close()
	gocv.Rotate(mirrored, &rotated, gocv.Rotate180Clockwise)

	if !gocv.IMWrite(path, rotated) {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}
