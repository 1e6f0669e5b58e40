package colorutil

import (
	"image/color"
	"testing"
)

func TestSlotColor(t *testing.T) {
	for slot, want := range map[int]string{1: "#00ff00", 2: "#ff0000", 3: "#0000ff"} {
		c, err := SlotColor(slot)
		if err != nil {
			t.Fatal(err)
		}
		if got := Hex(c); got != want {
			t.Fatalf("slot %d = %s want %s", slot, got, want)
		}
	}
	for _, slot := range []int{0, 4} {
		if _, err := SlotColor(slot); err == nil {
			t.Fatalf("slot %d: expected error", slot)
		}
	}
}

func TestDominant(t *testing.T) {
	if !Dominant(color.RGBA{10, 240, 20, 255}, Green) {
		t.Fatalf("near-green should match green")
	}
	if Dominant(color.RGBA{200, 200, 200, 255}, Green) {
		t.Fatalf("gray should not match green")
	}
	if Dominant(Red, Blue) {
		t.Fatalf("red should not match blue")
	}
}
