// Package colorutil provides the overlay palette.
package colorutil

import "image/color"

// Overlay colors.
var (
	Black   = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	Cyan    = color.NRGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	Blue    = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
)

// CornerColors marks top-left, top-right, bottom-right and bottom-left
// corners, in that order.
var CornerColors = [4]color.NRGBA{Green, Yellow, Magenta, Blue}

// Darken scales the color channels by factor, keeping alpha.
func Darken(c color.NRGBA, factor float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}
