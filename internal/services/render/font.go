package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Font holds the text parameters used for labels and overlays
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// padding around label text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
}

func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
	}
}
