package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"reid-worker-go/internal/models"
)

// Options control how predictions are drawn
type Options struct {
	Font            Font
	LineThickness   int
	ShowLabels      bool
	ShowConfidences bool
}

func DefaultOptions() Options {
	return Options{
		Font:          DefaultFont(),
		LineThickness: 2,
		ShowLabels:    true,
	}
}

type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Annotator draws predictions onto frames in place
type Annotator struct {
	opts Options
}

func NewAnnotator(opts Options) *Annotator {
	if opts.LineThickness <= 0 {
		opts.LineThickness = 1
	}
	return &Annotator{opts: opts}
}

// Markup draws a box per prediction, colored by Prediction.Index, with its
// label. Labels are drawn after every box so they stay on top.
func (a *Annotator) Markup(img *gocv.Mat, predictions []models.Prediction) {
	if img == nil || img.Empty() {
		return
	}

	font := a.opts.Font
	labels := make([]boxLabel, 0, len(predictions))

	for _, p := range predictions {
		clr := ColorFor(p.Index)
		rect := p.Box.Rect()
		gocv.Rectangle(img, rect, clr, a.opts.LineThickness)

		text := a.labelText(p)
		if text == "" {
			continue
		}

		size := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)
		top := rect.Min.Y
		// no room above the box, draw the label inside it
		if top-size.Y-font.TopPad-font.BottomPad < 0 {
			top = rect.Min.Y + size.Y + font.TopPad + font.BottomPad
		}

		labels = append(labels, boxLabel{
			rect: image.Rect(rect.Min.X, top-size.Y-font.TopPad-font.BottomPad,
				rect.Min.X+size.X+font.LeftPad+font.RightPad, top),
			clr:     clr,
			text:    text,
			textPos: image.Pt(rect.Min.X+font.LeftPad, top-font.BottomPad),
		})
	}

	for _, l := range labels {
		gocv.Rectangle(img, l.rect, l.clr, -1)
		gocv.PutTextWithParams(img, l.text, l.textPos, font.Face, font.Scale,
			font.Color, font.Thickness, font.LineType, false)
	}
}

func (a *Annotator) labelText(p models.Prediction) string {
	switch {
	case a.opts.ShowLabels && a.opts.ShowConfidences:
		return fmt.Sprintf("%s %.2f", p.Label, p.Confidence)
	case a.opts.ShowLabels:
		return p.Label
	case a.opts.ShowConfidences:
		return fmt.Sprintf("%.2f", p.Confidence)
	}
	return ""
}

// Text writes lines in the top left corner on a dark backing box
func (a *Annotator) Text(img *gocv.Mat, lines ...string) {
	if img == nil || img.Empty() || len(lines) == 0 {
		return
	}

	font := a.opts.Font
	y := 0
	for _, line := range lines {
		size := gocv.GetTextSize(line, font.Face, font.Scale, font.Thickness)
		h := size.Y + font.TopPad + font.BottomPad
		gocv.Rectangle(img, image.Rect(0, y, size.X+font.LeftPad+font.RightPad, y+h), Black, -1)
		gocv.PutTextWithParams(img, line, image.Pt(font.LeftPad, y+h-font.BottomPad),
			font.Face, font.Scale, font.Color, font.Thickness, font.LineType, false)
		y += h
	}
}
