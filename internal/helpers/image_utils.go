package helpers

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"reid-worker-go/internal/models"
)

var (
	ErrEmptyFrame        = errors.New("empty frame")
	ErrFrameTypeMismatch = errors.New("frames have different mat types")
)

// ClampBox restricts a box to the frame. Boxes fully outside collapse to an
// empty rectangle.
func ClampBox(box models.Box, width, height int) image.Rectangle {
	x1 := max(0, min(width, box.StartX))
	y1 := max(0, min(height, box.StartY))
	x2 := max(x1, min(width, box.EndX))
	y2 := max(y1, min(height, box.EndY))
	return image.Rect(x1, y1, x2, y2)
}

// CropBox returns a copy of the frame region under box. The copy is owned by
// the caller. Degenerate or out-of-frame boxes give an empty Mat.
func CropBox(frame gocv.Mat, box models.Box) gocv.Mat {
	rect := ClampBox(box, frame.Cols(), frame.Rows())
	if rect.Empty() || frame.Empty() {
		return gocv.NewMat()
	}

	roi := frame.Region(rect)
	defer roi.Close()
	return roi.Clone()
}

// VStack writes top stacked above bottom into dst. A bottom frame of a
// different width is scaled, keeping its aspect ratio, to the top width.
func VStack(top, bottom gocv.Mat, dst *gocv.Mat) error {
	if top.Empty() || bottom.Empty() {
		return ErrEmptyFrame
	}
	if top.Type() != bottom.Type() {
		return fmt.Errorf("%w: %v vs %v", ErrFrameTypeMismatch, top.Type(), bottom.Type())
	}

	if bottom.Cols() == top.Cols() {
		gocv.Vconcat(top, bottom, dst)
		return nil
	}

	scaled := gocv.NewMat()
	defer scaled.Close()

	height := max(1, bottom.Rows()*top.Cols()/bottom.Cols())
	gocv.Resize(bottom, &scaled, image.Pt(top.Cols(), height), 0, 0, gocv.InterpolationLinear)
	gocv.Vconcat(top, scaled, dst)
	return nil
}

// EncodeJPEG encodes a frame and returns a Go owned copy of the bytes
func EncodeJPEG(frame gocv.Mat, quality int) ([]byte, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	jpegCopy := make([]byte, len(b))
	copy(jpegCopy, b)
	return jpegCopy, nil
}

// IsJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func IsJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}
