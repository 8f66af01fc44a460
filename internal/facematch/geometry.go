package facematch

import (
	"image"
	"math"
)

// Box is a face bounding box in pixel coordinates, in the
// (top, right, bottom, left) order detectors report it.
type Box struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// BoxFromRect converts an image rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// BoxFromCorners converts a [x1, y1, x2, y2] pixel bbox to a Box.
// Fractional coordinates are rounded outward so the face is never clipped.
// Returns false if bbox does not have exactly four values.
func BoxFromCorners(bbox []float64) (Box, bool) {
	if len(bbox) != 4 {
		return Box{}, false
	}
	return Box{
		Top:    int(math.Floor(bbox[1])),
		Right:  int(math.Ceil(bbox[2])),
		Bottom: int(math.Ceil(bbox[3])),
		Left:   int(math.Floor(bbox[0])),
	}, true
}

// Rect returns the box as an image rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Clamp returns the part of the box inside bounds.
// The result is empty when the box lies outside the frame.
func (b Box) Clamp(bounds image.Rectangle) image.Rectangle {
	return b.Rect().Intersect(bounds)
}

// LabelOrigin returns where a caption for this box is drawn: just above the top left corner.
func (b Box) LabelOrigin() image.Point {
	return image.Pt(b.Left, b.Top-10)
}
