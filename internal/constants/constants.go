// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import (
	"image/color"
	"time"
)

// Detector constants
const (
	// DetectorTimeout bounds one request to the embedding server
	DetectorTimeout = 30 * time.Second
)

// Display constants
const (
	// FrameDelay is how long the live window waits for a key press, in milliseconds
	FrameDelay = 10

	// LabelFontScale is the font scale of identity labels drawn over the video
	LabelFontScale = 0.75

	// BoxThickness is the line width of face rectangles and labels
	BoxThickness = 2
)

// AnnotationColor is the opaque green of face rectangles and labels
var AnnotationColor = color.RGBA{G: 255, A: 255}

// Similarity search constants
const (
	// DefaultSimilarLimit is the default number of neighbors listed by the similar command
	DefaultSimilarLimit = 10
)
