// Package fingerprint turns video frames into face detections with embeddings.
package fingerprint

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/kozaktomas/facelog/internal/facematch"
)

// Detection is one face found in a frame.
type Detection struct {
	Box       facematch.Box
	Embedding []float64
}

// Detector finds faces in a frame and computes one embedding per face.
// Detections are returned in detection order.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]Detection, error)
	Close() error
}

// EncodeJPEG encodes a frame for detectors that consume compressed images.
func EncodeJPEG(frame image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// FromDescriptor builds a Detection from a rectangle and a single precision descriptor.
func FromDescriptor(rect image.Rectangle, descriptor []float32) Detection {
	return Detection{Box: facematch.BoxFromRect(rect), Embedding: widen(descriptor)}
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
