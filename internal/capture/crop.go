package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/kozaktomas/facelog/internal/facematch"
	"golang.org/x/image/draw"
)

// CropJPEG cuts the box out of the frame and encodes it as JPEG.
// The box is clamped to the frame; a box fully outside the frame is an error.
func CropJPEG(frame image.Image, box facematch.Box, quality int) ([]byte, error) {
	rect := box.Clamp(frame.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("face box %v is outside frame %v", box.Rect(), frame.Bounds())
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, rect.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode face: %w", err)
	}
	return buf.Bytes(), nil
}
