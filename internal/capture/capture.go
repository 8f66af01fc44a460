// Package capture runs the live face capture loop: read a frame, detect faces,
// match them against the session gallery, persist sightings and show the result.
package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/facelog/internal/facematch"
)

// FrameSource yields video frames. It returns io.EOF at the end of a recording.
type FrameSource interface {
	Read(ctx context.Context) (image.Image, error)
}

// Annotation is one labeled box drawn over a presented frame.
type Annotation struct {
	Box   facematch.Box
	Label string
	Novel bool // not in the gallery; Label is the one it would be given
}

// Display shows an annotated frame and polls the keyboard once.
// It returns the pressed key, or -1 when none was pressed.
type Display interface {
	Present(frame image.Image, annotations []Annotation) (key int, err error)
}

// StopReason tells why a capture session ended.
type StopReason string

const (
	StopQuitKey     StopReason = "quit key"
	StopInterrupted StopReason = "interrupted"
	StopEndOfStream StopReason = "end of stream"
	StopCaptureFail StopReason = "capture failure"
)

// Stats summarizes one capture session.
type Stats struct {
	SessionID  string
	Frames     int
	Detections int
	Persisted  int
	Lost       int // sightings that could not be stored
	Novel      int // identities minted this session
	Reason     StopReason
}

func (s *Stats) String() string {
	return fmt.Sprintf("%d frames, %d detections, %d persisted, %d lost, %d new identities (%s)",
		s.Frames, s.Detections, s.Persisted, s.Lost, s.Novel, s.Reason)
}

// CaptureError reports that the camera or window could not continue.
// It ends the session.
type CaptureError struct {
	Frame int
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture: frame %d: %v", e.Frame, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
