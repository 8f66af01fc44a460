package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/kozaktomas/facelog/internal/database"
	"github.com/kozaktomas/facelog/internal/facematch"
	"github.com/kozaktomas/facelog/internal/fingerprint"
)

// Options tune the capture loop.
type Options struct {
	FrameSkip   int // persist on every FrameSkip-th frame
	QuitKey     int
	JPEGQuality int
}

// Loop owns the session state: the gallery and its label counter.
// It is single-threaded; every step of a frame finishes before the next frame is read.
type Loop struct {
	source   FrameSource
	detector fingerprint.Detector
	display  Display
	store    database.FaceWriter
	gallery  *facematch.Gallery
	matcher  facematch.Matcher
	opts     Options

	sessionID string
}

// NewLoop wires a capture session.
func NewLoop(source FrameSource, detector fingerprint.Detector, display Display, store database.FaceWriter,
	gallery *facematch.Gallery, matcher facematch.Matcher, opts Options) *Loop {
	if opts.FrameSkip < 1 {
		opts.FrameSkip = 1
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 90
	}
	return &Loop{
		source:    source,
		detector:  detector,
		display:   display,
		store:     store,
		gallery:   gallery,
		matcher:   matcher,
		opts:      opts,
		sessionID: uuid.NewString(),
	}
}

// SessionID identifies this session in log lines.
func (l *Loop) SessionID() string {
	return l.sessionID
}

// Gallery returns the live session gallery.
func (l *Loop) Gallery() *facematch.Gallery {
	return l.gallery
}

// Run processes frames until the quit key, cancellation, end of stream or a capture failure.
// Cancellation is checked once per frame, before a frame is read.
// A *CaptureError is returned only for device failures; the stats are always returned.
func (l *Loop) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{SessionID: l.sessionID}

	// A started frame always completes; only the checkpoint below observes ctx.
	frameCtx := context.WithoutCancel(ctx)

	for frameIndex := 0; ; frameIndex++ {
		if ctx.Err() != nil {
			stats.Reason = StopInterrupted
			return stats, nil
		}

		frame, err := l.source.Read(frameCtx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				stats.Reason = StopEndOfStream
				return stats, nil
			}
			stats.Reason = StopCaptureFail
			cerr := &CaptureError{Frame: frameIndex, Err: err}
			log.Printf("[%s] ERROR: %v", l.sessionID, cerr)
			return stats, cerr
		}
		stats.Frames++

		detections, err := l.detector.Detect(frameCtx, frame)
		if err != nil {
			log.Printf("[%s] WARNING: frame %d: detection failed: %v", l.sessionID, frameIndex, err)
			detections = nil
		}
		stats.Detections += len(detections)

		if frameIndex%l.opts.FrameSkip == 0 && len(detections) > 0 {
			l.persist(frameCtx, frameIndex, frame, detections, stats)
		}

		key, err := l.display.Present(frame, l.annotate(detections))
		if err != nil {
			stats.Reason = StopCaptureFail
			cerr := &CaptureError{Frame: frameIndex, Err: fmt.Errorf("display: %w", err)}
			log.Printf("[%s] ERROR: %v", l.sessionID, cerr)
			return stats, cerr
		}
		if l.opts.QuitKey != 0 && key == l.opts.QuitKey {
			stats.Reason = StopQuitKey
			return stats, nil
		}
	}
}

// persist matches every detection, admits novel identities and appends one record per face.
// A failed crop or append loses that sighting only; the gallery keeps the admitted identity.
func (l *Loop) persist(ctx context.Context, frameIndex int, frame image.Image, detections []fingerprint.Detection, stats *Stats) {
	for i, det := range detections {
		res := l.matcher.Match(det.Embedding, l.gallery)
		if res.Novel {
			l.gallery.Admit(res.Label, det.Embedding)
			stats.Novel++
			fmt.Printf("[%s] New identity %s\n", l.sessionID, res.Label)
		}

		img, err := CropJPEG(frame, det.Box, l.opts.JPEGQuality)
		if err != nil {
			stats.Lost++
			log.Printf("[%s] WARNING: frame %d face %d (%s): sighting lost: %v", l.sessionID, frameIndex, i, res.Label, err)
			continue
		}

		id, err := l.store.Append(ctx, database.FaceInput{
			Label:     res.Label,
			Embedding: det.Embedding,
			Image:     img,
		})
		if err != nil {
			stats.Lost++
			log.Printf("[%s] WARNING: frame %d face %d (%s): sighting lost: %v", l.sessionID, frameIndex, i, res.Label, err)
			continue
		}
		stats.Persisted++
		fmt.Printf("[%s] Stored sighting %d: %s\n", l.sessionID, id, res.Label)
	}
}

// annotate matches every detection again against the current gallery,
// so identities admitted by persist carry their new label in the same frame.
func (l *Loop) annotate(detections []fingerprint.Detection) []Annotation {
	annotations := make([]Annotation, 0, len(detections))
	for _, det := range detections {
		res := l.matcher.Match(det.Embedding, l.gallery)
		annotations = append(annotations, Annotation{
			Box:   det.Box,
			Label: res.Label,
			Novel: res.Novel,
		})
	}
	return annotations
}
