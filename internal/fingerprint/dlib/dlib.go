// Package dlib detects faces and computes 128-d descriptors with dlib through go-face.
package dlib

import (
	"context"
	"fmt"
	"image"

	face "github.com/Kagami/go-face"
	"github.com/kozaktomas/facelog/internal/fingerprint"
)

// Detector runs the dlib models in-process.
type Detector struct {
	rec     *face.Recognizer
	cnn     bool
	quality int
}

var _ fingerprint.Detector = (*Detector)(nil)

// New loads the dlib models from modelsDir. The directory must contain
// shape_predictor_5_face_landmarks.dat and dlib_face_recognition_resnet_model_v1.dat,
// plus mmod_human_face_detector.dat when cnn is set.
func New(modelsDir string, cnn bool, quality int) (*Detector, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models from %s: %w", modelsDir, err)
	}
	return &Detector{rec: rec, cnn: cnn, quality: quality}, nil
}

// Detect finds every face in the frame. go-face decodes the JPEG into RGB itself.
func (d *Detector) Detect(ctx context.Context, frame image.Image) ([]fingerprint.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := fingerprint.EncodeJPEG(frame, d.quality)
	if err != nil {
		return nil, err
	}

	var faces []face.Face
	if d.cnn {
		faces, err = d.rec.RecognizeCNN(data)
	} else {
		faces, err = d.rec.Recognize(data)
	}
	if err != nil {
		return nil, fmt.Errorf("dlib recognition failed: %w", err)
	}

	detections := make([]fingerprint.Detection, 0, len(faces))
	for _, f := range faces {
		detections = append(detections, fingerprint.FromDescriptor(f.Rectangle, f.Descriptor[:]))
	}
	return detections, nil
}

// Close frees the dlib models.
func (d *Detector) Close() error {
	d.rec.Close()
	return nil
}
