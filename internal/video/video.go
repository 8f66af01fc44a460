// Package video connects the capture loop and the review tool to OpenCV:
// camera input, the live window and the per-image review window.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"

	"github.com/kozaktomas/facelog/internal/capture"
	"github.com/kozaktomas/facelog/internal/constants"
	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when a camera device stops producing frames.
var ErrNoFrame = errors.New("camera returned no frame")

// Camera reads frames from a camera index or a video file.
type Camera struct {
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	isFile bool
}

var _ capture.FrameSource = (*Camera)(nil)

// OpenCamera opens device, either a numeric camera index ("0") or a video file path.
func OpenCamera(device string) (*Camera, error) {
	_, err := strconv.Atoi(device)
	isFile := err != nil

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("error opening video capture device %s: %w", device, err)
	}
	return &Camera{vc: vc, mat: gocv.NewMat(), isFile: isFile}, nil
}

// Read returns the next frame converted from BGR to an RGBA image.
// A video file that runs out of frames returns io.EOF.
func (c *Camera) Read(ctx context.Context) (image.Image, error) {
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		if c.isFile {
			return nil, io.EOF
		}
		return nil, ErrNoFrame
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mat.Close()
	return c.vc.Close()
}

// Window is the live annotated video window.
type Window struct {
	win *gocv.Window
}

var _ capture.Display = (*Window)(nil)

// OpenWindow creates the live window.
func OpenWindow(name string) *Window {
	return &Window{win: gocv.NewWindow(name)}
}

// Present draws the boxes and labels, shows the frame and waits briefly for a key.
func (w *Window) Present(frame image.Image, annotations []capture.Annotation) (int, error) {
	if !w.win.IsOpen() {
		return -1, errors.New("window closed")
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return -1, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	for _, a := range annotations {
		gocv.Rectangle(&mat, a.Box.Rect(), constants.AnnotationColor, constants.BoxThickness)
		gocv.PutText(&mat, a.Label, a.Box.LabelOrigin(), gocv.FontHersheySimplex, constants.LabelFontScale, constants.AnnotationColor, constants.BoxThickness)
	}

	w.win.IMShow(mat)
	return w.win.WaitKey(constants.FrameDelay), nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// ImageViewer shows one stored face per window and blocks until a key is pressed.
type ImageViewer struct{}

// Show opens a window titled caption, shows img and returns the pressed key.
func (ImageViewer) Show(caption string, img image.Image) (int, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return -1, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	win := gocv.NewWindow(caption)
	defer win.Close()

	win.IMShow(mat)
	return win.WaitKey(0), nil
}
