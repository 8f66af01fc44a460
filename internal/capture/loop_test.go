package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/kozaktomas/facelog/internal/database/mock"
	"github.com/kozaktomas/facelog/internal/facematch"
	"github.com/kozaktomas/facelog/internal/fingerprint"
)

// fakeSource yields n solid frames, then err (io.EOF when nil).
type fakeSource struct {
	n      int
	read   int
	err    error
	onRead func(i int)
}

func (s *fakeSource) Read(ctx context.Context) (image.Image, error) {
	if s.read >= s.n {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	if s.onRead != nil {
		s.onRead(s.read)
	}
	s.read++
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	for y := range 80 {
		for x := range 100 {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	return img, nil
}

// fakeDetector returns the detections scripted for each frame index.
type fakeDetector struct {
	frames map[int][]fingerprint.Detection
	all    []fingerprint.Detection // used for frames missing from the map
	err    error
	calls  int
}

func (d *fakeDetector) Detect(ctx context.Context, frame image.Image) ([]fingerprint.Detection, error) {
	i := d.calls
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	if dets, ok := d.frames[i]; ok {
		return dets, nil
	}
	return d.all, nil
}

func (d *fakeDetector) Close() error { return nil }

type fakeDisplay struct {
	presented [][]Annotation
	keys      map[int]int // frame index -> key
	err       error
}

func (d *fakeDisplay) Present(frame image.Image, annotations []Annotation) (int, error) {
	i := len(d.presented)
	d.presented = append(d.presented, annotations)
	if d.err != nil {
		return -1, d.err
	}
	if k, ok := d.keys[i]; ok {
		return k, nil
	}
	return -1, nil
}

func face(left int, embedding ...float64) fingerprint.Detection {
	return fingerprint.Detection{
		Box:       facematch.Box{Top: 10, Right: left + 20, Bottom: 40, Left: left},
		Embedding: embedding,
	}
}

func newTestLoop(source FrameSource, det *fakeDetector, display *fakeDisplay, store *mock.MockFaceStore, gallery *facematch.Gallery, skip int) *Loop {
	return NewLoop(source, det, display, store, gallery, facematch.NewMatcher(0.6), Options{
		FrameSkip:   skip,
		QuitKey:     'q',
		JPEGQuality: 90,
	})
}

func TestRun_FrameSkipGating(t *testing.T) {
	det := &fakeDetector{
		all: []fingerprint.Detection{face(10, 0, 0)},
		frames: map[int][]fingerprint.Detection{
			10: nil, // no face on a persisting frame
		},
	}
	store := mock.NewMockFaceStore()
	display := &fakeDisplay{}

	loop := newTestLoop(&fakeSource{n: 12}, det, display, store, facematch.NewGallery(nil), 5)
	stats, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// frames 0 and 5 persist; 10 has no face
	if got := len(store.Faces()); got != 2 {
		t.Errorf("expected 2 writes, got %d", got)
	}
	if stats.Frames != 12 {
		t.Errorf("expected 12 frames, got %d", stats.Frames)
	}
	if stats.Persisted != 2 {
		t.Errorf("expected 2 persisted, got %d", stats.Persisted)
	}
	if stats.Reason != StopEndOfStream {
		t.Errorf("expected end of stream, got %s", stats.Reason)
	}
	if len(display.presented) != 12 {
		t.Errorf("every frame must be presented, got %d", len(display.presented))
	}
}

func TestRun_NovelIdentityRendersSameFrame(t *testing.T) {
	det := &fakeDetector{all: []fingerprint.Detection{face(5, 0, 0), face(50, 3, 3)}}
	store := mock.NewMockFaceStore()
	display := &fakeDisplay{}
	gallery := facematch.NewGallery([]facematch.Entry{{Label: "Alice", Embedding: []float64{0, 0.5}}})

	loop := newTestLoop(&fakeSource{n: 1}, det, display, store, gallery, 5)
	stats, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	faces := store.Faces()
	if len(faces) != 2 {
		t.Fatalf("expected 2 stored faces, got %d", len(faces))
	}
	if faces[0].Label != "Alice" || faces[1].Label != "PersonId2" {
		t.Errorf("unexpected labels %s, %s", faces[0].Label, faces[1].Label)
	}
	if len(faces[1].Image) < 2 || faces[1].Image[0] != 0xFF || faces[1].Image[1] != 0xD8 {
		t.Error("expected JPEG crop")
	}

	anns := display.presented[0]
	if len(anns) != 2 || anns[0].Label != "Alice" || anns[1].Label != "PersonId2" {
		t.Fatalf("unexpected annotations %+v", anns)
	}
	if anns[1].Novel {
		t.Error("admitted identity must render as known in the same frame")
	}
	if gallery.Len() != 2 || gallery.NextLabel() != "PersonId3" {
		t.Errorf("unexpected gallery state: len=%d next=%s", gallery.Len(), gallery.NextLabel())
	}
	if stats.Novel != 1 {
		t.Errorf("expected 1 novel identity, got %d", stats.Novel)
	}
}

func TestRun_NonPersistFrameShowsProspectiveLabel(t *testing.T) {
	det := &fakeDetector{
		frames: map[int][]fingerprint.Detection{
			0: nil,
			1: {face(5, 9, 9)},
		},
	}
	store := mock.NewMockFaceStore()
	display := &fakeDisplay{}
	gallery := facematch.NewGallery(nil)

	loop := newTestLoop(&fakeSource{n: 2}, det, display, store, gallery, 5)
	if _, err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(store.Faces()) != 0 {
		t.Errorf("frame 1 must not persist, got %d writes", len(store.Faces()))
	}
	anns := display.presented[1]
	if len(anns) != 1 || anns[0].Label != "PersonId1" || !anns[0].Novel {
		t.Errorf("unexpected annotations %+v", anns)
	}
	if gallery.Len() != 0 {
		t.Error("render pass must not mutate the gallery")
	}
}

func TestRun_AppendFailureLosesSighting(t *testing.T) {
	det := &fakeDetector{all: []fingerprint.Detection{face(5, 1, 1)}}
	store := mock.NewMockFaceStore()
	store.AppendError = errors.New("disk full")
	gallery := facematch.NewGallery(nil)

	loop := newTestLoop(&fakeSource{n: 1}, det, &fakeDisplay{}, store, gallery, 5)
	stats, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("append failures must not end the session: %v", err)
	}

	if stats.Lost != 1 || stats.Persisted != 0 {
		t.Errorf("expected 1 lost sighting, got %+v", stats)
	}
	if gallery.Len() != 1 {
		t.Errorf("gallery keeps the admitted identity, got len %d", gallery.Len())
	}
}

func TestRun_BoxOutsideFrameLosesSighting(t *testing.T) {
	outside := fingerprint.Detection{
		Box:       facematch.Box{Top: 500, Right: 620, Bottom: 560, Left: 600},
		Embedding: []float64{1, 1},
	}
	det := &fakeDetector{all: []fingerprint.Detection{outside, face(5, 5, 5)}}
	store := mock.NewMockFaceStore()

	loop := newTestLoop(&fakeSource{n: 1}, det, &fakeDisplay{}, store, facematch.NewGallery(nil), 1)
	stats, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if stats.Lost != 1 || stats.Persisted != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	faces := store.Faces()
	if len(faces) != 1 || faces[0].Label != "PersonId2" {
		t.Errorf("unexpected stored faces %+v", faces)
	}
}

func TestRun_DetectorErrorTreatedAsNoFaces(t *testing.T) {
	det := &fakeDetector{err: errors.New("model crashed")}
	store := mock.NewMockFaceStore()
	display := &fakeDisplay{}

	loop := newTestLoop(&fakeSource{n: 3}, det, display, store, facematch.NewGallery(nil), 1)
	stats, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(store.Faces()) != 0 || stats.Frames != 3 || len(display.presented) != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRun_QuitKey(t *testing.T) {
	source := &fakeSource{n: 100}
	display := &fakeDisplay{keys: map[int]int{0: 'x', 3: 'q'}}

	loop := newTestLoop(source, &fakeDetector{}, display, mock.NewMockFaceStore(), facematch.NewGallery(nil), 5)
	stats, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.Reason != StopQuitKey || stats.Frames != 4 || source.read != 4 {
		t.Errorf("expected stop after frame 3, got %+v (read %d)", stats, source.read)
	}
}

func TestRun_CanceledBetweenFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{n: 100, onRead: func(i int) {
		if i == 2 {
			cancel()
		}
	}}

	loop := newTestLoop(source, &fakeDetector{}, &fakeDisplay{}, mock.NewMockFaceStore(), facematch.NewGallery(nil), 5)
	stats, err := loop.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.Reason != StopInterrupted || stats.Frames != 3 {
		t.Errorf("frame in progress must finish before stopping, got %+v", stats)
	}
}

func TestRun_CaptureError(t *testing.T) {
	deviceErr := errors.New("device unplugged")
	loop := newTestLoop(&fakeSource{n: 2, err: deviceErr}, &fakeDetector{}, &fakeDisplay{}, mock.NewMockFaceStore(), facematch.NewGallery(nil), 5)

	stats, err := loop.Run(context.Background())
	var cerr *CaptureError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CaptureError, got %v", err)
	}
	if cerr.Frame != 2 || !errors.Is(err, deviceErr) {
		t.Errorf("unexpected capture error %+v", cerr)
	}
	if stats.Reason != StopCaptureFail || stats.Frames != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRun_DisplayError(t *testing.T) {
	display := &fakeDisplay{err: errors.New("window closed")}
	loop := newTestLoop(&fakeSource{n: 5}, &fakeDetector{}, display, mock.NewMockFaceStore(), facematch.NewGallery(nil), 5)

	_, err := loop.Run(context.Background())
	var cerr *CaptureError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CaptureError, got %v", err)
	}
}

func TestRun_LabelsMonotonicAcrossSession(t *testing.T) {
	det := &fakeDetector{
		frames: map[int][]fingerprint.Detection{
			0: {face(5, 10, 10)},
			1: {face(5, 20, 20)},
			2: {face(5, 10, 10.1), face(40, 30, 30)},
		},
	}
	store := mock.NewMockFaceStore()
	gallery := facematch.NewGallery([]facematch.Entry{
		{Label: "Alice", Embedding: []float64{0, 0}},
		{Label: "Bob", Embedding: []float64{1, 1}},
	})

	loop := newTestLoop(&fakeSource{n: 3}, det, &fakeDisplay{}, store, gallery, 1)
	if _, err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []string{"PersonId3", "PersonId4", "PersonId3", "PersonId5"}
	faces := store.Faces()
	if len(faces) != len(want) {
		t.Fatalf("expected %d faces, got %d", len(want), len(faces))
	}
	for i, w := range want {
		if faces[i].Label != w {
			t.Errorf("face %d: label %s, want %s", i, faces[i].Label, w)
		}
	}
}
