package review

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/facelog/internal/database"
	"github.com/kozaktomas/facelog/internal/database/mock"
)

type shown struct {
	caption string
	bounds  image.Rectangle
}

type fakeViewer struct {
	keys  []int
	shown []shown
	err   error
}

func (v *fakeViewer) Show(caption string, img image.Image) (int, error) {
	if v.err != nil {
		return -1, v.err
	}
	v.shown = append(v.shown, shown{caption: caption, bounds: img.Bounds()})
	i := len(v.shown) - 1
	if i < len(v.keys) {
		return v.keys[i], nil
	}
	return ' ', nil
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 50, G: 100, B: 150, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func seedStore(t *testing.T, labels ...string) *mock.MockFaceStore {
	t.Helper()
	store := mock.NewMockFaceStore()
	for _, label := range labels {
		store.AddFace(database.StoredFace{Label: label, Embedding: []float64{1}, Image: jpegBytes(t, 8, 6)})
	}
	return store
}

func TestRun_CaptionsInIDOrder(t *testing.T) {
	store := seedStore(t, "Alice", "PersonId2", "Bob")
	viewer := &fakeViewer{}

	result, err := NewBrowser(store, viewer, Options{SaveDir: t.TempDir(), SaveKey: 's', QuitKey: 'q'}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []string{
		"ID: 1 / 3, label: Alice",
		"ID: 2 / 3, label: PersonId2",
		"ID: 3 / 3, label: Bob",
	}
	if len(viewer.shown) != len(want) {
		t.Fatalf("expected %d images shown, got %d", len(want), len(viewer.shown))
	}
	for i, w := range want {
		if viewer.shown[i].caption != w {
			t.Errorf("caption %d = %q, want %q", i, viewer.shown[i].caption, w)
		}
	}
	if result.Shown != 3 || len(result.Saved) != 0 || result.Quit {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestRun_SaveKeyWritesFile(t *testing.T) {
	dir := t.TempDir()
	store := seedStore(t, "Alice", "Bob")
	viewer := &fakeViewer{keys: []int{'x', 's'}}

	result, err := NewBrowser(store, viewer, Options{SaveDir: dir, SaveKey: 's', QuitKey: 'q'}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(result.Saved) != 1 {
		t.Fatalf("expected 1 saved file, got %v", result.Saved)
	}
	path := filepath.Join(dir, "Bob_ID_2.jpg")
	if result.Saved[0] != path {
		t.Errorf("expected %s, got %s", path, result.Saved[0])
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("saved file is not a JPEG: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Alice_ID_1.jpg")); !os.IsNotExist(err) {
		t.Error("non-save key must not write a file")
	}
}

func TestRun_SaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Alice_ID_1.jpg")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	viewer := &fakeViewer{keys: []int{'s'}}
	if _, err := NewBrowser(seedStore(t, "Alice"), viewer, Options{SaveDir: dir, SaveKey: 's'}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) == "old" {
		t.Error("expected existing file to be overwritten")
	}
}

func TestRun_QuitKeyStops(t *testing.T) {
	viewer := &fakeViewer{keys: []int{' ', 'q'}}

	result, err := NewBrowser(seedStore(t, "A", "B", "C", "D"), viewer, Options{SaveKey: 's', QuitKey: 'q'}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !result.Quit || result.Shown != 2 || len(viewer.shown) != 2 {
		t.Errorf("expected to stop after second image, got %+v", result)
	}
}

func TestRun_DecodeFailureSkipped(t *testing.T) {
	store := seedStore(t, "Alice")
	store.AddFace(database.StoredFace{Label: "Broken", Embedding: []float64{1}, Image: []byte("not an image")})
	store.AddFace(database.StoredFace{Label: "Empty", Embedding: []float64{1}})
	store.AddFace(database.StoredFace{Label: "Bob", Embedding: []float64{1}, Image: jpegBytes(t, 4, 4)})
	viewer := &fakeViewer{}

	result, err := NewBrowser(store, viewer, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Skipped != 2 || result.Shown != 2 {
		t.Errorf("unexpected result %+v", result)
	}
	if viewer.shown[1].caption != "ID: 4 / 4, label: Bob" {
		t.Errorf("total must count every record, got %q", viewer.shown[1].caption)
	}
}

func TestRun_LabelFilter(t *testing.T) {
	store := seedStore(t, "Zdeněk", "PersonId2", "zdenek novak")
	viewer := &fakeViewer{}

	result, err := NewBrowser(store, viewer, Options{Label: "Zdenek"}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Total != 2 || len(viewer.shown) != 2 {
		t.Fatalf("expected 2 matching faces, got %+v", result)
	}
	if viewer.shown[1].caption != "ID: 3 / 2, label: zdenek novak" {
		t.Errorf("unexpected caption %q", viewer.shown[1].caption)
	}
}

func TestRun_EmptyStore(t *testing.T) {
	viewer := &fakeViewer{}
	result, err := NewBrowser(mock.NewMockFaceStore(), viewer, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Total != 0 || len(viewer.shown) != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestRun_StoreError(t *testing.T) {
	store := mock.NewMockFaceStore()
	store.ListImagesError = database.NewStorageError("list images", errors.New("no such table: faces"))

	_, err := NewBrowser(store, &fakeViewer{}, Options{}).Run(context.Background())
	if !database.IsStorageError(err) {
		t.Errorf("expected StorageError, got %v", err)
	}
}

func TestRun_Scale(t *testing.T) {
	viewer := &fakeViewer{}
	if _, err := NewBrowser(seedStore(t, "Alice"), viewer, Options{Scale: 3}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if viewer.shown[0].bounds.Dx() != 24 || viewer.shown[0].bounds.Dy() != 18 {
		t.Errorf("expected 24x18 image, got %v", viewer.shown[0].bounds)
	}
}

func TestDecode_Error(t *testing.T) {
	_, err := Decode(database.FaceImage{ID: 7, Label: "X", Image: []byte{1, 2, 3}})
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if derr.ID != 7 {
		t.Errorf("expected id 7, got %d", derr.ID)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		label string
		id    int64
		want  string
	}{
		{"Alice", 12, "Alice_ID_12.jpg"},
		{"PersonId3", 1, "PersonId3_ID_1.jpg"},
		{"a/b", 2, "a_b_ID_2.jpg"},
		{"", 5, "_ID_5.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FileName(tt.label, tt.id); got != tt.want {
				t.Errorf("FileName(%q, %d) = %q, want %q", tt.label, tt.id, got, tt.want)
			}
		})
	}
}
