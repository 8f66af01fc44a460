// Package review replays stored face images one at a time and saves the ones the operator picks.
package review

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/facelog/internal/database"
	"github.com/kozaktomas/facelog/internal/facematch"
	"golang.org/x/image/draw"
)

// Viewer shows one image and blocks until a key is pressed.
type Viewer interface {
	Show(caption string, img image.Image) (key int, err error)
}

// Options control browsing.
type Options struct {
	SaveDir string // where saved faces go, the working directory when empty
	SaveKey int
	QuitKey int
	Label   string // only show labels containing this text
	Scale   int    // enlarge images this many times before showing
	Quality int    // JPEG quality of saved files
}

// Result summarizes a review session.
type Result struct {
	Total   int // records selected for review
	Shown   int
	Saved   []string
	Skipped int // records that failed to decode
	Quit    bool
}

// DecodeError reports a stored image blob that is not a valid image.
type DecodeError struct {
	ID    int64
	Label string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode face %d (%s): %v", e.ID, e.Label, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Browser walks the stored faces in id order.
type Browser struct {
	store  database.FaceReader
	viewer Viewer
	opts   Options
}

// NewBrowser creates a browser over store.
func NewBrowser(store database.FaceReader, viewer Viewer, opts Options) *Browser {
	if opts.Scale < 1 {
		opts.Scale = 1
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		opts.Quality = 95
	}
	return &Browser{store: store, viewer: viewer, opts: opts}
}

// Run shows every selected face until the last one or the quit key.
// Images that fail to decode are reported and skipped.
func (b *Browser) Run(ctx context.Context) (*Result, error) {
	faces, err := b.store.ListImages(ctx)
	if err != nil {
		return nil, err
	}
	faces = Filter(faces, b.opts.Label)

	result := &Result{Total: len(faces)}
	if len(faces) == 0 {
		fmt.Println("No images found in the database.")
		return result, nil
	}

	for _, f := range faces {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		img, err := Decode(f)
		if err != nil {
			log.Printf("WARNING: %v, skipping", err)
			result.Skipped++
			continue
		}

		key, err := b.viewer.Show(Caption(f.ID, len(faces), f.Label), Scale(img, b.opts.Scale))
		if err != nil {
			return result, fmt.Errorf("failed to show face %d: %w", f.ID, err)
		}
		result.Shown++

		switch {
		case b.opts.SaveKey != 0 && key == b.opts.SaveKey:
			path := filepath.Join(b.opts.SaveDir, FileName(f.Label, f.ID))
			if err := Save(path, img, b.opts.Quality); err != nil {
				log.Printf("WARNING: %v", err)
				continue
			}
			result.Saved = append(result.Saved, path)
			fmt.Printf("Image saved as: %s\n", path)
		case b.opts.QuitKey != 0 && key == b.opts.QuitKey:
			result.Quit = true
			return result, nil
		}
	}

	return result, nil
}

// Filter keeps the faces whose label contains query, ignoring case and diacritics.
func Filter(faces []database.FaceImage, query string) []database.FaceImage {
	if query == "" {
		return faces
	}
	var out []database.FaceImage
	for _, f := range faces {
		if facematch.LabelMatches(f.Label, query) {
			out = append(out, f)
		}
	}
	return out
}

// Caption is the window title of a reviewed face.
func Caption(id int64, total int, label string) string {
	return fmt.Sprintf("ID: %d / %d, label: %s", id, total, label)
}

// FileName is the name a saved face gets: <label>_ID_<id>.jpg.
// Path separators in the label are replaced so the file stays in the save directory.
func FileName(label string, id int64) string {
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(label)
	return fmt.Sprintf("%s_ID_%d.jpg", safe, id)
}

// Decode decodes a stored image blob.
func Decode(f database.FaceImage) (image.Image, error) {
	if len(f.Image) == 0 {
		return nil, &DecodeError{ID: f.ID, Label: f.Label, Err: fmt.Errorf("empty image")}
	}
	img, _, err := image.Decode(bytes.NewReader(f.Image))
	if err != nil {
		return nil, &DecodeError{ID: f.ID, Label: f.Label, Err: err}
	}
	return img, nil
}

// Scale enlarges img by factor. Stored crops are small; a factor of 1 returns img unchanged.
func Scale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Save writes img as JPEG, overwriting an existing file.
func Save(path string, img image.Image, quality int) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
