package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/kozaktomas/facelog/internal/constants"
	"github.com/kozaktomas/facelog/internal/facematch"
)

const defaultEmbeddingURL = "http://localhost:8000"

// HTTPDetector detects faces using the embedding server's /embed/face endpoint.
type HTTPDetector struct {
	baseURL string
	quality int
	client  *http.Client
}

var _ Detector = (*HTTPDetector)(nil)

// NewHTTPDetector creates a new detector for the embedding server at baseURL
func NewHTTPDetector(baseURL string, quality int) *HTTPDetector {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if quality <= 0 || quality > 100 {
		quality = jpegQuality
	}
	return &HTTPDetector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		quality: quality,
		client:  &http.Client{Timeout: constants.DetectorTimeout},
	}
}

const jpegQuality = 90

// faceDetection represents a single detected face
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage posts the image as the "file" field of a multipart form.
func (d *HTTPDetector) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Detect sends the frame to the embedding server and converts its faces.
// Faces with a malformed bbox or no embedding are dropped with a warning.
func (d *HTTPDetector) Detect(ctx context.Context, frame image.Image) ([]Detection, error) {
	data, err := EncodeJPEG(frame, d.quality)
	if err != nil {
		return nil, err
	}

	body, err := d.postMultipartImage(ctx, "/embed/face", data)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	detections := make([]Detection, 0, len(faceResp.Faces))
	for _, f := range faceResp.Faces {
		box, ok := facematch.BoxFromCorners(f.BBox)
		if !ok {
			log.Printf("WARNING: face %d has invalid bbox %v, skipping", f.FaceIndex, f.BBox)
			continue
		}
		if len(f.Embedding) == 0 {
			log.Printf("WARNING: face %d has no embedding, skipping", f.FaceIndex)
			continue
		}
		detections = append(detections, Detection{Box: box, Embedding: widen(f.Embedding)})
	}

	return detections, nil
}

// Close releases nothing; the HTTP client holds no session state.
func (d *HTTPDetector) Close() error {
	return nil
}
