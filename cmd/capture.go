package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/facelog/internal/capture"
	"github.com/kozaktomas/facelog/internal/config"
	"github.com/kozaktomas/facelog/internal/facematch"
	"github.com/kozaktomas/facelog/internal/fingerprint"
	"github.com/kozaktomas/facelog/internal/fingerprint/dlib"
	"github.com/kozaktomas/facelog/internal/video"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Watch the camera and log every recognized face",
	Long: `Reads frames from the camera, detects faces and matches each one against the
faces already stored. Known faces keep their label, unknown faces get the next
PersonId<n> label. Every --frame-skip frames each visible face is stored.

Press q in the video window or Ctrl+C to stop.

Examples:
  # Default camera, dlib models in ./models
  facelog capture

  # Second camera with a stricter match threshold
  facelog capture --device 1 --threshold 0.5

  # Replay a recording through the embedding server
  facelog capture --device clip.mp4 --detector http --embedding-url http://gpu-box:8000`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().String("device", "", "Camera index or video file (default from CAMERA_DEVICE)")
	captureCmd.Flags().Int("frame-skip", 0, "Store faces on every Nth frame (default from FRAME_SKIP)")
	captureCmd.Flags().Float64("threshold", -1, "Maximum euclidean distance for a match (default from MATCH_THRESHOLD)")
	captureCmd.Flags().String("detector", "", "Detector backend: dlib or http (default from DETECTOR_BACKEND)")
	captureCmd.Flags().String("models", "", "Directory with the dlib model files (default from DETECTOR_MODELS_DIR)")
	captureCmd.Flags().String("embedding-url", "", "Embedding server URL for the http detector (default from EMBEDDING_URL)")
	captureCmd.Flags().Bool("cnn", false, "Use the dlib CNN face detector")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadCaptureConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}
	entries := make([]facematch.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, facematch.Entry{Label: r.Label, Embedding: r.Embedding})
	}
	gallery := facematch.NewGallery(entries)
	fmt.Printf("Loaded %d faces of %d known identities from %s\n", gallery.Len(), gallery.DistinctLabels(), describeStore(cfg))

	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}
	defer detector.Close()

	camera, err := video.OpenCamera(cfg.Capture.Device)
	if err != nil {
		return err
	}
	defer camera.Close()

	window := video.OpenWindow(cfg.Capture.WindowName)
	defer window.Close()

	loop := capture.NewLoop(camera, detector, window, store, gallery,
		facematch.NewMatcher(cfg.Capture.Threshold), capture.Options{
			FrameSkip:   cfg.Capture.FrameSkip,
			QuitKey:     config.Key(cfg.Capture.QuitKey),
			JPEGQuality: cfg.Capture.JPEGQuality,
		})

	fmt.Printf("Session %s: capturing from %s (threshold %.2f, storing every %d frames). Press %s to quit.\n",
		loop.SessionID(), cfg.Capture.Device, cfg.Capture.Threshold, cfg.Capture.FrameSkip, cfg.Capture.QuitKey)

	stats, err := loop.Run(ctx)
	fmt.Printf("Session %s finished: %s\n", stats.SessionID, stats)
	return err
}

// loadCaptureConfig applies the capture flags on top of the loaded configuration.
func loadCaptureConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if device := mustGetString(cmd, "device"); device != "" {
		cfg.Capture.Device = device
	}
	if skip := mustGetInt(cmd, "frame-skip"); skip > 0 {
		cfg.Capture.FrameSkip = skip
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold >= 0 {
		cfg.Capture.Threshold = threshold
	}
	if backend := mustGetString(cmd, "detector"); backend != "" {
		cfg.Detector.Backend = backend
	}
	if models := mustGetString(cmd, "models"); models != "" {
		cfg.Detector.ModelsDir = models
	}
	if url := mustGetString(cmd, "embedding-url"); url != "" {
		cfg.Detector.URL = url
	}
	if mustGetBool(cmd, "cnn") {
		cfg.Detector.CNN = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newDetector(cfg *config.Config) (fingerprint.Detector, error) {
	switch cfg.Detector.Backend {
	case config.BackendHTTP:
		return fingerprint.NewHTTPDetector(cfg.Detector.URL, cfg.Capture.JPEGQuality), nil
	default:
		return dlib.New(cfg.Detector.ModelsDir, cfg.Detector.CNN, cfg.Capture.JPEGQuality)
	}
}
