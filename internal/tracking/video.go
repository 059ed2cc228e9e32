package tracking

import (
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"

	"cvcutter/internal/services"
)

const dnnInputSize = 640

// VideoConfig configures a gocv-backed video source.
type VideoConfig struct {
	VideoPath           string
	ModelPath           string
	ModelConfigPath     string
	ConfidenceThreshold float64
	PersonClassID       int
	// UseCUDA selects the GPU inference target. Callers decide once per run
	// from the shared hardware probe.
	UseCUDA bool
}

// VideoSource reads a video file and yields tracked person entities per frame.
type VideoSource struct {
	capture   *gocv.VideoCapture
	net       gocv.Net
	frame     gocv.Mat
	assoc     *associator
	width     int
	height    int
	frameRate float64
	cfg       VideoConfig
	closed    bool
}

// NewVideoSource opens the video and loads the detection model. Initialization
// failure is fatal for the video: no partial source is returned.
func NewVideoSource(cfg VideoConfig) (*VideoSource, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "load model", "detection.model_path is not set", nil)
	}

	capture, err := gocv.VideoCaptureFile(cfg.VideoPath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "detect", "open video", cfg.VideoPath, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, services.Wrap(services.ErrNotFound, "detect", "open video", cfg.VideoPath, nil)
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ModelConfigPath)
	if net.Empty() {
		_ = capture.Close()
		return nil, services.Wrap(services.ErrExternalTool, "detect", "load model",
			fmt.Sprintf("failed to load network from %s", cfg.ModelPath), nil)
	}

	if cfg.UseCUDA {
		_ = net.SetPreferableBackend(gocv.NetBackendCUDA)
		_ = net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		_ = net.SetPreferableBackend(gocv.NetBackendDefault)
		_ = net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.5
	}

	return &VideoSource{
		capture:   capture,
		net:       net,
		frame:     gocv.NewMat(),
		assoc:     newAssociator(),
		width:     int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:    int(capture.Get(gocv.VideoCaptureFrameHeight)),
		frameRate: capture.Get(gocv.VideoCaptureFPS),
		cfg:       cfg,
	}, nil
}

func (s *VideoSource) FrameSize() (int, int) {
	return s.width, s.height
}

func (s *VideoSource) FrameRate() float64 {
	return s.frameRate
}

// Next reads and runs inference on one frame.
func (s *VideoSource) Next() ([]Entity, bool, error) {
	if s.closed {
		return nil, false, nil
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, false, nil
	}

	detections, err := s.detect()
	if err != nil {
		return nil, false, err
	}
	return s.assoc.Update(detections), true, nil
}

func (s *VideoSource) detect() ([]Detection, error) {
	blob := gocv.BlobFromImage(s.frame, 1.0/255.0,
		image.Pt(dnnInputSize, dnnInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	scaleX := float32(s.width) / dnnInputSize
	scaleY := float32(s.height) / dnnInputSize

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for i := 0; i < output.Rows(); i++ {
		row := output.RowRange(i, i+1)
		classScores := row.ColRange(5, row.Cols())
		_, confidence, _, maxLoc := gocv.MinMaxLoc(classScores)
		classID := maxLoc.X
		classScores.Close()

		if float64(confidence) < s.cfg.ConfidenceThreshold || classID != s.cfg.PersonClassID {
			row.Close()
			continue
		}

		// Darknet-style rows carry coordinates normalized to the network
		// input size.
		cx := row.GetFloatAt(0, 0) * dnnInputSize * scaleX
		cy := row.GetFloatAt(0, 1) * dnnInputSize * scaleY
		w := row.GetFloatAt(0, 2) * dnnInputSize * scaleX
		h := row.GetFloatAt(0, 3) * dnnInputSize * scaleY
		row.Close()

		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, confidence)
		classIDs = append(classIDs, classID)
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(s.cfg.ConfidenceThreshold), 0.45)
	detections := make([]Detection, 0, len(keep))
	for _, idx := range keep {
		box := boxes[idx]
		detections = append(detections, Detection{
			Box: Rect{
				X1: float64(box.Min.X),
				Y1: float64(box.Min.Y),
				X2: float64(box.Max.X),
				Y2: float64(box.Max.Y),
			},
			ClassID:    classIDs[idx],
			Confidence: float64(scores[idx]),
		})
	}
	return detections, nil
}

func (s *VideoSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.frame.Close()
	if err := s.net.Close(); err != nil {
		_ = s.capture.Close()
		return err
	}
	return s.capture.Close()
}

var _ Source = (*VideoSource)(nil)
