// Package pipeline sequences the full processing run: optional concatenation
// of multi-part recordings, stage occupancy detection, audio alignment, and
// segment encoding. Stages run strictly in order; each consumes the previous
// stage's output in memory.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"cvcutter/internal/audiosync"
	"cvcutter/internal/config"
	"cvcutter/internal/detect"
	"cvcutter/internal/encoding"
	"cvcutter/internal/logging"
	"cvcutter/internal/services"
	"cvcutter/internal/services/ffmpeg"
	"cvcutter/internal/tracking"
)

// Request names the inputs of one processing run. VideoPaths holds the camera
// recording parts in play order; more than one part is concatenated before
// detection so every later stage sees a single continuous timeline. MicPath
// may be empty, which skips alignment and mixes camera audio only.
type Request struct {
	VideoPaths []string
	MicPath    string
}

// Result reports what one run produced.
type Result struct {
	// VideoPath is the recording all stages operated on; the concatenated
	// file when the request had multiple parts.
	VideoPath string
	Intervals []detect.Interval
	// GlobalOffset is the consensus microphone offset. Only meaningful when
	// UsedMic is true.
	GlobalOffset float64
	UsedMic      bool
	Encoded      encoding.Result
}

// Progress receives human-readable stage transitions for interactive callers.
type Progress func(stage, message string)

// Pipeline wires the stages together from one configuration.
type Pipeline struct {
	cfg    *config.Config
	client ffmpeg.Client
	logger *slog.Logger

	// openSource is swapped by tests to avoid real video decode.
	openSource func(tracking.VideoConfig) (tracking.Source, error)
	// probeCodec is swapped by tests to avoid the hardware probe.
	probeCodec func(context.Context, bool) ffmpeg.CodecSelection
}

// New constructs a Pipeline. A nil logger is replaced with a no-op logger.
func New(cfg *config.Config, client ffmpeg.Client, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		client: client,
		logger: logging.WithComponent(logger, "pipeline"),
		openSource: func(vc tracking.VideoConfig) (tracking.Source, error) {
			return tracking.NewVideoSource(vc)
		},
		probeCodec: ffmpeg.ProbeCodec,
	}
}

// Run executes the full pipeline for one request. Zero detected intervals is
// a valid outcome, not an error. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, req Request, progress Progress) (Result, error) {
	if len(req.VideoPaths) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "run", "no input videos", nil)
	}
	if progress == nil {
		progress = func(string, string) {}
	}

	videoPath, err := p.resolveInput(ctx, req.VideoPaths, progress)
	if err != nil {
		return Result{}, err
	}
	result := Result{VideoPath: videoPath}

	progress("detect", "scanning for performances")
	intervals, err := p.detectIntervals(videoPath)
	if err != nil {
		return Result{}, err
	}
	result.Intervals = intervals
	if len(intervals) == 0 {
		p.logger.Info("no performances detected", logging.String("video", filepath.Base(videoPath)))
		progress("detect", "no performances found")
		return result, nil
	}
	p.logger.Info("detection complete", logging.Int("performances", len(intervals)))
	progress("detect", fmt.Sprintf("found %d performances", len(intervals)))

	if req.MicPath != "" {
		progress("sync", "aligning microphone audio")
		offset, ok, err := p.alignAudio(ctx, videoPath, req.MicPath, intervals)
		if err != nil {
			return Result{}, err
		}
		result.GlobalOffset = offset
		result.UsedMic = ok
		if ok {
			progress("sync", fmt.Sprintf("microphone offset %.2fs", offset))
		} else {
			p.logger.Warn("no reliable audio alignment, falling back to camera audio")
			progress("sync", "alignment unreliable, using camera audio")
		}
	}

	progress("encode", "cutting segments")
	selection := p.probeCodec(ctx, p.cfg.Encoding.UseGPU)
	p.logger.Info("codec selected",
		logging.String("codec", selection.VideoCodec),
		logging.Bool("hardware", selection.Hardware))

	encoder := encoding.New(p.client, selection, encoding.Config{
		OutputDir:    p.cfg.Paths.OutputDir,
		VideoVolume:  p.cfg.Encoding.VideoVolume,
		MicVolume:    p.cfg.Encoding.MicVolume,
		AudioBitrate: p.cfg.Encoding.AudioBitrate,
		Deinterlace:  p.cfg.Encoding.Deinterlace,
	}, p.logger)

	encoded, err := encoder.EncodeAll(ctx, videoPath, req.MicPath,
		result.GlobalOffset, result.UsedMic, intervals,
		func(update ffmpeg.ProgressUpdate) {
			progress("encode", update.Message)
		})
	if err != nil {
		return Result{}, err
	}
	result.Encoded = encoded
	progress("encode", fmt.Sprintf("wrote %d clips", len(encoded.Outputs)))
	return result, nil
}

// resolveInput returns the single recording to process, concatenating
// multi-part requests into the temp directory first.
func (p *Pipeline) resolveInput(ctx context.Context, paths []string, progress Progress) (string, error) {
	if len(paths) == 1 {
		return paths[0], nil
	}

	progress("concat", fmt.Sprintf("joining %d parts", len(paths)))
	output := filepath.Join(p.cfg.Paths.TempDir, combinedName(paths[0]))
	p.logger.Info("concatenating recording parts",
		logging.Int("parts", len(paths)),
		logging.String("output", filepath.Base(output)))
	if err := p.client.Concat(ctx, paths, output); err != nil {
		return "", err
	}
	return output, nil
}

func combinedName(firstPart string) string {
	base := filepath.Base(firstPart)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_combined.mp4"
}

func (p *Pipeline) detectIntervals(videoPath string) ([]detect.Interval, error) {
	source, err := p.openSource(tracking.VideoConfig{
		VideoPath:           videoPath,
		ModelPath:           p.cfg.Detection.ModelPath,
		ModelConfigPath:     p.cfg.Detection.ModelConfigPath,
		ConfidenceThreshold: p.cfg.Detection.ConfidenceThreshold,
		PersonClassID:       p.cfg.Detection.PersonClassID,
		UseCUDA:             p.cfg.Encoding.UseGPU,
	})
	if err != nil {
		return nil, err
	}
	defer source.Close()

	detector := detect.New(detect.Config{
		LeftZoneEndFraction:     p.cfg.Detection.LeftZoneEndFraction,
		CenterZoneWidthFraction: p.cfg.Detection.CenterZoneWidthFraction,
		MinDurationSeconds:      p.cfg.Detection.MinDurationSeconds,
		MaxSeconds:              p.cfg.Detection.MaxSeconds,
	}, p.logger)
	return detector.Run(source)
}

// alignAudio estimates per-interval offsets and reduces them to a consensus.
// ok is false when no interval aligned or the samples never agreed.
func (p *Pipeline) alignAudio(ctx context.Context, videoPath, micPath string, intervals []detect.Interval) (float64, bool, error) {
	estimator := audiosync.New(p.client, audiosync.Config{
		SampleRate:     p.cfg.Sync.SampleRate,
		MinCorrelation: p.cfg.Sync.MinCorrelation,
	}, p.logger)

	samples, err := estimator.EstimateOffsets(ctx, videoPath, micPath, intervals)
	if err != nil {
		return 0, false, err
	}
	offset, ok := audiosync.Consensus(samples, p.cfg.Sync.ToleranceSeconds)
	return offset, ok, nil
}
