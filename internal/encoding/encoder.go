// Package encoding orchestrates transcoding of detected intervals into
// individual clip files.
package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"cvcutter/internal/detect"
	"cvcutter/internal/logging"
	"cvcutter/internal/services/ffmpeg"
)

// Config controls segment transcoding.
type Config struct {
	OutputDir    string
	VideoVolume  float64
	MicVolume    float64
	AudioBitrate string
	Deinterlace  bool
}

// Result summarizes one encoding run. Outputs holds the produced files in
// performance order; FailedIndexes the 1-based ordinals whose transcode
// failed and whose output is therefore absent.
type Result struct {
	Outputs       []string
	FailedIndexes []int
}

// Encoder cuts and re-encodes each interval through the transcoder service,
// applying one codec selection to the whole run.
type Encoder struct {
	client    ffmpeg.Client
	selection ffmpeg.CodecSelection
	cfg       Config
	logger    *slog.Logger
}

// New constructs an Encoder. A nil logger is replaced with a no-op logger.
func New(client ffmpeg.Client, selection ffmpeg.CodecSelection, cfg Config, logger *slog.Logger) *Encoder {
	return &Encoder{
		client:    client,
		selection: selection,
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "encode"),
	}
}

// OutputName derives the deterministic clip filename for a source file and
// 1-based segment ordinal. The ordinal doubles as the performance order used
// by the upload batch.
func OutputName(sourcePath string, index int) string {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return fmt.Sprintf("%s_performance_%d.mp4", stem, index)
}

// EncodeAll produces one output file per interval. micPath may be empty, and
// useMic is false when no usable global offset exists; both degrade the whole
// run to camera audio. A segment whose computed microphone start is negative
// degrades to camera audio for that segment only. A failed transcode is
// logged, recorded in the result, and does not abort the run.
func (e *Encoder) EncodeAll(
	ctx context.Context,
	videoPath, micPath string,
	globalOffset float64,
	useMic bool,
	intervals []detect.Interval,
	progress func(ffmpeg.ProgressUpdate),
) (Result, error) {
	var result Result

	for i, interval := range intervals {
		index := i + 1
		output := filepath.Join(e.cfg.OutputDir, OutputName(videoPath, index))

		spec := ffmpeg.EncodeSpec{
			Input:        videoPath,
			Start:        interval.Start,
			Duration:     interval.Duration(),
			VideoVolume:  e.cfg.VideoVolume,
			MicVolume:    e.cfg.MicVolume,
			VideoCodec:   e.selection.VideoCodec,
			CodecArgs:    e.selection.ExtraArgs,
			AudioBitrate: e.cfg.AudioBitrate,
			Deinterlace:  e.cfg.Deinterlace,
			Output:       output,
		}

		if useMic && micPath != "" {
			micStart := interval.Start + globalOffset
			if micStart < 0 {
				// The microphone recording started after this interval began;
				// only this segment loses the mic mix.
				e.logger.Warn("microphone starts after segment, using camera audio",
					logging.Int("segment", index),
					logging.Float64("mic_start", micStart))
			} else {
				spec.MicPath = micPath
				spec.MicStart = micStart
			}
		}

		e.logger.Info("encoding segment",
			logging.Int("segment", index),
			logging.Int("total", len(intervals)),
			logging.Float64("start", interval.Start),
			logging.Float64("duration", interval.Duration()),
			logging.Bool("mixed_audio", spec.MicPath != ""))

		if err := e.client.EncodeSegment(ctx, spec, progress); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			e.logger.Error("segment encode failed, continuing",
				logging.Int("segment", index),
				logging.Error(err))
			result.FailedIndexes = append(result.FailedIndexes, index)
			continue
		}
		result.Outputs = append(result.Outputs, output)
	}

	return result, nil
}
