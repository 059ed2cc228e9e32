// Package audiosync estimates the global time offset between a camera's own
// audio and an auxiliary microphone recording.
//
// Each detected interval contributes one offset sample found by FFT
// cross-correlation; the consensus aggregator then picks the majority cluster
// so a single badly-correlated interval cannot shift the global offset.
package audiosync

import (
	"context"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"cvcutter/internal/detect"
	"cvcutter/internal/logging"
	"cvcutter/internal/services/ffmpeg"
)

// Sample is one successful per-interval offset estimate, already normalized to
// the primary recording's frame of reference.
type Sample struct {
	IntervalIndex int
	OffsetSeconds float64
}

// Config controls estimation.
type Config struct {
	SampleRate int
	// MinCorrelation rejects correlation peaks too weak to trust.
	MinCorrelation float64
}

// Estimator extracts audio snippets via the transcoder and correlates them
// against the full microphone track.
type Estimator struct {
	client ffmpeg.Client
	cfg    Config
	logger *slog.Logger
}

// New constructs an Estimator. A nil logger is replaced with a no-op logger.
func New(client ffmpeg.Client, cfg Config, logger *slog.Logger) *Estimator {
	return &Estimator{client: client, cfg: cfg, logger: logging.WithComponent(logger, "sync")}
}

// EstimateOffsets produces one sample per interval for which alignment
// succeeded; intervals whose correlation is unreliable are skipped, never
// surfaced as errors. The microphone track is decoded once for the whole run;
// a mic track that cannot be decoded yields zero samples rather than an
// error, so the run degrades to camera audio instead of aborting.
func (e *Estimator) EstimateOffsets(ctx context.Context, videoPath, micPath string, intervals []detect.Interval) ([]Sample, error) {
	micSamples, err := e.client.ExtractPCM(ctx, micPath, 0, 0, e.cfg.SampleRate)
	if err != nil {
		e.logger.Warn("failed to decode mic track, skipping alignment",
			logging.String("path", micPath), logging.Error(err))
		return nil, nil
	}
	if len(micSamples) == 0 {
		e.logger.Warn("mic track decoded to no samples, skipping alignment",
			logging.String("path", micPath))
		return nil, nil
	}

	samples := make([]Sample, 0, len(intervals))
	for i, interval := range intervals {
		needle, err := e.client.ExtractPCM(ctx, videoPath, interval.Start, interval.Duration(), e.cfg.SampleRate)
		if err != nil {
			e.logger.Warn("failed to extract interval audio, skipping",
				logging.Int("interval", i+1), logging.Error(err))
			continue
		}

		lag, strength, ok := CrossCorrelate(micSamples, needle)
		if !ok || strength < e.cfg.MinCorrelation {
			e.logger.Warn("no reliable correlation for interval",
				logging.Int("interval", i+1),
				logging.Float64("strength", strength))
			continue
		}

		rawOffset := float64(lag) / float64(e.cfg.SampleRate)
		// Subtracting the interval's own start expresses every estimate in
		// the primary recording's timeline, so all samples are comparable.
		offset := rawOffset - interval.Start
		e.logger.Info("interval aligned",
			logging.Int("interval", i+1),
			logging.Float64("offset", offset),
			logging.Float64("strength", strength))
		samples = append(samples, Sample{IntervalIndex: i, OffsetSeconds: offset})
	}
	return samples, nil
}

// CrossCorrelate slides needle across haystack and returns the lag (in
// samples) of peak correlation plus a normalized peak strength in [0, 1].
// ok is false when either signal is too short or silent.
func CrossCorrelate(haystack, needle []float64) (lag int, strength float64, ok bool) {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return 0, 0, false
	}

	n := nextPow2(len(haystack) + len(needle))
	fft := fourier.NewFFT(n)

	padH := make([]float64, n)
	copy(padH, haystack)
	padN := make([]float64, n)
	copy(padN, needle)

	coeffH := fft.Coefficients(nil, padH)
	coeffN := fft.Coefficients(nil, padN)
	for i := range coeffH {
		coeffH[i] *= cmplxConj(coeffN[i])
	}
	corr := fft.Sequence(nil, coeffH)

	maxLag := len(haystack) - len(needle)
	bestLag := 0
	bestValue := math.Inf(-1)
	for k := 0; k <= maxLag; k++ {
		if corr[k] > bestValue {
			bestValue = corr[k]
			bestLag = k
		}
	}

	// fft.Sequence is unnormalized; scale back before scoring the peak.
	bestValue /= float64(n)

	needleNorm := norm(needle)
	windowNorm := norm(haystack[bestLag : bestLag+len(needle)])
	if needleNorm == 0 || windowNorm == 0 {
		return 0, 0, false
	}
	return bestLag, bestValue / (needleNorm * windowNorm), true
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

func norm(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
