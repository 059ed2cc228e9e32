// Package detect converts a per-frame stream of tracked entities into ordered
// performance intervals via a two-state stage occupancy machine.
package detect

import (
	"log/slog"

	"cvcutter/internal/logging"
	"cvcutter/internal/services"
	"cvcutter/internal/tracking"
)

// Interval is one detected performance segment in source-timeline seconds.
// Intervals are immutable once emitted, ordered by Start, and non-overlapping.
type Interval struct {
	Start float64
	End   float64
}

// Duration returns the interval length in seconds.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Config controls zone geometry and filtering.
type Config struct {
	// LeftZoneEndFraction and CenterZoneWidthFraction define the center zone
	// as fractions of the frame width.
	LeftZoneEndFraction     float64
	CenterZoneWidthFraction float64
	// MinDurationSeconds discards occupancy shorter than a real performance.
	MinDurationSeconds float64
	// MaxSeconds stops scanning after this much footage. Zero scans the
	// whole stream.
	MaxSeconds float64
}

type stageState int

const (
	stateEmpty stageState = iota
	statePerforming
)

// Detector runs the occupancy state machine over a tracking source.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs a Detector. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *slog.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logging.WithComponent(logger, "detect")}
}

// Run consumes the source to exhaustion and returns the ordered list of
// performance intervals. The source is not closed; the caller owns it.
func (d *Detector) Run(source tracking.Source) ([]Interval, error) {
	if source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "run", "tracking source is nil", nil)
	}

	width, _ := source.FrameSize()
	frameRate := source.FrameRate()
	if width <= 0 || frameRate <= 0 {
		return nil, services.Wrap(services.ErrValidation, "detect", "run", "source reports no frame geometry", nil)
	}

	leftZoneEnd := float64(width) * d.cfg.LeftZoneEndFraction
	centerZoneEnd := float64(width) * (d.cfg.LeftZoneEndFraction + d.cfg.CenterZoneWidthFraction)

	maxFrames := -1
	if d.cfg.MaxSeconds > 0 {
		maxFrames = int(d.cfg.MaxSeconds * frameRate)
	}

	state := stateEmpty
	var startTime float64
	var intervals []Interval
	frame := 0

	for maxFrames < 0 || frame < maxFrames {
		entities, ok, err := source.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		occupied := false
		for _, entity := range entities {
			// Strict inequality on both bounds: a center sitting exactly on
			// a zone boundary does not count, which keeps subjects walking
			// along the edge from flickering the state machine.
			if cx := entity.Box.CenterX(); leftZoneEnd < cx && cx < centerZoneEnd {
				occupied = true
				break
			}
		}

		timestamp := float64(frame) / frameRate
		switch {
		case state == stateEmpty && occupied:
			state = statePerforming
			startTime = timestamp
			d.logger.Info("center zone entered", logging.Float64("at", timestamp))
		case state == statePerforming && !occupied:
			state = stateEmpty
			intervals = d.closeInterval(intervals, startTime, timestamp)
		}

		frame++
	}

	if state == statePerforming {
		end := float64(frame) / frameRate
		d.logger.Info("stream ended while performing, closing interval", logging.Float64("at", end))
		intervals = d.closeInterval(intervals, startTime, end)
	}

	d.logger.Info("detection complete", logging.Int("intervals", len(intervals)))
	return intervals, nil
}

func (d *Detector) closeInterval(intervals []Interval, start, end float64) []Interval {
	duration := end - start
	if duration <= 0 {
		return intervals
	}
	if duration < d.cfg.MinDurationSeconds {
		d.logger.Info("interval below minimum duration, discarded",
			logging.Float64("start", start),
			logging.Float64("duration", duration))
		return intervals
	}
	d.logger.Info("interval emitted",
		logging.Float64("start", start),
		logging.Float64("end", end))
	return append(intervals, Interval{Start: start, End: end})
}
