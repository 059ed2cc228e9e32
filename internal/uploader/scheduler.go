package uploader

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"cvcutter/internal/fileutil"
	"cvcutter/internal/logging"
)

// Service is the remote video platform: one resumable upload per call plus
// optional playlist placement.
type Service interface {
	Upload(ctx context.Context, filePath string, meta VideoMetadata, progress func(fraction float64)) (videoID string, err error)
	AddToPlaylist(ctx context.Context, videoID, playlistID string) error
}

// ConfirmFunc lets an interactive caller approve a batch despite a preflight
// problem (problem non-nil) or as a final go-ahead (problem nil). Returning
// false cancels the batch.
type ConfirmFunc func(files []string, metadata []VideoMetadata, problem error) bool

// Summary is the result of one batch run.
type Summary struct {
	Total        int
	Success      int
	Failed       int
	UploadsToday int
	QuotaReset   time.Time
}

// Config controls the scheduler.
type Config struct {
	MaxRetries int
	// DefaultPrivacy fills metadata entries that omit privacy_status.
	DefaultPrivacy string
}

// Scheduler uploads a directory of encoded files under the daily budget,
// one file at a time.
type Scheduler struct {
	service Service
	quota   *QuotaManager
	cfg     Config
	confirm ConfirmFunc
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// New constructs a Scheduler. confirm may be nil, in which case any preflight
// problem is fatal. A nil logger is replaced with a no-op logger.
func New(service Service, quota *QuotaManager, cfg Config, confirm ConfirmFunc, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		quota:   quota,
		cfg:     cfg,
		confirm: confirm,
		logger:  logging.WithComponent(logger, "upload"),
		sleep:   sleepContext,
	}
}

// Run uploads every video file in dir, pairing files (ordered by creation
// time) with metadata entries (ordered the same way). It blocks across quota
// windows and returns the batch summary. Per-file failures are recorded and
// skipped; only preflight problems and context cancellation abort the batch.
func (s *Scheduler) Run(ctx context.Context, dir, metadataPath string) (Summary, error) {
	files, err := fileutil.VideosByModTime(dir)
	if err != nil {
		return Summary{}, err
	}
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return Summary{}, err
	}

	if err := validateCounts(files, metadata); err != nil {
		if s.confirm == nil || !s.confirm(files, metadata, err) {
			return Summary{}, err
		}
		s.logger.Warn("count mismatch confirmed by caller, continuing", logging.Error(err))
		if len(metadata) < len(files) {
			files = files[:len(metadata)]
		} else {
			metadata = metadata[:len(files)]
		}
	} else if s.confirm != nil && !s.confirm(files, metadata, nil) {
		s.logger.Info("batch cancelled by caller before upload")
		return s.summary(0, 0, 0)
	}

	var success, failed int
	for i, file := range files {
		meta := metadata[i]
		if meta.PrivacyStatus == "" {
			meta.PrivacyStatus = s.cfg.DefaultPrivacy
		}

		s.logger.Info("uploading",
			logging.Int("position", i+1),
			logging.Int("total", len(files)),
			logging.String("file", filepath.Base(file)),
			logging.String("title", meta.Title))

		for {
			ok, err := s.quota.CanUpload()
			if err != nil {
				return Summary{}, err
			}
			if ok {
				break
			}
			if err := s.quota.WaitForReset(ctx); err != nil {
				return Summary{}, err
			}
		}

		videoID, err := s.upload(ctx, file, meta)
		if err != nil {
			if ctx.Err() != nil {
				return Summary{}, ctx.Err()
			}
			s.logger.Error("upload failed",
				logging.String("file", filepath.Base(file)),
				logging.Error(err))
			if recordErr := s.quota.RecordFailure(file, err.Error()); recordErr != nil {
				return Summary{}, recordErr
			}
			failed++
			continue
		}

		// The video is live at this point. A state-persistence failure must
		// abort the batch, never masquerade as a failed upload.
		if err := s.quota.RecordSuccess(file, videoID); err != nil {
			return Summary{}, err
		}
		s.logger.Info("upload succeeded",
			logging.String("file", filepath.Base(file)),
			logging.String("video_id", videoID))
		success++

		if meta.PlaylistID != "" {
			if err := s.service.AddToPlaylist(ctx, videoID, meta.PlaylistID); err != nil {
				// Playlist placement is best-effort; the video is already live.
				s.logger.Warn("failed to add video to playlist",
					logging.String("video_id", videoID),
					logging.String("playlist_id", meta.PlaylistID),
					logging.Error(err))
			}
		}
	}

	summary, err := s.summary(len(files), success, failed)
	if err != nil {
		return Summary{}, err
	}
	s.logger.Info("batch complete",
		logging.Int("total", summary.Total),
		logging.Int("success", summary.Success),
		logging.Int("failed", summary.Failed),
		logging.Int("uploads_today", summary.UploadsToday))
	return summary, nil
}

// upload performs the bounded-retry upload for a single file and returns the
// platform's video ID.
func (s *Scheduler) upload(ctx context.Context, file string, meta VideoMetadata) (string, error) {
	var videoID string
	err := withRetry(ctx, s.cfg.MaxRetries, s.sleep, s.logger, func() error {
		var err error
		videoID, err = s.service.Upload(ctx, file, meta, func(fraction float64) {
			s.logger.Debug("upload progress",
				logging.String("file", filepath.Base(file)),
				logging.Int("percent", int(fraction*100)))
		})
		return err
	})
	return videoID, err
}

func (s *Scheduler) summary(total, success, failed int) (Summary, error) {
	state, err := s.quota.Snapshot()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Total:        total,
		Success:      success,
		Failed:       failed,
		UploadsToday: state.UploadsToday,
		QuotaReset:   state.QuotaResetTime,
	}, nil
}
