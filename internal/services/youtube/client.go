package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"cvcutter/internal/logging"
	"cvcutter/internal/services"
	"cvcutter/internal/uploader"
)

// Config controls upload requests against the Data API.
type Config struct {
	// ChunkSizeMiB is the resumable upload chunk size.
	ChunkSizeMiB int
	// CategoryID is the numeric video category ("10" is Music).
	CategoryID string
	// Language is the default metadata language tag.
	Language string
}

// Client implements uploader.Service against the YouTube Data API v3.
type Client struct {
	service *youtube.Service
	cfg     Config
	logger  *slog.Logger
}

// New builds a Client from an authorized token source.
func New(ctx context.Context, cfg Config, ts oauth2.TokenSource, logger *slog.Logger) (*Client, error) {
	svc, err := youtube.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "create service",
			"failed to initialize API client", err)
	}
	return &Client{
		service: svc,
		cfg:     cfg,
		logger:  logging.WithComponent(logger, "youtube"),
	}, nil
}

// Upload performs one resumable video insert and returns the assigned video
// ID. progress receives completion fractions in [0,1] as chunks land.
func (c *Client) Upload(ctx context.Context, filePath string, meta uploader.VideoMetadata, progress func(fraction float64)) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "upload", "open video", filePath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "upload", "stat video", filePath, err)
	}
	size := info.Size()

	call := c.service.Videos.Insert([]string{"snippet", "status"}, buildVideo(meta, c.cfg))
	call.Media(file, googleapi.ChunkSize(c.cfg.ChunkSizeMiB*1024*1024))
	if progress != nil && size > 0 {
		call.ProgressUpdater(func(current, total int64) {
			progress(float64(current) / float64(size))
		})
	}

	c.logger.Info("starting resumable upload",
		logging.String("file", filepath.Base(filePath)),
		logging.String("title", meta.Title),
		logging.Int("size_mib", int(size/(1024*1024))))

	video, err := call.Context(ctx).Do()
	if err != nil {
		return "", classify("insert video", filePath, err)
	}
	if progress != nil {
		progress(1.0)
	}
	return video.Id, nil
}

// AddToPlaylist appends the uploaded video to the given playlist.
func (c *Client) AddToPlaylist(ctx context.Context, videoID, playlistID string) error {
	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}
	if _, err := c.service.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
		return classify("insert playlist item", videoID, err)
	}
	return nil
}

// buildVideo maps publish metadata onto the API resource.
func buildVideo(meta uploader.VideoMetadata, cfg Config) *youtube.Video {
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:           meta.Title,
			Description:     meta.Description,
			Tags:            meta.Tags,
			CategoryId:      cfg.CategoryID,
			DefaultLanguage: cfg.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.PrivacyStatus,
			SelfDeclaredMadeForKids: false,
			// The zero value is meaningful here and must be serialized.
			ForceSendFields: []string{"SelfDeclaredMadeForKids"},
		},
	}
}

// retriableStatuses are the server-side failures worth retrying. Client
// errors (quota exhaustion included) are permanent for a given request.
var retriableStatuses = map[int]bool{
	500: true,
	502: true,
	503: true,
	504: true,
}

// classify maps API failures onto the shared error taxonomy so the caller's
// retry policy stays transport-agnostic.
func classify(operation, subject string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := fmt.Sprintf("%s: server returned %d", subject, apiErr.Code)
		if retriableStatuses[apiErr.Code] {
			return services.Wrap(services.ErrTransient, "upload", operation, message, err)
		}
		return services.Wrap(services.ErrExternalTool, "upload", operation, message, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTransient, "upload", operation, subject+": network failure", err)
	}
	return services.Wrap(services.ErrExternalTool, "upload", operation, subject, err)
}
