package uploader

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cvcutter/internal/services"
	"cvcutter/internal/textutil"
)

// VideoMetadata is the externally supplied publish metadata for one file.
type VideoMetadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	PrivacyStatus string   `json:"privacy_status"`
	PlaylistID    string   `json:"playlist_id"`
}

type metadataDocument struct {
	Videos []VideoMetadata `json:"videos"`
}

// LoadMetadata reads the metadata document. Entries are positionally aligned
// to the creation-time-sorted file list of the upload directory. Titles and
// tags are normalized on load.
func LoadMetadata(path string) ([]VideoMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "upload", "read metadata", path, err)
	}

	var doc metadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "upload", "parse metadata", path, err)
	}

	for i := range doc.Videos {
		doc.Videos[i].Title = textutil.CleanTitle(doc.Videos[i].Title)
		doc.Videos[i].Tags = textutil.CleanTags(doc.Videos[i].Tags)
		doc.Videos[i].PrivacyStatus = strings.ToLower(strings.TrimSpace(doc.Videos[i].PrivacyStatus))
		doc.Videos[i].PlaylistID = strings.TrimSpace(doc.Videos[i].PlaylistID)
	}
	return doc.Videos, nil
}

// validateCounts enforces the file/metadata pairing invariant.
func validateCounts(files []string, metadata []VideoMetadata) error {
	if len(files) == len(metadata) {
		return nil
	}
	return services.Wrap(services.ErrValidation, "upload", "preflight",
		fmt.Sprintf("%d video files but %d metadata entries", len(files), len(metadata)), nil)
}
