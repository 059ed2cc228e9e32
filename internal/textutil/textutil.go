// Package textutil cleans externally supplied metadata text before it is sent
// to the upload service.
package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanTitle NFC-normalizes a title and collapses internal whitespace.
// Metadata files are often assembled from filenames; macOS filesystems hand
// those back in decomposed form, which YouTube renders with visible artifacts.
func CleanTitle(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// CleanTags normalizes each tag and drops empties and duplicates, keeping the
// original order.
func CleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned := CleanTitle(tag)
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}
