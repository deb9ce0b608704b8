// Package grouping clusters imported file paths by inferred
// device/camera identity, so a batch import can default each cluster
// to its own Track.
package grouping

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var trailingDigits = regexp.MustCompile(`\d+$`)

// GroupFilesByDevice groups paths by a device key derived from the
// filename stem: trailing digits are stripped, then trailing
// separators (`_ - <space> .`); if nothing is left, the key falls
// back to the first 4 characters of the stem. Files within each group
// are sorted case-insensitively by filename.
func GroupFilesByDevice(paths []string) map[string][]string {
	groups := make(map[string][]string)

	for _, path := range paths {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if stem == "" {
			stem = "Import"
		}

		key := trailingDigits.ReplaceAllString(stem, "")
		key = strings.TrimRight(key, "_- .")
		if key == "" {
			n := len(stem)
			if n > 4 {
				n = 4
			}
			key = stem[:n]
		}

		groups[key] = append(groups[key], path)
	}

	for _, files := range groups {
		sort.Slice(files, func(i, j int) bool {
			return strings.ToLower(filepath.Base(files[i])) < strings.ToLower(filepath.Base(files[j]))
		})
	}

	return groups
}
