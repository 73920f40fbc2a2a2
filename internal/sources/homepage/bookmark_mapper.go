package homepage

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

var ErrNoBookmarks = errors.New("no valid bookmarks found in config")

// Entry is one importable bookmark. Category becomes its tag.
type Entry struct {
	URL         string
	Title       string
	Description string
	Category    string
}

// MapBookmarks flattens a BookmarksConfig in file order. Entries without an
// http(s) href are skipped; a repeated href keeps its first occurrence.
func MapBookmarks(config BookmarksConfig) ([]Entry, error) {
	entries := make([]Entry, 0)
	seen := make(map[string]struct{})

	for _, category := range config {
		for _, categoryName := range sortedKeys(category) {
			for _, bookmarkMap := range category[categoryName] {
				for _, bookmarkName := range sortedKeys(bookmarkMap) {
					entryList := bookmarkMap[bookmarkName]
					// Each bookmark has a list with a single entry
					if len(entryList) == 0 {
						continue
					}
					entry := entryList[0]

					href := strings.TrimSpace(entry.Href)
					if !isHTTPURL(href) {
						continue
					}
					if _, dup := seen[href]; dup {
						continue
					}
					seen[href] = struct{}{}

					// Use Abbr if present, otherwise use bookmark name
					title := strings.TrimSpace(entry.Abbr)
					if title == "" {
						title = bookmarkName
					}

					entries = append(entries, Entry{
						URL:         href,
						Title:       title,
						Description: strings.TrimSpace(entry.Description),
						Category:    categoryName,
					})
				}
			}
		}
	}

	if len(entries) == 0 {
		return nil, ErrNoBookmarks
	}
	return entries, nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
