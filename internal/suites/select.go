package suites

import (
	"sort"
	"strings"
)

// Selection is the set of suites enabled by a list of changed files.
type Selection struct {
	Categories []string
	Suites     []string
}

// Select matches the first path segment of every changed file against the
// mapping keys. A key matches when it contains the segment, ignoring case, so
// "Audio/mixer.cpp" selects the "audio" category. Keys are tried in sorted
// order and results are de-duplicated, keeping first occurrence.
func Select(files []string, mapping map[string][]string) Selection {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		sel            Selection
		seenCategories = make(map[string]bool)
		seenSuites     = make(map[string]bool)
	)

	for _, file := range files {
		segment := strings.ToLower(topLevelSegment(file))
		if segment == "" {
			continue
		}

		for _, key := range keys {
			if !strings.Contains(strings.ToLower(key), segment) {
				continue
			}
			if !seenCategories[key] {
				seenCategories[key] = true
				sel.Categories = append(sel.Categories, key)
			}
			for _, suite := range mapping[key] {
				if !seenSuites[suite] {
					seenSuites[suite] = true
					sel.Suites = append(sel.Suites, suite)
				}
			}
		}
	}

	return sel
}

func topLevelSegment(path string) string {
	segment, _, _ := strings.Cut(path, "/")
	return segment
}
