package redlock

import (
	"sort"
	"strings"
)

// canonicalizeKeys validates and normalizes a resource key vector: every
// element must be non-empty and not whitespace-only, duplicates are removed,
// and the remainder is sorted in lexicographic ascending order. It returns
// the canonicalized keys plus, in original relative order, the duplicates
// that were removed.
func canonicalizeKeys(keys []string) (canonical []string, removed []string, err error) {
	if len(keys) == 0 {
		return nil, nil, invalidParameter("key vector must be non-empty")
	}

	seen := make(map[string]struct{}, len(keys))
	unique := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return nil, nil, invalidParameter("key vector elements must be non-empty, non-whitespace strings")
		}
		if _, ok := seen[k]; ok {
			removed = append(removed, k)
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
	}

	sort.Strings(unique)
	return unique, removed, nil
}
