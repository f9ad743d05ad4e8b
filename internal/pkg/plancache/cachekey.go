package plancache

import (
	"sort"
	"strings"
)

// CacheKey builds the canonical cache key for a plan query. Parameters are
// sorted by name so two logically identical queries always share a key no
// matter how the caller ordered them.
func CacheKey(tdspDuns string, params map[string]string) string {
	merged := make(map[string]string, len(params)+1)
	for k, v := range params {
		merged[k] = v
	}
	merged["tdsp_duns"] = tdspDuns

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+merged[k])
	}
	return "plans:" + strings.Join(parts, "&")
}
