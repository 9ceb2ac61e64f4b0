package common

import (
	"sort"
	"strings"

	z "github.com/Oudwins/zog"
)

// IssueText flattens zog issues into "field: message" pairs ordered by field.
func IssueText(issues z.ZogIssueMap) string {
	keys := make([]string, 0, len(issues))
	for key := range issues {
		if key == "$first" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		for _, issue := range issues[key] {
			parts = append(parts, key+": "+issue.Message)
		}
	}
	return strings.Join(parts, "; ")
}
