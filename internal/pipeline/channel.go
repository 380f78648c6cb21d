package pipeline

import (
	"strings"

	"ledgerrecon/internal/util"
)

const channelParticular = "PARTICULAR"

// ResolveChannel returns the upper-cased platform when it names a known
// platform, PARTICULAR for any other text and "" when blank (not dispatched).
func ResolveChannel(platform string, known []string) string {
	clean := strings.ToUpper(strings.TrimSpace(platform))
	if util.IsBlankText(clean) {
		return ""
	}
	for _, k := range known {
		if strings.Contains(clean, strings.ToUpper(k)) {
			return clean
		}
	}
	return channelParticular
}
