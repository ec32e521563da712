package escalation

import "strings"

// sensitiveKeywords flags topics that always require human handling:
// legal threats, fraud, safety, and privacy/data requests.
var sensitiveKeywords = []string{
	"lawyer", "lawsuit", "legal action", "sue",
	"police", "fraud", "scam", "stolen",
	"safety", "dangerous", "injury", "injured", "hurt",
	"discrimination", "harassment",
	"cancel account", "delete my data", "gdpr",
}

// ContainsSensitiveTopic reports whether the message mentions a sensitive
// topic. Matching is case-insensitive substring search.
func ContainsSensitiveTopic(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
