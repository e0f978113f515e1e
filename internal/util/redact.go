package util

import (
	"regexp"
	"strings"
)

var (
	// Bearer tokens leak into error strings via HTTP client libraries.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// key=value style API keys, including the Gemini ?key= query parameter
	// that shows up in request URLs echoed by transport errors.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key|key)\b\s*[:=]\s*[^\s"'&]+`)
)

// RedactSecrets strips obvious secret-bearing substrings from error and log
// strings. Safe to call on any message, including model output.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}
