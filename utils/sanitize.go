package utils

import "regexp"

var (
	credentialPairs = regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|token|api[_-]?key|authorization)\s*=\s*[^\s&;,]+`)
	urlCredentials  = regexp.MustCompile(`://[^/@\s]+@`)
	bearerValues    = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`)
)

// SanitizeError strips credential-looking fragments from error text before it
// is logged or surfaced anywhere.
func SanitizeError(msg string) string {
	msg = credentialPairs.ReplaceAllString(msg, "${1}=[redacted]")
	msg = urlCredentials.ReplaceAllString(msg, "://[redacted]@")
	msg = bearerValues.ReplaceAllString(msg, "bearer [redacted]")
	return msg
}
