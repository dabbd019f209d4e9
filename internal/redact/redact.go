// Package redact scrubs sensitive material from strings before they reach
// logs: connection strings, credentials, tokens, file paths, SQL fragments,
// and user email addresses. Raw errors from the driver and platform layers
// routinely embed all of these.
package redact

import "regexp"

// Redaction placeholders. Each rule substitutes its own so log readers can
// tell what kind of value was removed.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	TokenPlaceholder      = "[REDACTED_TOKEN]"
	PathPlaceholder       = "[REDACTED_PATH]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	HostPlaceholder       = "[REDACTED_HOST]"
	StackPlaceholder      = "[REDACTED_STACK]"
)

// rule pairs a pattern with the placeholder that replaces its matches.
type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// rules apply in order; earlier rules see the original text, later ones see
// prior substitutions. Connection strings go first so their passwords are
// consumed whole rather than partially by the credential rule.
var rules = []rule{
	// Database connection URLs with inline credentials
	{regexp.MustCompile(`(?i)(postgres|postgresql|mysql|redis)://[^@\s]+@`), CredentialPlaceholder},

	// password=..., pwd: '...'
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), CredentialPlaceholder},

	// API keys and generic secrets (Gemini keys, JWT signing secrets)
	{regexp.MustCompile(`(?i)(api[_-]?key|secret|token|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), KeyPlaceholder},

	// Signed JWTs (three base64url segments, header always starts with eyJ)
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), TokenPlaceholder},

	// Stack traces
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), StackPlaceholder},

	// Email addresses are user PII
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`), EmailPlaceholder},

	// SQL statements leaked from driver errors
	{regexp.MustCompile(`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)[\s\w,*()]+(?:FROM|INTO|SET|TABLE|DATABASE)(?:[\s\w,*()='"]+)?`), SQLPlaceholder},

	// Filesystem paths (the server only ever runs on Linux)
	{regexp.MustCompile(`(/[\w.-]+){2,}`), PathPlaceholder},

	// hostnames and host:port pairs
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`), HostPlaceholder},
}

// String returns the input with every rule's matches replaced by its
// placeholder.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts an error's message. A nil error yields the empty string.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
