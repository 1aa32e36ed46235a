// Package redact scrubs secrets and internal detail from strings bound for
// logs. Errors surfacing from the database driver, the migration runner, or
// the config loader can embed connection credentials, SQL text carrying
// learner values, filesystem paths, and host addresses; every logged error
// string passes through here so shipped logs stay safe to aggregate.
//
// Diagnostic phrasing ("syntax error", "file not found") is deliberately
// preserved. The output is read by operators, and scrubbing the words that
// explain a failure would cost debuggability without hiding any secret.
package redact

import "regexp"

// Placeholders substituted for matched fragments.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

// rule pairs a pattern with the placeholder that replaces its matches.
type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// rules apply in order, and earlier rules consume text before later ones see
// it. Credentials must run before the host rule so the userinfo segment of a
// connection string is gone by the time the hostname matches; paths must run
// before hosts so a dotted filename is not mistaken for a hostname.
var rules = []rule{
	// Connection-string credentials: everything between scheme and @.
	{regexp.MustCompile(`(?i)postgres(?:ql)?://[^@\s]+@`), RedactedCredentialPlaceholder},
	// Password-style assignments in messages or dumped configuration.
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
	// Token and key assignments.
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|key)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), RedactedKeyPlaceholder},
	// Goroutine dumps and panic traces.
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), RedactedStackPlaceholder},
	// SQL statements; driver errors can quote the failing query, learner
	// values included.
	{regexp.MustCompile(`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)[\s\w,*()]+(?:FROM|INTO|SET|TABLE|INDEX)(?:[\s\w,*()='"]+)?`), RedactedSQLPlaceholder},
	// Filesystem paths, unix then windows.
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`), RedactedPathPlaceholder},
	// Dotted host names with an optional port.
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`), RedactedHostPlaceholder},
}

// String returns input with every sensitive fragment replaced by its
// placeholder.
func String(input string) string {
	if input == "" {
		return input
	}

	for _, r := range rules {
		input = r.pattern.ReplaceAllString(input, r.placeholder)
	}

	return input
}

// Error redacts an error's message. A nil error yields the empty string.
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
