package diag

import (
	"regexp"
)

const redacted = "[REDACTED]"

// Redactor handles sensitive data redaction from text
type Redactor struct {
	patterns []redactionPattern
}

type redactionPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor for the secrets that end up in installer
// environments, proxy URLs and logged commands
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactionPattern{
			// KEY=VALUE assignments, e.g. installer_env entries or logged env
			{
				regex:       regexp.MustCompile(`\b([A-Z_]*(?:KEY|TOKEN|SECRET|PASSWORD)[A-Z_]*)=([^\s"',]+)`),
				replacement: `$1=` + redacted,
			},
			// Credentials in URLs
			{
				regex:       regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)([^:/@\s]+):([^@/\s]+)@`),
				replacement: `$1$2:` + redacted + `@`,
			},
			// YAML-style secrets
			{
				regex:       regexp.MustCompile(`(?im)^(\s*[a-z_]*(?:token|secret|password|api_key)[a-z_]*):[ \t]*(\S.*)$`),
				replacement: `$1: ` + redacted,
			},
			// Bearer tokens
			{
				regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9_\-.=]+`),
				replacement: `Bearer ` + redacted,
			},
		},
	}
}

// Redact applies all redaction patterns to the input text
func (r *Redactor) Redact(input string) string {
	result := input
	for _, pattern := range r.patterns {
		result = pattern.regex.ReplaceAllString(result, pattern.replacement)
	}
	return result
}
