// Package redact keeps API keys and passwords out of log lines and out of the
// error text shown in the terminal.
//
// Redaction works on string forms and is best effort. The caller registers
// the secret values it knows about (LLM API key, Redis password); attribute
// keys that look sensitive are masked regardless of value.
package redact

import (
	"log/slog"
	"strings"
)

const placeholder = "[REDACTED]"

// minSecretLen guards against masking common short substrings.
const minSecretLen = 4

// Redactor masks a fixed set of secret values.
type Redactor struct {
	secrets []string
}

// New returns a Redactor for the given secrets. Blank and short values are
// dropped.
func New(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		if len(s) >= minSecretLen {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// String replaces every occurrence of a registered secret with [REDACTED].
// A nil Redactor returns s unchanged.
func (r *Redactor) String(s string) string {
	if r == nil {
		return s
	}
	for _, v := range r.secrets {
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Error returns the redacted text of err, or "" for nil.
func (r *Redactor) Error(err error) string {
	if err == nil {
		return ""
	}
	return r.String(err.Error())
}

// ReplaceAttr is an slog.HandlerOptions.ReplaceAttr hook. It masks values of
// sensitive-looking keys and scrubs registered secrets from string and error
// values.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, placeholder)
	}
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.String(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, r.Error(err))
		}
	}
	return a
}

// isSensitiveKey reports whether an attribute name suggests a secret.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"password", "passwd", "secret", "api_key", "apikey", "authorization", "access_token"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
