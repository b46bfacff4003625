// Package logging builds the zap loggers used across the CLI and scrubs
// credentials from text before it is logged.
package logging

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	bearerPattern = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_.~+/]+=*`)
	// key=..., api_key: ..., x-goog-api-key=...
	apiKeyPattern = regexp.MustCompile(`(?i)((?:api[_-]?key|apikey|key|token)\s*[=:]\s*)[A-Za-z0-9\-_]{16,}`)
	// Provider key prefixes that show up bare in error messages.
	bareKeyPattern    = regexp.MustCompile(`\b(?:sk-(?:or-v1-|proj-)?[A-Za-z0-9\-_]{16,}|AIza[0-9A-Za-z\-_]{30,})`)
	passwordPattern   = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`)
)

// New builds a logger at level ("debug", "info", "warn", "error"). dev selects
// the human-readable console encoder; otherwise JSON lines go to stderr.
func New(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !isatty.IsTerminal(os.Stderr.Fd()) {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Redact removes API keys, bearer tokens and connection-string credentials.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}"+RedactedText)
	s = bareKeyPattern.ReplaceAllString(s, RedactedText)
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@")
	return s
}

// Error is a zap field carrying err's redacted text.
func Error(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", Redact(err.Error()))
}
