package observability

import (
	"go.uber.org/zap"
)

// Severity tiers security events: low for expected failed attempts, medium for
// suspicious patterns, critical for infrastructure errors.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityCritical Severity = "critical"
)

const tokenPrefixLen = 8

// SecurityLogger writes tiered security events and counts them.
type SecurityLogger struct {
	logger *zap.Logger
}

// NewSecurityLogger wraps logger. A nil logger discards output.
func NewSecurityLogger(logger *zap.Logger) *SecurityLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityLogger{logger: logger.Named("security")}
}

// Event logs name at the level matching severity.
func (s *SecurityLogger) Event(severity Severity, name string, fields ...zap.Field) {
	if s == nil {
		return
	}
	SecurityEventsTotal.WithLabelValues(name, string(severity)).Inc()

	fields = append(fields, zap.String("event", name), zap.String("severity", string(severity)))
	switch severity {
	case SeverityCritical:
		s.logger.Error("security event", fields...)
	case SeverityMedium:
		s.logger.Warn("security event", fields...)
	default:
		s.logger.Info("security event", fields...)
	}
}

// TokenPrefix returns the short fixed-length prefix that may appear in logs.
func TokenPrefix(token string) string {
	if len(token) <= tokenPrefixLen {
		return "***"
	}
	return token[:tokenPrefixLen] + "..."
}
