// Package envelope - Request audit logging
package envelope

import (
	"time"

	"go.uber.org/zap"
)

// AuditEntry is a log entry for one served request
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
}

// AuditLogger records served requests
type AuditLogger interface {
	Log(entry AuditEntry)
}

// ZapAuditLogger writes entries through a zap logger
type ZapAuditLogger struct {
	Logger *zap.Logger
}

// Log writes one entry. Server errors are logged at error level.
func (l *ZapAuditLogger) Log(entry AuditEntry) {
	fields := []zap.Field{
		zap.String("request_id", entry.RequestID),
		zap.String("method", entry.Method),
		zap.String("path", entry.Path),
		zap.Int("status", entry.Status),
		zap.String("client_ip", entry.ClientIP),
		zap.String("user_agent", entry.UserAgent),
		zap.Int64("duration_ms", entry.DurationMs),
	}
	switch {
	case entry.Status >= 500:
		l.Logger.Error("request", fields...)
	case entry.Status >= 400:
		l.Logger.Warn("request", fields...)
	default:
		l.Logger.Info("request", fields...)
	}
}

// NewAuditEntry starts an entry for a request
func NewAuditEntry(requestID, method, path, clientIP, userAgent string) AuditEntry {
	return AuditEntry{
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Method:    method,
		Path:      path,
		ClientIP:  clientIP,
		UserAgent: userAgent,
	}
}

// Finish records the outcome of the request
func (e *AuditEntry) Finish(status int, d time.Duration) {
	e.Status = status
	e.Success = status < 400
	e.DurationMs = d.Milliseconds()
}
