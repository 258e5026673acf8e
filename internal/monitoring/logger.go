package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger provides structured logging with domain helpers
type Logger struct {
	*slog.Logger
	out io.Writer
}

// NewLogger creates a JSON logger writing to stdout
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, slog.LevelInfo)
}

// NewLoggerTo creates a JSON logger writing to w at the given level
func NewLoggerTo(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(newHandler(w, level)),
		out:    w,
	}
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// RewardLogger logs a completed reward computation
func (l *Logger) RewardLogger(campaignID string, version int, platform string, total float64, payout string, duration time.Duration, cacheHit bool) {
	l.Info("Reward Computed",
		"campaign_id", campaignID,
		"config_version", version,
		"platform", platform,
		"total_reward", total,
		"payout", payout,
		"duration_us", duration.Microseconds(),
		"cache_hit", cacheHit,
	)
}

// RewardErrorLogger logs a rejected computation with the failed precondition
func (l *Logger) RewardErrorLogger(recordID, campaignID, kind, field, message string) {
	l.Warn("Reward Rejected",
		"record_id", recordID,
		"campaign_id", campaignID,
		"error_kind", kind,
		"field", field,
		"message", message,
	)
}

// SettlementLogger logs a finished settlement batch
func (l *Logger) SettlementLogger(batchID string, records, settled, rejected, needsReview int, totalPayout string, duration time.Duration) {
	level := slog.LevelInfo
	if rejected > 0 || needsReview > 0 {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "Settlement Batch",
		"batch_id", batchID,
		"records", records,
		"settled", settled,
		"rejected", rejected,
		"needs_review", needsReview,
		"total_payout", totalPayout,
		"duration_ms", duration.Milliseconds(),
	)
}

// APIErrorLogger logs API errors with context
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
	)
}

// SecurityLogger logs security-related events
func (l *Logger) SecurityLogger(event, ip, userAgent string, details map[string]interface{}) {
	attrs := []any{
		"event", event,
		"ip", ip,
		"user_agent", userAgent,
	}
	for key, value := range details {
		attrs = append(attrs, key, value)
	}

	l.Warn("Security Event", attrs...)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// PerformanceLogger logs performance metrics
func (l *Logger) PerformanceLogger(metric string, value float64, unit string) {
	l.Info("Performance Metric",
		"metric", metric,
		"value", value,
		"unit", unit,
	)
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level slog.Level) {
	l.Logger = slog.New(newHandler(l.out, level))
}

// ParseLevel maps a level name to slog, defaulting to info
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

var startTime = time.Now()
