package monitoring

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLogger_SettlementLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo)

	logger.SettlementLogger("june", 3, 1, 2, 0, "0.0938", 15*time.Millisecond)

	entry := lastLine(t, &buf)
	assert.Equal(t, "june", entry["batch_id"])
	assert.Contains(t, entry, "timestamp")
	assert.NotContains(t, entry, "time")
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.SetLevel(slog.LevelDebug)
	logger.Debug("shown")
	assert.Equal(t, "shown", lastLine(t, &buf)["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"loud":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}

func TestMetrics_RewardCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordReward("")
	m.RecordReward("")
	m.RecordReward("UnknownPlatform")
	m.RecordSettlementItem("settled")
	m.RecordSettlementItem("rejected")
	m.RecordSettlementItem("settled")
	m.RecordBatch(false)
	m.RecordBatch(true)

	stats := m.GetRewardStats()
	assert.Equal(t, int64(2), stats["computed"])
	assert.Equal(t, map[string]int64{"UnknownPlatform": 1}, stats["rejected_by_kind"])
	assert.Equal(t, map[string]int64{"settled": 2, "rejected": 1}, stats["settlement_items"])
	assert.Equal(t, int64(1), stats["settled_batches"])
	assert.Equal(t, int64(1), stats["aborted_batches"])
}

func TestMetrics_Percentiles(t *testing.T) {
	m := NewMetrics()
	for i := 1; i <= 100; i++ {
		m.RecordResponseTime(time.Duration(i) * time.Millisecond)
	}

	assert.InDelta(t, float64(50*time.Millisecond), float64(m.GetPercentileResponseTime(50)), float64(2*time.Millisecond))
	assert.InDelta(t, float64(99*time.Millisecond), float64(m.GetPercentileResponseTime(99)), float64(2*time.Millisecond))
}

func TestMonitoringMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	metrics := NewMetrics()

	router := gin.New()
	router.Use(MonitoringMiddleware(metrics, NewLoggerTo(&buf, slog.LevelInfo)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

	for _, path := range []string{"/ok", "/bad", "/ok"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats["total_requests"])
	assert.Equal(t, int64(1), stats["error_count"])
	assert.Equal(t, map[int]int64{200: 2, 422: 1}, metrics.GetStatusCodeDistribution())
	assert.Contains(t, buf.String(), `"path":"/bad"`)
}

func TestSecurityMonitoringMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	router := gin.New()
	router.Use(SecurityMonitoringMiddleware(NewLoggerTo(&buf, slog.LevelInfo), 16))
	router.POST("/v1/settlements", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/v1/settlements", strings.NewReader(`{"records": "too large"}`))
	req.Header.Set("User-Agent", "Mozilla/5.0")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, "flagged requests still pass through")
	assert.Contains(t, buf.String(), "large_request_body")

	buf.Reset()
	req = httptest.NewRequest(http.MethodPost, "/v1/settlements", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Contains(t, buf.String(), "suspicious_user_agent")
}
