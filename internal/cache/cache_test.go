package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/buildersacademyai/prompto-sub000/internal/monitoring"
	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGetExpire(t *testing.T) {
	c := NewCache(50 * time.Millisecond)
	defer c.Close()

	c.Set("k", []byte("v"))
	data, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), data)
	assert.Equal(t, 1, c.Size())

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size(), "expired entries are dropped on read")

	c.Set("a", []byte("1"))
	c.Clear()
	assert.Equal(t, 0, c.Size())
	assert.NoError(t, c.Close(), "closing twice is safe")
}

func TestCache_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := NewCache(time.Minute)
	defer c.Close()
	metrics := monitoring.NewMetrics()

	var calls int32
	router := gin.New()
	router.POST("/compute", c.Middleware(metrics), func(ctx *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		ctx.JSON(http.StatusOK, gin.H{"call": n})
	})
	router.POST("/fail", c.Middleware(metrics), func(ctx *gin.Context) {
		atomic.AddInt32(&calls, 1)
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "nope"})
	})

	do := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	first := do("/compute", `{"a":1}`)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do("/compute", `{"a":1}`)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	do("/compute", `{"a":2}`)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	do("/fail", `{"a":1}`)
	do("/fail", `{"a":1}`)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls), "error responses are not cached")

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats["cache_hits"])
}

type countingSource struct {
	calls  int32
	source settlement.StaticSource
}

func (s *countingSource) ResolveConfig(ctx context.Context, campaignID string, version int) (reward.CampaignRewardConfig, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.source.ResolveConfig(ctx, campaignID, version)
}

func TestConfigCache_CachesExplicitVersions(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Close()

	src := &countingSource{source: settlement.NewStaticSource(reward.CampaignRewardConfig{
		CampaignID:           "summer-launch",
		BaseRate:             0.01,
		PlatformWeight:       map[reward.Platform]float64{reward.PlatformTikTok: 1.2},
		CampaignDurationDays: 15,
	})}
	cc := NewConfigCache(src, c, monitoring.NewMetrics())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cfg, err := cc.ResolveConfig(ctx, "summer-launch", 1)
		require.NoError(t, err)
		assert.Equal(t, 1.2, cfg.PlatformWeight[reward.PlatformTikTok])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))

	for i := 0; i < 2; i++ {
		_, err := cc.ResolveConfig(ctx, "summer-launch", 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&src.calls), "latest is never served from cache")

	_, err := cc.ResolveConfig(ctx, "missing", 1)
	assert.ErrorIs(t, err, settlement.ErrConfigNotFound)
}
