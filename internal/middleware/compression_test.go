package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompressedRouter(t *testing.T, minSize int) (*gin.Engine, *CompressionMiddleware) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config := DefaultCompressionConfig()
	config.MinSize = minSize
	cm := NewCompressionMiddleware(config)

	router := gin.New()
	router.Use(cm.Handler())
	router.GET("/large", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"items": strings.Repeat("settled ", 500)})
	})
	router.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/missing", func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": strings.Repeat("x", 2048)})
	})
	router.GET("/empty", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/binary", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", make([]byte, 4096))
	})
	return router, cm
}

func get(router *gin.Engine, path, acceptEncoding string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestCompression(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		wantStatus     int
		wantGzip       bool
	}{
		{name: "large json", path: "/large", acceptEncoding: "gzip, deflate", wantStatus: http.StatusOK, wantGzip: true},
		{name: "error body", path: "/missing", acceptEncoding: "gzip", wantStatus: http.StatusNotFound, wantGzip: true},
		{name: "small json", path: "/small", acceptEncoding: "gzip", wantStatus: http.StatusOK},
		{name: "client without gzip", path: "/large", wantStatus: http.StatusOK},
		{name: "gzip refused", path: "/large", acceptEncoding: "gzip;q=0", wantStatus: http.StatusOK},
		{name: "not compressible", path: "/binary", acceptEncoding: "gzip", wantStatus: http.StatusOK},
		{name: "no content", path: "/empty", acceptEncoding: "gzip", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newCompressedRouter(t, 1024)
			plain := get(router, tt.path, "")

			w := get(router, tt.path, tt.acceptEncoding)
			assert.Equal(t, tt.wantStatus, w.Code)

			if !tt.wantGzip {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
				assert.Equal(t, plain.Body.Bytes(), w.Body.Bytes())
				return
			}

			assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
			assert.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")
			assert.Less(t, w.Body.Len(), plain.Body.Len())

			gz, err := gzip.NewReader(w.Body)
			require.NoError(t, err)
			body, err := io.ReadAll(gz)
			require.NoError(t, err)
			assert.Equal(t, plain.Body.String(), string(body))
		})
	}
}

func TestCompressionStats(t *testing.T) {
	router, cm := newCompressedRouter(t, 1024)

	get(router, "/large", "gzip")
	get(router, "/large", "gzip")
	get(router, "/small", "gzip")

	stats := cm.Stats().GetStats()
	assert.Equal(t, int64(2), stats["compressed_responses"])
	assert.Equal(t, int64(1), stats["skipped_responses"])
	assert.Greater(t, stats["original_bytes"].(int64), stats["compressed_bytes"].(int64))
	assert.Less(t, stats["compression_ratio"].(float64), 1.0)
}

func TestAcceptsGzip(t *testing.T) {
	tests := map[string]bool{
		"":                 false,
		"gzip":             true,
		"br, GZIP":         true,
		"deflate":          false,
		"gzip;q=0":         false,
		"gzip;q=0.5, br":   true,
		"x-gzip-something": false,
	}

	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", header)
		assert.Equal(t, want, acceptsGzip(req), header)
	}
}
