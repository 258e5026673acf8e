package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // responses smaller than this are sent as-is
	CompressionLevel int      // gzip level, 1 (fastest) to 9 (smallest)
	ContentTypes     []string // content types worth compressing
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"text/css",
			"application/javascript",
		},
	}
}

// CompressionMiddleware gzips large JSON responses such as settlement reports and config histories
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	if config.MinSize < 0 {
		config.MinSize = 0
	}
	if config.CompressionLevel < gzip.HuffmanOnly || config.CompressionLevel > gzip.BestCompression {
		config.CompressionLevel = gzip.DefaultCompression
	}

	cm := &CompressionMiddleware{
		config: config,
		stats:  &CompressionStats{},
	}
	cm.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, config.CompressionLevel)
		return gz
	}
	return cm
}

// Handler returns the gin middleware
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodHead || !acceptsGzip(c.Request) {
			c.Next()
			return
		}

		w := &gzipWriter{ResponseWriter: c.Writer, cm: cm}
		c.Writer = w
		defer func() {
			w.finish()
			c.Writer = w.ResponseWriter
		}()

		c.Next()
	}
}

// Stats returns the compression counters
func (cm *CompressionMiddleware) Stats() *CompressionStats {
	return cm.stats
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(strings.TrimSpace(name), "gzip") && strings.TrimSpace(params) != "q=0" {
			return true
		}
	}
	return false
}

func (cm *CompressionMiddleware) compressible(header http.Header) bool {
	if header.Get("Content-Encoding") != "" {
		return false
	}
	contentType := header.Get("Content-Type")
	for _, ct := range cm.config.ContentTypes {
		if strings.HasPrefix(contentType, ct) {
			return true
		}
	}
	return false
}

// gzipWriter buffers the body until it knows whether the response is big enough to compress
type gzipWriter struct {
	gin.ResponseWriter
	cm *CompressionMiddleware

	buf      bytes.Buffer
	gz       *gzip.Writer
	decided  bool
	original int64
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	w.original += int64(len(data))

	if w.decided {
		if w.gz != nil {
			return w.gz.Write(data)
		}
		return w.ResponseWriter.Write(data)
	}

	w.buf.Write(data)
	if w.buf.Len() >= w.cm.config.MinSize {
		if err := w.decide(true); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// WriteHeaderNow commits the headers, so nothing after it can be compressed
func (w *gzipWriter) WriteHeaderNow() {
	if !w.decided {
		if err := w.decide(false); err != nil {
			slog.Warn("Failed to write response", "error", err)
		}
	}
	w.ResponseWriter.WriteHeaderNow()
}

// Flush forces a decision so streamed responses are not held back
func (w *gzipWriter) Flush() {
	if !w.decided {
		if err := w.decide(w.buf.Len() >= w.cm.config.MinSize); err != nil {
			slog.Warn("Compression flush failed", "error", err)
			return
		}
	}
	if w.gz != nil {
		if err := w.gz.Flush(); err != nil {
			slog.Warn("Compression flush failed", "error", err)
			return
		}
	}
	w.ResponseWriter.Flush()
}

// decide settles on compressing or not and writes out whatever was buffered
func (w *gzipWriter) decide(large bool) error {
	w.decided = true

	header := w.ResponseWriter.Header()
	status := w.ResponseWriter.Status()
	if large && status != http.StatusNoContent && status != http.StatusNotModified && w.cm.compressible(header) {
		header.Set("Content-Encoding", "gzip")
		header.Add("Vary", "Accept-Encoding")
		header.Del("Content-Length")

		w.gz = w.cm.pool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
	}

	if w.buf.Len() == 0 {
		return nil
	}

	var err error
	if w.gz != nil {
		_, err = w.gz.Write(w.buf.Bytes())
	} else {
		_, err = w.ResponseWriter.Write(w.buf.Bytes())
	}
	w.buf.Reset()
	return err
}

func (w *gzipWriter) finish() {
	if !w.decided {
		if err := w.decide(false); err != nil {
			slog.Warn("Failed to write response", "error", err)
		}
	}
	if w.gz == nil {
		if w.original > 0 {
			w.cm.stats.recordSkipped()
		}
		return
	}

	if err := w.gz.Close(); err != nil {
		slog.Warn("Failed to close gzip writer", "error", err)
	}
	w.gz.Reset(io.Discard)
	w.cm.pool.Put(w.gz)
	w.gz = nil

	w.cm.stats.recordCompressed(w.original, int64(w.ResponseWriter.Size()))
}

// CompressionStats tracks compression performance
type CompressionStats struct {
	compressed      int64
	skipped         int64
	originalBytes   int64
	compressedBytes int64
}

func (s *CompressionStats) recordCompressed(original, compressed int64) {
	atomic.AddInt64(&s.compressed, 1)
	atomic.AddInt64(&s.originalBytes, original)
	atomic.AddInt64(&s.compressedBytes, compressed)
}

func (s *CompressionStats) recordSkipped() {
	atomic.AddInt64(&s.skipped, 1)
}

// GetStats returns a snapshot of the counters
func (s *CompressionStats) GetStats() map[string]interface{} {
	original := atomic.LoadInt64(&s.originalBytes)
	compressed := atomic.LoadInt64(&s.compressedBytes)

	ratio := 0.0
	if original > 0 {
		ratio = float64(compressed) / float64(original)
	}

	return map[string]interface{}{
		"compressed_responses": atomic.LoadInt64(&s.compressed),
		"skipped_responses":    atomic.LoadInt64(&s.skipped),
		"original_bytes":       original,
		"compressed_bytes":     compressed,
		"compression_ratio":    ratio,
	}
}
