package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/buildersacademyai/prompto-sub000/internal/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxIdentifierLength int
	MaxBodyBytes        int64
	AllowedOrigins      []string
	RequestTimeout      time.Duration
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxIdentifierLength: 128,
		MaxBodyBytes:        4 << 20,
		AllowedOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
		RequestTimeout:      30 * time.Second,
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]*$`)

// SecurityMiddleware provides request hardening for the API
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	defaults := DefaultSecurityConfig()
	if config.MaxIdentifierLength <= 0 {
		config.MaxIdentifierLength = defaults.MaxIdentifierLength
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}

	return &SecurityMiddleware{config: config}
}

// Config returns the effective configuration
func (sm *SecurityMiddleware) Config() SecurityConfig {
	return sm.config
}

// ValidateIdentifier checks campaign, batch and record identifiers taken from paths and bodies
func (sm *SecurityMiddleware) ValidateIdentifier(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	if len(value) > sm.config.MaxIdentifierLength {
		return fmt.Errorf("%s exceeds maximum length of %d", name, sm.config.MaxIdentifierLength)
	}
	if !utf8.ValidString(value) || strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	if !identifierPattern.MatchString(value) {
		return fmt.Errorf("%s must start with a letter or digit and contain only letters, digits, '.', '_', ':' or '-'", name)
	}
	return nil
}

// ValidateContentType requires JSON bodies on writes
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if !strings.HasPrefix(contentType, "application/json") {
		appErr := apperrors.NewValidationError("unsupported content type", contentType)
		appErr.HTTPStatus = http.StatusUnsupportedMediaType
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
		return
	}

	c.Next()
}

// LimitBody caps request bodies at MaxBodyBytes
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if c.Request.ContentLength > sm.config.MaxBodyBytes {
		appErr := apperrors.NewValidationError("request body too large", sm.config.MaxBodyBytes)
		appErr.HTTPStatus = http.StatusRequestEntityTooLarge
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	c.Next()
}

// RequestTimeout bounds the request context; settlement batches observe it between records
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// CORS returns the gin-contrib CORS handler for the configured origins
func (sm *SecurityMiddleware) CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     sm.config.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
