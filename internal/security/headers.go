package security

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// apiContentSecurityPolicy forbids everything; the service only serves JSON
const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware(enableHSTS bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")

		// swagger-ui needs its own scripts and styles
		if !strings.HasPrefix(c.Request.URL.Path, "/swagger/") {
			c.Header("Content-Security-Policy", apiContentSecurityPolicy)
		}

		if enableHSTS {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
