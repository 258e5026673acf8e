package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/buildersacademyai/prompto-sub000/internal/errors"
	"github.com/buildersacademyai/prompto-sub000/internal/security"
	"github.com/gin-gonic/gin"
)

func setHeaders(c *gin.Context, prefix string, result *Result) {
	c.Header(prefix+"-Limit", strconv.Itoa(result.Limit))
	c.Header(prefix+"-Remaining", strconv.Itoa(result.Remaining))
	c.Header(prefix+"-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func reject(c *gin.Context, result *Result) {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))

	appErr := apperrors.NewRateLimitError(strconv.Itoa(retryAfter) + "s")
	appErr.RequestID = c.GetHeader("X-Request-ID")
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

// IPRateLimitMiddleware limits every request by client IP
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit", result)
		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitIPBlock()
			}
			reject(c, result)
			return
		}

		c.Next()
	}
}

// OperatorRateLimitMiddleware limits writes by the authenticated operator. It must run after
// the auth middleware; requests without an operator are passed through.
func (rl *RateLimiter) OperatorRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := c.GetString(security.OperatorContextKey)
		if operator == "" {
			c.Next()
			return
		}

		result, err := rl.AllowOperator(c.Request.Context(), operator)
		if err != nil {
			slog.Error("Operator rate limit check failed", "operator", operator, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit-Operator", result)
		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitEndpoint("operator:" + operator)
			}
			reject(c, result)
			return
		}

		c.Next()
	}
}

// EndpointRateLimitMiddleware limits one endpoint per client IP
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.Allow(c.Request.Context(), "ratelimit:endpoint:"+endpoint+":"+ip, PerMinute(limit))
		if err != nil {
			slog.Error("Endpoint rate limit check failed", "endpoint", endpoint, "ip", ip, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit-Endpoint", result)
		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitEndpoint(endpoint)
			}
			reject(c, result)
			return
		}

		c.Next()
	}
}

// HandleRateLimitStatus reports the limits that apply to the caller
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{
			"ip": c.ClientIP(),
			"limits": gin.H{
				"ip_per_minute":       rl.config.IPLimitPerMin,
				"operator_per_minute": rl.config.OperatorLimitPerMin,
			},
			"limiter": rl.GetStats(),
		}
		if operator := c.GetString(security.OperatorContextKey); operator != "" {
			status["operator"] = operator
		}

		c.JSON(http.StatusOK, status)
	}
}
