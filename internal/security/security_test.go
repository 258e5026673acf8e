package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestValidateIdentifier(t *testing.T) {
	sm := NewSecurityMiddleware(SecurityConfig{MaxIdentifierLength: 16})

	tests := []struct {
		name        string
		input       string
		expectError bool
	}{
		{name: "simple", input: "summer-launch"},
		{name: "with version separator", input: "acme:q3.v2"},
		{name: "empty", input: "", expectError: true},
		{name: "too long", input: strings.Repeat("a", 17), expectError: true},
		{name: "null byte", input: "abc\x00", expectError: true},
		{name: "invalid utf-8", input: "abc\xff", expectError: true},
		{name: "path traversal", input: "../etc", expectError: true},
		{name: "spaces", input: "summer launch", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.ValidateIdentifier("campaign_id", tt.input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SecurityHeadersMiddleware(true))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/swagger/*any", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, apiContentSecurityPolicy, w.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))
}

func TestValidateContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	router := gin.New()
	router.Use(sm.ValidateContentType)
	router.POST("/v1/rewards/compute", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/v1/settlements/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		status      int
	}{
		{"json", http.MethodPost, "/v1/rewards/compute", "application/json", http.StatusOK},
		{"json with charset", http.MethodPost, "/v1/rewards/compute", "application/json; charset=utf-8", http.StatusOK},
		{"form", http.MethodPost, "/v1/rewards/compute", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing", http.MethodPost, "/v1/rewards/compute", "", http.StatusUnsupportedMediaType},
		{"get ignores content type", http.MethodGet, "/v1/settlements/x", "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sm := NewSecurityMiddleware(SecurityConfig{MaxBodyBytes: 8})

	router := gin.New()
	router.Use(sm.LimitBody)
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"0123456789"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sm := NewSecurityMiddleware(SecurityConfig{RequestTimeout: 2 * time.Second})

	router := gin.New()
	router.Use(sm.RequestTimeout)
	router.GET("/x", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "2", w.Header().Get("X-Timeout"))
}

func TestOperatorAuth_TokenLifecycle(t *testing.T) {
	_, err := NewOperatorAuth("short", nil)
	assert.Error(t, err)

	auth, err := NewOperatorAuth(testSecret, nil)
	require.NoError(t, err)

	token, err := auth.IssueToken("ops@acme", time.Hour)
	require.NoError(t, err)

	operator, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@acme", operator)

	expired, err := auth.IssueToken("ops@acme", -time.Minute)
	require.NoError(t, err)
	_, err = auth.ValidateToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other, err := NewOperatorAuth("ffffffffffffffffffffffffffffffff", nil)
	require.NoError(t, err)
	forged, err := other.IssueToken("mallory", time.Hour)
	require.NoError(t, err)
	_, err = auth.ValidateToken(forged)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestOperatorAuth_RejectsOtherRoles(t *testing.T) {
	auth, err := NewOperatorAuth(testSecret, nil)
	require.NoError(t, err)

	claims := OperatorClaims{
		Role: "creator",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			Issuer:    operatorIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.Error(t, err)
}

func TestOperatorAuth_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	auth, err := NewOperatorAuth(testSecret, nil)
	require.NoError(t, err)
	token, err := auth.IssueToken("ops@acme", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.POST("/write", auth.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(OperatorContextKey))
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/write", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "ops@acme", w.Body.String())
			} else {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}
