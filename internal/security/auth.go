package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/buildersacademyai/prompto-sub000/internal/errors"
	"github.com/buildersacademyai/prompto-sub000/internal/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// OperatorContextKey is where OperatorAuth stores the authenticated operator
const OperatorContextKey = "operator"

const (
	operatorIssuer = "pfem"
	operatorRole   = "reward-operator"
)

// OperatorClaims identify a campaign operator allowed to publish configs and settle batches
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// OperatorAuth signs and verifies HS256 operator tokens
type OperatorAuth struct {
	secret []byte
	logger *monitoring.Logger
}

// NewOperatorAuth creates an authenticator. An empty secret is refused.
func NewOperatorAuth(secret string, logger *monitoring.Logger) (*OperatorAuth, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	return &OperatorAuth{secret: []byte(secret), logger: logger}, nil
}

// IssueToken creates a token for operator valid for ttl
func (a *OperatorAuth) IssueToken(operator string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := OperatorClaims{
		Role: operatorRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			Issuer:    operatorIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies tokenString and returns the operator it names
func (a *OperatorAuth) ValidateToken(tokenString string) (string, error) {
	var claims OperatorClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(operatorIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	if claims.Role != operatorRole {
		return "", fmt.Errorf("role %q may not operate campaigns", claims.Role)
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid operator bearer token
func (a *OperatorAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			a.deny(c, "missing bearer token", nil)
			return
		}

		operator, err := a.ValidateToken(tokenString)
		if err != nil {
			a.deny(c, "invalid operator token", err)
			return
		}

		c.Set(OperatorContextKey, operator)
		c.Next()
	}
}

func (a *OperatorAuth) deny(c *gin.Context, message string, cause error) {
	if a.logger != nil {
		details := map[string]interface{}{"path": c.Request.URL.Path}
		if cause != nil {
			details["reason"] = cause.Error()
		}
		a.logger.SecurityLogger("operator_auth_failed", c.ClientIP(), c.GetHeader("User-Agent"), details)
	}

	appErr := apperrors.NewUnauthorizedError(message, cause)
	appErr.RequestID = c.GetHeader("X-Request-ID")
	c.Header("WWW-Authenticate", `Bearer realm="pfem"`)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}
