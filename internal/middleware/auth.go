package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/tenantguard/internal/auth"
	"github.com/charlesng35/tenantguard/internal/sessionctx"
	"github.com/charlesng35/tenantguard/pkg/errors"
	"github.com/charlesng35/tenantguard/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
)

// Auth validates the bearer token and attaches the caller session to the request context.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c)
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)

		ctx := sessionctx.WithSession(c.Request.Context(), sessionctx.Session{
			UserID:    claims.UserID,
			Username:  claims.Username,
			IPAddress: c.ClientIP(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}
