package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/sessionctx"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// actorID is the authenticated caller, or "" when the route is unauthenticated.
func actorID(c *gin.Context) string {
	session, ok := sessionctx.FromContext(requestContext(c))
	if !ok {
		return ""
	}
	return session.UserID
}
