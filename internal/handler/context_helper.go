package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-console-api/internal/middleware"
	"github.com/noah-isme/lms-console-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requestMeta captures the request-derived audit fields. The first hop of
// X-Forwarded-For wins over the socket address when a proxy set it.
func requestMeta(c *gin.Context) models.RequestMeta {
	meta := models.RequestMeta{
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Referer:   c.GetHeader("Referer"),
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	}
	if claims := claimsFromContext(c); claims != nil {
		meta.UserID = claims.UserID
		meta.UserEmail = claims.Email
		meta.UserRole = claims.Role
	}
	return meta
}

func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		if ip := strings.TrimSpace(forwarded); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}
