package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inair/warehouse/cache"
	"github.com/inair/warehouse/config"
)

const (
	UserIDKey  = "user_id"
	DroneIDKey = "drone_id"
)

// Auth validates the Bearer JWT of an operator and checks the session cache.
// A missing or expired token is always answered with 401, never ignored.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, tokenStr, ok := bearerClaims(ctx, sec)
		if !ok {
			return
		}
		if claims.Role != RoleOperator {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operator token required"})
			return
		}

		// Check session still valid in cache.
		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, "session:"+tokenStr)
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(UserIDKey, claims.UserID)
		ctx.Next()
	}
}

// DroneAuth validates the Bearer JWT of a drone. Drone tokens are
// provisioned out of band and are not session-cached.
func DroneAuth(sec config.SecurityConfig) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, _, ok := bearerClaims(ctx, sec)
		if !ok {
			return
		}
		if claims.Role != RoleDrone {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "drone token required"})
			return
		}
		ctx.Set(DroneIDKey, claims.DroneID)
		ctx.Next()
	}
}

func bearerClaims(ctx *gin.Context, sec config.SecurityConfig) (*Claims, string, bool) {
	header := ctx.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return nil, "", false
	}
	tokenStr := strings.TrimPrefix(header, "Bearer ")

	claims, err := ParseToken(tokenStr, sec.JWTSecret)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return nil, "", false
	}
	return claims, tokenStr, true
}

// GetUserID retrieves the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) int64 {
	if v, exists := c.Get(UserIDKey); exists {
		return v.(int64)
	}
	return 0
}

// GetDroneID retrieves the authenticated drone ID from the Gin context.
func GetDroneID(c *gin.Context) int64 {
	if v, exists := c.Get(DroneIDKey); exists {
		return v.(int64)
	}
	return 0
}
