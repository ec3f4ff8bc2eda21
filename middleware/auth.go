package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

// bearerToken extracts the token from the Authorization header. code is the
// business error code when the header is malformed, 0 when it is absent.
func bearerToken(ctx *gin.Context) (token string, code int, msg string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", 40101, "authorization header missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", 40103, "empty bearer token"
	}
	return token, 0, ""
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, code, msg := bearerToken(ctx)
		if code != 0 {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous or badly authenticated requests through as anonymous.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if tokenString, code, _ := bearerToken(ctx); code == 0 {
			if claims, err := utils.ParseToken(secret, tokenString); err == nil {
				ctx.Set(ContextUserIDKey, claims.UserID)
				ctx.Set(ContextUsernameKey, claims.Username)
			}
		}
		ctx.Next()
	}
}
