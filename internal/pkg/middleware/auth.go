package middleware

import (
	"net/http"
	"strings"

	"carforum/pkg/response"
	"carforum/pkg/utils"

	"github.com/gin-gonic/gin"
)

// 上下文中的身份字段
const (
	ContextUserID    = "userID"
	ContextUsername  = "username"
	ContextSessionID = "sessionID"
)

// bearerToken 解析 "Bearer <token>"
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c *gin.Context, claims *utils.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextSessionID, claims.SessionID)
}

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Authorization header is required")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware 可选认证：匿名访问放行，带合法 token 时注入身份
// 列表/搜索等只读接口使用，登录用户额外返回投票状态等字段
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			if claims, err := utils.ParseToken(tokenString); err == nil {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

// CurrentUserID 获取当前登录用户ID，匿名返回 0
func CurrentUserID(c *gin.Context) uint {
	val, _ := c.Get(ContextUserID)
	if id, ok := val.(uint); ok {
		return id
	}
	return 0
}

// CurrentSessionID 获取当前会话ID
func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
