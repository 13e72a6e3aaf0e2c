package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"richdocServer/backend/internal/authservice"
)

// AuthMiddleware 本地校验 JWT，把 userId/username 写进 gin.Context。
// 认证服务与协作服务同进程部署，共享签名密钥，不需要远程 verify 调用。
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := authservice.ExtractBearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			// 兼容 WebSocket：浏览器升级请求无法带自定义 Header，允许 ?token=
			tokenString = strings.TrimSpace(c.Query("token"))
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHENTICATED",
				"message": "Authorization header is missing or invalid",
			})
			return
		}

		claims, err := authservice.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHENTICATED",
				"message": "invalid token",
			})
			return
		}
		if claims.Type != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHENTICATED",
				"message": "access token required",
			})
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}
