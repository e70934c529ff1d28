package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"campus-sis/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// GetTokenInfo 提取当前 access token 的 jti 与过期时间（登出用）
func GetTokenInfo(c *gin.Context) (jti string, expiry time.Time) {
	if v, ok := c.Get("token_jti"); ok {
		jti, _ = v.(string)
	}
	if v, ok := c.Get("token_expiry"); ok {
		expiry, _ = v.(time.Time)
	}
	return jti, expiry
}
