package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsAllowMethods = strings.Join([]string{
		http.MethodGet,
		http.MethodPost,
		http.MethodDelete,
		http.MethodOptions,
	}, ", ")
	corsAllowHeaders = strings.Join([]string{
		"Origin",
		"Content-Type",
		"Accept",
		RequestIDHeader,
	}, ", ")
)

// CORS 跨域中间件
// 会话依赖 cookie，因此始终回显具体来源并允许携带凭据；allowOrigins 为空时不放行任何跨域来源
func CORS(allowOrigins []string) gin.HandlerFunc {
	allowAll := slices.Contains(allowOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || slices.Contains(allowOrigins, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Expose-Headers", RequestIDHeader)
			c.Header("Vary", "Origin")
		}

		// 预检请求直接返回
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", corsAllowMethods)
			c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
			c.Header("Access-Control-Max-Age", strconv.Itoa(86400))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
