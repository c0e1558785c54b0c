package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/configs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

// IdentityKey gin.Context 中保存调用方身份的键.
const IdentityKey = "identity"

// AuthMiddleware 读取前置代理（如 oauth2-proxy）注入的身份请求头.
//   - 按配置顺序读取请求头，默认 X-Auth-Request-Email、X-Forwarded-Email
//   - 配置的路径前缀跳过校验（如 /metrics、/blob/）
//   - 开发模式可用 ?user= 兜底（auth.dev_allow_query）
//
// 关闭校验时仍然尽量识别身份，只是不拒绝匿名请求.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	headers := conf.Headers
	if len(headers) == 0 {
		headers = []string{"X-Auth-Request-Email", "X-Forwarded-Email"}
	}

	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		identity := ""

		for _, h := range headers {
			if identity = strings.TrimSpace(c.GetHeader(h)); identity != "" {
				break
			}
		}

		if identity == "" && conf.DevAllowQuery {
			identity = strings.TrimSpace(c.Query("user"))
		}

		if identity == "" {
			if conf.Enabled {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}

			c.Next()

			return
		}

		c.Set(IdentityKey, identity)
		c.Request = c.Request.WithContext(nlog.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// Identity 返回当前请求的调用方身份，未识别时为空串.
func Identity(c *gin.Context) string {
	return c.GetString(IdentityKey)
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
