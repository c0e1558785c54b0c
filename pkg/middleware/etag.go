package middleware

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
)

// DefaultMaxETagBody 超过该大小的响应不计算 ETag.
const DefaultMaxETagBody = 4 << 20

// bodyCaptureWriter 缓冲响应体，由 ETagMiddleware 决定最终写出 200 还是 304.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf    bytes.Buffer
	status int
}

func (w *bodyCaptureWriter) WriteHeader(code int) { w.status = code }

func (w *bodyCaptureWriter) WriteHeaderNow() {}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *bodyCaptureWriter) WriteString(s string) (int, error) { return w.buf.WriteString(s) }

func (w *bodyCaptureWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}

	return w.status
}

func (w *bodyCaptureWriter) Size() int { return w.buf.Len() }

func (w *bodyCaptureWriter) Written() bool { return w.status != 0 || w.buf.Len() > 0 }

// ETagMiddleware 为 GET 的 200 响应计算 xxhash ETag，If-None-Match 命中时返回 304.
// 只用于列表类的 JSON 响应；文件下载自行处理.
func ETagMiddleware(maxBody int) gin.HandlerFunc {
	if maxBody <= 0 {
		maxBody = DefaultMaxETagBody
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		orig := c.Writer
		bw := &bodyCaptureWriter{ResponseWriter: orig}
		c.Writer = bw

		c.Next()

		c.Writer = orig
		status := bw.Status()
		body := bw.buf.Bytes()

		if status == http.StatusOK && len(body) <= maxBody {
			etag := fmt.Sprintf(`"%x"`, xxhash.Sum64(body))
			orig.Header().Set("ETag", etag)

			if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
				orig.WriteHeader(http.StatusNotModified)
				orig.WriteHeaderNow()

				return
			}
		}

		orig.WriteHeader(status)
		_, _ = orig.Write(body)
	}
}
