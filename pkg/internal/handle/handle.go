// Package handle 提供 HTTP 请求处理器. 处理器只做参数绑定、身份提取与错误映射，业务逻辑在 service 包.
package handle

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/internal/types"
	"github.com/yeisme/blobdrive/pkg/internal/vfs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
	"github.com/yeisme/blobdrive/pkg/middleware"
	"github.com/yeisme/blobdrive/pkg/rule"
)

func init() {
	// 让 gin 的绑定校验使用 rule 标签与自定义规则
	rule.Engine()
}

// identity 返回调用方身份；缺失时写入 401 并返回 false.
func identity(c *gin.Context) (string, bool) {
	id := vfs.NormalizeIdentity(middleware.Identity(c))
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "unauthorized"})
		return "", false
	}

	return id, true
}

// bind 按请求方法绑定 query/form 或 JSON body，失败时写入 400.
func bind(c *gin.Context, req any) bool {
	var err error
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodDelete {
		err = c.ShouldBindQuery(req)
	} else {
		err = c.ShouldBind(req)
	}

	if err == nil {
		return true
	}

	nlog.Ctx(c.Request.Context()).Debug().Err(err).Msg("invalid request")

	resp := types.ErrorResponse{Error: "invalid request"}
	if fields := rule.Errors(err); fields != nil {
		resp.Fields = fields
	} else {
		resp.Details = err.Error()
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, resp)

	return false
}

// statusOf 将错误分类映射为 HTTP 状态码.
func statusOf(err error) int {
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vfs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, vfs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, vfs.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, vfs.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail 写入错误响应. 503 附带底层原因，其余只在 4xx 时附带.
func fail(c *gin.Context, err error) {
	status := statusOf(err)

	resp := types.ErrorResponse{Error: http.StatusText(status)}

	var verr *vfs.Error
	if errors.As(err, &verr) {
		resp.Error = verr.Kind.Error()
		if status != http.StatusInternalServerError {
			resp.Details = verr.Detail()
		}
	} else if status == http.StatusServiceUnavailable {
		resp.Details = err.Error()
	}

	logger := nlog.Ctx(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}
