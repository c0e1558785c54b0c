package handle

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/internal/signer"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	"github.com/yeisme/blobdrive/pkg/internal/types"
	nlog "github.com/yeisme/blobdrive/pkg/log"
	"github.com/yeisme/blobdrive/pkg/metrics"
)

// BlobGateway 校验只读凭证后返回对象内容. 不要求调用方身份，凭证本身即授权.
//
//	@Summary	凭证下载
//	@Tags		网关
//	@Produce	octet-stream
//	@Param		container	path		string	true	"容器"
//	@Param		key			path		string	true	"对象键"
//	@Param		sig			query		string	true	"签名"
//	@Param		se			query		string	true	"过期时间"
//	@Param		sp			query		string	true	"权限"
//	@Param		sr			query		string	true	"资源类型"
//	@Success	200			{file}		binary
//	@Failure	403			{object}	types.ErrorResponse
//	@Failure	404			{object}	types.ErrorResponse
//	@Router		/blob/{container}/{key} [get]
func BlobGateway(c *gin.Context) {
	rt := service.RuntimeFrom(c.Request.Context())
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "unavailable"})
		return
	}

	container := c.Param("container")
	key := strings.TrimPrefix(c.Param("key"), "/")

	if container == "" || key == "" {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "not found"})
		return
	}

	if err := rt.Signer.VerifyReadCapability(container, key, c.Request.URL.Query(), rt.Now()); err != nil {
		metrics.CapabilityRejections.WithLabelValues(rejectReason(err)).Inc()
		nlog.Ctx(c.Request.Context()).Debug().Err(err).Str("container", container).Str("key", key).Msg("capability rejected")
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "forbidden", Details: err.Error()})

		return
	}

	obj, err := rt.Storage.Blob.Get(c.Request.Context(), container, key)
	if err != nil {
		if blob.IsNotFound(err) {
			c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "not found"})
			return
		}

		nlog.Ctx(c.Request.Context()).Error().Err(err).Str("container", container).Str("key", key).Msg("gateway read failed")
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "unavailable", Details: err.Error()})

		return
	}

	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(key)}))
	c.Header("Cache-Control", "private, no-store")

	if obj.ETag != "" {
		c.Header("ETag", obj.ETag)
	}

	c.Data(http.StatusOK, ct, obj.Body)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, signer.ErrCapabilityMissing):
		return "missing"
	case errors.Is(err, signer.ErrCapabilityExpired):
		return "expired"
	case errors.Is(err, signer.ErrCapabilityPermission):
		return "permission"
	default:
		return "invalid"
	}
}
