package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/internal/types"
)

// CreateShare 为自己的文件创建分享链接.
//
//	@Summary		创建分享
//	@Description	只能分享自己名下且不在回收站中的文件
//	@Tags			分享
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.CreateShareRequest	true	"文件与有效天数"
//	@Success		201		{object}	types.CreateShareResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		404		{object}	types.ErrorResponse
//	@Router			/api/v1/shares [post]
func CreateShare(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.CreateShareRequest
	if !bind(c, &req) {
		return
	}

	resp, err := service.NewShareService(c.Request.Context()).CreateLink(c.Request.Context(), user, req.FileID, req.ExpiryDays)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListShares 列出自己仍然有效的分享链接.
//
//	@Summary	分享列表
//	@Tags		分享
//	@Produce	json
//	@Success	200	{object}	types.ListSharesResponse
//	@Router		/api/v1/shares [get]
func ListShares(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	resp, err := service.NewShareService(c.Request.Context()).ListLinks(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResolveShare 解析分享链接. 任何已认证的调用方都可以解析.
//
//	@Summary	解析分享
//	@Tags		分享
//	@Produce	json
//	@Param		shareId	path		string	true	"分享 ID"
//	@Success	200		{object}	types.ResolveShareResponse
//	@Failure	403		{object}	types.ErrorResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/v1/shares/{shareId} [get]
func ResolveShare(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	resp, err := service.NewShareService(c.Request.Context()).ResolveLink(c.Request.Context(), user, c.Param("shareId"))
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, resp)
}
