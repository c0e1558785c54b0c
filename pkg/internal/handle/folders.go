package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/internal/types"
)

// CreateFolder 创建文件夹.
//
//	@Summary	创建文件夹
//	@Tags		文件夹
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.FolderRequest	true	"文件夹路径"
//	@Success	201		{object}	types.ItemResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Router		/api/v1/folders [post]
func CreateFolder(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.FolderRequest
	if !bind(c, &req) {
		return
	}

	it, err := service.NewFileService(c.Request.Context()).CreateFolder(c.Request.Context(), user, req.Path)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.ItemResponse{Message: "folder created", Item: it})
}

// DeleteFolder 软删除文件夹下的所有对象.
//
//	@Summary		删除文件夹（移入回收站）
//	@Description	文件夹在其中的对象全部恢复或永久删除前不再出现在列表中
//	@Tags			文件夹
//	@Produce		json
//	@Param			path	query		string	true	"文件夹路径"
//	@Success		200		{object}	types.DeleteFolderResponse
//	@Failure		404		{object}	types.ErrorResponse
//	@Router			/api/v1/folders [delete]
func DeleteFolder(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.FolderRequest
	if !bind(c, &req) {
		return
	}

	resp, err := service.NewFileService(c.Request.Context()).DeleteFolder(c.Request.Context(), user, req.Path)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecycleBin 列出回收站，最近删除的在前.
//
//	@Summary	回收站
//	@Tags		回收站
//	@Produce	json
//	@Success	200	{object}	types.TrashResponse
//	@Router		/api/v1/trash [get]
func RecycleBin(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	resp, err := service.NewFileService(c.Request.Context()).RecycleBin(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
