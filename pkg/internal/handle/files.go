package handle

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/internal/types"
)

// ListFiles 列出一层目录，先文件夹后文件.
//
//	@Summary		列出目录
//	@Description	返回 path 的直接子项. 已软删除的文件，以及只含已软删除对象的文件夹不会出现
//	@Tags			文件
//	@Produce		json
//	@Param			path	query		string	false	"相对租户根目录的目录路径"
//	@Success		200		{object}	types.ListFilesResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		401		{object}	types.ErrorResponse
//	@Failure		503		{object}	types.ErrorResponse
//	@Router			/api/v1/files [get]
func ListFiles(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.ListFilesRequest
	if !bind(c, &req) {
		return
	}

	resp, err := service.NewFileService(c.Request.Context()).List(c.Request.Context(), user, req.Path)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UploadFile multipart 上传，文件在 file 字段，目标目录在 path 字段.
//
//	@Summary		上传文件
//	@Description	同名文件直接覆盖
//	@Tags			文件
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"文件内容"
//	@Param			path	formData	string	false	"目标目录"
//	@Param			name	formData	string	false	"文件名，默认取上传文件名"
//	@Success		201		{object}	types.ItemResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		413		{object}	types.ErrorResponse
//	@Failure		503		{object}	types.ErrorResponse
//	@Router			/api/v1/files [post]
func UploadFile(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.UploadFileRequest
	if !bind(c, &req) {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid request", Details: "missing file field"})
		return
	}

	if limit := maxUploadBytes(c); limit > 0 && fh.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
			Error:   "file too large",
			Details: "limit is " + strconv.FormatInt(limit, 10) + " bytes",
		})

		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		fail(c, err)
		return
	}

	name := req.Name
	if name == "" {
		name = path.Base(fh.Filename)
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}

	it, err := service.NewFileService(c.Request.Context()).Upload(c.Request.Context(), user, req.Path, name, body, ct)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.ItemResponse{Message: "file uploaded", Item: it})
}

// CreateFile 创建空文件.
//
//	@Summary	创建空文件
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.CreateFileRequest	true	"文件名与目录"
//	@Success	201		{object}	types.ItemResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	503		{object}	types.ErrorResponse
//	@Router		/api/v1/files/empty [post]
func CreateFile(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.CreateFileRequest
	if !bind(c, &req) {
		return
	}

	it, err := service.NewFileService(c.Request.Context()).CreateFile(c.Request.Context(), user, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.ItemResponse{Message: "file created", Item: it})
}

// DownloadFile 直接返回文件内容.
//
//	@Summary	下载文件
//	@Tags		文件
//	@Produce	octet-stream
//	@Param		path	query		string	true	"文件路径"
//	@Success	200		{file}		binary
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/v1/files/download [get]
func DownloadFile(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.PathRequest
	if !bind(c, &req) {
		return
	}

	f, err := service.NewFileService(c.Request.Context()).Download(c.Request.Context(), user, req.Path)
	if err != nil {
		fail(c, err)
		return
	}

	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	c.Data(http.StatusOK, ct, f.Body)
}

// SoftDeleteFile 把文件移入回收站.
//
//	@Summary	删除文件（移入回收站）
//	@Tags		文件
//	@Produce	json
//	@Param		path	query		string	true	"文件路径"
//	@Success	200		{object}	types.ItemResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/v1/files [delete]
func SoftDeleteFile(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.PathRequest
	if !bind(c, &req) {
		return
	}

	it, err := service.NewFileService(c.Request.Context()).SoftDelete(c.Request.Context(), user, req.Path)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ItemResponse{Message: "file moved to trash", Item: it})
}

// PermanentDeleteFile 立即删除文件.
//
//	@Summary	永久删除文件
//	@Tags		回收站
//	@Produce	json
//	@Param		path	query		string	true	"文件路径"
//	@Success	200		{object}	types.MessageResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/v1/files/permanent [delete]
func PermanentDeleteFile(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.PathRequest
	if !bind(c, &req) {
		return
	}

	if err := service.NewFileService(c.Request.Context()).PermanentDelete(c.Request.Context(), user, req.Path); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "file permanently deleted"})
}

// RestoreFile 从回收站恢复文件.
//
//	@Summary	恢复文件
//	@Tags		回收站
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.PathRequest	true	"文件路径"
//	@Success	200		{object}	types.ItemResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/v1/files/restore [post]
func RestoreFile(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.PathRequest
	if !bind(c, &req) {
		return
	}

	it, err := service.NewFileService(c.Request.Context()).Restore(c.Request.Context(), user, req.Path)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ItemResponse{Message: "file restored", Item: it})
}

// RenameFile 同目录改名.
//
//	@Summary		重命名文件
//	@Description	回收站中的文件需先恢复
//	@Tags			文件
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.RenameRequest	true	"文件路径与新名称"
//	@Success		200		{object}	types.ItemResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		404		{object}	types.ErrorResponse
//	@Router			/api/v1/files/rename [patch]
func RenameFile(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.RenameRequest
	if !bind(c, &req) {
		return
	}

	it, err := service.NewFileService(c.Request.Context()).Rename(c.Request.Context(), user, req.Path, req.NewName)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ItemResponse{Message: "file renamed", Item: it})
}

// CopyFile 复制到目标文件夹.
//
//	@Summary		复制文件
//	@Description	destinationId 为空或 root 表示根目录
//	@Tags			文件
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.TransferRequest	true	"源文件与目标文件夹"
//	@Success		200		{object}	types.ItemResponse
//	@Failure		404		{object}	types.ErrorResponse
//	@Router			/api/v1/files/copy [post]
func CopyFile(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.TransferRequest
	if !bind(c, &req) {
		return
	}

	it, err := service.NewFileService(c.Request.Context()).Copy(c.Request.Context(), user, req.ID, req.DestinationID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ItemResponse{Message: "file copied", Item: it})
}

// MoveFile 移动到目标文件夹.
//
//	@Summary	移动文件
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.TransferRequest	true	"源文件与目标文件夹"
//	@Success	200		{object}	types.ItemResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/v1/files/move [post]
func MoveFile(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.TransferRequest
	if !bind(c, &req) {
		return
	}

	it, err := service.NewFileService(c.Request.Context()).Move(c.Request.Context(), user, req.ID, req.DestinationID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ItemResponse{Message: "file moved", Item: it})
}

// SetTags 覆盖文件标签.
//
//	@Summary	设置标签
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.TagsRequest	true	"文件路径与标签"
//	@Success	200		{object}	types.ItemResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/v1/files/tags [patch]
func SetTags(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.TagsRequest
	if !bind(c, &req) {
		return
	}

	it, err := service.NewFileService(c.Request.Context()).SetTags(c.Request.Context(), user, req.Path, req.Tags)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ItemResponse{Message: "tags updated", Item: it})
}

// SearchFiles 按名称搜索，不区分大小写.
//
//	@Summary	搜索文件
//	@Tags		文件
//	@Produce	json
//	@Param		q	query		string	true	"名称子串"
//	@Success	200	{object}	types.SearchResponse
//	@Failure	400	{object}	types.ErrorResponse
//	@Router		/api/v1/files/search [get]
func SearchFiles(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req types.SearchRequest
	if !bind(c, &req) {
		return
	}

	resp, err := service.NewFileService(c.Request.Context()).Search(c.Request.Context(), user, req.Query)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Quota 用量统计.
//
//	@Summary	用量
//	@Tags		文件
//	@Produce	json
//	@Success	200	{object}	types.QuotaResponse
//	@Failure	503	{object}	types.ErrorResponse
//	@Router		/api/v1/files/quota [get]
func Quota(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	resp, err := service.NewFileService(c.Request.Context()).Quota(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func maxUploadBytes(c *gin.Context) int64 {
	rt := service.RuntimeFrom(c.Request.Context())
	if rt == nil {
		return 0
	}

	return rt.Config.Server.GetMaxUploadBytes()
}
