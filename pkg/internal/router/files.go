package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/handle"
	"github.com/yeisme/blobdrive/pkg/middleware"
)

// RegisterFilesRoutes 注册文件操作相关路由.
func RegisterFilesRoutes(g *gin.RouterGroup, cfg *configs.AppConfig) {
	filesRoutes := g.Group("/files")
	{
		// 列表、搜索与用量
		filesRoutes.GET("", append(listing(), handle.ListFiles)...)
		filesRoutes.GET("/search", append(listing(), handle.SearchFiles)...)
		filesRoutes.GET("/quota", handle.Quota)

		// 上传与创建；multipart 表单多留 1MB 余量
		filesRoutes.POST("", middleware.BodyLimitMiddleware(cfg.Server.GetMaxUploadBytes()+1<<20), handle.UploadFile)
		filesRoutes.POST("/empty", handle.CreateFile)

		filesRoutes.GET("/download", handle.DownloadFile)

		// 删除与恢复
		filesRoutes.DELETE("", handle.SoftDeleteFile)
		filesRoutes.DELETE("/permanent", handle.PermanentDeleteFile)
		filesRoutes.POST("/restore", handle.RestoreFile)

		filesRoutes.PATCH("/rename", handle.RenameFile)
		filesRoutes.POST("/copy", handle.CopyFile)
		filesRoutes.POST("/move", handle.MoveFile)
		filesRoutes.PATCH("/tags", handle.SetTags)
	}
}

// RegisterFoldersRoutes 注册文件夹路由.
func RegisterFoldersRoutes(g *gin.RouterGroup) {
	folders := g.Group("/folders")
	{
		folders.POST("", handle.CreateFolder)
		folders.DELETE("", handle.DeleteFolder)
	}
}
