package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/internal/handle"
)

// RegisterTrashRoutes 注册回收站相关路由. 恢复与永久删除在 /files 下.
func RegisterTrashRoutes(g *gin.RouterGroup) {
	g.GET("/trash", append(listing(), handle.RecycleBin)...)
}
