// Package types 定义 HTTP 接口的请求与响应结构. 校验规则写在 rule 标签上.
package types

import (
	"time"

	"github.com/yeisme/blobdrive/pkg/internal/vfs"
)

// ListFilesRequest 列出某一层目录.
type ListFilesRequest struct {
	Path string `form:"path" rule:"omitempty,relpath"`
}

// ListFilesResponse 目录的直接子项，先文件夹后文件.
type ListFilesResponse struct {
	Path  string     `json:"path"`
	Items []vfs.Item `json:"items"`
	Total int        `json:"total"`
}

// UploadFileRequest multipart 上传的表单字段，文件本身在 file 字段.
type UploadFileRequest struct {
	Path string `form:"path" rule:"omitempty,relpath"`
	Name string `form:"name" rule:"omitempty,segment"` // 为空时使用上传文件名
}

// CreateFileRequest 创建空文件.
type CreateFileRequest struct {
	Name        string `json:"name"        rule:"required,segment"`
	Path        string `json:"path"        rule:"omitempty,relpath"`
	ContentType string `json:"contentType" rule:"omitempty,max=255"`
}

// PathRequest 指向单个文件的请求，body 或 query 均可.
type PathRequest struct {
	Path string `json:"path" form:"path" rule:"required,relpath"`
}

// RenameRequest 同目录改名.
type RenameRequest struct {
	Path    string `json:"path"    rule:"required,relpath"`
	NewName string `json:"newName" rule:"required,segment"`
}

// TransferRequest 复制或移动. DestinationID 为空或 "root" 表示根目录.
type TransferRequest struct {
	ID            string `json:"id"            rule:"required,relpath"`
	DestinationID string `json:"destinationId" rule:"omitempty,relpath"`
}

// TagsRequest 覆盖设置标签.
type TagsRequest struct {
	Path string   `json:"path" rule:"required,relpath"`
	Tags []string `json:"tags" rule:"max=50,dive,max=64"`
}

// SearchRequest 按名称搜索.
type SearchRequest struct {
	Query string `form:"q" rule:"required,max=255"`
}

// SearchResponse 搜索结果.
type SearchResponse struct {
	Query string     `json:"query"`
	Items []vfs.Item `json:"items"`
	Total int        `json:"total"`
}

// ItemResponse 单个文件操作的结果.
type ItemResponse struct {
	Message string   `json:"message"`
	Item    vfs.Item `json:"item"`
}

// MessageResponse 只有提示信息的结果.
type MessageResponse struct {
	Message string `json:"message"`
}

// FolderRequest 创建或删除文件夹.
type FolderRequest struct {
	Path string `json:"path" form:"path" rule:"required,relpath"`
}

// DeleteFolderResponse 文件夹软删除结果.
type DeleteFolderResponse struct {
	Path    string `json:"path"`
	Deleted int    `json:"deleted"`
}

// TrashResponse 回收站内容.
type TrashResponse struct {
	Items []vfs.Item `json:"items"`
	Total int        `json:"total"`
}

// QuotaResponse 配额用量.
type QuotaResponse struct {
	vfs.Usage
	Identity  string    `json:"identity"`
	Container string    `json:"container"`
	CheckedAt time.Time `json:"checkedAt"`
}
