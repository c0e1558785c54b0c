package model

import "time"

// 文件类型.
const (
	FileTypeFile   = "file"
	FileTypeFolder = "folder"
)

// StorageProviderBlob 登记行的存储提供方.
const StorageProviderBlob = "blob"

// File 文件登记表. 以对象键为主键，是对象存储的最终一致镜像，
// 创建分享链接时据此校验归属.
type File struct {
	ID              string     `gorm:"primaryKey;size:768"           json:"id"`
	Name            string     `gorm:"size:512;index"                 json:"name"`
	Type            string     `gorm:"size:16"                        json:"type"`
	MimeType        string     `gorm:"size:255"                       json:"mime_type"`
	Size            int64      `json:"size"`
	ParentID        string     `gorm:"size:768;index"                json:"parent_id"`
	OwnerEmail      string     `gorm:"size:320;index:idx_owner_alive" json:"owner_email"`
	StorageProvider string     `gorm:"size:32"                        json:"storage_provider"`
	StoragePath     string     `gorm:"size:768"                      json:"storage_path"`
	IsDeleted       bool       `gorm:"index:idx_owner_alive"          json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ModifiedAt      time.Time  `json:"modified_at"`
}

func (File) TableName() string { return "files" }
