package model

import "time"

// 操作类型.
const (
	ActionUpload          = "upload"
	ActionDownload        = "download"
	ActionCreate          = "create"
	ActionCreateFolder    = "create_folder"
	ActionRename          = "rename"
	ActionMove            = "move"
	ActionCopy            = "copy"
	ActionDelete          = "delete"
	ActionDeleteFolder    = "delete_folder"
	ActionRestore         = "restore"
	ActionPermanentDelete = "permanent_delete"
	ActionTag             = "tag"
	ActionShareCreate     = "share_create"
	ActionShareAccess     = "share_access"
)

// Activity 操作日志，由事件消费者写入.
type Activity struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"`
	UserEmail string    `gorm:"size:320;index"     json:"user_email"`
	FileID    string    `gorm:"size:768;index"    json:"file_id"`
	Action    string    `gorm:"size:32;index"      json:"action"`
	Details   string    `gorm:"type:text"          json:"details"` // JSON
	CreatedAt time.Time `gorm:"index"              json:"created_at"`
}

func (Activity) TableName() string { return "activity_log" }
