package model

import "time"

// AccessTypeView 只读访问.
const AccessTypeView = "view"

// ShareLink 分享链接记录. 创建后除访问计数外不再修改.
type ShareLink struct {
	ID             string     `gorm:"primaryKey;size:26"     json:"id"` // ULID
	ShareID        string     `gorm:"size:36;uniqueIndex"    json:"share_id"`
	FileID         string     `gorm:"size:768;index"        json:"file_id"`
	CreatedBy      string     `gorm:"size:320;index"         json:"created_by"`
	AccessType     string     `gorm:"size:16;default:view"   json:"access_type"`
	RequiresAuth   bool       `gorm:"default:true"           json:"requires_auth"`
	Expiry         time.Time  `gorm:"index"                  json:"expiry"`
	CreatedAt      time.Time  `json:"created_at"`
	AccessCount    int64      `gorm:"default:0"              json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

func (ShareLink) TableName() string { return "share_links" }

// Expired 报告在 now 时刻链接是否已过期. 到期时刻本身仍有效.
func (s *ShareLink) Expired(now time.Time) bool {
	return now.After(s.Expiry)
}
