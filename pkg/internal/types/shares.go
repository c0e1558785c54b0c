package types

import "time"

// CreateShareRequest 创建分享链接. ExpiryDays 为 0 时使用默认天数.
type CreateShareRequest struct {
	FileID     string `json:"fileId"     rule:"required,relpath"`
	ExpiryDays int    `json:"expiryDays" rule:"omitempty,min=1"`
}

// CreateShareResponse 分享链接地址中只包含 shareId，不暴露对象键.
type CreateShareResponse struct {
	ShareID string    `json:"shareId"`
	URL     string    `json:"url"`
	Expiry  time.Time `json:"expiry"`
}

// ResolveShareResponse 分享解析结果，URL 为限时只读链接.
type ResolveShareResponse struct {
	FileID string    `json:"fileId"`
	Name   string    `json:"name"`
	URL    string    `json:"url"`
	Expiry time.Time `json:"expiry"`
}

// ShareLinkInfo 分享链接的公开信息.
type ShareLinkInfo struct {
	ShareID        string     `json:"shareId"`
	FileID         string     `json:"fileId"`
	URL            string     `json:"url"`
	AccessType     string     `json:"accessType"`
	Expiry         time.Time  `json:"expiry"`
	CreatedAt      time.Time  `json:"createdAt"`
	AccessCount    int64      `json:"accessCount"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

// ListSharesResponse 当前用户仍然有效的分享链接.
type ListSharesResponse struct {
	Shares []ShareLinkInfo `json:"shares"`
	Total  int             `json:"total"`
}
