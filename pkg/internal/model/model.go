// Package model 定义元数据库的 gorm 模型：文件登记表、分享链接与操作日志.
package model

// All 返回需要自动迁移的全部模型.
func All() []any {
	return []any{&File{}, &ShareLink{}, &Activity{}}
}
