// Package main 启动应用程序
package main

import (
	"os"

	"github.com/yeisme/blobdrive/pkg/cmd"
)

//go:generate swag init -g cmd/blobdrive/main.go -d ../../ -o ../../docs

//	@title			BlobDrive API
//	@version		1.0
//	@description	BlobDrive 在扁平的对象存储之上提供按身份隔离的文件夹、回收站、标签与限时分享链接. 调用方身份由前置代理通过 X-Auth-Request-Email 或 X-Forwarded-Email 请求头注入.

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
