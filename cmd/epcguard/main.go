// Package main 启动应用程序
package main

import "github.com/hsk3232/DevelopProject/pkg/cmd"

//	@title			EPCGuard API
//	@version		1.0
//	@description	EPCGuard 接收供应链 EPC 扫描日志 CSV，重建物品流转行程，并通过规则检测与外部评分服务识别异常。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@BasePath	/api/v1

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
