// labctl 实验室运维命令行：迁移、会话清理、终端凭证与开放时间初始化
package main

import (
	"os"

	"github.com/Seanzed08/SmartLab/cmd/labctl/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
