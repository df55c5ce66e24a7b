// divctl 公司配息数据的命令行管理工具
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Red("✗ %v", err)
		os.Exit(1)
	}
}
