package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 向运行中的服务发送 SIGHUP：轮转日志并清空数据缓存
func main() {
	pidFile := "bikeshare.pid"
	if len(os.Args) > 1 {
		pidFile = os.Args[1]
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		log.Fatal("Failed to read pid file:", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Fatal("Invalid pid file:", err)
	}

	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("SIGHUP sent to %d", pid)
}
