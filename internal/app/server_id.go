package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateInstanceID 生成进程实例ID
// 优先使用环境变量 COLLAR_INSTANCE_ID，否则生成 {app}-{hostname}-{uuid前8位}
func GenerateInstanceID(appName string) string {
	if id := os.Getenv("COLLAR_INSTANCE_ID"); id != "" {
		return id
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%s-%s", appName, hostname, shortUUID)
}
