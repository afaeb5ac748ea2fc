package main

import (
	"fmt"
	"strings"
)

// ValidateFlags 验证命令行标志
func ValidateFlags(concurrency int, mongoURI string, logLevel string) error {
	// 验证并发数 (0表示使用配置文件的值)
	if concurrency < 0 || concurrency > 20 {
		return fmt.Errorf("并发数必须在1-20之间,当前值: %d", concurrency)
	}

	// 验证MongoDB URI
	if mongoURI != "" &&
		!strings.HasPrefix(mongoURI, "mongodb://") &&
		!strings.HasPrefix(mongoURI, "mongodb+srv://") {
		return fmt.Errorf("无效的MongoDB URI: %s (应以mongodb://或mongodb+srv://开头)", mongoURI)
	}

	// 验证日志级别
	if logLevel != "" {
		validLevels := map[string]bool{
			"trace": true, "debug": true, "info": true,
			"warn": true, "error": true,
		}
		if !validLevels[logLevel] {
			return fmt.Errorf("无效的日志级别: %s (有效值: trace, debug, info, warn, error)", logLevel)
		}
	}

	return nil
}
