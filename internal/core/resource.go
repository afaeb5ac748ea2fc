package core

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/RecoveryAshes/pricewatch/internal/utils"
)

// 每个浏览器会话的估算内存占用与系统安全保留量
const (
	sessionMemoryUsage  = 200 * 1024 * 1024
	safetyReserveMemory = 1024 * 1024 * 1024
)

// ResourceGuard 并发上限守卫
// 按系统可用内存和CPU核数收紧配置的并发数,避免把机器打满
type ResourceGuard struct {
	availableMemory int64
}

// NewResourceGuard 采样当前系统内存
func NewResourceGuard() *ResourceGuard {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		utils.Warnf("获取系统内存失败,跳过内存限制: %v", err)
		return &ResourceGuard{availableMemory: -1}
	}

	utils.Debugf("系统内存: 总计%.2fGB, 可用%.2fGB",
		float64(vmStat.Total)/(1024*1024*1024),
		float64(vmStat.Available)/(1024*1024*1024))

	return &ResourceGuard{availableMemory: int64(vmStat.Available)}
}

// Clamp 返回收紧后的并发数,至少为1
func (g *ResourceGuard) Clamp(requested int) int {
	if g == nil {
		return requested
	}
	if requested < 1 {
		requested = 1
	}

	limit := requested

	if g.availableMemory >= 0 {
		byMemory := int((g.availableMemory - safetyReserveMemory) / sessionMemoryUsage)
		if byMemory < 1 {
			byMemory = 1
		}
		if byMemory < limit {
			limit = byMemory
		}
	}

	if cpus := runtime.NumCPU(); cpus < limit {
		limit = cpus
	}

	if limit < requested {
		utils.Warnf("资源受限,并发数从 %d 收紧至 %d", requested, limit)
	}
	return limit
}
