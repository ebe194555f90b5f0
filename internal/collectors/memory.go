package collectors

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

// Memory 返回内存总量和活动量。活动量按 Total - Available 计算，
// 不把可回收的页缓存算作已用。
func (p *HostProbes) Memory(ctx context.Context) (MemoryInfo, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryInfo{}, err
	}
	return memoryFromStat(v), nil
}

func memoryFromStat(v *mem.VirtualMemoryStat) MemoryInfo {
	info := MemoryInfo{Total: v.Total}
	if v.Available < v.Total {
		info.Active = v.Total - v.Available
	}
	return info
}
