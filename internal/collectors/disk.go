package collectors

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// Filesystems 返回已挂载文件系统的容量，顺序与分区表一致。
// 无法读取容量或容量为 0 的挂载点（伪文件系统、已断开的网络盘）被跳过。
func (p *HostProbes) Filesystems(ctx context.Context) ([]Filesystem, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(parts))
	list := make([]Filesystem, 0, len(parts))
	for _, part := range parts {
		if skipPartition(part) || seen[part.Mountpoint] {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		if usage.Total == 0 {
			continue
		}
		seen[part.Mountpoint] = true
		list = append(list, Filesystem{
			Mount:       part.Mountpoint,
			Size:        usage.Total,
			Used:        usage.Used,
			UsedPercent: usage.UsedPercent,
		})
	}
	return list, nil
}

// 跳过 loop 设备和 squashfs（snap 包等只读镜像）
func skipPartition(part disk.PartitionStat) bool {
	return strings.Contains(part.Device, "loop") || part.Fstype == "squashfs"
}
