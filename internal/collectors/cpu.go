package collectors

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPULoad 返回整体 CPU 使用率百分比
func (p *HostProbes) CPULoad(ctx context.Context) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, p.cpuInterval, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, errors.New("no cpu usage reported")
	}
	return pcts[0], nil
}
