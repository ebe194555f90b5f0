package collectors

import (
	"github.com/AnalyseDeCircuit/homedash/internal/utils"
	"github.com/AnalyseDeCircuit/homedash/pkg/types"
)

const rootMount = "/"

// buildSnapshot 把原始读数换算成对外的快照，所有数值保留一位小数
func buildSnapshot(r readings) *types.Snapshot {
	s := &types.Snapshot{
		OS:          r.os,
		CPULoad:     utils.Round1(r.cpu),
		MemUsedPct:  utils.Round1(utils.Percent(r.mem.Active, r.mem.Total)),
		MemTotalGB:  utils.Round1(utils.BytesToGB(r.mem.Total)),
		MemActiveGB: utils.Round1(utils.BytesToGB(r.mem.Active)),
		UptimeMin:   utils.Round1(utils.SecondsToMinutes(r.uptime)),
	}

	// 0 度视为传感器缺失
	if r.temp != nil && *r.temp != 0 {
		t := utils.Round1(*r.temp)
		s.Temp = &t
	}

	if fs := selectFilesystem(r.filesystems); fs != nil {
		mount := fs.Mount
		usedPct := utils.Round1(fs.UsedPercent)
		sizeGB := utils.Round1(utils.BytesToGB(fs.Size))
		usedGB := utils.Round1(utils.BytesToGB(fs.Used))
		s.DiskMount = &mount
		s.DiskUsedPct = &usedPct
		s.DiskSizeGB = &sizeGB
		s.DiskUsedGB = &usedGB
	}
	return s
}

// selectFilesystem 优先根挂载点，否则取第一项，列表为空时返回 nil
func selectFilesystem(list []Filesystem) *Filesystem {
	for i := range list {
		if list[i].Mount == rootMount {
			return &list[i]
		}
	}
	if len(list) > 0 {
		return &list[0]
	}
	return nil
}
