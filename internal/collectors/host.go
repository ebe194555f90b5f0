package collectors

import "time"

// HostProbes 基于 gopsutil 的探针实现，读取本机（或 HOST_PROC/HOST_SYS 指向的宿主机）数据
type HostProbes struct {
	cpuInterval time.Duration
}

var _ Probes = (*HostProbes)(nil)

// NewHostProbes 创建主机探针。
// cpuInterval 为 0 时 CPU 使用率与上一次调用比较，不额外阻塞；大于 0 时在该区间内采样。
func NewHostProbes(cpuInterval time.Duration) *HostProbes {
	if cpuInterval < 0 {
		cpuInterval = 0
	}
	return &HostProbes{cpuInterval: cpuInterval}
}
