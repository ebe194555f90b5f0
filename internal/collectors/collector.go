// Package collectors 并行采集主机指标并组装成一次快照
package collectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"golang.org/x/sync/errgroup"
)

// DefaultProbeTimeout 单个探针的默认超时
const DefaultProbeTimeout = 5 * time.Second

// ErrProbeFailed 任一探针失败或超时，整次采集即失败
var ErrProbeFailed = errors.New("probe failed")

// ProbeError 记录失败的探针名称
type ProbeError struct {
	Probe string
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s probe failed: %v", e.Probe, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrProbeFailed) 对所有探针错误成立
func (e *ProbeError) Is(target error) bool { return target == ErrProbeFailed }

// MemoryInfo 内存读数，单位字节。Active = Total - Available
type MemoryInfo struct {
	Total  uint64
	Active uint64
}

// Filesystem 单个挂载点的容量读数
type Filesystem struct {
	Mount       string
	Size        uint64
	Used        uint64
	UsedPercent float64
}

// Probes 六个相互独立的主机探针。实现必须可并发调用，并在 ctx 取消后尽快返回。
type Probes interface {
	CPULoad(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (MemoryInfo, error)
	// Temperature 返回 nil 表示该主机没有可用的温度读数
	Temperature(ctx context.Context) (*float64, error)
	Filesystems(ctx context.Context) ([]Filesystem, error)
	OSName(ctx context.Context) (string, error)
	Uptime(ctx context.Context) (uint64, error)
}

// Collector 指标采集器，每次 Collect 都重新读取全部探针，不做缓存
type Collector struct {
	probes  Probes
	timeout time.Duration
}

// NewCollector 创建采集器，timeout <= 0 时使用 DefaultProbeTimeout
func NewCollector(probes Probes, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Collector{probes: probes, timeout: timeout}
}

// readings 一次采集的原始读数
type readings struct {
	cpu         float64
	mem         MemoryInfo
	temp        *float64
	filesystems []Filesystem
	os          string
	uptime      uint64
}

// Collect 并行运行全部探针，全部成功后合并为快照。
// 任一探针出错或超时都会取消其余探针并返回该错误，不返回部分结果。
func (c *Collector) Collect(ctx context.Context) (*types.Snapshot, error) {
	var r readings
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		r.cpu, err = runProbe(gctx, c.timeout, "cpu", c.probes.CPULoad)
		return err
	})
	g.Go(func() (err error) {
		r.mem, err = runProbe(gctx, c.timeout, "memory", c.probes.Memory)
		return err
	})
	g.Go(func() (err error) {
		r.temp, err = runProbe(gctx, c.timeout, "temperature", c.probes.Temperature)
		return err
	})
	g.Go(func() (err error) {
		r.filesystems, err = runProbe(gctx, c.timeout, "filesystem", c.probes.Filesystems)
		return err
	})
	g.Go(func() (err error) {
		r.os, err = runProbe(gctx, c.timeout, "os", c.probes.OSName)
		return err
	})
	g.Go(func() (err error) {
		r.uptime, err = runProbe(gctx, c.timeout, "uptime", c.probes.Uptime)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buildSnapshot(r), nil
}

// runProbe 在独立 goroutine 中运行探针并施加超时。
// 探针不响应取消时不会阻塞采集，它的结果写入带缓冲的 channel 后被丢弃。
func runProbe[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	var zero T
	select {
	case res := <-ch:
		if res.err != nil {
			return zero, &ProbeError{Probe: name, Err: res.err}
		}
		return res.v, nil
	case <-ctx.Done():
		return zero, &ProbeError{Probe: name, Err: ctx.Err()}
	}
}
