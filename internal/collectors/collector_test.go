package collectors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbes struct {
	cpu         float64
	mem         MemoryInfo
	temp        *float64
	filesystems []Filesystem
	os          string
	uptime      uint64

	cpuErr error
	// block 让 Filesystems 一直阻塞直到 ctx 结束
	block bool
	calls atomic.Int32
}

func (f *fakeProbes) CPULoad(ctx context.Context) (float64, error) {
	f.calls.Add(1)
	return f.cpu, f.cpuErr
}

func (f *fakeProbes) Memory(ctx context.Context) (MemoryInfo, error) {
	f.calls.Add(1)
	return f.mem, nil
}

func (f *fakeProbes) Temperature(ctx context.Context) (*float64, error) {
	f.calls.Add(1)
	return f.temp, nil
}

func (f *fakeProbes) Filesystems(ctx context.Context) ([]Filesystem, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.filesystems, nil
}

func (f *fakeProbes) OSName(ctx context.Context) (string, error) {
	f.calls.Add(1)
	return f.os, nil
}

func (f *fakeProbes) Uptime(ctx context.Context) (uint64, error) {
	f.calls.Add(1)
	return f.uptime, nil
}

func ptr(v float64) *float64 { return &v }

func goldenProbes() *fakeProbes {
	return &fakeProbes{
		cpu:  42.34,
		mem:  MemoryInfo{Total: 16_000_000_000, Active: 8_100_000_000},
		temp: ptr(55.55),
		filesystems: []Filesystem{
			{Mount: "/boot", Size: 1_000_000_000, Used: 200_000_000, UsedPercent: 20},
			{Mount: "/", Size: 500_000_000_000, Used: 366_000_000_000, UsedPercent: 73.2},
		},
		os:     "ubuntu 22.04",
		uptime: 7530,
	}
}

func TestCollect_golden(t *testing.T) {
	probes := goldenProbes()
	snap, err := NewCollector(probes, time.Second).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(6), probes.calls.Load())
	assert.Equal(t, "ubuntu 22.04", snap.OS)
	assert.Equal(t, 42.3, snap.CPULoad)
	assert.Equal(t, 50.6, snap.MemUsedPct)
	assert.Equal(t, 16.0, snap.MemTotalGB)
	assert.Equal(t, 8.1, snap.MemActiveGB)
	assert.Equal(t, 125.5, snap.UptimeMin)

	require.NotNil(t, snap.Temp)
	// 一位小数，四舍五入（远离零）
	assert.Equal(t, 55.6, *snap.Temp)

	require.NotNil(t, snap.DiskMount)
	assert.Equal(t, "/", *snap.DiskMount)
	assert.Equal(t, 73.2, *snap.DiskUsedPct)
	assert.Equal(t, 500.0, *snap.DiskSizeGB)
	assert.Equal(t, 366.0, *snap.DiskUsedGB)
}

func TestCollect_nullTemperature(t *testing.T) {
	for name, temp := range map[string]*float64{
		"unavailable": nil,
		"zero":        ptr(0),
	} {
		t.Run(name, func(t *testing.T) {
			probes := goldenProbes()
			probes.temp = temp

			snap, err := NewCollector(probes, time.Second).Collect(context.Background())
			require.NoError(t, err)
			assert.Nil(t, snap.Temp)
		})
	}
}

func TestCollect_noFilesystems(t *testing.T) {
	probes := goldenProbes()
	probes.filesystems = nil

	snap, err := NewCollector(probes, time.Second).Collect(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.DiskMount)
	assert.Nil(t, snap.DiskUsedPct)
	assert.Nil(t, snap.DiskSizeGB)
	assert.Nil(t, snap.DiskUsedGB)
}

func TestCollect_firstFilesystemWithoutRoot(t *testing.T) {
	probes := goldenProbes()
	probes.filesystems = []Filesystem{
		{Mount: "/data", Size: 2_000_000_000_000, Used: 500_000_000_000, UsedPercent: 25},
		{Mount: "/backup", Size: 1_000_000_000_000, Used: 1, UsedPercent: 0},
	}

	snap, err := NewCollector(probes, time.Second).Collect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.DiskMount)
	assert.Equal(t, "/data", *snap.DiskMount)
	assert.Equal(t, 25.0, *snap.DiskUsedPct)
	assert.Equal(t, 2000.0, *snap.DiskSizeGB)
	assert.Equal(t, 500.0, *snap.DiskUsedGB)
}

func TestCollect_zeroMemoryTotal(t *testing.T) {
	probes := goldenProbes()
	probes.mem = MemoryInfo{}

	snap, err := NewCollector(probes, time.Second).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.MemUsedPct)
	assert.Equal(t, 0.0, snap.MemTotalGB)
}

func TestCollect_probeFailure(t *testing.T) {
	probes := goldenProbes()
	probes.cpuErr = errors.New("boom")

	snap, err := NewCollector(probes, time.Second).Collect(context.Background())
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, ErrProbeFailed)

	var pe *ProbeError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "cpu", pe.Probe)
	assert.Contains(t, err.Error(), "boom")
}

func TestCollect_probeTimeout(t *testing.T) {
	probes := goldenProbes()
	probes.block = true

	start := time.Now()
	snap, err := NewCollector(probes, 50*time.Millisecond).Collect(context.Background())
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCollect_parentCancelled(t *testing.T) {
	probes := goldenProbes()
	probes.block = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector(probes, time.Minute).Collect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

type panickingProbes struct{ *fakeProbes }

func (panickingProbes) Uptime(context.Context) (uint64, error) { panic("uptime exploded") }

func TestCollect_probePanic(t *testing.T) {
	_, err := NewCollector(panickingProbes{goldenProbes()}, time.Second).Collect(context.Background())
	require.Error(t, err)

	var pe *ProbeError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "uptime", pe.Probe)
}

func TestNewCollector_defaultTimeout(t *testing.T) {
	c := NewCollector(goldenProbes(), 0)
	assert.Equal(t, DefaultProbeTimeout, c.timeout)
}
