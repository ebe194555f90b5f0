package collectors

import (
	"context"
	"errors"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// 主温度传感器的匹配顺序：先找 CPU 封装温度，再找常见的 CPU/SoC 热区
var primarySensorKeys = []string{
	"package_id_0",
	"tdie",
	"tctl",
	"coretemp",
	"k10temp",
	"zenpower",
	"cpu_thermal",
	"cpu-thermal",
	"soc_thermal",
	"x86_pkg_temp",
	"acpitz",
}

// Temperature 返回主 CPU 温度（摄氏度）。
// 虚拟机和容器里通常没有传感器，读取失败时按“无读数”处理而不是让整次采集失败；
// 只有 ctx 取消或超时才作为错误返回。
func (p *HostProbes) Temperature(ctx context.Context) (*float64, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		// Warnings 表示部分传感器读取失败，其余读数仍然可用
		var warns *host.Warnings
		if !errors.As(err, &warns) || len(temps) == 0 {
			return nil, nil
		}
	}
	return primaryTemperature(temps), nil
}

func primaryTemperature(temps []host.TemperatureStat) *float64 {
	for _, key := range primarySensorKeys {
		for _, t := range temps {
			if t.Temperature > 0 && strings.Contains(strings.ToLower(t.SensorKey), key) {
				v := t.Temperature
				return &v
			}
		}
	}
	for _, t := range temps {
		if t.Temperature > 0 {
			v := t.Temperature
			return &v
		}
	}
	return nil
}
