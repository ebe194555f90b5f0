// Package utils 提供项目中使用的通用工具函数
package utils

import (
	"math"
)

// 单位换算使用十进制 GB，与前端展示保持一致
const (
	bytesPerGB     = 1e9
	secondsPerMin  = 60
	roundingFactor = 10
)

// Round1 保留一位小数，半数远离零方向舍入（math.Round 语义）。
// 例如 42.34 -> 42.3，50.625 -> 50.6，125.55 -> 125.6。
func Round1(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0
	}
	return math.Round(val*roundingFactor) / roundingFactor
}

// BytesToGB 字节转十进制 GB（除以 1e9）
func BytesToGB(bytes uint64) float64 {
	return float64(bytes) / bytesPerGB
}

// SecondsToMinutes 秒转分钟
func SecondsToMinutes(sec uint64) float64 {
	return float64(sec) / secondsPerMin
}

// Percent 计算 part 占 total 的百分比，total 为 0 时返回 0
func Percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
