// Package types 定义整个项目中使用的公共类型
package types

import (
	"time"
)

// --- 认证相关类型 ---

// User 已认证用户
type User struct {
	Username string `json:"username"`
}

// Session 服务端会话记录
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired 判断会话在 now 时刻是否已过期
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Authenticated 没有用户名的会话永远不算已认证
func (s *Session) Authenticated(now time.Time) bool {
	return s != nil && s.User.Username != "" && !s.Expired(now)
}

// LoginRequest 登录请求结构体
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// --- 通用响应 ---

// Response 所有 JSON 接口共用的 {ok, error} 外壳
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// UserResponse /api/login 与 /api/me 的响应
type UserResponse struct {
	OK   bool  `json:"ok"`
	User *User `json:"user,omitempty"`
}

// --- 主机指标 ---

// Snapshot 单次 /api/stats 请求采集到的完整指标快照。
// 数值字段在边界处统一保留一位小数；可空字段用指针表示 JSON null。
type Snapshot struct {
	OS          string   `json:"os"`
	CPULoad     float64  `json:"cpuLoad"`
	Temp        *float64 `json:"temp"`
	MemUsedPct  float64  `json:"memUsedPct"`
	MemTotalGB  float64  `json:"memTotalGB"`
	MemActiveGB float64  `json:"memActiveGB"`
	DiskMount   *string  `json:"diskMount"`
	DiskUsedPct *float64 `json:"diskUsedPct"`
	DiskSizeGB  *float64 `json:"diskSizeGB"`
	DiskUsedGB  *float64 `json:"diskUsedGB"`
	UptimeMin   float64  `json:"uptimeMin"`
}

// StatsResponse 成功时展开快照字段，失败时只有 ok 与 error
type StatsResponse struct {
	OK bool `json:"ok"`
	*Snapshot
	Error string `json:"error,omitempty"`
}

// --- 服务链接 ---

// Link 首页上的一个服务卡片
type Link struct {
	Name        string `json:"name" yaml:"name"`
	Icon        string `json:"icon" yaml:"icon"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// LinksResponse /api/links 的响应
type LinksResponse struct {
	OK    bool   `json:"ok"`
	Links []Link `json:"links"`
}
