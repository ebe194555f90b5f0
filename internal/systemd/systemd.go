// Package systemd 向 systemd 报告服务状态（Type=notify 单元）
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
)

// Notifier 不在 systemd 下运行（没有 NOTIFY_SOCKET）时所有方法都是空操作
type Notifier struct {
	log zerolog.Logger
}

// NewNotifier 创建通知器
func NewNotifier(log zerolog.Logger) *Notifier {
	return &Notifier{log: log}
}

// Ready 服务开始接受请求
func (n *Notifier) Ready() bool {
	return n.notify(daemon.SdNotifyReady)
}

// Stopping 服务开始优雅关闭
func (n *Notifier) Stopping() bool {
	return n.notify(daemon.SdNotifyStopping)
}

// Watchdog 单元配置了 WatchdogSec 时按一半周期发送心跳，直到 ctx 结束
func (n *Notifier) Watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.log.Warn().Err(err).Msg("systemd watchdog misconfigured")
		return
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.notify(daemon.SdNotifyWatchdog)
		}
	}
}

func (n *Notifier) notify(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Warn().Err(err).Str("state", state).Msg("sd_notify failed")
		return false
	}
	if sent {
		n.log.Debug().Str("state", state).Msg("sd_notify sent")
	}
	return sent
}
