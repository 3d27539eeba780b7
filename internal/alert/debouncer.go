package alert

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Debouncer 报警去抖器：整个进程内共享的状态机，
// 保证阈值触发的邮件在每个冷却窗口内最多发送一次。
//
// 状态：Idle（可触发）/ Cooling（冷却中）
//   - Idle → Cooling：第一条不安全读数赢得转移，授权一次投递，
//     并调度冷却到期后的自动复位
//   - Cooling 期间的不安全读数全部静默丢弃（不投递、不重置计时器）
//   - 冷却到期自动回到 Idle，不投递
//
// 状态不持久化，进程重启后回到 Idle。
type Debouncer struct {
	mu       sync.Mutex
	cooling  bool
	timer    *time.Timer
	cooldown time.Duration
	logger   *zap.Logger
}

// NewDebouncer 创建去抖器
func NewDebouncer(cooldown time.Duration, logger *zap.Logger) *Debouncer {
	return &Debouncer{
		cooldown: cooldown,
		logger:   logger,
	}
}

// TryAcquire 原子的 check-and-set：
// Idle 时返回 true（调用方获得本窗口内唯一一次投递授权）并进入 Cooling；
// Cooling 时返回 false。并发入库请求中只有一个能拿到 true。
//
// 锁内只做状态翻转和计时器调度，绝不做 I/O。
func (d *Debouncer) TryAcquire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cooling {
		return false
	}

	d.cooling = true
	d.timer = time.AfterFunc(d.cooldown, d.reset)
	d.logger.Debug("Alert debouncer entered cooling state",
		zap.Duration("cooldown", d.cooldown),
	)
	return true
}

// Cooling 当前是否处于冷却状态（仅用于观测）
func (d *Debouncer) Cooling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cooling
}

// reset 冷却到期回调：回到 Idle
func (d *Debouncer) reset() {
	d.mu.Lock()
	d.cooling = false
	d.timer = nil
	d.mu.Unlock()

	d.logger.Debug("Alert debouncer cooldown elapsed, back to idle")
}

// Stop 停止挂起的复位计时器（进程关闭时调用）
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
