package evaluator

import (
	"watersafe/internal/models"
)

// 阈值评估：纯函数，无副作用，可脱离存储独立调用。
//
// 注意：入库触发阈值和看板状态阈值是两套不同的标准
// （温度区间不同，触发阈值不检查溶解氧），历史上就不一致，刻意保留两套。
// 见 DESIGN.md。

// 入库触发阈值（驱动去抖后的邮件报警）
const (
	TriggerPHMin   = 6.5
	TriggerPHMax   = 8.5
	TriggerTurbMax = 5.0
	TriggerTempMin = 15.0
	TriggerTempMax = 30.0
	TriggerTDSMax  = 500.0
)

// 看板状态阈值（驱动 /api/latest-data 的 Safe/Unsafe 标签）
const (
	StatusPHMin   = 6.5
	StatusPHMax   = 8.5
	StatusTempMin = 20.0
	StatusTempMax = 35.0
	StatusTurbMax = 5.0
	StatusTDSMax  = 500.0
	StatusDOMin   = 6.5
	StatusDOMax   = 8.5
)

// 状态标签
const (
	StatusSafe   = "Safe"
	StatusUnsafe = "Unsafe"
)

// TriggerUnsafe 入库触发判定：超出任一触发阈值即为不安全
// 溶解氧不参与触发判定
func TriggerUnsafe(r *models.Reading) bool {
	return r.PH < TriggerPHMin || r.PH > TriggerPHMax ||
		r.Turb > TriggerTurbMax ||
		r.Temp < TriggerTempMin || r.Temp > TriggerTempMax ||
		r.TDS > TriggerTDSMax
}

// DashboardSafe 看板状态判定：五项指标全部在区间内（含边界）才算安全
func DashboardSafe(r *models.Reading) bool {
	return r.PH >= StatusPHMin && r.PH <= StatusPHMax &&
		r.Temp >= StatusTempMin && r.Temp <= StatusTempMax &&
		r.Turb <= StatusTurbMax &&
		r.TDS <= StatusTDSMax &&
		r.DO >= StatusDOMin && r.DO <= StatusDOMax
}

// DashboardStatus 返回看板状态标签（"Safe" / "Unsafe"）
func DashboardStatus(r *models.Reading) string {
	if DashboardSafe(r) {
		return StatusSafe
	}
	return StatusUnsafe
}
