package grading

import (
	"classroom_backend/internal/model"
	"time"
)

// NextStatus 只依据自身状态与时间窗口计算下一状态，第二个返回值表示是否需要迁移。
// DRAFT 必须由分配操作推进；COMPLETED 与 CANCELED 为终态。
// 已过结束时间仍处于 ASSIGNED 的测评直接进入 COMPLETED。
func NextStatus(status model.AssessmentStatus, start, end, now time.Time) (model.AssessmentStatus, bool) {
	switch status {
	case model.StatusAssigned:
		if !now.Before(end) {
			return model.StatusCompleted, true
		}
		if now.After(start) {
			return model.StatusActive, true
		}
	case model.StatusActive:
		if !now.Before(end) {
			return model.StatusCompleted, true
		}
	}
	return status, false
}
