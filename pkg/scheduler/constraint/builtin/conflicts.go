package builtin

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// TeacherConflictConstraint 教师冲突约束：同一教师同一时间格只能有一节课
type TeacherConflictConstraint struct {
	*BaseConstraint
}

// NewTeacherConflictConstraint 创建教师冲突约束
func NewTeacherConflictConstraint() *TeacherConflictConstraint {
	return &TeacherConflictConstraint{
		BaseConstraint: NewBaseConstraint(
			"教师时间冲突",
			constraint.TypeTeacherConflict,
			constraint.CategoryHard,
			constraint.HardPenalty,
		),
	}
}

// Evaluate 评估整个课表的教师冲突
func (c *TeacherConflictConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	return evaluateConflicts(ctx, c.BaseConstraint, "教师", func(a *model.Assignment) []uuid.UUID {
		return ctx.TeacherOccupants(a.TeacherID, a.SlotKey)
	})
}

// EvaluateAssignment 检查候选分配是否与已排课程冲突
func (c *TeacherConflictConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if occupied(ctx.TeacherOccupants(a.TeacherID, a.SlotKey), a.ActivityID) {
		return false, constraint.HardPenalty
	}
	return true, 0
}

// RoomConflictConstraint 教室冲突约束：同一教室同一时间格只能有一节课
type RoomConflictConstraint struct {
	*BaseConstraint
}

// NewRoomConflictConstraint 创建教室冲突约束
func NewRoomConflictConstraint() *RoomConflictConstraint {
	return &RoomConflictConstraint{
		BaseConstraint: NewBaseConstraint(
			"教室时间冲突",
			constraint.TypeRoomConflict,
			constraint.CategoryHard,
			constraint.HardPenalty,
		),
	}
}

// Evaluate 评估整个课表的教室冲突
func (c *RoomConflictConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	return evaluateConflicts(ctx, c.BaseConstraint, "教室", func(a *model.Assignment) []uuid.UUID {
		return ctx.RoomOccupants(a.RoomID, a.SlotKey)
	})
}

// EvaluateAssignment 检查候选分配是否与已排课程冲突
func (c *RoomConflictConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if occupied(ctx.RoomOccupants(a.RoomID, a.SlotKey), a.ActivityID) {
		return false, constraint.HardPenalty
	}
	return true, 0
}

// SectionConflictConstraint 班级冲突约束：同一班级同一时间格只能有一节课
type SectionConflictConstraint struct {
	*BaseConstraint
}

// NewSectionConflictConstraint 创建班级冲突约束
func NewSectionConflictConstraint() *SectionConflictConstraint {
	return &SectionConflictConstraint{
		BaseConstraint: NewBaseConstraint(
			"班级时间冲突",
			constraint.TypeSectionConflict,
			constraint.CategoryHard,
			constraint.HardPenalty,
		),
	}
}

// Evaluate 评估整个课表的班级冲突
func (c *SectionConflictConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	return evaluateConflicts(ctx, c.BaseConstraint, "班级", func(a *model.Assignment) []uuid.UUID {
		return ctx.SectionOccupants(a.SectionID, a.SlotKey)
	})
}

// EvaluateAssignment 检查候选分配是否与已排课程冲突
func (c *SectionConflictConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if occupied(ctx.SectionOccupants(a.SectionID, a.SlotKey), a.ActivityID) {
		return false, constraint.HardPenalty
	}
	return true, 0
}

// occupied 检查资源在某时间格是否已被其他排课单元占用
func occupied(ids []uuid.UUID, self uuid.UUID) bool {
	for _, id := range ids {
		if id != self {
			return true
		}
	}
	return false
}

// evaluateConflicts 按占用索引枚举冲突时间格
// 每个冲突时间格记一条违反，惩罚为多余占用者数量乘以硬惩罚
func evaluateConflicts(ctx *constraint.Context, base *BaseConstraint, resource string, occupants func(*model.Assignment) []uuid.UUID) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64
	seen := make(map[uuid.UUID]bool)

	for _, a := range ctx.Schedule.Entries {
		ids := occupants(a)
		if len(ids) < 2 {
			continue
		}
		// 同一冲突组只记一次
		if seen[a.ActivityID] {
			continue
		}
		for _, id := range ids {
			seen[id] = true
		}

		extra := float64(len(ids) - 1)
		penalty += extra * constraint.HardPenalty
		details = append(details, base.Violation(
			a.SlotKey,
			fmt.Sprintf("%s在同一时间格被分配 %d 节课", resource, len(ids)),
			extra*constraint.HardPenalty,
			ids...,
		))
	}

	return len(details) == 0, penalty, details
}
