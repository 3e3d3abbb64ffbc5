package builtin

import (
	"fmt"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// RoomCapacityConstraint 教室容量约束：教室容量不得小于班级人数
type RoomCapacityConstraint struct {
	*BaseConstraint
}

// NewRoomCapacityConstraint 创建教室容量约束
func NewRoomCapacityConstraint() *RoomCapacityConstraint {
	return &RoomCapacityConstraint{
		BaseConstraint: NewBaseConstraint(
			"教室容量",
			constraint.TypeRoomCapacity,
			constraint.CategoryHard,
			constraint.HardPenalty,
		),
	}
}

// Evaluate 评估整个课表的教室容量
func (c *RoomCapacityConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for _, a := range ctx.Schedule.Entries {
		room := ctx.Snapshot.Room(a.RoomID)
		section := ctx.Snapshot.Section(a.SectionID)
		if room == nil || section == nil {
			continue
		}
		if room.Capacity < section.Size {
			penalty += constraint.HardPenalty
			details = append(details, c.Violation(
				a.SlotKey,
				fmt.Sprintf("教室 %s 容量 %d 不足以容纳班级 %s（%d 人）", room.Name, room.Capacity, section.Name, section.Size),
				constraint.HardPenalty,
				a.ActivityID,
			))
		}
	}

	return len(details) == 0, penalty, details
}

// EvaluateAssignment 检查候选分配的教室容量
func (c *RoomCapacityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	room := ctx.Snapshot.Room(a.RoomID)
	section := ctx.Snapshot.Section(a.SectionID)
	if room == nil || section == nil {
		return false, constraint.HardPenalty
	}
	if room.Capacity < section.Size {
		return false, constraint.HardPenalty
	}
	return true, 0
}

// RoomFeaturesConstraint 教室设施约束：教室须具备科目要求的全部设施
type RoomFeaturesConstraint struct {
	*BaseConstraint
}

// NewRoomFeaturesConstraint 创建教室设施约束
func NewRoomFeaturesConstraint() *RoomFeaturesConstraint {
	return &RoomFeaturesConstraint{
		BaseConstraint: NewBaseConstraint(
			"教室设施",
			constraint.TypeRoomFeatures,
			constraint.CategoryHard,
			constraint.HardPenalty,
		),
	}
}

// Evaluate 评估整个课表的教室设施匹配
func (c *RoomFeaturesConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for _, a := range ctx.Schedule.Entries {
		room := ctx.Snapshot.Room(a.RoomID)
		subject := ctx.Snapshot.Subject(a.SubjectID)
		if room == nil || subject == nil {
			continue
		}
		if !room.HasFeatures(subject.RequiredFeatures) {
			penalty += constraint.HardPenalty
			details = append(details, c.Violation(
				a.SlotKey,
				fmt.Sprintf("教室 %s 缺少科目 %s 要求的设施", room.Name, subject.Name),
				constraint.HardPenalty,
				a.ActivityID,
			))
		}
	}

	return len(details) == 0, penalty, details
}

// EvaluateAssignment 检查候选分配的教室设施
func (c *RoomFeaturesConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	room := ctx.Snapshot.Room(a.RoomID)
	subject := ctx.Snapshot.Subject(a.SubjectID)
	if room == nil || subject == nil {
		return false, constraint.HardPenalty
	}
	if !room.HasFeatures(subject.RequiredFeatures) {
		return false, constraint.HardPenalty
	}
	return true, 0
}
