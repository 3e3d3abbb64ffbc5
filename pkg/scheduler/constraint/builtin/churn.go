package builtin

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// RoomChurnConstraint 教室切换约束：班级一天内使用的教室越少越好
type RoomChurnConstraint struct {
	*BaseConstraint
}

// NewRoomChurnConstraint 创建教室切换约束
func NewRoomChurnConstraint(weight float64) *RoomChurnConstraint {
	return &RoomChurnConstraint{
		BaseConstraint: NewBaseConstraint("教室切换", constraint.TypeRoomChurn, constraint.CategorySoft, weight),
	}
}

// dayRooms 返回班级某日使用的教室集合
func dayRooms(ctx *constraint.Context, sectionID uuid.UUID, day int) map[uuid.UUID]bool {
	rooms := make(map[uuid.UUID]bool)
	for _, period := range ctx.SectionDayPeriods(sectionID, day) {
		room := ctx.SectionRoomAt(sectionID, day*ctx.Grid.PeriodsPerDay+period)
		if room != uuid.Nil {
			rooms[room] = true
		}
	}
	return rooms
}

// Evaluate 统计全部班级的教室切换惩罚
func (c *RoomChurnConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for _, section := range ctx.Snapshot.Sections {
		for day := 0; day < ctx.Grid.WorkingDays; day++ {
			extra := len(dayRooms(ctx, section.ID, day)) - 1
			if extra <= 0 {
				continue
			}
			p := float64(extra) * c.Weight()
			penalty += p
			details = append(details, c.Violation(
				day*ctx.Grid.PeriodsPerDay,
				fmt.Sprintf("班级 %s 第 %d 天使用了 %d 间教室", section.Name, day+1, extra+1),
				p,
			))
		}
	}

	return penalty == 0, penalty, details
}

// EvaluateAssignment 计算候选分配对教室切换的增量惩罚
// 当天已有课且候选教室不在已用集合中时记一次惩罚
func (c *RoomChurnConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	day := a.SlotKey / ctx.Grid.PeriodsPerDay
	rooms := dayRooms(ctx, a.SectionID, day)
	if len(rooms) == 0 || rooms[a.RoomID] {
		return true, 0
	}
	return false, c.Weight()
}
