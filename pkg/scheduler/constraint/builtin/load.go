package builtin

import (
	"fmt"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// TeacherLoadConstraint 教师负荷约束：日/周节数不得超过上限
type TeacherLoadConstraint struct {
	*BaseConstraint
}

// NewTeacherLoadConstraint 创建教师负荷约束
func NewTeacherLoadConstraint() *TeacherLoadConstraint {
	return &TeacherLoadConstraint{
		BaseConstraint: NewBaseConstraint(
			"教师负荷上限",
			constraint.TypeTeacherLoad,
			constraint.CategoryHard,
			constraint.HardPenalty,
		),
	}
}

// Evaluate 评估整个课表的教师负荷
func (c *TeacherLoadConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for _, teacher := range ctx.Snapshot.Teachers {
		if teacher.MaxWeeklyLoad > 0 {
			if week := ctx.TeacherWeekLoad(teacher.ID); week > teacher.MaxWeeklyLoad {
				penalty += constraint.HardPenalty
				details = append(details, c.Violation(
					-1,
					fmt.Sprintf("教师 %s 每周 %d 节超过上限 %d", teacher.Name, week, teacher.MaxWeeklyLoad),
					constraint.HardPenalty,
				))
			}
		}
		if teacher.MaxDailyLoad <= 0 {
			continue
		}
		for day := 0; day < ctx.Grid.WorkingDays; day++ {
			if load := ctx.TeacherDayLoad(teacher.ID, day); load > teacher.MaxDailyLoad {
				penalty += constraint.HardPenalty
				details = append(details, c.Violation(
					day*ctx.Grid.PeriodsPerDay,
					fmt.Sprintf("教师 %s 第 %d 天 %d 节超过上限 %d", teacher.Name, day+1, load, teacher.MaxDailyLoad),
					constraint.HardPenalty,
				))
			}
		}
	}

	return len(details) == 0, penalty, details
}

// EvaluateAssignment 检查加入候选分配后教师负荷是否超限
func (c *TeacherLoadConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	teacher := ctx.Snapshot.Teacher(a.TeacherID)
	if teacher == nil {
		return false, constraint.HardPenalty
	}
	if teacher.MaxWeeklyLoad > 0 && ctx.TeacherWeekLoad(teacher.ID)+1 > teacher.MaxWeeklyLoad {
		return false, constraint.HardPenalty
	}
	if teacher.MaxDailyLoad > 0 {
		day := a.SlotKey / ctx.Grid.PeriodsPerDay
		if ctx.TeacherDayLoad(teacher.ID, day)+1 > teacher.MaxDailyLoad {
			return false, constraint.HardPenalty
		}
	}
	return true, 0
}

// SectionDailyLimitConstraint 班级每日节数约束
// 班级未设置上限时使用默认上限，默认上限为 0 表示不限
type SectionDailyLimitConstraint struct {
	*BaseConstraint
	defaultLimit int
}

// NewSectionDailyLimitConstraint 创建班级每日节数约束
func NewSectionDailyLimitConstraint(defaultLimit int) *SectionDailyLimitConstraint {
	return &SectionDailyLimitConstraint{
		BaseConstraint: NewBaseConstraint(
			"班级每日节数上限",
			constraint.TypeSectionDailyLimit,
			constraint.CategoryHard,
			constraint.HardPenalty,
		),
		defaultLimit: defaultLimit,
	}
}

func (c *SectionDailyLimitConstraint) limit(section *model.Section) int {
	if section.MaxClassesPerDay > 0 {
		return section.MaxClassesPerDay
	}
	return c.defaultLimit
}

// Evaluate 评估整个课表的班级每日节数
func (c *SectionDailyLimitConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for _, section := range ctx.Snapshot.Sections {
		limit := c.limit(section)
		if limit <= 0 {
			continue
		}
		for day := 0; day < ctx.Grid.WorkingDays; day++ {
			if load := ctx.SectionDayLoad(section.ID, day); load > limit {
				penalty += constraint.HardPenalty
				details = append(details, c.Violation(
					day*ctx.Grid.PeriodsPerDay,
					fmt.Sprintf("班级 %s 第 %d 天 %d 节超过上限 %d", section.Name, day+1, load, limit),
					constraint.HardPenalty,
				))
			}
		}
	}

	return len(details) == 0, penalty, details
}

// EvaluateAssignment 检查加入候选分配后班级每日节数是否超限
func (c *SectionDailyLimitConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	section := ctx.Snapshot.Section(a.SectionID)
	if section == nil {
		return false, constraint.HardPenalty
	}
	limit := c.limit(section)
	if limit <= 0 {
		return true, 0
	}
	day := a.SlotKey / ctx.Grid.PeriodsPerDay
	if ctx.SectionDayLoad(section.ID, day)+1 > limit {
		return false, constraint.HardPenalty
	}
	return true, 0
}
