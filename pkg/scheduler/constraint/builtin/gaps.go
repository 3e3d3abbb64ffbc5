package builtin

import (
	"fmt"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// gapCount 计算一天内已占节次之间的空窗数
// periods 须为升序去重节次
func gapCount(periods []int) int {
	if len(periods) < 2 {
		return 0
	}
	span := periods[len(periods)-1] - periods[0] + 1
	return span - len(periods)
}

// withPeriod 在升序节次序列中插入候选节次（已存在则原样返回）
func withPeriod(periods []int, p int) []int {
	out := make([]int, 0, len(periods)+1)
	inserted := false
	for _, q := range periods {
		if q == p {
			return periods
		}
		if !inserted && q > p {
			out = append(out, p)
			inserted = true
		}
		out = append(out, q)
	}
	if !inserted {
		out = append(out, p)
	}
	return out
}

// TeacherGapsConstraint 教师空窗约束：减少教师当天首尾节次之间的空闲节数
type TeacherGapsConstraint struct {
	*BaseConstraint
}

// NewTeacherGapsConstraint 创建教师空窗约束
func NewTeacherGapsConstraint(weight float64) *TeacherGapsConstraint {
	return &TeacherGapsConstraint{
		BaseConstraint: NewBaseConstraint("教师空窗", constraint.TypeTeacherGaps, constraint.CategorySoft, weight),
	}
}

// Evaluate 统计全部教师的空窗惩罚
func (c *TeacherGapsConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for _, teacher := range ctx.Snapshot.Teachers {
		for day := 0; day < ctx.Grid.WorkingDays; day++ {
			gaps := gapCount(ctx.TeacherDayPeriods(teacher.ID, day))
			if gaps == 0 {
				continue
			}
			p := float64(gaps) * c.Weight()
			penalty += p
			details = append(details, c.Violation(
				day*ctx.Grid.PeriodsPerDay,
				fmt.Sprintf("教师 %s 第 %d 天有 %d 节空窗", teacher.Name, day+1, gaps),
				p,
			))
		}
	}

	return penalty == 0, penalty, details
}

// EvaluateAssignment 计算候选分配对教师空窗的增量惩罚
// 增量可为负：填补空窗的候选更优
func (c *TeacherGapsConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	day := a.SlotKey / ctx.Grid.PeriodsPerDay
	period := a.SlotKey % ctx.Grid.PeriodsPerDay
	before := ctx.TeacherDayPeriods(a.TeacherID, day)
	delta := float64(gapCount(withPeriod(before, period))-gapCount(before)) * c.Weight()
	return delta <= 0, delta
}

// SectionGapsConstraint 班级空窗约束：减少班级当天首尾节次之间的空闲节数
type SectionGapsConstraint struct {
	*BaseConstraint
}

// NewSectionGapsConstraint 创建班级空窗约束
func NewSectionGapsConstraint(weight float64) *SectionGapsConstraint {
	return &SectionGapsConstraint{
		BaseConstraint: NewBaseConstraint("班级空窗", constraint.TypeSectionGaps, constraint.CategorySoft, weight),
	}
}

// Evaluate 统计全部班级的空窗惩罚
func (c *SectionGapsConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for _, section := range ctx.Snapshot.Sections {
		for day := 0; day < ctx.Grid.WorkingDays; day++ {
			gaps := gapCount(ctx.SectionDayPeriods(section.ID, day))
			if gaps == 0 {
				continue
			}
			p := float64(gaps) * c.Weight()
			penalty += p
			details = append(details, c.Violation(
				day*ctx.Grid.PeriodsPerDay,
				fmt.Sprintf("班级 %s 第 %d 天有 %d 节空窗", section.Name, day+1, gaps),
				p,
			))
		}
	}

	return penalty == 0, penalty, details
}

// EvaluateAssignment 计算候选分配对班级空窗的增量惩罚
func (c *SectionGapsConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	day := a.SlotKey / ctx.Grid.PeriodsPerDay
	period := a.SlotKey % ctx.Grid.PeriodsPerDay
	before := ctx.SectionDayPeriods(a.SectionID, day)
	delta := float64(gapCount(withPeriod(before, period))-gapCount(before)) * c.Weight()
	return delta <= 0, delta
}
