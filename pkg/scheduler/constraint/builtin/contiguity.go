package builtin

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// ContiguityConstraint 连排约束：连排科目同一天的多节应当相邻
// 仅对 BlockSize 大于 1 的科目生效
type ContiguityConstraint struct {
	*BaseConstraint
}

// NewContiguityConstraint 创建连排约束
func NewContiguityConstraint(weight float64) *ContiguityConstraint {
	return &ContiguityConstraint{
		BaseConstraint: NewBaseConstraint("科目连排", constraint.TypeContiguity, constraint.CategorySoft, weight),
	}
}

type sectionSubject struct {
	sectionID uuid.UUID
	subjectID uuid.UUID
}

// blockPeriods 收集连排科目的 (班级, 科目) -> 天 -> 节次
func blockPeriods(ctx *constraint.Context) map[sectionSubject]map[int][]int {
	groups := make(map[sectionSubject]map[int][]int)
	for _, a := range ctx.Schedule.Entries {
		subject := ctx.Snapshot.Subject(a.SubjectID)
		if subject == nil || subject.BlockSize <= 1 {
			continue
		}
		key := sectionSubject{a.SectionID, a.SubjectID}
		if groups[key] == nil {
			groups[key] = make(map[int][]int)
		}
		day := a.SlotKey / ctx.Grid.PeriodsPerDay
		groups[key][day] = append(groups[key][day], a.SlotKey%ctx.Grid.PeriodsPerDay)
	}
	return groups
}

// breaks 统计同一天内相邻节次之间的断裂数
func breaks(periods []int) int {
	sort.Ints(periods)
	count := 0
	for i := 1; i < len(periods); i++ {
		if periods[i]-periods[i-1] > 1 {
			count++
		}
	}
	return count
}

// Evaluate 统计连排科目的断裂惩罚
func (c *ContiguityConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for key, days := range blockPeriods(ctx) {
		subject := ctx.Snapshot.Subject(key.subjectID)
		for day, periods := range days {
			b := breaks(periods)
			if b == 0 {
				continue
			}
			p := float64(b) * c.Weight()
			penalty += p
			details = append(details, c.Violation(
				day*ctx.Grid.PeriodsPerDay,
				fmt.Sprintf("科目 %s 第 %d 天的连排节次不相邻", subject.Name, day+1),
				p,
			))
		}
	}

	return penalty == 0, penalty, details
}

// EvaluateAssignment 计算候选分配对连排的增量惩罚
// 当天已有同科目节次且候选节次不与任何一节相邻时记一次惩罚
func (c *ContiguityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	subject := ctx.Snapshot.Subject(a.SubjectID)
	if subject == nil || subject.BlockSize <= 1 {
		return true, 0
	}

	day := a.SlotKey / ctx.Grid.PeriodsPerDay
	period := a.SlotKey % ctx.Grid.PeriodsPerDay
	var existing []int
	for _, entry := range ctx.Schedule.Entries {
		if entry.SectionID == a.SectionID && entry.SubjectID == a.SubjectID &&
			entry.ActivityID != a.ActivityID && entry.SlotKey/ctx.Grid.PeriodsPerDay == day {
			existing = append(existing, entry.SlotKey%ctx.Grid.PeriodsPerDay)
		}
	}
	if len(existing) == 0 {
		return true, 0
	}
	for _, p := range existing {
		if p-period == 1 || period-p == 1 {
			return true, 0
		}
	}
	return false, c.Weight()
}
