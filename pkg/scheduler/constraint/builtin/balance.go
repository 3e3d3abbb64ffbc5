package builtin

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// DailyBalanceConstraint 每日均衡约束：班级各天节数尽量均匀
// 以各天节数的方差作为惩罚基数
type DailyBalanceConstraint struct {
	*BaseConstraint
}

// NewDailyBalanceConstraint 创建每日均衡约束
func NewDailyBalanceConstraint(weight float64) *DailyBalanceConstraint {
	return &DailyBalanceConstraint{
		BaseConstraint: NewBaseConstraint("每日均衡", constraint.TypeDailyBalance, constraint.CategorySoft, weight),
	}
}

func (c *DailyBalanceConstraint) dayLoads(ctx *constraint.Context, sectionID uuid.UUID) []float64 {
	loads := make([]float64, ctx.Grid.WorkingDays)
	for day := range loads {
		loads[day] = float64(ctx.SectionDayLoad(sectionID, day))
	}
	return loads
}

// variance 样本方差，单日网格无均衡可言返回 0
func variance(loads []float64) float64 {
	if len(loads) < 2 {
		return 0
	}
	return stat.Variance(loads, nil)
}

// Evaluate 统计全部班级的每日均衡惩罚
func (c *DailyBalanceConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for _, section := range ctx.Snapshot.Sections {
		v := variance(c.dayLoads(ctx, section.ID))
		if v == 0 {
			continue
		}
		p := v * c.Weight()
		penalty += p
		details = append(details, c.Violation(
			-1,
			fmt.Sprintf("班级 %s 各天节数方差 %.2f", section.Name, v),
			p,
		))
	}

	return penalty == 0, penalty, details
}

// EvaluateAssignment 计算候选分配对班级每日均衡的增量惩罚
func (c *DailyBalanceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	loads := c.dayLoads(ctx, a.SectionID)
	before := variance(loads)
	loads[a.SlotKey/ctx.Grid.PeriodsPerDay]++
	delta := (variance(loads) - before) * c.Weight()
	return delta <= 0, delta
}
