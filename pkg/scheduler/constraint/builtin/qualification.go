package builtin

import (
	"fmt"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// TeacherQualificationConstraint 教师资质约束
// 任课教师须在科目的可授教师名单内、在职、且在该时间格可用
type TeacherQualificationConstraint struct {
	*BaseConstraint
}

// NewTeacherQualificationConstraint 创建教师资质约束
func NewTeacherQualificationConstraint() *TeacherQualificationConstraint {
	return &TeacherQualificationConstraint{
		BaseConstraint: NewBaseConstraint(
			"教师资质与可用时间",
			constraint.TypeTeacherQualification,
			constraint.CategoryHard,
			constraint.HardPenalty,
		),
	}
}

// Evaluate 评估整个课表的教师资质
func (c *TeacherQualificationConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	var penalty float64

	for _, a := range ctx.Schedule.Entries {
		if reason := c.check(ctx, a); reason != "" {
			penalty += constraint.HardPenalty
			details = append(details, c.Violation(a.SlotKey, reason, constraint.HardPenalty, a.ActivityID))
		}
	}

	return len(details) == 0, penalty, details
}

// EvaluateAssignment 检查候选分配的教师资质
func (c *TeacherQualificationConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if c.check(ctx, a) != "" {
		return false, constraint.HardPenalty
	}
	return true, 0
}

func (c *TeacherQualificationConstraint) check(ctx *constraint.Context, a *model.Assignment) string {
	teacher := ctx.Snapshot.Teacher(a.TeacherID)
	subject := ctx.Snapshot.Subject(a.SubjectID)
	if teacher == nil || subject == nil {
		return "教师或科目不存在"
	}
	if !teacher.IsActive() {
		return fmt.Sprintf("教师 %s 不在职", teacher.Name)
	}
	if !subject.IsQualified(teacher.ID) {
		return fmt.Sprintf("教师 %s 无科目 %s 授课资质", teacher.Name, subject.Name)
	}
	if !teacher.AvailableAt(a.SlotKey) {
		return fmt.Sprintf("教师 %s 在该时间格不可用", teacher.Name)
	}
	return ""
}
