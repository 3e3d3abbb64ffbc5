// Package report 组装生成运行的最终报告
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/solver"
)

// 准确率中排课成功率与软约束得分的权重
const (
	successWeight = 0.6
	fitnessWeight = 0.4
)

// BuildInput 报告输入
type BuildInput struct {
	RunID           uuid.UUID
	InstitutionID   uuid.UUID
	Schedule        *model.Schedule
	Evaluation      *constraint.Result
	Unresolved      []solver.Unresolved
	TotalActivities int
	BestFitness     float64
	Generations     int
	Elapsed         time.Duration
	BudgetExceeded  bool
	Cancelled       bool
}

// Builder 报告构建器
type Builder struct {
	cfg *model.GenerationConfig
}

// NewBuilder 创建报告构建器
func NewBuilder(cfg *model.GenerationConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build 组装最终报告
// 准确率 = 0.6 × 排课成功率 + 0.4 × 归一化软约束得分
func (b *Builder) Build(in BuildInput) *model.GenerationReport {
	// 成功率只统计无硬约束违反的已排单元
	successRate := 1.0
	if in.TotalActivities > 0 {
		violating := make(map[uuid.UUID]bool)
		for _, v := range in.Evaluation.HardViolations {
			for _, id := range v.ActivityIDs {
				violating[id] = true
			}
		}
		clean := 0
		for _, a := range in.Schedule.Sorted() {
			if !violating[a.ActivityID] {
				clean++
			}
		}
		successRate = float64(clean) / float64(in.TotalActivities)
	}

	fitnessScore := b.normalize(in.Evaluation.SoftPenalty)

	conflicts := &model.ConflictReport{}
	for _, u := range in.Unresolved {
		conflicts.Add(model.Conflict{
			ActivityID: u.Activity.ID,
			SectionID:  u.Activity.SectionID,
			SubjectID:  u.Activity.SubjectID,
			Resource:   u.Resource,
			Reason:     u.Reason,
		})
	}
	for _, v := range in.Evaluation.HardViolations {
		c := model.Conflict{
			Resource:   resourceOf(v.ConstraintType),
			Reason:     v.Message,
			Constraint: string(v.ConstraintType),
		}
		if len(v.ActivityIDs) > 0 {
			c.ActivityID = v.ActivityIDs[0]
			if a := in.Schedule.Get(c.ActivityID); a != nil {
				c.SectionID = a.SectionID
				c.SubjectID = a.SubjectID
			}
		}
		conflicts.Add(c)
	}

	return &model.GenerationReport{
		RunID:                 in.RunID,
		InstitutionID:         in.InstitutionID,
		Schedule:              in.Schedule,
		Accuracy:              successWeight*successRate + fitnessWeight*fitnessScore,
		SuccessRate:           successRate,
		FitnessScore:          fitnessScore,
		BestFitness:           in.BestFitness,
		HardViolations:        in.Evaluation.HardCount(),
		TotalActivities:       in.TotalActivities,
		Generations:           in.Generations,
		GenerationTimeSeconds: in.Elapsed.Seconds(),
		BudgetExceeded:        in.BudgetExceeded,
		Cancelled:             in.Cancelled,
		Conflicts:             conflicts,
	}
}

// normalize 将软约束惩罚映射到 (0,1]，无惩罚为 1
func (b *Builder) normalize(softPenalty float64) float64 {
	scale := b.cfg.FitnessScale
	if scale <= 0 {
		scale = 100.0
	}
	return 1.0 / (1.0 + softPenalty/scale)
}

// resourceOf 按约束类型归类缺失资源
func resourceOf(t constraint.Type) model.ResourceClass {
	switch t {
	case constraint.TypeTeacherConflict, constraint.TypeTeacherQualification, constraint.TypeTeacherLoad:
		return model.ResourceTeacher
	case constraint.TypeRoomConflict, constraint.TypeRoomCapacity, constraint.TypeRoomFeatures:
		return model.ResourceRoom
	default:
		return model.ResourceSlot
	}
}
