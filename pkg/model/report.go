// Package model 定义排课引擎的核心数据模型
package model

import "github.com/google/uuid"

// ResourceClass 缺失资源类别
type ResourceClass string

const (
	ResourceTeacher ResourceClass = "teacher" // 无可授且空闲的教师
	ResourceRoom    ResourceClass = "room"    // 无容量/设施匹配的教室
	ResourceSlot    ResourceClass = "slot"    // 无空闲时间格
)

// Conflict 单个排课单元的未解决冲突
type Conflict struct {
	ActivityID uuid.UUID     `json:"activity_id"`
	SectionID  uuid.UUID     `json:"section_id"`
	SubjectID  uuid.UUID     `json:"subject_id"`
	Resource   ResourceClass `json:"resource"`
	Reason     string        `json:"reason"`
	Constraint string        `json:"constraint,omitempty"`
}

// ConflictReport 冲突报告
type ConflictReport struct {
	Conflicts []Conflict `json:"conflicts"`
}

// Empty 检查报告是否为空
func (r *ConflictReport) Empty() bool {
	return len(r.Conflicts) == 0
}

// Add 追加冲突
func (r *ConflictReport) Add(c Conflict) {
	r.Conflicts = append(r.Conflicts, c)
}

// GenerationReport 生成运行的最终报告
type GenerationReport struct {
	RunID          uuid.UUID       `json:"run_id"`
	InstitutionID  uuid.UUID       `json:"institution_id"`
	Schedule       *Schedule       `json:"schedule"`
	Accuracy       float64         `json:"accuracy"` // 0-1
	SuccessRate    float64         `json:"success_rate"`
	FitnessScore   float64         `json:"fitness_score"`   // 归一化软惩罚得分 0-1
	BestFitness    float64         `json:"best_fitness"`    // 优化器原始适应度（越低越好）
	HardViolations int             `json:"hard_violations"` // 残留硬约束违反数
	TotalActivities int            `json:"total_activities"`
	Generations    int             `json:"generations"` // 实际演化代数
	GenerationTimeSeconds float64  `json:"generation_time_seconds"`
	BudgetExceeded bool            `json:"budget_exceeded"`
	Cancelled      bool            `json:"cancelled"`
	Conflicts      *ConflictReport `json:"conflict_report"`
}

// Feasible 检查课表是否完全可行
func (r *GenerationReport) Feasible() bool {
	return r.HardViolations == 0 && (r.Conflicts == nil || r.Conflicts.Empty())
}
