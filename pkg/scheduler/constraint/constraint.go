// Package constraint 定义约束接口和管理器
package constraint

import (
	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeTeacherConflict      Type = "teacher_conflict"      // 教师同一时间格重复分配
	TypeRoomConflict         Type = "room_conflict"         // 教室同一时间格重复分配
	TypeSectionConflict      Type = "section_conflict"      // 班级同一时间格重复分配
	TypeRoomCapacity         Type = "room_capacity"         // 教室容量不足
	TypeRoomFeatures         Type = "room_features"         // 教室设施不满足
	TypeTeacherQualification Type = "teacher_qualification" // 教师资质或可用时间不符
	TypeTeacherLoad          Type = "teacher_load"          // 教师日/周负荷超限
	TypeSectionDailyLimit    Type = "section_daily_limit"   // 班级每日节数超限

	// 软约束类型
	TypeTeacherGaps  Type = Type(model.RuleTeacherGaps)
	TypeSectionGaps  Type = Type(model.RuleSectionGaps)
	TypeDailyBalance Type = Type(model.RuleDailyBalance)
	TypeContiguity   Type = Type(model.RuleContiguity)
	TypeRoomChurn    Type = Type(model.RuleRoomChurn)
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// HardPenalty 单次硬约束违反的惩罚值
// 远高于任何软约束项，保证可行性主导排序
const HardPenalty = 1000.0

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重
	Weight() float64

	// Evaluate 评估整个课表
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(ctx *Context) (valid bool, penalty float64, details []ViolationDetail)

	// EvaluateAssignment 评估单个分配（在尚未写入上下文时调用）
	// 返回：是否满足、惩罚值
	EvaluateAssignment(ctx *Context, assignment *model.Assignment) (valid bool, penalty float64)
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type        `json:"constraint_type"`
	ConstraintName string      `json:"constraint_name"`
	ActivityIDs    []uuid.UUID `json:"activity_ids,omitempty"`
	SlotKey        int         `json:"slot_key,omitempty"`
	Message        string      `json:"message"`
	Penalty        float64     `json:"penalty"`
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
	SoftPenalty    float64           `json:"soft_penalty"`
}

// HardCount 返回硬约束违反数
func (r *Result) HardCount() int {
	return len(r.HardViolations)
}
