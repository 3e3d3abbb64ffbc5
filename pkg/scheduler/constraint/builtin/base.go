// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// BaseConstraint 约束基类
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	weight   float64
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, weight float64) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		weight:   weight,
	}
}

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回约束类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Weight 返回约束权重
func (c *BaseConstraint) Weight() float64 { return c.weight }

// Violation 创建违反详情
func (c *BaseConstraint) Violation(slotKey int, message string, penalty float64, activityIDs ...uuid.UUID) constraint.ViolationDetail {
	return constraint.ViolationDetail{
		ConstraintType: c.typ,
		ConstraintName: c.name,
		ActivityIDs:    activityIDs,
		SlotKey:        slotKey,
		Message:        message,
		Penalty:        penalty,
	}
}

// Evaluate 默认评估实现（子类需覆盖）
func (c *BaseConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	return true, 0, nil
}

// EvaluateAssignment 默认分配评估实现（子类需覆盖）
func (c *BaseConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	return true, 0
}
