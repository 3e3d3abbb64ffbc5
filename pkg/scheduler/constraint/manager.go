// Package constraint 定义约束接口和管理器
package constraint

import (
	"fmt"
	"sort"
	"sync"

	"github.com/paike/paike/pkg/model"
)

// Manager 约束管理器
// 自身无可变求解状态，可被多个评估协程并发调用
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
	}
}

// Register 注册约束
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 同类型约束替换
	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 按类别和权重排序：硬约束在前，权重高的在前
	sort.Slice(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Weight() > cj.Weight()
	})
}

// Unregister 注销约束
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.constraints {
		if c.Type() == t {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// snapshot 拷贝约束列表
func (m *Manager) snapshot() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	constraints := make([]Constraint, len(m.constraints))
	copy(constraints, m.constraints)
	return constraints
}

// Evaluate 评估课表的全部约束
// 硬约束违反逐条枚举，软约束累加加权惩罚
func (m *Manager) Evaluate(ctx *Context) *Result {
	constraints := m.snapshot()

	result := &Result{
		IsValid:        true,
		HardViolations: make([]ViolationDetail, 0),
		SoftViolations: make([]ViolationDetail, 0),
	}

	for _, c := range constraints {
		valid, penalty, details := c.Evaluate(ctx)
		if valid {
			continue
		}
		if c.Category() == CategoryHard {
			result.IsValid = false
			result.HardViolations = append(result.HardViolations, details...)
		} else {
			result.SoftViolations = append(result.SoftViolations, details...)
			result.SoftPenalty += penalty
		}
	}

	return result
}

// CanPlace 检查候选分配是否违反任何硬约束
// 候选分配尚未写入上下文
func (m *Manager) CanPlace(ctx *Context, assignment *model.Assignment) (bool, string) {
	for _, c := range m.GetByCategory(CategoryHard) {
		valid, _ := c.EvaluateAssignment(ctx, assignment)
		if !valid {
			return false, fmt.Sprintf("违反硬约束: %s", c.Name())
		}
	}
	return true, ""
}

// FailedHard 返回候选分配违反的首个硬约束类型
func (m *Manager) FailedHard(ctx *Context, assignment *model.Assignment) (Type, bool) {
	for _, c := range m.GetByCategory(CategoryHard) {
		valid, _ := c.EvaluateAssignment(ctx, assignment)
		if !valid {
			return c.Type(), true
		}
	}
	return "", false
}

// PlacementPenalty 计算候选分配的软约束惩罚贡献
func (m *Manager) PlacementPenalty(ctx *Context, assignment *model.Assignment) float64 {
	var penalty float64
	for _, c := range m.GetByCategory(CategorySoft) {
		_, p := c.EvaluateAssignment(ctx, assignment)
		penalty += p
	}
	return penalty
}

// Clear 清除所有约束
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = make([]Constraint, 0)
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// Summary 返回约束摘要
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hard := 0
	soft := 0
	for _, c := range m.constraints {
		if c.Category() == CategoryHard {
			hard++
		} else {
			soft++
		}
	}

	return map[string]interface{}{
		"total": len(m.constraints),
		"hard":  hard,
		"soft":  soft,
	}
}
