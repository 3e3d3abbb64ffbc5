package builtin

import (
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// NewDefaultManager 创建注册了全部内置约束的管理器
// weights 为软约束权重表，缺省项使用默认权重
// defaultDailyLimit 为班级每日节数的默认上限，0 表示不限
func NewDefaultManager(weights map[string]float64, defaultDailyLimit int) *constraint.Manager {
	w := func(rule string) float64 {
		if v, ok := weights[rule]; ok {
			return v
		}
		return model.DefaultSoftWeights()[rule]
	}

	m := constraint.NewManager()

	// 硬约束
	m.Register(NewTeacherConflictConstraint())
	m.Register(NewRoomConflictConstraint())
	m.Register(NewSectionConflictConstraint())
	m.Register(NewRoomCapacityConstraint())
	m.Register(NewRoomFeaturesConstraint())
	m.Register(NewTeacherQualificationConstraint())
	m.Register(NewTeacherLoadConstraint())
	m.Register(NewSectionDailyLimitConstraint(defaultDailyLimit))

	// 软约束
	m.Register(NewTeacherGapsConstraint(w(model.RuleTeacherGaps)))
	m.Register(NewSectionGapsConstraint(w(model.RuleSectionGaps)))
	m.Register(NewDailyBalanceConstraint(w(model.RuleDailyBalance)))
	m.Register(NewContiguityConstraint(w(model.RuleContiguity)))
	m.Register(NewRoomChurnConstraint(w(model.RuleRoomChurn)))

	return m
}
