// Package model 定义排课引擎的核心数据模型
package model

import (
	"time"

	"github.com/paike/paike/pkg/errors"
)

// 软约束规则名
const (
	RuleTeacherGaps  = "teacher_gaps"  // 教师当日空堂
	RuleSectionGaps  = "section_gaps"  // 班级当日空堂
	RuleDailyBalance = "daily_balance" // 每周各日负荷均衡
	RuleContiguity   = "contiguity"    // 连排科目相邻
	RuleRoomChurn    = "room_churn"    // 班级相邻节次换教室
)

// 默认软约束权重
// 数值沿用长期使用的经验值：连排 > 空堂 > 均衡 > 换教室
const (
	DefaultWeightTeacherGaps  = 8.0
	DefaultWeightSectionGaps  = 8.0
	DefaultWeightDailyBalance = 5.0
	DefaultWeightContiguity   = 10.0
	DefaultWeightRoomChurn    = 4.0
)

// DefaultSoftWeights 返回默认软约束权重表
func DefaultSoftWeights() map[string]float64 {
	return map[string]float64{
		RuleTeacherGaps:  DefaultWeightTeacherGaps,
		RuleSectionGaps:  DefaultWeightSectionGaps,
		RuleDailyBalance: DefaultWeightDailyBalance,
		RuleContiguity:   DefaultWeightContiguity,
		RuleRoomChurn:    DefaultWeightRoomChurn,
	}
}

// ConcurrencyPolicy 同机构并发生成请求的处理策略
type ConcurrencyPolicy string

const (
	PolicyQueue   ConcurrencyPolicy = "queue"   // 排队等待在途任务结束
	PolicyCancel  ConcurrencyPolicy = "cancel"  // 取消在途任务
	PolicyReject  ConcurrencyPolicy = "reject"  // 直接拒绝
)

// GenerationConfig 生成运行配置
type GenerationConfig struct {
	// 课表网格
	WorkingDays           int    `json:"working_days"`
	PeriodsPerDay         int    `json:"periods_per_day"`
	PeriodDurationMinutes int    `json:"period_duration_minutes"`
	DayStartTime          string `json:"day_start_time,omitempty"` // HH:MM
	BreakSlots            []int  `json:"break_slots,omitempty"`    // 休息节次索引
	MaxClassesPerDay      int    `json:"max_classes_per_day,omitempty"`

	// 遗传算法参数区间（实际取值按问题规模自适应）
	PopulationSizeRange IntRange   `json:"population_size_range"`
	GenerationRange     IntRange   `json:"generation_range"`
	MutationRateRange   FloatRange `json:"mutation_rate_range"`
	CrossoverRateRange  FloatRange `json:"crossover_rate_range"`

	// 软约束权重，nil 使用默认；非 nil 时必须覆盖全部规则
	SoftConstraintWeights map[string]float64 `json:"soft_constraint_weights,omitempty"`

	// 回溯修复
	RepairAttemptBound int `json:"repair_attempt_bound"`
	RepairMaxDepth     int `json:"repair_max_depth,omitempty"`

	// 运行控制
	TimeBudget     time.Duration     `json:"time_budget"`
	Workers        int               `json:"workers,omitempty"`
	Seed           int64             `json:"seed,omitempty"` // 0 使用时间种子
	OnConflict     ConcurrencyPolicy `json:"on_conflict,omitempty"`
	FitnessScale   float64           `json:"fitness_scale,omitempty"`   // 软惩罚归一化尺度
	PlateauWindow  int               `json:"plateau_window,omitempty"`  // 平台期代数
	TournamentSize int               `json:"tournament_size,omitempty"`
}

// DefaultGenerationConfig 返回默认生成配置
func DefaultGenerationConfig() *GenerationConfig {
	return &GenerationConfig{
		WorkingDays:           5,
		PeriodsPerDay:         8,
		PeriodDurationMinutes: 45,
		DayStartTime:          "08:00",
		PopulationSizeRange:   IntRange{Min: 50, Max: 200},
		GenerationRange:       IntRange{Min: 30, Max: 100},
		MutationRateRange:     FloatRange{Min: 0.03, Max: 0.10},
		CrossoverRateRange:    FloatRange{Min: 0.60, Max: 0.90},
		RepairAttemptBound:    200,
		RepairMaxDepth:        4,
		TimeBudget:            30 * time.Second,
		Workers:               4,
		OnConflict:            PolicyReject,
		FitnessScale:          100.0,
		PlateauWindow:         15,
		TournamentSize:        3,
	}
}

// Weights 返回生效的软约束权重表
func (c *GenerationConfig) Weights() map[string]float64 {
	if c.SoftConstraintWeights == nil {
		return DefaultSoftWeights()
	}
	return c.SoftConstraintWeights
}

// Validate 校验配置，返回首个违规字段的配置错误
func (c *GenerationConfig) Validate() *errors.AppError {
	if c.WorkingDays <= 0 || c.WorkingDays > 7 {
		return errors.ConfigurationError("workingDays", "必须在 1-7 之间")
	}
	if c.PeriodsPerDay <= 0 {
		return errors.ConfigurationError("periodsPerDay", "必须大于 0")
	}
	if c.PeriodDurationMinutes <= 0 {
		return errors.ConfigurationError("periodDurationMinutes", "必须大于 0")
	}
	for _, b := range c.BreakSlots {
		if b < 0 || b >= c.PeriodsPerDay {
			return errors.ConfigurationError("breakSlots", "休息节次超出每日节数范围")
		}
	}
	if len(c.BreakSlots) >= c.PeriodsPerDay {
		return errors.ConfigurationError("breakSlots", "全部节次均为休息，网格为空")
	}
	if c.PopulationSizeRange.Min <= 1 || c.PopulationSizeRange.Max < c.PopulationSizeRange.Min {
		return errors.ConfigurationError("populationSizeRange", "区间无效")
	}
	if c.GenerationRange.Min <= 0 || c.GenerationRange.Max < c.GenerationRange.Min {
		return errors.ConfigurationError("generationRange", "区间无效")
	}
	if c.MutationRateRange.Min < 0 || c.MutationRateRange.Max > 1 ||
		c.MutationRateRange.Max < c.MutationRateRange.Min {
		return errors.ConfigurationError("mutationRateRange", "必须在 [0,1] 内且上界不小于下界")
	}
	if c.CrossoverRateRange.Min < 0 || c.CrossoverRateRange.Max > 1 ||
		c.CrossoverRateRange.Max < c.CrossoverRateRange.Min {
		return errors.ConfigurationError("crossoverRateRange", "必须在 [0,1] 内且上界不小于下界")
	}
	if c.SoftConstraintWeights != nil {
		for rule := range DefaultSoftWeights() {
			if _, ok := c.SoftConstraintWeights[rule]; !ok {
				return errors.ConfigurationError("softConstraintWeights", "缺少规则 "+rule)
			}
		}
		for rule, w := range c.SoftConstraintWeights {
			if w < 0 {
				return errors.ConfigurationError("softConstraintWeights", "规则 "+rule+" 权重不能为负")
			}
		}
	}
	if c.RepairAttemptBound <= 0 {
		return errors.ConfigurationError("repairAttemptBound", "必须大于 0")
	}
	if c.TimeBudget <= 0 {
		return errors.ConfigurationError("timeBudget", "必须大于 0")
	}
	if c.FitnessScale < 0 {
		return errors.ConfigurationError("fitnessScale", "不能为负")
	}
	switch c.OnConflict {
	case "", PolicyQueue, PolicyCancel, PolicyReject:
	default:
		return errors.ConfigurationError("onConflict", "未知策略 "+string(c.OnConflict))
	}
	return nil
}

// Normalize 填充未设置字段的默认值
func (c *GenerationConfig) Normalize() {
	def := DefaultGenerationConfig()
	if c.DayStartTime == "" {
		c.DayStartTime = def.DayStartTime
	}
	if c.RepairMaxDepth <= 0 {
		c.RepairMaxDepth = def.RepairMaxDepth
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.OnConflict == "" {
		c.OnConflict = def.OnConflict
	}
	if c.FitnessScale == 0 {
		c.FitnessScale = def.FitnessScale
	}
	if c.PlateauWindow <= 0 {
		c.PlateauWindow = def.PlateauWindow
	}
	if c.TournamentSize <= 1 {
		c.TournamentSize = def.TournamentSize
	}
}

// Grid 按配置构建课表网格
func (c *GenerationConfig) Grid() *SlotGrid {
	return NewSlotGrid(c.WorkingDays, c.PeriodsPerDay, c.PeriodDurationMinutes, c.DayStartTime, c.BreakSlots)
}
