// Package optimizer 提供课表遗传优化算法
package optimizer

import (
	"math"

	"github.com/paike/paike/pkg/model"
)

// GAParams 实际生效的遗传算法参数
type GAParams struct {
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	MutationRate   float64 `json:"mutation_rate"`
	CrossoverRate  float64 `json:"crossover_rate"`
}

// adaptiveScale 问题规模归一化的参考单元数
// 超过该规模的任务按最大参数运行
const adaptiveScale = 300.0

// AdaptiveParams 按排课单元数在配置区间内自适应选择参数
// 规模越大种群越大、代数越多；变异率随规模降低以减少破坏
func AdaptiveParams(activityCount int, cfg *model.GenerationConfig) GAParams {
	t := float64(activityCount) / adaptiveScale
	if t > 1 {
		t = 1
	}
	if t < 0 {
		t = 0
	}

	lerpInt := func(r model.IntRange) int {
		return r.Clamp(int(math.Round(float64(r.Min) + t*float64(r.Max-r.Min))))
	}
	popRange := cfg.PopulationSizeRange
	genRange := cfg.GenerationRange
	mutRange := cfg.MutationRateRange
	crossRange := cfg.CrossoverRateRange

	return GAParams{
		PopulationSize: lerpInt(popRange),
		Generations:    lerpInt(genRange),
		MutationRate:   mutRange.Clamp(mutRange.Max - t*(mutRange.Max-mutRange.Min)),
		CrossoverRate:  crossRange.Clamp(crossRange.Min + t*(crossRange.Max-crossRange.Min)),
	}
}
