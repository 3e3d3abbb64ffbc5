package optimizer

import (
	"context"
	"sync"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// Individual 种群个体：一张完整候选课表
// Genes 与优化器的排课单元顺序下标对齐，未放置的单元基因为 nil
type Individual struct {
	Genes          []*model.Assignment `json:"genes"`
	Fitness        float64             `json:"fitness"` // 越低越好
	HardViolations int                 `json:"hard_violations"`
	SoftPenalty    float64             `json:"soft_penalty"`
	Evaluated      bool                `json:"evaluated"`
}

// Clone 深拷贝个体
func (ind *Individual) Clone() *Individual {
	clone := &Individual{
		Genes:          make([]*model.Assignment, len(ind.Genes)),
		Fitness:        ind.Fitness,
		HardViolations: ind.HardViolations,
		SoftPenalty:    ind.SoftPenalty,
		Evaluated:      ind.Evaluated,
	}
	for i, g := range ind.Genes {
		if g != nil {
			clone.Genes[i] = g.Clone()
		}
	}
	return clone
}

// Schedule 将个体转换为课表
func (ind *Individual) Schedule() *model.Schedule {
	s := model.NewSchedule()
	for _, g := range ind.Genes {
		if g != nil {
			s.Put(g.Clone())
		}
	}
	return s
}

// ParallelEvaluator 并行适应度评估器
// 每个个体使用独立的约束上下文，可安全并发
type ParallelEvaluator struct {
	workers int
	manager *constraint.Manager
}

// NewParallelEvaluator 创建并行评估器
func NewParallelEvaluator(workers int, manager *constraint.Manager) *ParallelEvaluator {
	if workers <= 0 {
		workers = 4
	}
	return &ParallelEvaluator{
		workers: workers,
		manager: manager,
	}
}

// EvaluateBatch 并行评估一批个体，跳过已评估的个体
func (p *ParallelEvaluator) EvaluateBatch(ctx context.Context, population []*Individual, snap *model.Snapshot, grid *model.SlotGrid, activities []*model.Activity) {
	jobChan := make(chan *Individual, len(population))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ind := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					p.Evaluate(ind, snap, grid, activities)
				}
			}
		}()
	}

	for _, ind := range population {
		if !ind.Evaluated {
			jobChan <- ind
		}
	}
	close(jobChan)
	wg.Wait()
}

// Evaluate 评估单个个体的适应度
// 适应度 = 硬约束违反数 × 硬惩罚 + 软约束加权惩罚
// 缺失基因按硬违反计，演化不得偏向放弃排课单元
func (p *ParallelEvaluator) Evaluate(ind *Individual, snap *model.Snapshot, grid *model.SlotGrid, activities []*model.Activity) {
	schedCtx := constraint.NewContext(snap, grid, activities)
	missing := 0
	for _, g := range ind.Genes {
		if g != nil {
			schedCtx.Place(g.Clone())
		} else {
			missing++
		}
	}

	result := p.manager.Evaluate(schedCtx)
	ind.HardViolations = result.HardCount() + missing
	ind.SoftPenalty = result.SoftPenalty
	ind.Fitness = float64(ind.HardViolations)*constraint.HardPenalty + ind.SoftPenalty
	ind.Evaluated = true
}

// Best 返回种群中适应度最低的个体
func Best(population []*Individual) *Individual {
	if len(population) == 0 {
		return nil
	}
	best := population[0]
	for _, ind := range population[1:] {
		if ind.Fitness < best.Fitness {
			best = ind
		}
	}
	return best
}
