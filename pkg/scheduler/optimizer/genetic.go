package optimizer

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/solver"
)

// ProgressFunc 进度回调，每代结束时调用
type ProgressFunc func(generation int, bestFitness float64)

// OptimizeResult 优化结果
type OptimizeResult struct {
	Best           *Individual `json:"best"`
	Generations    int         `json:"generations"` // 实际演化代数
	BudgetExceeded bool        `json:"budget_exceeded"`
}

// GeneticOptimizer 遗传优化器
// 个体为完整课表，锦标赛选择 + 掩码交叉 + 可行均匀变异 + 精英保留
// 基因与全部排课单元下标对齐，初排未放置的单元基因为 nil，演化中逐代尝试补排
type GeneticOptimizer struct {
	manager   *constraint.Manager
	evaluator *ParallelEvaluator
	repair    *solver.BacktrackingRepair
	params    GAParams
	cfg       *model.GenerationConfig
	rng       *rand.Rand
	logger    *logger.GeneratorLogger
	progress  ProgressFunc

	// 单次运行状态
	snap *model.Snapshot
	grid *model.SlotGrid
	all  []*model.Activity
}

// NewGeneticOptimizer 创建遗传优化器
func NewGeneticOptimizer(manager *constraint.Manager, repair *solver.BacktrackingRepair, params GAParams, cfg *model.GenerationConfig, rng *rand.Rand) *GeneticOptimizer {
	return &GeneticOptimizer{
		manager:   manager,
		evaluator: NewParallelEvaluator(cfg.Workers, manager),
		repair:    repair,
		params:    params,
		cfg:       cfg,
		rng:       rng,
		logger:    logger.NewGeneratorLogger(),
	}
}

// Params 返回生效的遗传算法参数
func (o *GeneticOptimizer) Params() GAParams {
	return o.params
}

// SetProgress 设置进度回调
func (o *GeneticOptimizer) SetProgress(fn ProgressFunc) {
	o.progress = fn
}

// 种群初始化时对种子副本施加的扰动率
const initPerturbRate = 0.2

// Optimize 从种子课表出发演化
// 终止条件：代数上限、平台期、时间预算、上下文取消，以先到者为准
// 取消时返回当前最优个体和取消错误
func (o *GeneticOptimizer) Optimize(ctx context.Context, runID string, snap *model.Snapshot, grid *model.SlotGrid, activities []*model.Activity, seed *model.Schedule, budget time.Duration) (*OptimizeResult, error) {
	o.snap = snap
	o.grid = grid
	o.all = activities

	result := &OptimizeResult{}
	population := o.initPopulation(seed)
	o.evaluator.EvaluateBatch(ctx, population, snap, grid, activities)
	if err := ctx.Err(); err != nil {
		result.Best = Best(population)
		return result, err
	}

	best := Best(population).Clone()
	deadline := time.Now().Add(budget)
	plateau := 0

	for gen := 1; gen <= o.params.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			result.Best = best
			return result, err
		}
		if time.Now().After(deadline) {
			result.BudgetExceeded = true
			break
		}

		population = o.nextGeneration(population)
		o.evaluator.EvaluateBatch(ctx, population, snap, grid, activities)
		if err := ctx.Err(); err != nil {
			result.Best = best
			return result, err
		}
		result.Generations = gen

		genBest := Best(population)
		if genBest.Fitness < best.Fitness {
			best = genBest.Clone()
			plateau = 0
			o.logger.NewBest(runID, gen, best.Fitness, best.HardViolations)
		} else {
			plateau++
		}

		if o.progress != nil {
			o.progress(gen, best.Fitness)
		}

		// 平台期只在当前最优已硬约束可行时提前收敛，否则继续演化补排
		if plateau >= o.cfg.PlateauWindow && best.HardViolations == 0 {
			break
		}
	}

	result.Best = best
	return result, nil
}

// initPopulation 以种子课表及其扰动副本构成初始种群
func (o *GeneticOptimizer) initPopulation(seed *model.Schedule) []*Individual {
	first := &Individual{Genes: make([]*model.Assignment, len(o.all))}
	for i, a := range o.all {
		if g := seed.Get(a.ID); g != nil {
			first.Genes[i] = g.Clone()
		}
	}

	population := make([]*Individual, 0, o.params.PopulationSize)
	population = append(population, first)
	for len(population) < o.params.PopulationSize {
		clone := first.Clone()
		o.mutateWith(clone, initPerturbRate)
		population = append(population, clone)
	}
	return population
}

// nextGeneration 产生下一代种群
func (o *GeneticOptimizer) nextGeneration(population []*Individual) []*Individual {
	next := make([]*Individual, 0, o.params.PopulationSize)

	// 精英保留：适应度最低的个体直接进入下一代
	elites := make([]*Individual, len(population))
	copy(elites, population)
	sort.Slice(elites, func(i, j int) bool {
		return elites[i].Fitness < elites[j].Fitness
	})
	eliteCount := o.params.PopulationSize / 20
	if eliteCount < 1 {
		eliteCount = 1
	}
	for i := 0; i < eliteCount && i < len(elites); i++ {
		next = append(next, elites[i].Clone())
	}

	for len(next) < o.params.PopulationSize {
		parent := o.tournament(population)
		var child *Individual
		if o.rng.Float64() < o.params.CrossoverRate {
			child = o.crossover(parent, o.tournament(population))
		} else {
			child = parent.Clone()
		}
		o.mutateWith(child, o.params.MutationRate)
		next = append(next, child)
	}

	return next
}

// tournament 锦标赛选择：随机抽取若干个体，返回其中适应度最低者
func (o *GeneticOptimizer) tournament(population []*Individual) *Individual {
	best := population[o.rng.Intn(len(population))]
	for i := 1; i < o.cfg.TournamentSize; i++ {
		candidate := population[o.rng.Intn(len(population))]
		if candidate.Fitness < best.Fitness {
			best = candidate
		}
	}
	return best
}

// crossover 掩码交叉
// 逐基因随机取自父代之一；继承的分配与已有基因冲突时
// 先做一次就地重找位，仍失败则保留甲方基因并交由适应度惩罚
// 双亲均缺失的基因同样尝试找位，失败则留空
func (o *GeneticOptimizer) crossover(a, b *Individual) *Individual {
	schedCtx := constraint.NewContext(o.snap, o.grid, o.all)
	var pending []int

	for i := range o.all {
		gene := a.Genes[i]
		if o.rng.Float64() < 0.5 {
			gene = b.Genes[i]
		}
		if gene == nil {
			pending = append(pending, i)
			continue
		}
		candidate := gene.Clone()
		if ok, _ := o.manager.CanPlace(schedCtx, candidate); ok {
			schedCtx.Place(candidate)
		} else {
			pending = append(pending, i)
		}
	}

	for _, i := range pending {
		if o.repair.PlaceOne(schedCtx, o.all[i]) {
			continue
		}
		if a.Genes[i] != nil {
			schedCtx.Place(a.Genes[i].Clone())
		} else if b.Genes[i] != nil {
			schedCtx.Place(b.Genes[i].Clone())
		}
	}

	child := &Individual{Genes: make([]*model.Assignment, len(o.all))}
	for i, act := range o.all {
		if g := schedCtx.Schedule.Get(act.ID); g != nil {
			child.Genes[i] = g.Clone()
		}
	}
	return child
}

// mutateWith 按给定概率逐基因变异
// 在全部硬约束可行的替代位置中等概率抽取，无可行替代则保持原位
// 缺失基因不受变异率限制，每次都尝试补排
func (o *GeneticOptimizer) mutateWith(ind *Individual, rate float64) {
	schedCtx := constraint.NewContext(o.snap, o.grid, o.all)
	for _, g := range ind.Genes {
		if g != nil {
			schedCtx.Place(g.Clone())
		}
	}

	for i, act := range o.all {
		if ind.Genes[i] == nil {
			if o.repair.PlaceOne(schedCtx, act) {
				ind.Genes[i] = schedCtx.Schedule.Get(act.ID).Clone()
				ind.Evaluated = false
			}
			continue
		}
		if o.rng.Float64() >= rate {
			continue
		}
		prev := schedCtx.Unplace(act.ID)
		alt := o.randomFeasible(schedCtx, act)
		if alt == nil {
			schedCtx.Place(prev)
			continue
		}
		schedCtx.Place(alt)
		ind.Genes[i] = alt.Clone()
		ind.Evaluated = false
	}
}

// randomFeasible 在全部硬约束可行的 (教师, 教室, 时间格) 中等概率抽取
func (o *GeneticOptimizer) randomFeasible(schedCtx *constraint.Context, act *model.Activity) *model.Assignment {
	subject := o.snap.Subject(act.SubjectID)
	section := o.snap.Section(act.SectionID)
	if subject == nil || section == nil {
		return nil
	}

	var chosen *model.Assignment
	count := 0
	for _, teacherID := range subject.QualifiedTeachers {
		teacher := o.snap.Teacher(teacherID)
		if teacher == nil || !teacher.IsActive() {
			continue
		}
		for _, room := range o.snap.Rooms {
			if !room.Fits(section.Size, subject.RequiredFeatures) {
				continue
			}
			for _, slot := range o.grid.Slots {
				candidate := &model.Assignment{
					ActivityID: act.ID,
					SectionID:  act.SectionID,
					SubjectID:  act.SubjectID,
					TeacherID:  teacher.ID,
					RoomID:     room.ID,
					SlotKey:    o.grid.Key(slot),
				}
				if ok, _ := o.manager.CanPlace(schedCtx, candidate); !ok {
					continue
				}
				// 蓄水池抽样保证等概率
				count++
				if o.rng.Intn(count) == 0 {
					chosen = candidate
				}
			}
		}
	}
	return chosen
}
