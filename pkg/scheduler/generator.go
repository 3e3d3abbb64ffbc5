package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/constraint/builtin"
	"github.com/paike/paike/pkg/scheduler/optimizer"
	"github.com/paike/paike/pkg/scheduler/report"
	"github.com/paike/paike/pkg/scheduler/solver"
)

// Observer 运行事件观察者，用于对接监控
type Observer interface {
	RunStarted(institutionID uuid.UUID)
	RunFinished(institutionID uuid.UUID, state RunState, seconds, accuracy float64)
	BestFitness(institutionID uuid.UUID, fitness float64)
}

// 遗传优化阶段的最小剩余预算
const minOptimizeBudget = time.Second

// Generator 排课生成器
// 同一机构同一时间只允许一个运行，新请求按配置的并发策略处理
type Generator struct {
	mu       sync.Mutex
	runs     map[uuid.UUID]*RunHandle // 机构 -> 在途运行句柄
	logger   *logger.GeneratorLogger
	observer Observer
}

// NewGenerator 创建排课生成器
func NewGenerator() *Generator {
	return &Generator{
		runs:   make(map[uuid.UUID]*RunHandle),
		logger: logger.NewGeneratorLogger(),
	}
}

// SetObserver 设置运行事件观察者
func (g *Generator) SetObserver(o Observer) {
	g.observer = o
}

// Running 返回机构当前在途的运行句柄，无在途运行返回 nil
func (g *Generator) Running(institutionID uuid.UUID) *RunHandle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runs[institutionID]
}

// Cancel 取消机构当前在途的运行
func (g *Generator) Cancel(institutionID uuid.UUID) bool {
	h := g.Running(institutionID)
	if h == nil {
		return false
	}
	h.Cancel()
	return true
}

// Generate 启动一次生成运行并返回句柄
// 同机构已有在途运行时按 cfg.OnConflict 排队、取消或拒绝
func (g *Generator) Generate(ctx context.Context, snap *model.Snapshot, cfg *model.GenerationConfig) (*RunHandle, error) {
	if cfg == nil {
		cfg = model.DefaultGenerationConfig()
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if snap == nil || snap.InstitutionID == uuid.Nil {
		return nil, errors.InvalidInput("snapshot", "快照为空或缺少机构标识")
	}

	handle, err := g.acquire(ctx, snap.InstitutionID, cfg.OnConflict)
	if err != nil {
		return nil, err
	}

	go g.run(handle, snap, cfg)
	return handle, nil
}

// acquire 按并发策略取得机构的运行权并注册新句柄
func (g *Generator) acquire(ctx context.Context, institutionID uuid.UUID, policy model.ConcurrencyPolicy) (*RunHandle, error) {
	for {
		g.mu.Lock()
		existing := g.runs[institutionID]
		if existing == nil {
			runCtx, cancel := context.WithCancel(context.Background())
			handle := newRunHandle(institutionID, cancel)
			handle.runCtx = runCtx
			g.runs[institutionID] = handle
			g.mu.Unlock()
			return handle, nil
		}
		g.mu.Unlock()

		switch policy {
		case model.PolicyReject:
			return nil, errors.ErrGenerationRunning.WithField("institution_id", institutionID.String())
		case model.PolicyCancel:
			existing.Cancel()
		}

		// queue 与 cancel 均等待在途运行结束后重试
		select {
		case <-existing.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// release 注销句柄
func (g *Generator) release(h *RunHandle) {
	g.mu.Lock()
	if g.runs[h.InstitutionID] == h {
		delete(g.runs, h.InstitutionID)
	}
	g.mu.Unlock()
}

// run 执行四阶段生成流水线
func (g *Generator) run(h *RunHandle, snap *model.Snapshot, cfg *model.GenerationConfig) {
	ctx := h.runCtx
	start := time.Now()

	h.start()
	if g.observer != nil {
		g.observer.RunStarted(h.InstitutionID)
	}

	finish := func(state RunState, rep *model.GenerationReport, err error) {
		h.finish(state, rep, err)
		g.release(h)
		if g.observer != nil {
			accuracy := 0.0
			if rep != nil {
				accuracy = rep.Accuracy
			}
			g.observer.RunFinished(h.InstitutionID, state, time.Since(start).Seconds(), accuracy)
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	snap.Index()
	grid := cfg.Grid()
	activities := snap.ExpandActivities()
	g.logger.StartGeneration(h.ID.String(), len(activities), len(snap.Teachers), len(snap.Rooms))

	if len(snap.Teachers) == 0 {
		finish(StateFailed, nil, errors.InsufficientResources("teacher", "快照中没有教师"))
		return
	}
	if len(snap.Rooms) == 0 {
		finish(StateFailed, nil, errors.InsufficientResources("room", "快照中没有教室"))
		return
	}

	manager := builtin.NewDefaultManager(cfg.Weights(), cfg.MaxClassesPerDay)
	schedCtx := constraint.NewContext(snap, grid, activities)

	// 阶段一：贪心初排
	h.setPhase(PhaseInit)
	initializer := solver.NewGreedyInitializer(manager, rng)
	phaseStart := time.Now()
	initResult, err := initializer.Initialize(ctx, schedCtx)
	if err != nil {
		finish(StateCancelled, g.partialReport(h, snap, cfg, manager, schedCtx, nil, len(activities), 0, time.Since(start)), errors.New(errors.CodeGenerationCancelled, "生成在初排阶段被取消").WithCause(err))
		return
	}
	g.logger.PhaseComplete(h.ID.String(), string(PhaseInit), time.Since(phaseStart), len(initResult.Unassigned))

	// 阶段二：回溯修复
	h.setPhase(PhaseRepair)
	repairer := solver.NewBacktrackingRepair(manager, rng, cfg.RepairAttemptBound, cfg.RepairMaxDepth)
	phaseStart = time.Now()
	repairResult, err := repairer.Repair(ctx, schedCtx, initResult.Unassigned)
	if err != nil {
		finish(StateCancelled, g.partialReport(h, snap, cfg, manager, schedCtx, repairResult.Unresolved, len(activities), 0, time.Since(start)), errors.New(errors.CodeGenerationCancelled, "生成在修复阶段被取消").WithCause(err))
		return
	}
	g.logger.PhaseComplete(h.ID.String(), string(PhaseRepair), time.Since(phaseStart), len(repairResult.Unresolved))

	// 阶段三：遗传优化
	h.setPhase(PhaseOptimize)
	params := optimizer.AdaptiveParams(len(activities), cfg)
	opt := optimizer.NewGeneticOptimizer(manager, repairer, params, cfg, rng)
	opt.SetProgress(func(generation int, bestFitness float64) {
		h.setProgress(generation, bestFitness)
		if g.observer != nil {
			g.observer.BestFitness(h.InstitutionID, bestFitness)
		}
	})

	budget := cfg.TimeBudget - time.Since(start)
	if budget < minOptimizeBudget {
		budget = minOptimizeBudget
	}
	phaseStart = time.Now()
	optResult, optErr := opt.Optimize(ctx, h.ID.String(), snap, grid, activities, schedCtx.Schedule, budget)
	g.logger.PhaseComplete(h.ID.String(), string(PhaseOptimize), time.Since(phaseStart), 0)

	best := schedCtx.Schedule
	bestFitness := 0.0
	generations := 0
	budgetExceeded := false
	if optResult != nil && optResult.Best != nil {
		best = optResult.Best.Schedule()
		bestFitness = optResult.Best.Fitness
		generations = optResult.Generations
		budgetExceeded = optResult.BudgetExceeded
	}

	// 优化阶段可能补排了修复遗留的单元，报告只保留仍缺位的
	unresolved := repairResult.Unresolved
	if len(unresolved) > 0 {
		var still []solver.Unresolved
		for _, u := range unresolved {
			if best.Get(u.Activity.ID) == nil {
				still = append(still, u)
			}
		}
		unresolved = still
	}

	// 阶段四：报告组装
	h.setPhase(PhaseReport)
	finalCtx := constraint.NewContextFrom(snap, grid, activities, best)
	evaluation := manager.Evaluate(finalCtx)

	builder := report.NewBuilder(cfg)
	rep := builder.Build(report.BuildInput{
		RunID:           h.ID,
		InstitutionID:   h.InstitutionID,
		Schedule:        best,
		Evaluation:      evaluation,
		Unresolved:      unresolved,
		TotalActivities: len(activities),
		BestFitness:     bestFitness,
		Generations:     generations,
		Elapsed:         time.Since(start),
		BudgetExceeded:  budgetExceeded,
		Cancelled:       optErr != nil,
	})

	g.logger.GenerationComplete(h.ID.String(), time.Since(start), rep.Accuracy, len(rep.Conflicts.Conflicts))

	if optErr != nil {
		finish(StateCancelled, rep, errors.New(errors.CodeGenerationCancelled, "生成在优化阶段被取消").WithCause(optErr))
		return
	}
	finish(StateCompleted, rep, nil)
}

// partialReport 为中途取消的运行组装当前进度的报告
func (g *Generator) partialReport(h *RunHandle, snap *model.Snapshot, cfg *model.GenerationConfig, manager *constraint.Manager, schedCtx *constraint.Context, unresolved []solver.Unresolved, total int, generations int, elapsed time.Duration) *model.GenerationReport {
	evaluation := manager.Evaluate(schedCtx)
	builder := report.NewBuilder(cfg)
	return builder.Build(report.BuildInput{
		RunID:           h.ID,
		InstitutionID:   h.InstitutionID,
		Schedule:        schedCtx.Schedule,
		Evaluation:      evaluation,
		Unresolved:      unresolved,
		TotalActivities: total,
		Generations:     generations,
		Elapsed:         elapsed,
		Cancelled:       true,
	})
}

// Validate 评估既有课表，不启动生成
// 返回逐条硬约束违反与软约束惩罚
func (g *Generator) Validate(snap *model.Snapshot, cfg *model.GenerationConfig, schedule *model.Schedule) (*constraint.Result, error) {
	if cfg == nil {
		cfg = model.DefaultGenerationConfig()
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	snap.Index()
	grid := cfg.Grid()
	activities := snap.ExpandActivities()
	manager := builtin.NewDefaultManager(cfg.Weights(), cfg.MaxClassesPerDay)
	schedCtx := constraint.NewContextFrom(snap, grid, activities, schedule)
	return manager.Evaluate(schedCtx), nil
}
