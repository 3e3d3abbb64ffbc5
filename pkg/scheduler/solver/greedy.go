package solver

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// InitResult 初排结果
type InitResult struct {
	Assigned   int               `json:"assigned"`
	Unassigned []*model.Activity `json:"unassigned"`
	Duration   time.Duration     `json:"duration"`
}

// GreedyInitializer 贪心初排器
// 按可选余地升序逐个放置排课单元，无法放置的单元留待修复阶段
// 初排永不失败：最坏情况是全部单元留在 Unassigned 中
type GreedyInitializer struct {
	manager *constraint.Manager
	rng     *rand.Rand
}

// NewGreedyInitializer 创建贪心初排器
func NewGreedyInitializer(manager *constraint.Manager, rng *rand.Rand) *GreedyInitializer {
	return &GreedyInitializer{
		manager: manager,
		rng:     rng,
	}
}

// Name 返回初排器名称
func (g *GreedyInitializer) Name() string {
	return "GreedyInitializer"
}

// Initialize 执行初排，直接写入 schedCtx 的课表
func (g *GreedyInitializer) Initialize(ctx context.Context, schedCtx *constraint.Context) (*InitResult, error) {
	start := time.Now()

	activities := g.order(schedCtx)

	result := &InitResult{}
	for _, a := range activities {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		best := bestPlacement(schedCtx, g.manager, a, g.rng)
		if best == nil {
			result.Unassigned = append(result.Unassigned, a)
			continue
		}
		schedCtx.Place(best)
		result.Assigned++
	}

	result.Duration = time.Since(start)
	return result, nil
}

// order 返回按排课难度排序的单元列表
// 可选余地小的在前；余地相同时每周课时多的科目在前；
// 仍相同则随机打破平局，避免固定布局偏置
func (g *GreedyInitializer) order(schedCtx *constraint.Context) []*model.Activity {
	activities := make([]*model.Activity, len(schedCtx.Activities))
	copy(activities, schedCtx.Activities)
	if g.rng != nil {
		g.rng.Shuffle(len(activities), func(i, j int) {
			activities[i], activities[j] = activities[j], activities[i]
		})
	}

	dof := make(map[*model.Activity]int, len(activities))
	hours := make(map[*model.Activity]int, len(activities))
	for _, a := range activities {
		dof[a] = degreeOfFreedom(schedCtx.Snapshot, schedCtx.Grid, a)
		if subject := schedCtx.Snapshot.Subject(a.SubjectID); subject != nil {
			hours[a] = subject.WeeklyHours
		}
	}

	sort.SliceStable(activities, func(i, j int) bool {
		ai, aj := activities[i], activities[j]
		if dof[ai] != dof[aj] {
			return dof[ai] < dof[aj]
		}
		return hours[ai] > hours[aj]
	})

	return activities
}
