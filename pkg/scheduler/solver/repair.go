package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// Unresolved 修复后仍无法放置的排课单元
type Unresolved struct {
	Activity *model.Activity     `json:"activity"`
	Resource model.ResourceClass `json:"resource"`
	Reason   string              `json:"reason"`
}

// RepairResult 修复结果
type RepairResult struct {
	Placed     int           `json:"placed"`
	Unresolved []Unresolved  `json:"unresolved"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration"`
}

// BacktrackingRepair 有界回溯修复器
// 先尝试直接放置，失败后允许挪动阻塞单元并递归为其重新找位
// 尝试次数和递归深度均有上界，保证终止
type BacktrackingRepair struct {
	manager      *constraint.Manager
	rng          *rand.Rand
	attemptBound int
	maxDepth     int
}

// NewBacktrackingRepair 创建回溯修复器
func NewBacktrackingRepair(manager *constraint.Manager, rng *rand.Rand, attemptBound, maxDepth int) *BacktrackingRepair {
	return &BacktrackingRepair{
		manager:      manager,
		rng:          rng,
		attemptBound: attemptBound,
		maxDepth:     maxDepth,
	}
}

// Repair 逐个修复未放置的排课单元
// 修复失败的单元按缺失资源类别归类返回
func (r *BacktrackingRepair) Repair(ctx context.Context, schedCtx *constraint.Context, unassigned []*model.Activity) (*RepairResult, error) {
	start := time.Now()
	result := &RepairResult{}

	for _, a := range unassigned {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		attempts := 0
		visited := map[uuid.UUID]bool{a.ID: true}
		if r.place(schedCtx, a, r.maxDepth, visited, &attempts) {
			result.Placed++
		} else {
			resource, reason := classifyMissing(schedCtx, a)
			result.Unresolved = append(result.Unresolved, Unresolved{
				Activity: a,
				Resource: resource,
				Reason:   reason,
			})
		}
		result.Attempts += attempts
	}

	result.Duration = time.Since(start)
	return result, nil
}

// PlaceOne 为单个排课单元直接找位（不挪动已排单元）
// 供交叉修复与变异使用
func (r *BacktrackingRepair) PlaceOne(schedCtx *constraint.Context, a *model.Activity) bool {
	best := bestPlacement(schedCtx, r.manager, a, r.rng)
	if best == nil {
		return false
	}
	schedCtx.Place(best)
	return true
}

// place 带位移的递归放置
// visited 防止同一单元被反复挪动，attempts 约束总尝试次数
func (r *BacktrackingRepair) place(schedCtx *constraint.Context, a *model.Activity, depth int, visited map[uuid.UUID]bool, attempts *int) bool {
	*attempts++
	if *attempts > r.attemptBound {
		return false
	}

	// 直接放置
	if best := bestPlacement(schedCtx, r.manager, a, r.rng); best != nil {
		schedCtx.Place(best)
		return true
	}

	if depth <= 0 {
		return false
	}

	subject := schedCtx.Snapshot.Subject(a.SubjectID)
	section := schedCtx.Snapshot.Section(a.SectionID)
	if subject == nil || section == nil {
		return false
	}

	// 位移：选一个仅被冲突阻塞的候选位置，挪走阻塞单元后递归安置
	for _, teacher := range candidateTeachers(schedCtx.Snapshot, subject) {
		for _, room := range candidateRooms(schedCtx.Snapshot, section, subject) {
			for _, slot := range schedCtx.Grid.Slots {
				if *attempts > r.attemptBound {
					return false
				}
				candidate := &model.Assignment{
					ActivityID: a.ID,
					SectionID:  a.SectionID,
					SubjectID:  a.SubjectID,
					TeacherID:  teacher.ID,
					RoomID:     room.ID,
					SlotKey:    schedCtx.Grid.Key(slot),
				}
				if r.tryDisplace(schedCtx, candidate, depth, visited, attempts) {
					return true
				}
			}
		}
	}

	return false
}

// tryDisplace 尝试挪走候选位置的阻塞单元并放入候选分配
// 任一阻塞单元重排失败则整体回滚
func (r *BacktrackingRepair) tryDisplace(schedCtx *constraint.Context, candidate *model.Assignment, depth int, visited map[uuid.UUID]bool, attempts *int) bool {
	blockers := schedCtx.Blockers(candidate)
	if len(blockers) == 0 {
		// 无阻塞却放不进：被资质/容量/负荷类约束否决，位移无济于事
		return false
	}
	for _, id := range blockers {
		if visited[id] {
			return false
		}
	}

	// 递归可能辗转挪动多个单元，失败时整体还原到进入前的课表
	saved := schedCtx.Schedule.Clone()
	rollback := func() {
		for id := range schedCtx.Schedule.Entries {
			schedCtx.Unplace(id)
		}
		for _, a := range saved.Entries {
			schedCtx.Place(a)
		}
	}

	// 挪走阻塞单元
	displaced := make([]*model.Assignment, 0, len(blockers))
	for _, id := range blockers {
		if prev := schedCtx.Unplace(id); prev != nil {
			displaced = append(displaced, prev)
		}
	}

	// 挪走后仍不可行：候选位置被其他约束否决
	if ok, _ := r.manager.CanPlace(schedCtx, candidate); !ok {
		rollback()
		return false
	}
	schedCtx.Place(candidate)

	for _, id := range blockers {
		visited[id] = true
	}

	// 为每个被挪走的单元递归找新位置
	for _, prev := range displaced {
		blocked := schedCtx.Activity(prev.ActivityID)
		if blocked == nil || !r.place(schedCtx, blocked, depth-1, visited, attempts) {
			rollback()
			return false
		}
	}

	return true
}
