// Package scheduler 提供排课生成的总控流程
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
)

// Phase 生成阶段
type Phase string

const (
	PhaseInit     Phase = "init"     // 贪心初排
	PhaseRepair   Phase = "repair"   // 回溯修复
	PhaseOptimize Phase = "optimize" // 遗传优化
	PhaseReport   Phase = "report"   // 报告组装
)

// RunState 运行状态
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
	StateCancelled RunState = "cancelled"
)

// Terminal 检查状态是否为终态
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Progress 运行进度快照
type Progress struct {
	RunID         uuid.UUID `json:"run_id"`
	InstitutionID uuid.UUID `json:"institution_id"`
	State         RunState  `json:"state"`
	Phase         Phase     `json:"phase,omitempty"`
	Generation    int       `json:"generation,omitempty"`
	BestFitness   float64   `json:"best_fitness,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
}

// RunHandle 一次生成运行的句柄
// 状态机：Idle -> Running -> Completed | Failed | Cancelled
type RunHandle struct {
	ID            uuid.UUID
	InstitutionID uuid.UUID

	mu          sync.RWMutex
	state       RunState
	phase       Phase
	generation  int
	bestFitness float64
	startedAt   time.Time
	report      *model.GenerationReport
	err         error

	runCtx     context.Context
	cancel     context.CancelFunc
	cancelOnce sync.Once
	done       chan struct{}
}

func newRunHandle(institutionID uuid.UUID, cancel context.CancelFunc) *RunHandle {
	return &RunHandle{
		ID:            uuid.New(),
		InstitutionID: institutionID,
		state:         StateIdle,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
}

// State 返回当前状态
func (h *RunHandle) State() RunState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Progress 返回进度快照
func (h *RunHandle) Progress() Progress {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p := Progress{
		RunID:         h.ID,
		InstitutionID: h.InstitutionID,
		State:         h.state,
		Phase:         h.phase,
		Generation:    h.generation,
		BestFitness:   h.bestFitness,
		StartedAt:     h.startedAt,
	}
	if !h.startedAt.IsZero() {
		p.ElapsedSeconds = time.Since(h.startedAt).Seconds()
	}
	return p
}

// Cancel 请求取消运行，幂等
// 终态后的取消请求不产生任何效果
func (h *RunHandle) Cancel() {
	h.cancelOnce.Do(func() {
		if h.cancel != nil {
			h.cancel()
		}
	})
}

// Done 返回运行结束时关闭的通道
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Wait 阻塞等待运行结束
func (h *RunHandle) Wait(ctx context.Context) (*model.GenerationReport, error) {
	select {
	case <-h.done:
		return h.Report()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Report 返回最终报告，未结束时返回 nil
func (h *RunHandle) Report() (*model.GenerationReport, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.report, h.err
}

func (h *RunHandle) start() {
	h.mu.Lock()
	h.state = StateRunning
	h.startedAt = time.Now()
	h.mu.Unlock()
}

func (h *RunHandle) setPhase(phase Phase) {
	h.mu.Lock()
	h.phase = phase
	h.mu.Unlock()
}

func (h *RunHandle) setProgress(generation int, bestFitness float64) {
	h.mu.Lock()
	h.generation = generation
	h.bestFitness = bestFitness
	h.mu.Unlock()
}

// finish 迁移到终态并关闭 done 通道
func (h *RunHandle) finish(state RunState, report *model.GenerationReport, err error) {
	h.mu.Lock()
	h.state = state
	h.report = report
	h.err = err
	h.mu.Unlock()
	close(h.done)
}
