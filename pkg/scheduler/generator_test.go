package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

// easySnapshot 资源充足、必然可全排的快照
func easySnapshot() *model.Snapshot {
	t1 := &model.Teacher{BaseModel: model.NewBaseModel(), Name: "李老师", Status: "active"}
	t2 := &model.Teacher{BaseModel: model.NewBaseModel(), Name: "王老师", Status: "active"}
	r1 := &model.Classroom{BaseModel: model.NewBaseModel(), Name: "101", Capacity: 50}
	r2 := &model.Classroom{BaseModel: model.NewBaseModel(), Name: "102", Capacity: 50}

	math := &model.Subject{BaseModel: model.NewBaseModel(), Name: "数学", WeeklyHours: 3,
		QualifiedTeachers: []uuid.UUID{t1.ID}}
	chinese := &model.Subject{BaseModel: model.NewBaseModel(), Name: "语文", WeeklyHours: 3,
		QualifiedTeachers: []uuid.UUID{t2.ID}}
	t1.Subjects = []uuid.UUID{math.ID}
	t2.Subjects = []uuid.UUID{chinese.ID}

	secA := &model.Section{BaseModel: model.NewBaseModel(), Name: "高一(1)班", Size: 40,
		Curriculum: []uuid.UUID{math.ID, chinese.ID}}
	secB := &model.Section{BaseModel: model.NewBaseModel(), Name: "高一(2)班", Size: 40,
		Curriculum: []uuid.UUID{math.ID, chinese.ID}}

	snap := &model.Snapshot{
		InstitutionID: uuid.New(),
		Mode:          model.ModeSchool,
		Teachers:      []*model.Teacher{t1, t2},
		Rooms:         []*model.Classroom{r1, r2},
		Sections:      []*model.Section{secA, secB},
		Subjects:      []*model.Subject{math, chinese},
	}
	snap.Index()
	return snap
}

// quickConfig 快速收敛的小规模配置
func quickConfig() *model.GenerationConfig {
	cfg := model.DefaultGenerationConfig()
	cfg.PopulationSizeRange = model.IntRange{Min: 4, Max: 8}
	cfg.GenerationRange = model.IntRange{Min: 2, Max: 4}
	cfg.TimeBudget = 10 * time.Second
	cfg.Workers = 2
	cfg.Seed = 42
	cfg.Normalize()
	return cfg
}

func TestGenerate_Completes(t *testing.T) {
	g := NewGenerator()
	handle, err := g.Generate(context.Background(), easySnapshot(), quickConfig())
	if err != nil {
		t.Fatalf("generate failed to start: %v", err)
	}

	rep, err := handle.Wait(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if handle.State() != StateCompleted {
		t.Errorf("expected completed state, got %s", handle.State())
	}
	if rep == nil {
		t.Fatal("completed run must produce a report")
	}
	if !rep.Feasible() {
		t.Errorf("easy snapshot should yield a feasible schedule, conflicts: %+v", rep.Conflicts)
	}
	if rep.SuccessRate != 1.0 {
		t.Errorf("all 12 activities should be placed, success rate %v", rep.SuccessRate)
	}
	if rep.Accuracy <= 0 || rep.Accuracy > 1 {
		t.Errorf("accuracy out of range: %v", rep.Accuracy)
	}
	if rep.Schedule.Len() != 12 {
		t.Errorf("expected 12 placed entries, got %d", rep.Schedule.Len())
	}

	// 运行结束后机构锁应已释放
	if g.Running(handle.InstitutionID) != nil {
		t.Error("institution lock should be released after the run")
	}
}

func TestGenerate_InvalidConfig(t *testing.T) {
	g := NewGenerator()
	cfg := quickConfig()
	cfg.WorkingDays = 0

	_, err := g.Generate(context.Background(), easySnapshot(), cfg)
	if err == nil {
		t.Fatal("invalid config should be rejected before starting")
	}
	if errors.GetCode(err) != errors.CodeConfigurationError {
		t.Errorf("expected configuration error, got %s", errors.GetCode(err))
	}
}

func TestGenerate_NilSnapshot(t *testing.T) {
	g := NewGenerator()
	if _, err := g.Generate(context.Background(), nil, quickConfig()); err == nil {
		t.Error("nil snapshot should be rejected")
	}
}

func TestGenerate_NoTeachers(t *testing.T) {
	g := NewGenerator()
	snap := easySnapshot()
	snap.Teachers = nil
	snap.Index()

	handle, err := g.Generate(context.Background(), snap, quickConfig())
	if err != nil {
		t.Fatalf("generate failed to start: %v", err)
	}
	_, err = handle.Wait(context.Background())
	if err == nil {
		t.Fatal("empty teacher list should fail the run")
	}
	if errors.GetCode(err) != errors.CodeInsufficientResources {
		t.Errorf("expected insufficient resources, got %s", errors.GetCode(err))
	}
	if handle.State() != StateFailed {
		t.Errorf("expected failed state, got %s", handle.State())
	}
}

func TestGenerate_RejectPolicy(t *testing.T) {
	g := NewGenerator()
	snap := easySnapshot()

	// 人为占住机构锁
	inflight := newRunHandle(snap.InstitutionID, func() {})
	g.mu.Lock()
	g.runs[snap.InstitutionID] = inflight
	g.mu.Unlock()
	defer g.release(inflight)

	cfg := quickConfig()
	cfg.OnConflict = model.PolicyReject
	_, err := g.Generate(context.Background(), snap, cfg)
	if err == nil {
		t.Fatal("reject policy should refuse a concurrent run")
	}
	if errors.GetCode(err) != errors.CodeGenerationRunning {
		t.Errorf("expected generation running error, got %s", errors.GetCode(err))
	}
}

func TestGenerate_QueuePolicy(t *testing.T) {
	g := NewGenerator()
	snap := easySnapshot()

	inflight := newRunHandle(snap.InstitutionID, func() {})
	g.mu.Lock()
	g.runs[snap.InstitutionID] = inflight
	g.mu.Unlock()

	// 在途运行稍后结束并释放锁
	go func() {
		time.Sleep(50 * time.Millisecond)
		inflight.finish(StateCompleted, nil, nil)
		g.release(inflight)
	}()

	cfg := quickConfig()
	cfg.OnConflict = model.PolicyQueue
	handle, err := g.Generate(context.Background(), snap, cfg)
	if err != nil {
		t.Fatalf("queued generate should start after the in-flight run ends: %v", err)
	}
	if _, err := handle.Wait(context.Background()); err != nil {
		t.Fatalf("queued run failed: %v", err)
	}
}

func TestGenerate_CancelPolicy(t *testing.T) {
	g := NewGenerator()
	snap := easySnapshot()

	cancelled := make(chan struct{})
	inflight := newRunHandle(snap.InstitutionID, func() { close(cancelled) })
	g.mu.Lock()
	g.runs[snap.InstitutionID] = inflight
	g.mu.Unlock()

	// 被取消后在途运行退出并释放锁
	go func() {
		<-cancelled
		inflight.finish(StateCancelled, nil, nil)
		g.release(inflight)
	}()

	cfg := quickConfig()
	cfg.OnConflict = model.PolicyCancel
	handle, err := g.Generate(context.Background(), snap, cfg)
	if err != nil {
		t.Fatalf("cancel policy should displace the in-flight run: %v", err)
	}

	select {
	case <-cancelled:
	default:
		t.Error("cancel policy must cancel the in-flight run")
	}
	if _, err := handle.Wait(context.Background()); err != nil {
		t.Fatalf("replacing run failed: %v", err)
	}
}

func TestGenerate_QueueAbandoned(t *testing.T) {
	g := NewGenerator()
	snap := easySnapshot()

	inflight := newRunHandle(snap.InstitutionID, func() {})
	g.mu.Lock()
	g.runs[snap.InstitutionID] = inflight
	g.mu.Unlock()
	defer g.release(inflight)

	cfg := quickConfig()
	cfg.OnConflict = model.PolicyQueue
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Generate(ctx, snap, cfg); err == nil {
		t.Error("abandoning the queue wait should surface the context error")
	}
}

func TestGenerator_CancelNoRun(t *testing.T) {
	g := NewGenerator()
	if g.Cancel(uuid.New()) {
		t.Error("cancelling a nonexistent run should return false")
	}
}

func TestValidate(t *testing.T) {
	g := NewGenerator()
	snap := easySnapshot()
	cfg := quickConfig()

	// 空课表没有硬约束违反
	result, err := g.Validate(snap, cfg, model.NewSchedule())
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.IsValid {
		t.Errorf("empty schedule should be valid: %v", result.HardViolations)
	}

	// 同一教师同一时间格两节课
	activities := snap.ExpandActivities()
	sched := model.NewSchedule()
	sched.Put(&model.Assignment{
		ActivityID: activities[0].ID,
		SectionID:  activities[0].SectionID,
		SubjectID:  activities[0].SubjectID,
		TeacherID:  snap.Teachers[0].ID,
		RoomID:     snap.Rooms[0].ID,
		SlotKey:    0,
	})
	sched.Put(&model.Assignment{
		ActivityID: activities[1].ID,
		SectionID:  activities[1].SectionID,
		SubjectID:  activities[1].SubjectID,
		TeacherID:  snap.Teachers[0].ID,
		RoomID:     snap.Rooms[1].ID,
		SlotKey:    0,
	})

	result, err = g.Validate(snap, cfg, sched)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.IsValid {
		t.Error("double-booked teacher should be flagged")
	}
}

func TestRunHandle_Lifecycle(t *testing.T) {
	h := newRunHandle(uuid.New(), func() {})
	if h.State() != StateIdle {
		t.Errorf("new handle should be idle, got %s", h.State())
	}
	if h.State().Terminal() {
		t.Error("idle is not terminal")
	}

	h.start()
	if h.State() != StateRunning {
		t.Errorf("expected running, got %s", h.State())
	}
	h.setPhase(PhaseOptimize)
	h.setProgress(7, 123.4)

	p := h.Progress()
	if p.Phase != PhaseOptimize || p.Generation != 7 || p.BestFitness != 123.4 {
		t.Errorf("progress snapshot mismatch: %+v", p)
	}
	if p.StartedAt.IsZero() {
		t.Error("started handle should record a start time")
	}

	h.finish(StateCompleted, &model.GenerationReport{}, nil)
	if !h.State().Terminal() {
		t.Error("completed is terminal")
	}
	select {
	case <-h.Done():
	default:
		t.Error("done channel should be closed after finish")
	}

	// 终态后的取消幂等且无副作用
	h.Cancel()
	h.Cancel()
	if h.State() != StateCompleted {
		t.Errorf("cancel after finish must not change state, got %s", h.State())
	}
}

func TestRunHandle_WaitContext(t *testing.T) {
	h := newRunHandle(uuid.New(), func() {})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := h.Wait(ctx); err == nil {
		t.Error("waiting on an unfinished run should respect the context deadline")
	}
}
