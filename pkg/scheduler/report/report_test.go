package report

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/solver"
)

func feasibleEvaluation(softPenalty float64) *constraint.Result {
	return &constraint.Result{
		IsValid:        true,
		HardViolations: []constraint.ViolationDetail{},
		SoftViolations: []constraint.ViolationDetail{},
		SoftPenalty:    softPenalty,
	}
}

func scheduleOf(n int) *model.Schedule {
	s := model.NewSchedule()
	for i := 0; i < n; i++ {
		s.Put(&model.Assignment{ActivityID: uuid.New(), SlotKey: i})
	}
	return s
}

func TestBuild_PerfectRun(t *testing.T) {
	b := NewBuilder(model.DefaultGenerationConfig())
	report := b.Build(BuildInput{
		RunID:           uuid.New(),
		InstitutionID:   uuid.New(),
		Schedule:        scheduleOf(10),
		Evaluation:      feasibleEvaluation(0),
		TotalActivities: 10,
		Generations:     12,
		Elapsed:         3 * time.Second,
	})

	if report.Accuracy != 1.0 {
		t.Errorf("full placement with zero penalty should score 1.0, got %v", report.Accuracy)
	}
	if report.SuccessRate != 1.0 {
		t.Errorf("expected success rate 1.0, got %v", report.SuccessRate)
	}
	if !report.Feasible() {
		t.Error("report should be feasible")
	}
	if report.Generations != 12 {
		t.Errorf("generations should pass through, got %d", report.Generations)
	}
	if report.GenerationTimeSeconds != 3 {
		t.Errorf("elapsed seconds should pass through, got %v", report.GenerationTimeSeconds)
	}
}

func TestBuild_AccuracyFormula(t *testing.T) {
	cfg := model.DefaultGenerationConfig()
	cfg.FitnessScale = 100
	b := NewBuilder(cfg)

	report := b.Build(BuildInput{
		Schedule:        scheduleOf(8),
		Evaluation:      feasibleEvaluation(50),
		TotalActivities: 10,
	})

	wantSuccess := 0.8
	wantFitness := 1.0 / 1.5
	want := 0.6*wantSuccess + 0.4*wantFitness
	if math.Abs(report.Accuracy-want) > 1e-9 {
		t.Errorf("accuracy = %v, want %v", report.Accuracy, want)
	}
	if report.SuccessRate != wantSuccess {
		t.Errorf("success rate = %v, want %v", report.SuccessRate, wantSuccess)
	}
	if math.Abs(report.FitnessScore-wantFitness) > 1e-9 {
		t.Errorf("fitness score = %v, want %v", report.FitnessScore, wantFitness)
	}
}

func TestBuild_EmptyProblem(t *testing.T) {
	b := NewBuilder(model.DefaultGenerationConfig())
	report := b.Build(BuildInput{
		Schedule:        model.NewSchedule(),
		Evaluation:      feasibleEvaluation(0),
		TotalActivities: 0,
	})
	if report.SuccessRate != 1.0 {
		t.Errorf("empty problem should count as fully successful, got %v", report.SuccessRate)
	}
}

func TestBuild_UnresolvedConflicts(t *testing.T) {
	b := NewBuilder(model.DefaultGenerationConfig())
	activity := model.NewActivity(uuid.New(), uuid.New(), 1)

	report := b.Build(BuildInput{
		Schedule:   scheduleOf(1),
		Evaluation: feasibleEvaluation(0),
		Unresolved: []solver.Unresolved{{
			Activity: activity,
			Resource: model.ResourceTeacher,
			Reason:   "无空闲的可授教师",
		}},
		TotalActivities: 2,
	})

	if report.Feasible() {
		t.Error("unresolved activity should make the report infeasible")
	}
	if len(report.Conflicts.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(report.Conflicts.Conflicts))
	}
	c := report.Conflicts.Conflicts[0]
	if c.Resource != model.ResourceTeacher || c.ActivityID != activity.ID {
		t.Errorf("conflict should carry the unresolved activity, got %+v", c)
	}
	if report.SuccessRate != 0.5 {
		t.Errorf("expected success rate 0.5, got %v", report.SuccessRate)
	}
	if report.Accuracy >= 1.0 {
		t.Errorf("partial placement must score below 1.0, got %v", report.Accuracy)
	}
}

func TestBuild_ResidualHardViolations(t *testing.T) {
	b := NewBuilder(model.DefaultGenerationConfig())
	sched := scheduleOf(2)
	var firstID uuid.UUID
	for id := range sched.Entries {
		firstID = id
		break
	}

	eval := &constraint.Result{
		IsValid: false,
		HardViolations: []constraint.ViolationDetail{{
			ConstraintType: constraint.TypeRoomConflict,
			ActivityIDs:    []uuid.UUID{firstID},
			Message:        "教室在同一时间格被分配 2 节课",
		}},
	}

	report := b.Build(BuildInput{
		Schedule:        sched,
		Evaluation:      eval,
		TotalActivities: 2,
	})

	if report.HardViolations != 1 {
		t.Errorf("expected 1 residual hard violation, got %d", report.HardViolations)
	}
	if report.Feasible() {
		t.Error("residual hard violation should make the report infeasible")
	}
	// 涉硬违反的单元不计入成功率
	if report.SuccessRate != 0.5 {
		t.Errorf("violating unit should not count as success, got rate %v", report.SuccessRate)
	}
	c := report.Conflicts.Conflicts[0]
	if c.Resource != model.ResourceRoom {
		t.Errorf("room conflict should classify as room resource, got %s", c.Resource)
	}
	if c.Constraint != string(constraint.TypeRoomConflict) {
		t.Errorf("conflict should name the violated constraint, got %s", c.Constraint)
	}
}

func TestResourceOf(t *testing.T) {
	cases := []struct {
		typ  constraint.Type
		want model.ResourceClass
	}{
		{constraint.TypeTeacherConflict, model.ResourceTeacher},
		{constraint.TypeTeacherQualification, model.ResourceTeacher},
		{constraint.TypeTeacherLoad, model.ResourceTeacher},
		{constraint.TypeRoomConflict, model.ResourceRoom},
		{constraint.TypeRoomCapacity, model.ResourceRoom},
		{constraint.TypeRoomFeatures, model.ResourceRoom},
		{constraint.TypeSectionConflict, model.ResourceSlot},
		{constraint.TypeSectionDailyLimit, model.ResourceSlot},
	}
	for _, tc := range cases {
		if got := resourceOf(tc.typ); got != tc.want {
			t.Errorf("resourceOf(%s) = %s, want %s", tc.typ, got, tc.want)
		}
	}
}
