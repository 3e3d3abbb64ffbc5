package builtin

import (
	"testing"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// fixture 内置约束测试夹具
type fixture struct {
	snap    *model.Snapshot
	grid    *model.SlotGrid
	teacher *model.Teacher
	room    *model.Classroom
	lab     *model.Classroom
	section *model.Section
	math    *model.Subject
}

func newFixture() *fixture {
	teacher := &model.Teacher{BaseModel: model.NewBaseModel(), Name: "王老师", Status: "active"}
	room := &model.Classroom{BaseModel: model.NewBaseModel(), Name: "101", Capacity: 50}
	lab := &model.Classroom{BaseModel: model.NewBaseModel(), Name: "实验楼201", Capacity: 50,
		Features: []string{"lab"}}
	math := &model.Subject{BaseModel: model.NewBaseModel(), Name: "数学", WeeklyHours: 4,
		QualifiedTeachers: []uuid.UUID{teacher.ID}}
	teacher.Subjects = []uuid.UUID{math.ID}
	section := &model.Section{BaseModel: model.NewBaseModel(), Name: "高一(1)班", Size: 40,
		Curriculum: []uuid.UUID{math.ID}}

	snap := &model.Snapshot{
		InstitutionID: uuid.New(),
		Mode:          model.ModeSchool,
		Teachers:      []*model.Teacher{teacher},
		Rooms:         []*model.Classroom{room, lab},
		Sections:      []*model.Section{section},
		Subjects:      []*model.Subject{math},
	}
	snap.Index()

	return &fixture{
		snap:    snap,
		grid:    model.NewSlotGrid(5, 8, 45, "08:00", nil),
		teacher: teacher,
		room:    room,
		lab:     lab,
		section: section,
		math:    math,
	}
}

func (f *fixture) context() *constraint.Context {
	return constraint.NewContext(f.snap, f.grid, nil)
}

func (f *fixture) assignment(slotKey int) *model.Assignment {
	return &model.Assignment{
		ActivityID: uuid.New(),
		SectionID:  f.section.ID,
		SubjectID:  f.math.ID,
		TeacherID:  f.teacher.ID,
		RoomID:     f.room.ID,
		SlotKey:    slotKey,
	}
}

func TestTeacherConflict(t *testing.T) {
	f := newFixture()
	ctx := f.context()
	ctx.Place(f.assignment(0))

	c := NewTeacherConflictConstraint()

	// 同一教师同一时间格
	other := f.assignment(0)
	other.RoomID = f.lab.ID
	other.SectionID = uuid.New()
	if valid, _ := c.EvaluateAssignment(ctx, other); valid {
		t.Error("same teacher in same slot should be rejected")
	}

	other.SlotKey = 1
	if valid, _ := c.EvaluateAssignment(ctx, other); !valid {
		t.Error("different slot should be accepted")
	}

	// 写入冲突后整体评估能检出
	conflict := f.assignment(0)
	conflict.RoomID = f.lab.ID
	ctx.Place(conflict)
	valid, penalty, details := c.Evaluate(ctx)
	if valid {
		t.Fatal("Evaluate should detect the double booking")
	}
	if penalty != constraint.HardPenalty {
		t.Errorf("expected penalty %v for one extra occupant, got %v", constraint.HardPenalty, penalty)
	}
	if len(details) != 1 {
		t.Errorf("conflict group should be reported once, got %d details", len(details))
	}
}

func TestRoomConflict(t *testing.T) {
	f := newFixture()
	ctx := f.context()
	ctx.Place(f.assignment(0))

	c := NewRoomConflictConstraint()
	other := f.assignment(0)
	other.TeacherID = uuid.New()
	other.SectionID = uuid.New()
	if valid, _ := c.EvaluateAssignment(ctx, other); valid {
		t.Error("same room in same slot should be rejected")
	}
}

func TestSectionConflict(t *testing.T) {
	f := newFixture()
	ctx := f.context()
	ctx.Place(f.assignment(0))

	c := NewSectionConflictConstraint()
	other := f.assignment(0)
	other.TeacherID = uuid.New()
	other.RoomID = f.lab.ID
	if valid, _ := c.EvaluateAssignment(ctx, other); valid {
		t.Error("same section in same slot should be rejected")
	}
}

func TestRoomCapacity(t *testing.T) {
	f := newFixture()
	f.room.Capacity = 30 // 班级 40 人
	ctx := f.context()

	c := NewRoomCapacityConstraint()
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(0)); valid {
		t.Error("undersized room should be rejected")
	}

	a := f.assignment(0)
	a.RoomID = f.lab.ID
	if valid, _ := c.EvaluateAssignment(ctx, a); !valid {
		t.Error("big enough room should be accepted")
	}
}

func TestRoomFeatures(t *testing.T) {
	f := newFixture()
	f.math.RequiredFeatures = []string{"lab"}
	ctx := f.context()

	c := NewRoomFeaturesConstraint()
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(0)); valid {
		t.Error("room without required feature should be rejected")
	}

	a := f.assignment(0)
	a.RoomID = f.lab.ID
	if valid, _ := c.EvaluateAssignment(ctx, a); !valid {
		t.Error("lab room should be accepted")
	}
}

func TestTeacherQualification(t *testing.T) {
	f := newFixture()
	ctx := f.context()
	c := NewTeacherQualificationConstraint()

	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(0)); !valid {
		t.Error("qualified active teacher should be accepted")
	}

	// 非名单内教师
	a := f.assignment(0)
	a.TeacherID = uuid.New()
	if valid, _ := c.EvaluateAssignment(ctx, a); valid {
		t.Error("unknown teacher should be rejected")
	}

	// 离职
	f.teacher.Status = "leave"
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(0)); valid {
		t.Error("inactive teacher should be rejected")
	}
	f.teacher.Status = "active"

	// 可用时间掩码
	f.teacher.Availability = map[int]bool{5: true}
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(0)); valid {
		t.Error("teacher unavailable at slot should be rejected")
	}
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(5)); !valid {
		t.Error("teacher available at slot should be accepted")
	}
}

func TestTeacherLoad(t *testing.T) {
	f := newFixture()
	f.teacher.MaxDailyLoad = 2
	f.teacher.MaxWeeklyLoad = 3
	ctx := f.context()
	c := NewTeacherLoadConstraint()

	ctx.Place(f.assignment(0))
	ctx.Place(f.assignment(1))

	// 第三节当天超限
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(2)); valid {
		t.Error("third class on same day should exceed daily limit")
	}
	// 换天仍在周限内
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(8)); !valid {
		t.Error("class on another day should be accepted")
	}

	ctx.Place(f.assignment(8))
	// 周限 3 已满
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(16)); valid {
		t.Error("fourth class should exceed weekly limit")
	}
}

func TestSectionDailyLimit(t *testing.T) {
	f := newFixture()
	ctx := f.context()
	c := NewSectionDailyLimitConstraint(2)

	ctx.Place(f.assignment(0))
	ctx.Place(f.assignment(1))
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(2)); valid {
		t.Error("default daily limit should reject the third class")
	}

	// 班级自身上限优先于默认值
	f.section.MaxClassesPerDay = 3
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(2)); !valid {
		t.Error("section limit 3 should accept the third class")
	}

	// 默认 0 表示不限
	f.section.MaxClassesPerDay = 0
	unlimited := NewSectionDailyLimitConstraint(0)
	if valid, _ := unlimited.EvaluateAssignment(ctx, f.assignment(2)); !valid {
		t.Error("zero limit means unlimited")
	}
}

func TestGapCount(t *testing.T) {
	cases := []struct {
		periods []int
		want    int
	}{
		{nil, 0},
		{[]int{3}, 0},
		{[]int{2, 3, 4}, 0},
		{[]int{1, 3}, 1},
		{[]int{0, 3, 7}, 5},
	}
	for _, tc := range cases {
		if got := gapCount(tc.periods); got != tc.want {
			t.Errorf("gapCount(%v) = %d, want %d", tc.periods, got, tc.want)
		}
	}
}

func TestWithPeriod(t *testing.T) {
	got := withPeriod([]int{1, 4}, 2)
	want := []int{1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("withPeriod = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("withPeriod = %v, want %v", got, want)
		}
	}
	// 已存在节次不重复插入
	if got := withPeriod([]int{1, 4}, 4); len(got) != 2 {
		t.Errorf("existing period should not be duplicated: %v", got)
	}
}

func TestTeacherGaps(t *testing.T) {
	f := newFixture()
	ctx := f.context()
	c := NewTeacherGapsConstraint(8)

	ctx.Place(f.assignment(0))
	ctx.Place(f.assignment(2)) // 第 1 节空窗

	valid, penalty, _ := c.Evaluate(ctx)
	if valid {
		t.Error("gap should be penalized")
	}
	if penalty != 8 {
		t.Errorf("expected penalty 8 for one gap, got %v", penalty)
	}

	// 填补空窗的候选给出负增量
	fill := f.assignment(1)
	valid, delta := c.EvaluateAssignment(ctx, fill)
	if !valid || delta >= 0 {
		t.Errorf("filling the gap should yield a negative delta, got %v", delta)
	}

	// 拉开空窗的候选给出正增量
	widen := f.assignment(5)
	valid, delta = c.EvaluateAssignment(ctx, widen)
	if valid || delta <= 0 {
		t.Errorf("widening the gap should yield a positive delta, got %v", delta)
	}
}

func TestGapsZeroWeight(t *testing.T) {
	// 权重为 0 时空窗不产生任何惩罚
	f := newFixture()
	ctx := f.context()
	ctx.Place(f.assignment(0))
	ctx.Place(f.assignment(4))

	for _, c := range []constraint.Constraint{
		NewTeacherGapsConstraint(0),
		NewSectionGapsConstraint(0),
	} {
		valid, penalty, _ := c.Evaluate(ctx)
		if !valid || penalty != 0 {
			t.Errorf("%s: zero weight should produce zero penalty, got %v", c.Name(), penalty)
		}
		if _, delta := c.EvaluateAssignment(ctx, f.assignment(6)); delta != 0 {
			t.Errorf("%s: zero weight delta should be 0, got %v", c.Name(), delta)
		}
	}
}

func TestDailyBalance(t *testing.T) {
	f := newFixture()
	ctx := f.context()
	c := NewDailyBalanceConstraint(5)

	// 全部课集中在第 0 天
	ctx.Place(f.assignment(0))
	ctx.Place(f.assignment(1))
	ctx.Place(f.assignment(2))

	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty <= 0 {
		t.Errorf("lopsided week should be penalized, got %v", penalty)
	}

	// 排到空的一天降低方差
	spread := f.assignment(8)
	if valid, delta := c.EvaluateAssignment(ctx, spread); !valid || delta >= 0 {
		t.Errorf("spreading to an empty day should yield a negative delta, got %v", delta)
	}
	// 继续堆在同一天提高方差
	pile := f.assignment(3)
	if valid, delta := c.EvaluateAssignment(ctx, pile); valid || delta <= 0 {
		t.Errorf("piling onto the busy day should yield a positive delta, got %v", delta)
	}
}

func TestContiguity(t *testing.T) {
	f := newFixture()
	f.math.BlockSize = 2
	ctx := f.context()
	c := NewContiguityConstraint(10)

	ctx.Place(f.assignment(0))

	// 相邻节次可接受
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(1)); !valid {
		t.Error("adjacent period should be accepted")
	}
	// 同日不相邻节次惩罚
	if valid, penalty := c.EvaluateAssignment(ctx, f.assignment(3)); valid || penalty != 10 {
		t.Errorf("non-adjacent period should cost the weight, got %v", penalty)
	}
	// 另一天首节无惩罚
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(8)); !valid {
		t.Error("first period on another day should be accepted")
	}

	// 整体评估检出断裂
	ctx.Place(f.assignment(3))
	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty != 10 {
		t.Errorf("expected one break penalty 10, got %v", penalty)
	}

	// 非连排科目不受约束
	f.math.BlockSize = 1
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(6)); !valid {
		t.Error("non-block subject should be exempt")
	}
}

func TestRoomChurn(t *testing.T) {
	f := newFixture()
	ctx := f.context()
	c := NewRoomChurnConstraint(4)

	ctx.Place(f.assignment(0))

	// 同一教室无惩罚
	if valid, _ := c.EvaluateAssignment(ctx, f.assignment(1)); !valid {
		t.Error("same room should be accepted")
	}
	// 换教室有惩罚
	churn := f.assignment(1)
	churn.RoomID = f.lab.ID
	if valid, penalty := c.EvaluateAssignment(ctx, churn); valid || penalty != 4 {
		t.Errorf("room change should cost the weight, got %v", penalty)
	}

	ctx.Place(churn)
	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty != 4 {
		t.Errorf("expected churn penalty 4, got %v", penalty)
	}
}

func TestNewDefaultManager(t *testing.T) {
	m := NewDefaultManager(nil, 0)
	if m.Count() != 13 {
		t.Errorf("expected 13 builtin constraints, got %d", m.Count())
	}
	if len(m.GetByCategory(constraint.CategoryHard)) != 8 {
		t.Errorf("expected 8 hard constraints, got %d", len(m.GetByCategory(constraint.CategoryHard)))
	}

	custom := NewDefaultManager(map[string]float64{model.RuleContiguity: 99}, 0)
	if got := custom.GetConstraint(constraint.TypeContiguity).Weight(); got != 99 {
		t.Errorf("expected custom weight 99, got %v", got)
	}
	if got := custom.GetConstraint(constraint.TypeRoomChurn).Weight(); got != model.DefaultWeightRoomChurn {
		t.Errorf("missing rule should fall back to default, got %v", got)
	}
}

// 同一课表重复评估的结果必须一致，Place/Unplace 往返也不得改变结果
func TestManagerEvaluateIdempotent(t *testing.T) {
	f := newFixture()
	m := NewDefaultManager(nil, 0)
	ctx := f.context()
	ctx.Place(f.assignment(0))
	ctx.Place(f.assignment(2)) // 留一个空档制造软惩罚
	ctx.Place(f.assignment(8))

	first := m.Evaluate(ctx)
	second := m.Evaluate(ctx)
	if first.IsValid != second.IsValid {
		t.Errorf("validity changed between evaluations: %v vs %v", first.IsValid, second.IsValid)
	}
	if first.HardCount() != second.HardCount() {
		t.Errorf("hard count changed between evaluations: %d vs %d",
			first.HardCount(), second.HardCount())
	}
	if first.SoftPenalty != second.SoftPenalty {
		t.Errorf("soft penalty changed between evaluations: %v vs %v",
			first.SoftPenalty, second.SoftPenalty)
	}

	// 放置再撤销后课表不变，评估结果也不得漂移
	extra := f.assignment(4)
	ctx.Place(extra)
	ctx.Unplace(extra.ActivityID)
	third := m.Evaluate(ctx)
	if third.SoftPenalty != first.SoftPenalty || third.HardCount() != first.HardCount() {
		t.Errorf("evaluation drifted after place/unplace round trip: penalty %v vs %v, hard %d vs %d",
			third.SoftPenalty, first.SoftPenalty, third.HardCount(), first.HardCount())
	}
}
