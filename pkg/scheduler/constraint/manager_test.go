package constraint

import (
	"testing"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
)

// stubConstraint 测试用约束
type stubConstraint struct {
	typ      Type
	category Category
	weight   float64
	valid    bool
	penalty  float64
}

func (s *stubConstraint) Name() string       { return string(s.typ) }
func (s *stubConstraint) Type() Type         { return s.typ }
func (s *stubConstraint) Category() Category { return s.category }
func (s *stubConstraint) Weight() float64    { return s.weight }

func (s *stubConstraint) Evaluate(ctx *Context) (bool, float64, []ViolationDetail) {
	if s.valid {
		return true, 0, nil
	}
	return false, s.penalty, []ViolationDetail{{ConstraintType: s.typ, Penalty: s.penalty}}
}

func (s *stubConstraint) EvaluateAssignment(ctx *Context, a *model.Assignment) (bool, float64) {
	return s.valid, s.penalty
}

func TestManager_RegisterReplacesSameType(t *testing.T) {
	m := NewManager()
	m.Register(&stubConstraint{typ: "x", category: CategorySoft, weight: 1, valid: true})
	m.Register(&stubConstraint{typ: "x", category: CategorySoft, weight: 9, valid: true})

	if m.Count() != 1 {
		t.Fatalf("expected 1 constraint after replace, got %d", m.Count())
	}
	if got := m.GetConstraint("x").Weight(); got != 9 {
		t.Errorf("expected replaced weight 9, got %v", got)
	}
}

func TestManager_OrderHardFirst(t *testing.T) {
	m := NewManager()
	m.Register(&stubConstraint{typ: "soft_low", category: CategorySoft, weight: 1, valid: true})
	m.Register(&stubConstraint{typ: "hard", category: CategoryHard, weight: 1, valid: true})
	m.Register(&stubConstraint{typ: "soft_high", category: CategorySoft, weight: 10, valid: true})

	all := append(m.GetByCategory(CategoryHard), m.GetByCategory(CategorySoft)...)
	if all[0].Type() != "hard" {
		t.Errorf("hard constraint should sort first, got %s", all[0].Type())
	}
	if all[1].Type() != "soft_high" {
		t.Errorf("soft constraints should sort by weight desc, got %s", all[1].Type())
	}
}

func TestManager_Evaluate(t *testing.T) {
	m := NewManager()
	m.Register(&stubConstraint{typ: "h1", category: CategoryHard, valid: false, penalty: HardPenalty})
	m.Register(&stubConstraint{typ: "s1", category: CategorySoft, valid: false, penalty: 12})
	m.Register(&stubConstraint{typ: "s2", category: CategorySoft, valid: false, penalty: 8})

	ctx := NewContext(&model.Snapshot{}, model.NewSlotGrid(5, 8, 45, "08:00", nil), nil)
	result := m.Evaluate(ctx)

	if result.IsValid {
		t.Error("result should be invalid with a hard violation")
	}
	if result.HardCount() != 1 {
		t.Errorf("expected 1 hard violation, got %d", result.HardCount())
	}
	if result.SoftPenalty != 20 {
		t.Errorf("expected soft penalty 20, got %v", result.SoftPenalty)
	}
}

func TestManager_CanPlace(t *testing.T) {
	m := NewManager()
	m.Register(&stubConstraint{typ: "h1", category: CategoryHard, valid: false})

	ctx := NewContext(&model.Snapshot{}, model.NewSlotGrid(5, 8, 45, "08:00", nil), nil)
	ok, reason := m.CanPlace(ctx, &model.Assignment{})
	if ok {
		t.Error("CanPlace should fail when a hard constraint rejects")
	}
	if reason == "" {
		t.Error("CanPlace should explain the rejection")
	}

	typ, failed := m.FailedHard(ctx, &model.Assignment{})
	if !failed || typ != "h1" {
		t.Errorf("FailedHard should name h1, got %s", typ)
	}
}

func TestContext_PlaceUnplace(t *testing.T) {
	grid := model.NewSlotGrid(5, 8, 45, "08:00", nil)
	activity := model.NewActivity(uuid.New(), uuid.New(), 1)
	ctx := NewContext(&model.Snapshot{}, grid, []*model.Activity{activity})

	a := &model.Assignment{
		ActivityID: activity.ID,
		SectionID:  activity.SectionID,
		SubjectID:  activity.SubjectID,
		TeacherID:  uuid.New(),
		RoomID:     uuid.New(),
		SlotKey:    3,
	}
	ctx.Place(a)

	if got := ctx.TeacherOccupants(a.TeacherID, 3); len(got) != 1 || got[0] != activity.ID {
		t.Errorf("teacher index not updated: %v", got)
	}
	if got := ctx.RoomOccupants(a.RoomID, 3); len(got) != 1 {
		t.Errorf("room index not updated: %v", got)
	}
	if ctx.TeacherWeekLoad(a.TeacherID) != 1 {
		t.Error("week load should be 1 after place")
	}

	removed := ctx.Unplace(activity.ID)
	if removed == nil || removed.SlotKey != 3 {
		t.Fatal("Unplace should return the removed assignment")
	}
	if len(ctx.TeacherOccupants(a.TeacherID, 3)) != 0 {
		t.Error("teacher index should be empty after unplace")
	}
	if ctx.Schedule.Len() != 0 {
		t.Error("schedule should be empty after unplace")
	}
}

func TestContext_Blockers(t *testing.T) {
	grid := model.NewSlotGrid(5, 8, 45, "08:00", nil)
	a1 := model.NewActivity(uuid.New(), uuid.New(), 1)
	a2 := model.NewActivity(uuid.New(), uuid.New(), 1)
	ctx := NewContext(&model.Snapshot{}, grid, []*model.Activity{a1, a2})

	teacher := uuid.New()
	room := uuid.New()
	ctx.Place(&model.Assignment{ActivityID: a1.ID, SectionID: a1.SectionID, TeacherID: teacher, RoomID: room, SlotKey: 0})

	// a2 与 a1 在同一时间格争用同一教师和教室，Blockers 去重后只有 a1
	candidate := &model.Assignment{ActivityID: a2.ID, SectionID: a2.SectionID, TeacherID: teacher, RoomID: room, SlotKey: 0}
	blockers := ctx.Blockers(candidate)
	if len(blockers) != 1 || blockers[0] != a1.ID {
		t.Errorf("expected single blocker %s, got %v", a1.ID, blockers)
	}

	candidate.SlotKey = 1
	if got := ctx.Blockers(candidate); len(got) != 0 {
		t.Errorf("expected no blockers on a free slot, got %v", got)
	}
}
