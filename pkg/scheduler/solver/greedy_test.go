package solver

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/constraint/builtin"
)

// buildSnapshot 组装测试快照
func buildSnapshot(teachers []*model.Teacher, rooms []*model.Classroom, sections []*model.Section, subjects []*model.Subject) *model.Snapshot {
	snap := &model.Snapshot{
		InstitutionID: uuid.New(),
		Mode:          model.ModeSchool,
		Teachers:      teachers,
		Rooms:         rooms,
		Sections:      sections,
		Subjects:      subjects,
	}
	snap.Index()
	return snap
}

func newTeacher(name string, availableKeys ...int) *model.Teacher {
	t := &model.Teacher{BaseModel: model.NewBaseModel(), Name: name, Status: "active"}
	if len(availableKeys) > 0 {
		t.Availability = make(map[int]bool, len(availableKeys))
		for _, k := range availableKeys {
			t.Availability[k] = true
		}
	}
	return t
}

func newRoom(name string, capacity int) *model.Classroom {
	return &model.Classroom{BaseModel: model.NewBaseModel(), Name: name, Capacity: capacity}
}

func newSubject(name string, weeklyHours int, teachers ...*model.Teacher) *model.Subject {
	s := &model.Subject{BaseModel: model.NewBaseModel(), Name: name, WeeklyHours: weeklyHours}
	for _, t := range teachers {
		s.QualifiedTeachers = append(s.QualifiedTeachers, t.ID)
		t.Subjects = append(t.Subjects, s.ID)
	}
	return s
}

func newSection(name string, size int, subjects ...*model.Subject) *model.Section {
	sec := &model.Section{BaseModel: model.NewBaseModel(), Name: name, Size: size}
	for _, s := range subjects {
		sec.Curriculum = append(sec.Curriculum, s.ID)
	}
	return sec
}

// 唯一可行布局：教师仅 2 个可用时间格，科目恰好 2 节
func TestGreedy_PlacesExactFit(t *testing.T) {
	teacher := newTeacher("李老师", 0, 1)
	room := newRoom("101", 50)
	subject := newSubject("数学", 2, teacher)
	section := newSection("高一(1)班", 40, subject)
	snap := buildSnapshot([]*model.Teacher{teacher}, []*model.Classroom{room},
		[]*model.Section{section}, []*model.Subject{subject})

	grid := model.NewSlotGrid(5, 8, 45, "08:00", nil)
	activities := snap.ExpandActivities()
	schedCtx := constraint.NewContext(snap, grid, activities)
	manager := builtin.NewDefaultManager(nil, 0)

	init := NewGreedyInitializer(manager, rand.New(rand.NewSource(1)))
	result, err := init.Initialize(context.Background(), schedCtx)
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	if result.Assigned != 2 || len(result.Unassigned) != 0 {
		t.Fatalf("expected both sessions placed, got assigned=%d unassigned=%d",
			result.Assigned, len(result.Unassigned))
	}
	usedKeys := make(map[int]bool)
	for _, a := range schedCtx.Schedule.Entries {
		if a.TeacherID != teacher.ID {
			t.Errorf("wrong teacher assigned: %s", a.TeacherID)
		}
		usedKeys[a.SlotKey] = true
	}
	if !usedKeys[0] || !usedKeys[1] {
		t.Errorf("sessions should land on the teacher's only available slots, got %v", usedKeys)
	}
}

func TestGreedy_LeavesInfeasibleUnassigned(t *testing.T) {
	// 教师仅 1 个可用时间格，2 节课无法全部放下
	teacher := newTeacher("李老师", 0)
	room := newRoom("101", 50)
	subject := newSubject("数学", 2, teacher)
	section := newSection("高一(1)班", 40, subject)
	snap := buildSnapshot([]*model.Teacher{teacher}, []*model.Classroom{room},
		[]*model.Section{section}, []*model.Subject{subject})

	grid := model.NewSlotGrid(5, 8, 45, "08:00", nil)
	schedCtx := constraint.NewContext(snap, grid, snap.ExpandActivities())
	manager := builtin.NewDefaultManager(nil, 0)

	init := NewGreedyInitializer(manager, rand.New(rand.NewSource(1)))
	result, err := init.Initialize(context.Background(), schedCtx)
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	if result.Assigned != 1 || len(result.Unassigned) != 1 {
		t.Fatalf("expected 1 placed and 1 unassigned, got assigned=%d unassigned=%d",
			result.Assigned, len(result.Unassigned))
	}
}

func TestGreedy_OrderMostConstrainedFirst(t *testing.T) {
	// 实验课只有 1 间匹配教室，应先于普通课放置
	teacher := newTeacher("李老师")
	normal := newRoom("101", 50)
	lab := &model.Classroom{BaseModel: model.NewBaseModel(), Name: "实验楼201", Capacity: 50,
		Features: []string{"lab"}}
	physics := newSubject("物理实验", 1, teacher)
	physics.RequiredFeatures = []string{"lab"}
	math := newSubject("数学", 1, teacher)
	section := newSection("高一(1)班", 40, physics, math)
	snap := buildSnapshot([]*model.Teacher{teacher}, []*model.Classroom{normal, lab},
		[]*model.Section{section}, []*model.Subject{physics, math})

	grid := model.NewSlotGrid(5, 8, 45, "08:00", nil)
	schedCtx := constraint.NewContext(snap, grid, snap.ExpandActivities())

	init := NewGreedyInitializer(builtin.NewDefaultManager(nil, 0), rand.New(rand.NewSource(7)))
	ordered := init.order(schedCtx)
	if got := ordered[0].SubjectID; got != physics.ID {
		t.Errorf("lab subject should be ordered first, got %s", got)
	}
}

func TestGreedy_Cancellation(t *testing.T) {
	teacher := newTeacher("李老师")
	room := newRoom("101", 50)
	subject := newSubject("数学", 4, teacher)
	section := newSection("高一(1)班", 40, subject)
	snap := buildSnapshot([]*model.Teacher{teacher}, []*model.Classroom{room},
		[]*model.Section{section}, []*model.Subject{subject})

	schedCtx := constraint.NewContext(snap, model.NewSlotGrid(5, 8, 45, "08:00", nil), snap.ExpandActivities())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	init := NewGreedyInitializer(builtin.NewDefaultManager(nil, 0), rand.New(rand.NewSource(1)))
	if _, err := init.Initialize(ctx, schedCtx); err == nil {
		t.Error("cancelled context should abort initialization")
	}
}

func TestBestPlacement_PrefersLowerSoftPenalty(t *testing.T) {
	// 已排第 0 节，第 1 节填补紧凑，第 3 节产生班级空窗
	teacher := newTeacher("李老师")
	room := newRoom("101", 50)
	subject := newSubject("数学", 2, teacher)
	section := newSection("高一(1)班", 40, subject)
	snap := buildSnapshot([]*model.Teacher{teacher}, []*model.Classroom{room},
		[]*model.Section{section}, []*model.Subject{subject})

	grid := model.NewSlotGrid(1, 4, 45, "08:00", nil)
	activities := snap.ExpandActivities()
	schedCtx := constraint.NewContext(snap, grid, activities)
	manager := builtin.NewDefaultManager(nil, 0)

	schedCtx.Place(&model.Assignment{
		ActivityID: activities[0].ID,
		SectionID:  section.ID,
		SubjectID:  subject.ID,
		TeacherID:  teacher.ID,
		RoomID:     room.ID,
		SlotKey:    0,
	})

	best := bestPlacement(schedCtx, manager, activities[1], rand.New(rand.NewSource(1)))
	if best == nil {
		t.Fatal("bestPlacement should find a slot")
	}
	if best.SlotKey != 1 {
		t.Errorf("expected adjacent slot 1, got %d", best.SlotKey)
	}
}
