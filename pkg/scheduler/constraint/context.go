// Package constraint 定义约束接口和管理器
package constraint

import (
	"sort"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/model"
)

// Context 排课上下文：快照 + 网格 + 当前课表及其占用索引
// 每个候选课表使用独立的 Context，可并发评估
type Context struct {
	Snapshot   *model.Snapshot
	Grid       *model.SlotGrid
	Activities []*model.Activity
	Schedule   *model.Schedule

	activityMap map[uuid.UUID]*model.Activity

	// 占用索引：资源 -> 时间格键 -> 占用的排课单元
	// 允许多个占用者，冲突检测依赖该结构
	teacherBusy map[uuid.UUID]map[int][]uuid.UUID
	roomBusy    map[uuid.UUID]map[int][]uuid.UUID
	sectionBusy map[uuid.UUID]map[int][]uuid.UUID
}

// NewContext 创建排课上下文
func NewContext(snap *model.Snapshot, grid *model.SlotGrid, activities []*model.Activity) *Context {
	ctx := &Context{
		Snapshot:    snap,
		Grid:        grid,
		Activities:  activities,
		Schedule:    model.NewSchedule(),
		activityMap: make(map[uuid.UUID]*model.Activity, len(activities)),
		teacherBusy: make(map[uuid.UUID]map[int][]uuid.UUID),
		roomBusy:    make(map[uuid.UUID]map[int][]uuid.UUID),
		sectionBusy: make(map[uuid.UUID]map[int][]uuid.UUID),
	}
	for _, a := range activities {
		ctx.activityMap[a.ID] = a
	}
	return ctx
}

// NewContextFrom 从既有课表创建上下文（用于候选个体评估）
func NewContextFrom(snap *model.Snapshot, grid *model.SlotGrid, activities []*model.Activity, schedule *model.Schedule) *Context {
	ctx := NewContext(snap, grid, activities)
	for _, a := range schedule.Entries {
		ctx.Place(a.Clone())
	}
	return ctx
}

// Activity 按 ID 查找排课单元
func (c *Context) Activity(id uuid.UUID) *model.Activity {
	return c.activityMap[id]
}

// Place 写入分配并更新占用索引
func (c *Context) Place(a *model.Assignment) {
	c.Schedule.Put(a)
	addBusy(c.teacherBusy, a.TeacherID, a.SlotKey, a.ActivityID)
	addBusy(c.roomBusy, a.RoomID, a.SlotKey, a.ActivityID)
	addBusy(c.sectionBusy, a.SectionID, a.SlotKey, a.ActivityID)
}

// Unplace 移除分配并更新占用索引
func (c *Context) Unplace(activityID uuid.UUID) *model.Assignment {
	a := c.Schedule.Get(activityID)
	if a == nil {
		return nil
	}
	c.Schedule.Remove(activityID)
	removeBusy(c.teacherBusy, a.TeacherID, a.SlotKey, activityID)
	removeBusy(c.roomBusy, a.RoomID, a.SlotKey, activityID)
	removeBusy(c.sectionBusy, a.SectionID, a.SlotKey, activityID)
	return a
}

// TeacherOccupants 返回教师在某时间格的占用者
func (c *Context) TeacherOccupants(teacherID uuid.UUID, slotKey int) []uuid.UUID {
	return c.teacherBusy[teacherID][slotKey]
}

// RoomOccupants 返回教室在某时间格的占用者
func (c *Context) RoomOccupants(roomID uuid.UUID, slotKey int) []uuid.UUID {
	return c.roomBusy[roomID][slotKey]
}

// SectionOccupants 返回班级在某时间格的占用者
func (c *Context) SectionOccupants(sectionID uuid.UUID, slotKey int) []uuid.UUID {
	return c.sectionBusy[sectionID][slotKey]
}

// Blockers 返回阻塞候选分配的已排单元（教师/教室/班级三个维度去重）
func (c *Context) Blockers(a *model.Assignment) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	collect := func(ids []uuid.UUID) {
		for _, id := range ids {
			if id != a.ActivityID && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	collect(c.teacherBusy[a.TeacherID][a.SlotKey])
	collect(c.roomBusy[a.RoomID][a.SlotKey])
	collect(c.sectionBusy[a.SectionID][a.SlotKey])
	return out
}

// TeacherDayLoad 返回教师某日已排节数
func (c *Context) TeacherDayLoad(teacherID uuid.UUID, day int) int {
	count := 0
	for key, ids := range c.teacherBusy[teacherID] {
		if key/c.Grid.PeriodsPerDay == day {
			count += len(ids)
		}
	}
	return count
}

// TeacherWeekLoad 返回教师每周已排节数
func (c *Context) TeacherWeekLoad(teacherID uuid.UUID) int {
	count := 0
	for _, ids := range c.teacherBusy[teacherID] {
		count += len(ids)
	}
	return count
}

// SectionDayLoad 返回班级某日已排节数
func (c *Context) SectionDayLoad(sectionID uuid.UUID, day int) int {
	count := 0
	for key, ids := range c.sectionBusy[sectionID] {
		if key/c.Grid.PeriodsPerDay == day {
			count += len(ids)
		}
	}
	return count
}

// TeacherDayPeriods 返回教师某日已占节次（升序去重）
func (c *Context) TeacherDayPeriods(teacherID uuid.UUID, day int) []int {
	return dayPeriods(c.teacherBusy[teacherID], day, c.Grid.PeriodsPerDay)
}

// SectionDayPeriods 返回班级某日已占节次（升序去重）
func (c *Context) SectionDayPeriods(sectionID uuid.UUID, day int) []int {
	return dayPeriods(c.sectionBusy[sectionID], day, c.Grid.PeriodsPerDay)
}

// SectionRoomAt 返回班级在某时间格使用的教室（未占用返回 uuid.Nil）
func (c *Context) SectionRoomAt(sectionID uuid.UUID, slotKey int) uuid.UUID {
	ids := c.sectionBusy[sectionID][slotKey]
	if len(ids) == 0 {
		return uuid.Nil
	}
	a := c.Schedule.Get(ids[0])
	if a == nil {
		return uuid.Nil
	}
	return a.RoomID
}

func addBusy(index map[uuid.UUID]map[int][]uuid.UUID, resource uuid.UUID, slotKey int, activityID uuid.UUID) {
	slots, ok := index[resource]
	if !ok {
		slots = make(map[int][]uuid.UUID)
		index[resource] = slots
	}
	slots[slotKey] = append(slots[slotKey], activityID)
}

func removeBusy(index map[uuid.UUID]map[int][]uuid.UUID, resource uuid.UUID, slotKey int, activityID uuid.UUID) {
	ids := index[resource][slotKey]
	for i, id := range ids {
		if id == activityID {
			index[resource][slotKey] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(index[resource][slotKey]) == 0 {
		delete(index[resource], slotKey)
	}
}

func dayPeriods(busy map[int][]uuid.UUID, day, periodsPerDay int) []int {
	var periods []int
	for key, ids := range busy {
		if len(ids) > 0 && key/periodsPerDay == day {
			periods = append(periods, key%periodsPerDay)
		}
	}
	sort.Ints(periods)
	return periods
}
