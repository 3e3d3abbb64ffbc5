// Package solver 提供课表初排与回溯修复
package solver

import (
	"math"
	"math/rand"
	"sort"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// candidateTeachers 返回可授该科目的在职教师，首选教师在前
func candidateTeachers(snap *model.Snapshot, subject *model.Subject) []*model.Teacher {
	var teachers []*model.Teacher
	for _, id := range subject.QualifiedTeachers {
		t := snap.Teacher(id)
		if t != nil && t.IsActive() {
			teachers = append(teachers, t)
		}
	}
	return teachers
}

// candidateRooms 返回容量和设施均满足的教室，容量小的在前
// 优先占用小教室，给大班级留出余量
func candidateRooms(snap *model.Snapshot, section *model.Section, subject *model.Subject) []*model.Classroom {
	var rooms []*model.Classroom
	for _, r := range snap.Rooms {
		if r.Fits(section.Size, subject.RequiredFeatures) {
			rooms = append(rooms, r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Capacity < rooms[j].Capacity
	})
	return rooms
}

// degreeOfFreedom 估算排课单元的可选余地
// 余地越小的单元越应先排
func degreeOfFreedom(snap *model.Snapshot, grid *model.SlotGrid, a *model.Activity) int {
	subject := snap.Subject(a.SubjectID)
	section := snap.Section(a.SectionID)
	if subject == nil || section == nil {
		return 0
	}
	return len(candidateTeachers(snap, subject)) * len(candidateRooms(snap, section, subject)) * grid.Size()
}

// bestPlacement 在全部候选 (教师, 教室, 时间格) 中选出硬约束可行
// 且软惩罚增量最小的分配；同分候选按 rng 等概率抽取
// 无可行候选时返回 nil
func bestPlacement(ctx *constraint.Context, manager *constraint.Manager, a *model.Activity, rng *rand.Rand) *model.Assignment {
	subject := ctx.Snapshot.Subject(a.SubjectID)
	section := ctx.Snapshot.Section(a.SectionID)
	if subject == nil || section == nil {
		return nil
	}

	var best *model.Assignment
	bestPenalty := math.Inf(1)
	ties := 0

	for _, teacher := range candidateTeachers(ctx.Snapshot, subject) {
		for _, room := range candidateRooms(ctx.Snapshot, section, subject) {
			for _, slot := range ctx.Grid.Slots {
				candidate := &model.Assignment{
					ActivityID: a.ID,
					SectionID:  a.SectionID,
					SubjectID:  a.SubjectID,
					TeacherID:  teacher.ID,
					RoomID:     room.ID,
					SlotKey:    ctx.Grid.Key(slot),
				}
				if ok, _ := manager.CanPlace(ctx, candidate); !ok {
					continue
				}
				penalty := manager.PlacementPenalty(ctx, candidate)
				switch {
				case penalty < bestPenalty:
					best, bestPenalty, ties = candidate, penalty, 1
				case penalty == bestPenalty:
					// 流式等概率抽取同分候选
					ties++
					if rng != nil && rng.Intn(ties) == 0 {
						best = candidate
					}
				}
			}
		}
	}

	return best
}

// classifyMissing 判定排课单元无法放置时缺失的资源类别
// 按教师、教室、时间格的顺序归因：既有占用也计入不可用
func classifyMissing(ctx *constraint.Context, a *model.Activity) (model.ResourceClass, string) {
	subject := ctx.Snapshot.Subject(a.SubjectID)
	section := ctx.Snapshot.Section(a.SectionID)
	if subject == nil {
		return model.ResourceSlot, "科目不存在"
	}
	if section == nil {
		return model.ResourceSlot, "班级不存在"
	}

	teachers := candidateTeachers(ctx.Snapshot, subject)
	if len(teachers) == 0 {
		return model.ResourceTeacher, "无在职的可授教师"
	}

	// 是否存在某个时间格上可用且空闲的可授教师
	teacherFree := false
	for _, t := range teachers {
		for _, slot := range ctx.Grid.Slots {
			key := ctx.Grid.Key(slot)
			if t.AvailableAt(key) && len(ctx.TeacherOccupants(t.ID, key)) == 0 {
				teacherFree = true
				break
			}
		}
		if teacherFree {
			break
		}
	}
	if !teacherFree {
		return model.ResourceTeacher, "无空闲的可授教师"
	}

	rooms := candidateRooms(ctx.Snapshot, section, subject)
	if len(rooms) == 0 {
		return model.ResourceRoom, "无容量和设施均满足的教室"
	}
	roomFree := false
	for _, room := range rooms {
		for _, slot := range ctx.Grid.Slots {
			if len(ctx.RoomOccupants(room.ID, ctx.Grid.Key(slot))) == 0 {
				roomFree = true
				break
			}
		}
		if roomFree {
			break
		}
	}
	if !roomFree {
		return model.ResourceRoom, "无空闲的匹配教室"
	}

	return model.ResourceSlot, "教师、教室与班级的空闲时间格无法对齐"
}
