// Package model 定义排课引擎的核心数据模型
package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Activity 排课单元：某班级某科目的一次每周授课
// 生成前由培养方案展开，每个每周课时对应一个 Activity
type Activity struct {
	ID        uuid.UUID `json:"id"`
	SectionID uuid.UUID `json:"section_id"`
	SubjectID uuid.UUID `json:"subject_id"`
	Session   int       `json:"session"` // 第几次课，1 起
}

// NewActivity 创建排课单元
func NewActivity(sectionID, subjectID uuid.UUID, session int) *Activity {
	return &Activity{
		ID:        uuid.New(),
		SectionID: sectionID,
		SubjectID: subjectID,
		Session:   session,
	}
}

// String 返回可读标识
func (a *Activity) String() string {
	return fmt.Sprintf("%s/%s#%d", shortID(a.SectionID), shortID(a.SubjectID), a.Session)
}

// Assignment 排课分配：Activity -> (教师, 教室, 时间格)
type Assignment struct {
	ActivityID uuid.UUID `json:"activity_id"`
	SectionID  uuid.UUID `json:"section_id"`
	SubjectID  uuid.UUID `json:"subject_id"`
	TeacherID  uuid.UUID `json:"teacher_id"`
	RoomID     uuid.UUID `json:"room_id"`
	SlotKey    int       `json:"slot_key"`
}

// Clone 拷贝分配
func (a *Assignment) Clone() *Assignment {
	clone := *a
	return &clone
}

// Schedule 课表：一次生成运行的全部分配
type Schedule struct {
	Entries map[uuid.UUID]*Assignment `json:"entries"` // key: ActivityID
}

// NewSchedule 创建空课表
func NewSchedule() *Schedule {
	return &Schedule{Entries: make(map[uuid.UUID]*Assignment)}
}

// Put 写入分配（覆盖同一 Activity 的旧分配）
func (s *Schedule) Put(a *Assignment) {
	s.Entries[a.ActivityID] = a
}

// Get 读取某排课单元的分配
func (s *Schedule) Get(activityID uuid.UUID) *Assignment {
	return s.Entries[activityID]
}

// Remove 移除某排课单元的分配
func (s *Schedule) Remove(activityID uuid.UUID) {
	delete(s.Entries, activityID)
}

// Len 返回已分配数量
func (s *Schedule) Len() int {
	return len(s.Entries)
}

// Clone 深拷贝课表
func (s *Schedule) Clone() *Schedule {
	clone := &Schedule{Entries: make(map[uuid.UUID]*Assignment, len(s.Entries))}
	for id, a := range s.Entries {
		clone.Entries[id] = a.Clone()
	}
	return clone
}

// Sorted 返回按 (时间格, 班级) 排序的分配列表
func (s *Schedule) Sorted() []*Assignment {
	out := make([]*Assignment, 0, len(s.Entries))
	for _, a := range s.Entries {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlotKey != out[j].SlotKey {
			return out[i].SlotKey < out[j].SlotKey
		}
		return out[i].SectionID.String() < out[j].SectionID.String()
	})
	return out
}

// shortID 返回 UUID 的前 8 位
func shortID(id uuid.UUID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
