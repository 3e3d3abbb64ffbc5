// Package model 定义排课引擎的核心数据模型
package model

import "github.com/google/uuid"

// Snapshot 领域快照：一次生成运行的全部只读输入
// 由外部数据加载方构造，运行期间不得修改
type Snapshot struct {
	InstitutionID uuid.UUID    `json:"institution_id"`
	Mode          Mode         `json:"mode"`
	Teachers      []*Teacher   `json:"teachers"`
	Rooms         []*Classroom `json:"rooms"`
	Sections      []*Section   `json:"sections"`
	Subjects      []*Subject   `json:"subjects"`

	teacherMap map[uuid.UUID]*Teacher
	roomMap    map[uuid.UUID]*Classroom
	sectionMap map[uuid.UUID]*Section
	subjectMap map[uuid.UUID]*Subject
}

// Index 构建快照的查找索引，加载完成后调用一次
func (s *Snapshot) Index() {
	s.teacherMap = make(map[uuid.UUID]*Teacher, len(s.Teachers))
	for _, t := range s.Teachers {
		s.teacherMap[t.ID] = t
	}
	s.roomMap = make(map[uuid.UUID]*Classroom, len(s.Rooms))
	for _, r := range s.Rooms {
		s.roomMap[r.ID] = r
	}
	s.sectionMap = make(map[uuid.UUID]*Section, len(s.Sections))
	for _, sec := range s.Sections {
		s.sectionMap[sec.ID] = sec
	}
	s.subjectMap = make(map[uuid.UUID]*Subject, len(s.Subjects))
	for _, sub := range s.Subjects {
		s.subjectMap[sub.ID] = sub
	}
}

// Teacher 按 ID 查找教师
func (s *Snapshot) Teacher(id uuid.UUID) *Teacher {
	return s.teacherMap[id]
}

// Room 按 ID 查找教室
func (s *Snapshot) Room(id uuid.UUID) *Classroom {
	return s.roomMap[id]
}

// Section 按 ID 查找班级
func (s *Snapshot) Section(id uuid.UUID) *Section {
	return s.sectionMap[id]
}

// Subject 按 ID 查找科目
func (s *Snapshot) Subject(id uuid.UUID) *Subject {
	return s.subjectMap[id]
}

// ExpandActivities 将各班级培养方案展开为排课单元
// 每个每周课时生成一个 Activity
func (s *Snapshot) ExpandActivities() []*Activity {
	var activities []*Activity
	for _, section := range s.Sections {
		for _, subjectID := range section.Curriculum {
			subject := s.Subject(subjectID)
			if subject == nil {
				continue
			}
			for session := 1; session <= subject.WeeklyHours; session++ {
				activities = append(activities, NewActivity(section.ID, subjectID, session))
			}
		}
	}
	return activities
}
