// Package model 定义排课引擎的核心数据模型
package model

import "github.com/google/uuid"

// Subject 科目/课程
// school 模式下表示科目，college 模式下表示课程
type Subject struct {
	BaseModel
	InstitutionID uuid.UUID `json:"institution_id" db:"institution_id"`
	Name          string    `json:"name" db:"name"`
	Code          string    `json:"code" db:"code"`

	// 每周课时（school）或学分折算节数（college）
	WeeklyHours int `json:"weekly_hours" db:"weekly_hours"`

	// 连排节数：大于1表示需要连续节次（如实验课两节连上）
	BlockSize int `json:"block_size,omitempty" db:"block_size"`

	// 教室要求
	RequiredFeatures []string `json:"required_features,omitempty" db:"required_features"`

	// 可授教师，首个为首选教师
	QualifiedTeachers []uuid.UUID `json:"qualified_teachers" db:"qualified_teachers"`
}

// PreferredTeacher 返回首选教师，无则返回 uuid.Nil
func (s *Subject) PreferredTeacher() uuid.UUID {
	if len(s.QualifiedTeachers) == 0 {
		return uuid.Nil
	}
	return s.QualifiedTeachers[0]
}

// IsQualified 检查教师是否可授本科目
func (s *Subject) IsQualified(teacherID uuid.UUID) bool {
	for _, t := range s.QualifiedTeachers {
		if t == teacherID {
			return true
		}
	}
	return false
}

// Section 学生班级（school）/ 教学班（college）
type Section struct {
	BaseModel
	InstitutionID uuid.UUID `json:"institution_id" db:"institution_id"`
	Name          string    `json:"name" db:"name"`
	Code          string    `json:"code" db:"code"`
	Size          int       `json:"size" db:"size"`

	// 培养方案：需要排入课表的科目/课程
	Curriculum []uuid.UUID `json:"curriculum" db:"curriculum"`

	// 每日最大上课节数，0 表示不限
	MaxClassesPerDay int `json:"max_classes_per_day,omitempty" db:"max_classes_per_day"`
}

// Requires 检查班级培养方案是否包含某科目
func (s *Section) Requires(subjectID uuid.UUID) bool {
	for _, id := range s.Curriculum {
		if id == subjectID {
			return true
		}
	}
	return false
}
