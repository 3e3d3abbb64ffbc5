// Package model 定义排课引擎的核心数据模型
package model

import "github.com/google/uuid"

// Teacher 教师
type Teacher struct {
	BaseModel
	InstitutionID uuid.UUID `json:"institution_id" db:"institution_id"`
	Name          string    `json:"name" db:"name"`
	Code          string    `json:"code" db:"code"`
	Status        string    `json:"status" db:"status"` // active/inactive/leave

	// 可授科目/课程
	Subjects []uuid.UUID `json:"subjects" db:"subjects"`

	// 可用时间掩码：key 为时间格键，缺省（空表）表示全部可用
	Availability map[int]bool `json:"availability,omitempty" db:"-"`

	// 负荷上限（节数），0 表示不限
	MaxDailyLoad  int `json:"max_daily_load" db:"max_daily_load"`
	MaxWeeklyLoad int `json:"max_weekly_load" db:"max_weekly_load"`
}

// IsActive 检查教师是否在职
func (t *Teacher) IsActive() bool {
	return t.Status == "active"
}

// CanTeach 检查教师是否可授某科目
func (t *Teacher) CanTeach(subjectID uuid.UUID) bool {
	for _, s := range t.Subjects {
		if s == subjectID {
			return true
		}
	}
	return false
}

// AvailableAt 检查教师在某时间格是否可用
func (t *Teacher) AvailableAt(slotKey int) bool {
	if len(t.Availability) == 0 {
		return true
	}
	return t.Availability[slotKey]
}

// Classroom 教室
type Classroom struct {
	BaseModel
	InstitutionID uuid.UUID `json:"institution_id" db:"institution_id"`
	Name          string    `json:"name" db:"name"`
	Code          string    `json:"code" db:"code"`
	Capacity      int       `json:"capacity" db:"capacity"`
	RoomType      string    `json:"room_type,omitempty" db:"room_type"` // normal/lab/seminar
	Features      []string  `json:"features,omitempty" db:"features"`   // lab/projector/computer...
}

// HasFeature 检查教室是否具备某设施
func (r *Classroom) HasFeature(feature string) bool {
	for _, f := range r.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// HasFeatures 检查教室是否具备全部所需设施
func (r *Classroom) HasFeatures(required []string) bool {
	for _, f := range required {
		if !r.HasFeature(f) {
			return false
		}
	}
	return true
}

// Fits 检查教室是否满足容量和设施要求
func (r *Classroom) Fits(size int, required []string) bool {
	return r.Capacity >= size && r.HasFeatures(required)
}
