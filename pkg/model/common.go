// Package model 定义排课引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Mode 排课模式
type Mode string

const (
	ModeSchool  Mode = "school"  // 中小学（班级+科目）
	ModeCollege Mode = "college" // 高校（教学班+课程）
)

// ConstraintCategory 约束类别
type ConstraintCategory string

const (
	ConstraintHard ConstraintCategory = "hard" // 硬约束（必须满足）
	ConstraintSoft ConstraintCategory = "soft" // 软约束（尽量满足）
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Institution 学校/机构
type Institution struct {
	BaseModel
	Name     string  `json:"name" db:"name"`
	Code     string  `json:"code" db:"code"`
	Mode     Mode    `json:"mode" db:"mode"`
	Settings JSONMap `json:"settings" db:"settings"`
}

// JSONMap 用于存储 JSONB 数据
type JSONMap map[string]interface{}

// IntRange 整数区间
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Clamp 将值限制在区间内
func (r IntRange) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// FloatRange 浮点数区间
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clamp 将值限制在区间内
func (r FloatRange) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}
