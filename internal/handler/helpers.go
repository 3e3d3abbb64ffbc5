package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

// parseID 解析必填的UUID参数
func parseID(s, field string) (uuid.UUID, *errors.AppError) {
	if s == "" {
		return uuid.Nil, errors.InvalidInput(field, "不能为空")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.InvalidInput(field, "不是合法的UUID")
	}
	return id, nil
}

// parseOptionalID 解析可选的UUID参数，空串生成新ID
func parseOptionalID(s, field string) (uuid.UUID, *errors.AppError) {
	if s == "" {
		return uuid.New(), nil
	}
	return parseID(s, field)
}

// parseIDList 解析UUID列表
func parseIDList(list []string, field string) ([]uuid.UUID, *errors.AppError) {
	ids := make([]uuid.UUID, 0, len(list))
	for _, s := range list {
		id, appErr := parseID(s, field)
		if appErr != nil {
			return nil, appErr
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// contextWithTimeout 派生不随请求取消的超时上下文，用于响应后的收尾工作
func contextWithTimeout(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
}

// buildSnapshot 将请求输入转换为领域快照
func buildSnapshot(institutionID, mode string, teachers []TeacherInput, rooms []RoomInput, sections []SectionInput, subjects []SubjectInput) (*model.Snapshot, *errors.AppError) {
	instID, appErr := parseID(institutionID, "institution_id")
	if appErr != nil {
		return nil, appErr
	}

	snap := &model.Snapshot{
		InstitutionID: instID,
		Mode:          model.Mode(mode),
	}
	if snap.Mode == "" {
		snap.Mode = model.ModeSchool
	}

	for _, in := range teachers {
		id, appErr := parseOptionalID(in.ID, "teachers.id")
		if appErr != nil {
			return nil, appErr
		}
		subjectIDs, appErr := parseIDList(in.Subjects, "teachers.subjects")
		if appErr != nil {
			return nil, appErr
		}
		t := &model.Teacher{
			InstitutionID: instID,
			Name:          in.Name,
			Code:          in.Code,
			Status:        in.Status,
			Subjects:      subjectIDs,
			MaxDailyLoad:  in.MaxDailyLoad,
			MaxWeeklyLoad: in.MaxWeeklyLoad,
		}
		t.ID = id
		if t.Status == "" {
			t.Status = "active"
		}
		if len(in.AvailableSlots) > 0 {
			t.Availability = make(map[int]bool, len(in.AvailableSlots))
			for _, key := range in.AvailableSlots {
				t.Availability[key] = true
			}
		}
		snap.Teachers = append(snap.Teachers, t)
	}

	for _, in := range rooms {
		id, appErr := parseOptionalID(in.ID, "rooms.id")
		if appErr != nil {
			return nil, appErr
		}
		room := &model.Classroom{
			InstitutionID: instID,
			Name:          in.Name,
			Code:          in.Code,
			Capacity:      in.Capacity,
			RoomType:      in.RoomType,
			Features:      in.Features,
		}
		room.ID = id
		snap.Rooms = append(snap.Rooms, room)
	}

	for _, in := range sections {
		id, appErr := parseOptionalID(in.ID, "sections.id")
		if appErr != nil {
			return nil, appErr
		}
		curriculum, appErr := parseIDList(in.Curriculum, "sections.curriculum")
		if appErr != nil {
			return nil, appErr
		}
		s := &model.Section{
			InstitutionID:    instID,
			Name:             in.Name,
			Code:             in.Code,
			Size:             in.Size,
			Curriculum:       curriculum,
			MaxClassesPerDay: in.MaxClassesPerDay,
		}
		s.ID = id
		snap.Sections = append(snap.Sections, s)
	}

	for _, in := range subjects {
		id, appErr := parseOptionalID(in.ID, "subjects.id")
		if appErr != nil {
			return nil, appErr
		}
		qualified, appErr := parseIDList(in.QualifiedTeachers, "subjects.qualified_teachers")
		if appErr != nil {
			return nil, appErr
		}
		s := &model.Subject{
			InstitutionID:     instID,
			Name:              in.Name,
			Code:              in.Code,
			WeeklyHours:       in.WeeklyHours,
			BlockSize:         in.BlockSize,
			RequiredFeatures:  in.RequiredFeatures,
			QualifiedTeachers: qualified,
		}
		s.ID = id
		snap.Subjects = append(snap.Subjects, s)
	}

	snap.Index()
	return snap, nil
}

// buildConfig 将请求选项合并到默认生成配置
func buildConfig(opts *GenerateOptions) *model.GenerationConfig {
	cfg := model.DefaultGenerationConfig()
	if opts == nil {
		return cfg
	}
	if opts.WorkingDays > 0 {
		cfg.WorkingDays = opts.WorkingDays
	}
	if opts.PeriodsPerDay > 0 {
		cfg.PeriodsPerDay = opts.PeriodsPerDay
	}
	if opts.PeriodMinutes > 0 {
		cfg.PeriodDurationMinutes = opts.PeriodMinutes
	}
	if opts.DayStartTime != "" {
		cfg.DayStartTime = opts.DayStartTime
	}
	if len(opts.BreakSlots) > 0 {
		cfg.BreakSlots = opts.BreakSlots
	}
	if opts.MaxClassesPerDay > 0 {
		cfg.MaxClassesPerDay = opts.MaxClassesPerDay
	}
	if opts.TimeBudgetSecs > 0 {
		cfg.TimeBudget = time.Duration(opts.TimeBudgetSecs) * time.Second
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	if opts.OnConflict != "" {
		cfg.OnConflict = model.ConcurrencyPolicy(opts.OnConflict)
	}
	if opts.SoftWeights != nil {
		cfg.SoftConstraintWeights = opts.SoftWeights
	}
	return cfg
}
