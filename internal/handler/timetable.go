// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/paike/paike/internal/repository"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// TimetableHandler 排课处理器
type TimetableHandler struct {
	generator *scheduler.Generator
	repo      *repository.Repository // 可为 nil，表示不持久化
}

// NewTimetableHandler 创建排课处理器
func NewTimetableHandler(generator *scheduler.Generator, repo *repository.Repository) *TimetableHandler {
	return &TimetableHandler{
		generator: generator,
		repo:      repo,
	}
}

// GenerateRequest 排课生成请求
type GenerateRequest struct {
	InstitutionID string           `json:"institution_id"`
	Mode          string           `json:"mode,omitempty"` // school/college
	Teachers      []TeacherInput   `json:"teachers"`
	Rooms         []RoomInput      `json:"rooms"`
	Sections      []SectionInput   `json:"sections"`
	Subjects      []SubjectInput   `json:"subjects"`
	Options       *GenerateOptions `json:"options,omitempty"`
	Async         bool             `json:"async,omitempty"` // 异步返回运行句柄
}

// TeacherInput 教师输入
type TeacherInput struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	Code           string   `json:"code,omitempty"`
	Status         string   `json:"status,omitempty"`
	Subjects       []string `json:"subjects,omitempty"`
	AvailableSlots []int    `json:"available_slots,omitempty"` // 空表示全时段可用
	MaxDailyLoad   int      `json:"max_daily_load,omitempty"`
	MaxWeeklyLoad  int      `json:"max_weekly_load,omitempty"`
}

// RoomInput 教室输入
type RoomInput struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Code     string   `json:"code,omitempty"`
	Capacity int      `json:"capacity"`
	RoomType string   `json:"room_type,omitempty"`
	Features []string `json:"features,omitempty"`
}

// SectionInput 班级输入
type SectionInput struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name"`
	Code             string   `json:"code,omitempty"`
	Size             int      `json:"size"`
	Curriculum       []string `json:"curriculum"`
	MaxClassesPerDay int      `json:"max_classes_per_day,omitempty"`
}

// SubjectInput 科目输入
type SubjectInput struct {
	ID                string   `json:"id,omitempty"`
	Name              string   `json:"name"`
	Code              string   `json:"code,omitempty"`
	WeeklyHours       int      `json:"weekly_hours"`
	BlockSize         int      `json:"block_size,omitempty"`
	RequiredFeatures  []string `json:"required_features,omitempty"`
	QualifiedTeachers []string `json:"qualified_teachers"`
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	WorkingDays      int                `json:"working_days,omitempty"`
	PeriodsPerDay    int                `json:"periods_per_day,omitempty"`
	PeriodMinutes    int                `json:"period_minutes,omitempty"`
	DayStartTime     string             `json:"day_start_time,omitempty"`
	BreakSlots       []int              `json:"break_slots,omitempty"`
	MaxClassesPerDay int                `json:"max_classes_per_day,omitempty"`
	TimeBudgetSecs   int                `json:"time_budget_seconds,omitempty"`
	Workers          int                `json:"workers,omitempty"`
	Seed             int64              `json:"seed,omitempty"`
	OnConflict       string             `json:"on_conflict,omitempty"` // queue/cancel/reject
	SoftWeights      map[string]float64 `json:"soft_constraint_weights,omitempty"`
}

// GenerateResponse 排课生成响应
type GenerateResponse struct {
	Success bool                    `json:"success"`
	RunID   string                  `json:"run_id"`
	State   string                  `json:"state"`
	Report  *model.GenerationReport `json:"report,omitempty"`
}

// ValidateRequest 课表验证请求
type ValidateRequest struct {
	InstitutionID string             `json:"institution_id"`
	Mode          string             `json:"mode,omitempty"`
	Teachers      []TeacherInput     `json:"teachers"`
	Rooms         []RoomInput        `json:"rooms"`
	Sections      []SectionInput     `json:"sections"`
	Subjects      []SubjectInput     `json:"subjects"`
	Options       *GenerateOptions   `json:"options,omitempty"`
	Entries       []model.Assignment `json:"entries"`
}

// ValidateResponse 课表验证响应
type ValidateResponse struct {
	IsValid        bool                         `json:"is_valid"`
	HardViolations []constraint.ViolationDetail `json:"hard_violations"`
	SoftViolations []constraint.ViolationDetail `json:"soft_violations"`
	SoftPenalty    float64                      `json:"soft_penalty"`
}

// Generate 生成课表
// 默认同步等待生成结束；async 为真时立即返回运行句柄
func (h *TimetableHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}

	snap, appErr := buildSnapshot(req.InstitutionID, req.Mode, req.Teachers, req.Rooms, req.Sections, req.Subjects)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	cfg := buildConfig(req.Options)

	handle, err := h.generator.Generate(r.Context(), snap, cfg)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.GetCode(err), "启动生成失败"))
		return
	}

	if req.Async {
		respondJSON(w, http.StatusAccepted, GenerateResponse{
			Success: true,
			RunID:   handle.ID.String(),
			State:   string(handle.State()),
		})
		return
	}

	report, err := handle.Wait(r.Context())
	state := handle.State()
	if report == nil {
		respondError(w, errors.Wrap(err, errors.GetCode(err), "生成失败"))
		return
	}

	h.persist(r, report, state)

	respondJSON(w, http.StatusOK, GenerateResponse{
		Success: state == scheduler.StateCompleted,
		RunID:   handle.ID.String(),
		State:   string(state),
		Report:  report,
	})
}

// persist 持久化运行结果，失败只记日志不影响响应
func (h *TimetableHandler) persist(r *http.Request, report *model.GenerationReport, state scheduler.RunState) {
	if h.repo == nil || report == nil {
		return
	}
	ctx, cancel := contextWithTimeout(r, 10*time.Second)
	defer cancel()
	if err := h.repo.SaveRun(ctx, report, string(state)); err != nil {
		logger.WithContext(r.Context()).Error().Err(err).
			Str("run_id", report.RunID.String()).
			Msg("运行结果持久化失败")
	}
}

// Validate 验证既有课表
func (h *TimetableHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}

	snap, appErr := buildSnapshot(req.InstitutionID, req.Mode, req.Teachers, req.Rooms, req.Sections, req.Subjects)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	schedule := model.NewSchedule()
	for i := range req.Entries {
		schedule.Put(req.Entries[i].Clone())
	}

	result, err := h.generator.Validate(snap, buildConfig(req.Options), schedule)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.GetCode(err), "课表验证失败"))
		return
	}

	respondJSON(w, http.StatusOK, ValidateResponse{
		IsValid:        result.IsValid,
		HardViolations: result.HardViolations,
		SoftViolations: result.SoftViolations,
		SoftPenalty:    result.SoftPenalty,
	})
}

// Progress 查询机构在途运行的进度
func (h *TimetableHandler) Progress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	institutionID, appErr := parseID(r.URL.Query().Get("institution_id"), "institution_id")
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	handle := h.generator.Running(institutionID)
	if handle == nil {
		respondJSON(w, http.StatusOK, scheduler.Progress{
			InstitutionID: institutionID,
			State:         scheduler.StateIdle,
		})
		return
	}
	respondJSON(w, http.StatusOK, handle.Progress())
}

// Cancel 取消机构在途的生成运行
func (h *TimetableHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	institutionID, appErr := parseID(r.URL.Query().Get("institution_id"), "institution_id")
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	cancelled := h.generator.Cancel(institutionID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cancelled": cancelled,
	})
}

// Runs 查询机构最近的运行记录
func (h *TimetableHandler) Runs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	if h.repo == nil {
		respondError(w, errors.New(errors.CodeInternal, "未启用持久化"))
		return
	}

	institutionID, appErr := parseID(r.URL.Query().Get("institution_id"), "institution_id")
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	records, err := h.repo.ListRuns(r.Context(), institutionID, 20)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.GetCode(err), "查询运行记录失败"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs": records,
	})
}
