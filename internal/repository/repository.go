// Package repository 提供排课数据的持久化访问
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/paike/paike/internal/database"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

// Repository 排课数据仓库
type Repository struct {
	db *database.DB
}

// New 创建数据仓库
func New(db *database.DB) *Repository {
	return &Repository{db: db}
}

// RunRecord 生成运行的持久化记录
type RunRecord struct {
	ID              uuid.UUID `json:"id" db:"id"`
	InstitutionID   uuid.UUID `json:"institution_id" db:"institution_id"`
	Status          string    `json:"status" db:"status"`
	Accuracy        float64   `json:"accuracy" db:"accuracy"`
	SuccessRate     float64   `json:"success_rate" db:"success_rate"`
	FitnessScore    float64   `json:"fitness_score" db:"fitness_score"`
	HardViolations  int       `json:"hard_violations" db:"hard_violations"`
	TotalActivities int       `json:"total_activities" db:"total_activities"`
	Generations     int       `json:"generations" db:"generations"`
	DurationSeconds float64   `json:"duration_seconds" db:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// SaveRun 持久化一次生成运行及其课表条目
func (r *Repository) SaveRun(ctx context.Context, report *model.GenerationReport, status string) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO timetable_runs
				(id, institution_id, status, accuracy, success_rate, fitness_score,
				 hard_violations, total_activities, generations, duration_seconds, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
			report.RunID, report.InstitutionID, status,
			report.Accuracy, report.SuccessRate, report.FitnessScore,
			report.HardViolations, report.TotalActivities, report.Generations,
			report.GenerationTimeSeconds,
		)
		if err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "写入运行记录失败")
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO timetable_entries
				(run_id, activity_id, section_id, subject_id, teacher_id, room_id, slot_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "准备课表条目写入失败")
		}
		defer stmt.Close()

		for _, a := range report.Schedule.Sorted() {
			if _, err := stmt.ExecContext(ctx,
				report.RunID, a.ActivityID, a.SectionID, a.SubjectID,
				a.TeacherID, a.RoomID, a.SlotKey,
			); err != nil {
				return errors.Wrap(err, errors.CodeDatabaseError, "写入课表条目失败")
			}
		}
		return nil
	})
}

// GetRun 读取运行记录
func (r *Repository) GetRun(ctx context.Context, runID uuid.UUID) (*RunRecord, error) {
	var rec RunRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, institution_id, status, accuracy, success_rate, fitness_score,
		       hard_violations, total_activities, generations, duration_seconds, created_at
		FROM timetable_runs WHERE id = $1`, runID,
	).Scan(
		&rec.ID, &rec.InstitutionID, &rec.Status, &rec.Accuracy, &rec.SuccessRate,
		&rec.FitnessScore, &rec.HardViolations, &rec.TotalActivities,
		&rec.Generations, &rec.DurationSeconds, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("运行记录", runID.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取运行记录失败")
	}
	return &rec, nil
}

// ListRuns 按机构读取最近的运行记录
func (r *Repository) ListRuns(ctx context.Context, institutionID uuid.UUID, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, institution_id, status, accuracy, success_rate, fitness_score,
		       hard_violations, total_activities, generations, duration_seconds, created_at
		FROM timetable_runs
		WHERE institution_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, institutionID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取运行记录列表失败")
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.InstitutionID, &rec.Status, &rec.Accuracy, &rec.SuccessRate,
			&rec.FitnessScore, &rec.HardViolations, &rec.TotalActivities,
			&rec.Generations, &rec.DurationSeconds, &rec.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描运行记录失败")
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// GetRunEntries 读取某次运行的课表条目
func (r *Repository) GetRunEntries(ctx context.Context, runID uuid.UUID) ([]*model.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT activity_id, section_id, subject_id, teacher_id, room_id, slot_key
		FROM timetable_entries
		WHERE run_id = $1
		ORDER BY slot_key, section_id`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取课表条目失败")
	}
	defer rows.Close()

	var entries []*model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ActivityID, &a.SectionID, &a.SubjectID, &a.TeacherID, &a.RoomID, &a.SlotKey); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描课表条目失败")
		}
		entries = append(entries, &a)
	}
	return entries, rows.Err()
}

// parseUUIDArray 将 uuid[] 列的文本表示转换为 UUID 列表
func parseUUIDArray(arr pq.StringArray) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(arr))
	for _, s := range arr {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
