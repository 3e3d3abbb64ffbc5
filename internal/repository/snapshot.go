package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

// LoadSnapshot 加载机构的领域快照
// 快照是生成运行的只读输入，加载后立即建立索引
func (r *Repository) LoadSnapshot(ctx context.Context, institutionID uuid.UUID, mode model.Mode) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		InstitutionID: institutionID,
		Mode:          mode,
	}

	var err error
	if snap.Teachers, err = r.loadTeachers(ctx, institutionID); err != nil {
		return nil, err
	}
	if snap.Rooms, err = r.loadRooms(ctx, institutionID); err != nil {
		return nil, err
	}
	if snap.Sections, err = r.loadSections(ctx, institutionID); err != nil {
		return nil, err
	}
	if snap.Subjects, err = r.loadSubjects(ctx, institutionID); err != nil {
		return nil, err
	}

	snap.Index()
	return snap, nil
}

func (r *Repository) loadTeachers(ctx context.Context, institutionID uuid.UUID) ([]*model.Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, code, status, subjects, available_slots, max_daily_load, max_weekly_load
		FROM teachers
		WHERE institution_id = $1`, institutionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取教师失败")
	}
	defer rows.Close()

	var teachers []*model.Teacher
	for rows.Next() {
		t := &model.Teacher{InstitutionID: institutionID}
		var subjects pq.StringArray
		var available pq.Int64Array
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.Status, &subjects, &available, &t.MaxDailyLoad, &t.MaxWeeklyLoad); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描教师失败")
		}
		if t.Subjects, err = parseUUIDArray(subjects); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "解析教师可授科目失败")
		}
		// 空列表表示全时段可用
		if len(available) > 0 {
			t.Availability = make(map[int]bool, len(available))
			for _, key := range available {
				t.Availability[int(key)] = true
			}
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

func (r *Repository) loadRooms(ctx context.Context, institutionID uuid.UUID) ([]*model.Classroom, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, code, capacity, room_type, features
		FROM classrooms
		WHERE institution_id = $1`, institutionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取教室失败")
	}
	defer rows.Close()

	var rooms []*model.Classroom
	for rows.Next() {
		room := &model.Classroom{InstitutionID: institutionID}
		var features pq.StringArray
		if err := rows.Scan(&room.ID, &room.Name, &room.Code, &room.Capacity, &room.RoomType, &features); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描教室失败")
		}
		room.Features = []string(features)
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *Repository) loadSections(ctx context.Context, institutionID uuid.UUID) ([]*model.Section, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, code, size, curriculum, max_classes_per_day
		FROM sections
		WHERE institution_id = $1`, institutionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取班级失败")
	}
	defer rows.Close()

	var sections []*model.Section
	for rows.Next() {
		s := &model.Section{InstitutionID: institutionID}
		var curriculum pq.StringArray
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.Size, &curriculum, &s.MaxClassesPerDay); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描班级失败")
		}
		if s.Curriculum, err = parseUUIDArray(curriculum); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "解析培养方案失败")
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (r *Repository) loadSubjects(ctx context.Context, institutionID uuid.UUID) ([]*model.Subject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, code, weekly_hours, block_size, required_features, qualified_teachers
		FROM subjects
		WHERE institution_id = $1`, institutionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取科目失败")
	}
	defer rows.Close()

	var subjects []*model.Subject
	for rows.Next() {
		s := &model.Subject{InstitutionID: institutionID}
		var features pq.StringArray
		var teachers pq.StringArray
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.WeeklyHours, &s.BlockSize, &features, &teachers); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描科目失败")
		}
		s.RequiredFeatures = []string(features)
		if s.QualifiedTeachers, err = parseUUIDArray(teachers); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "解析可授教师失败")
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}
