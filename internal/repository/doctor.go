// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/errors"
	"github.com/medroster/medroster/pkg/model"
)

// DoctorRepository 医生仓储
type DoctorRepository struct {
	db DB
}

// NewDoctorRepository 创建医生仓储
func NewDoctorRepository(db DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// Create 创建医生
func (r *DoctorRepository) Create(ctx context.Context, doc *model.Doctor) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	specialtiesJSON, _ := json.Marshal(doc.Specialties)
	weekdaysJSON, _ := json.Marshal(doc.ExcludedWeekdays)
	activitiesJSON, _ := json.Marshal(doc.ExcludedActivities)
	slotTypesJSON, _ := json.Marshal(doc.ExcludedSlotTypes)

	query := `
		INSERT INTO doctors (
			id, name, code, status, specialties, employment_factor,
			excluded_weekdays, excluded_activities, excluded_slot_types,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Name, doc.Code, doc.Status, specialtiesJSON, doc.EmploymentFactor,
		weekdaysJSON, activitiesJSON, slotTypesJSON,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建医生失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取医生
func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, name, code, status, specialties, employment_factor,
			excluded_weekdays, excluded_activities, excluded_slot_types,
			created_at, updated_at
		FROM doctors
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.scanDoctor(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新医生
func (r *DoctorRepository) Update(ctx context.Context, doc *model.Doctor) error {
	doc.UpdatedAt = time.Now()

	specialtiesJSON, _ := json.Marshal(doc.Specialties)
	weekdaysJSON, _ := json.Marshal(doc.ExcludedWeekdays)
	activitiesJSON, _ := json.Marshal(doc.ExcludedActivities)
	slotTypesJSON, _ := json.Marshal(doc.ExcludedSlotTypes)

	query := `
		UPDATE doctors SET
			name = $2, code = $3, status = $4, specialties = $5,
			employment_factor = $6, excluded_weekdays = $7,
			excluded_activities = $8, excluded_slot_types = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Name, doc.Code, doc.Status, specialtiesJSON,
		doc.EmploymentFactor, weekdaysJSON, activitiesJSON, slotTypesJSON,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新医生失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("医生", doc.ID.String())
	}
	return nil
}

// Delete 软删除医生
func (r *DoctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE doctors SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除医生失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("医生", id.String())
	}
	return nil
}

// List 列出医生
func (r *DoctorRepository) List(ctx context.Context, filter ListFilter) ([]*model.Doctor, error) {
	query := `
		SELECT id, name, code, status, specialties, employment_factor,
			excluded_weekdays, excluded_activities, excluded_slot_types,
			created_at, updated_at
		FROM doctors
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY code, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询医生列表失败: %w", err)
	}
	defer rows.Close()

	var doctors []*model.Doctor
	for rows.Next() {
		doc, err := r.scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, doc)
	}
	return doctors, rows.Err()
}

// scanDoctor 扫描医生记录
func (r *DoctorRepository) scanDoctor(s Scanner) (*model.Doctor, error) {
	var doc model.Doctor
	var specialtiesJSON, weekdaysJSON, activitiesJSON, slotTypesJSON []byte

	err := s.Scan(
		&doc.ID, &doc.Name, &doc.Code, &doc.Status, &specialtiesJSON, &doc.EmploymentFactor,
		&weekdaysJSON, &activitiesJSON, &slotTypesJSON,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("扫描医生记录失败: %w", err)
	}

	json.Unmarshal(specialtiesJSON, &doc.Specialties)
	json.Unmarshal(weekdaysJSON, &doc.ExcludedWeekdays)
	json.Unmarshal(activitiesJSON, &doc.ExcludedActivities)
	json.Unmarshal(slotTypesJSON, &doc.ExcludedSlotTypes)
	return &doc, nil
}

// UnavailabilityRepository 不可用记录仓储
// 记录创建后不可修改，只支持创建、删除与范围查询
type UnavailabilityRepository struct {
	db DB
}

// NewUnavailabilityRepository 创建不可用记录仓储
func NewUnavailabilityRepository(db DB) *UnavailabilityRepository {
	return &UnavailabilityRepository{db: db}
}

// Create 创建不可用记录
func (r *UnavailabilityRepository) Create(ctx context.Context, u *model.Unavailability) error {
	if u.StartDate > u.EndDate {
		return errors.InvalidDateRange(u.StartDate, u.EndDate)
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `
		INSERT INTO unavailabilities (
			id, doctor_id, start_date, end_date, period, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.DoctorID, u.StartDate, u.EndDate, u.Period, u.Reason, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建不可用记录失败: %w", err)
	}
	return nil
}

// Delete 删除不可用记录
func (r *UnavailabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM unavailabilities WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("删除不可用记录失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("不可用记录", id.String())
	}
	return nil
}

// ListForRange 列出与日期范围相交的不可用记录
func (r *UnavailabilityRepository) ListForRange(ctx context.Context, startDate, endDate string) ([]*model.Unavailability, error) {
	query := `
		SELECT id, doctor_id, start_date, end_date, period, reason, created_at, updated_at
		FROM unavailabilities
		WHERE start_date <= $2 AND end_date >= $1
		ORDER BY start_date, doctor_id
	`
	rows, err := r.db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询不可用记录失败: %w", err)
	}
	defer rows.Close()

	var out []*model.Unavailability
	for rows.Next() {
		var u model.Unavailability
		if err := rows.Scan(
			&u.ID, &u.DoctorID, &u.StartDate, &u.EndDate, &u.Period, &u.Reason,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描不可用记录失败: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}
